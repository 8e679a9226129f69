package email

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionhelper/internal/report"
	"notionhelper/internal/types"
)

func sampleReport() report.Report {
	loc := time.UTC
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, loc) }
	return report.Report{
		Range: types.NewDateRange(day(3), day(9), loc),
		Projects: []report.Project{
			{
				Key: "[adr] Architecture", Matched: true, Total: 2,
				Days: []report.Day{
					{Date: day(3), Tasks: []report.Task{{Text: "Decide storage", Date: day(3)}}},
					{Date: day(5), Tasks: []report.Task{{Text: "Write ADR", Date: day(5)}}},
				},
			},
			{
				Key: "general", Total: 1,
				Days: []report.Day{{Date: day(4), Tasks: []report.Task{{Text: "Buy milk", Date: day(4)}}}},
			},
		},
		TotalTasks: 3,
	}
}

func TestFill(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		want    string
		missing string
	}{
		{name: "simple", tmpl: "Hi {your_name}", want: "Hi Ada"},
		{name: "escaped braces", tmpl: "{{literal}} {your_name}", want: "{literal} Ada"},
		{name: "unknown", tmpl: "Hi {nickname}", missing: "nickname"},
		{name: "no placeholders", tmpl: "plain", want: "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fill(tt.tmpl, map[string]string{"your_name": "Ada"})
			if tt.missing != "" {
				var upe *UnknownPlaceholderError
				require.ErrorAs(t, err, &upe)
				assert.Equal(t, tt.missing, upe.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompose_Template(t *testing.T) {
	c := Composer{
		Template:        "Week {week_start} - {week_end}\n{project_summaries}\n{total_tasks}/{project_count}\n{your_name}",
		SubjectTemplate: "Update {week_start}",
		YourName:        "Ada",
		From:            "ada@example.com",
		To:              []string{"boss@example.com"},
	}
	e := c.Compose(sampleReport())

	want := "Week June 03 - June 09, 2024\n" +
		"## [adr] Architecture\n- 06/03: Decide storage\n- 06/05: Write ADR\n\n" +
		"## general\n- 06/04: Buy milk\n" +
		"3/2\nAda"
	if diff := cmp.Diff(want, e.Body); diff != "" {
		t.Errorf("Compose() body mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Update June 03", e.Subject)
	assert.Equal(t, "ada@example.com", e.From)
}

func TestCompose_UnknownPlaceholderFallsBack(t *testing.T) {
	c := Composer{Template: "Hello {boss_name}", SubjectTemplate: "S {oops}", YourName: "Ada"}
	e := c.Compose(sampleReport())

	assert.Equal(t, DefaultBody(sampleReport(), "Ada"), e.Body)
	assert.Equal(t, "Weekly Update - June 03 to June 09, 2024", e.Subject)
	// From falls back to the signature name
	assert.Equal(t, "Ada", e.From)
}

func TestDefaultBody(t *testing.T) {
	body := DefaultBody(sampleReport(), "Ada")

	assert.True(t, strings.HasPrefix(body, "Hi,\n\nHere's my weekly update for June 03 - June 09, 2024:\n"))
	// multi-day project shows dates, single-day project does not
	assert.Contains(t, body, "## [adr] Architecture\n\n**Monday, June 03:**\n- Decide storage\n\n**Wednesday, June 05:**\n- Write ADR\n")
	assert.Contains(t, body, "## general\n\n- Buy milk\n")
	assert.Contains(t, body, "**Summary:** Completed 3 tasks across 2 projects this week.")
	assert.True(t, strings.HasSuffix(body, "Best regards,\nAda"))
}

func TestCompose_EmptyReport(t *testing.T) {
	rep := report.Report{Range: sampleReport().Range}
	e := Composer{Template: SampleTemplate, YourName: "Ada"}.Compose(rep)
	assert.Contains(t, e.Body, "Completed 0 tasks across 0 projects")
}

func TestDraft_SaveParseLatest(t *testing.T) {
	dir := t.TempDir()
	e := Email{
		To:      []string{"boss@example.com", "lead@example.com"},
		Cc:      []string{"team@example.com"},
		From:    "Ada",
		Subject: "Weekly Update",
		Body:    "Hi,\n\n- done",
	}
	now := time.Date(2024, 6, 7, 8, 30, 0, 0, time.UTC)

	path, err := SaveDraft(dir, e, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weekly_update_20240607_083000.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Weekly Update\n\n"+strings.Repeat("=", 50)+"\n\nHi,")

	got, err := ReadDraft(path)
	require.NoError(t, err)
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("ReadDraft() mismatch (-want +got):\n%s", diff)
	}

	later, err := SaveDraft(dir, e, now.Add(time.Hour))
	require.NoError(t, err)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(later, future, future))

	latest, err := LatestDraft(dir)
	require.NoError(t, err)
	assert.Equal(t, later, latest)
}

func TestLatestDraft_Empty(t *testing.T) {
	_, err := LatestDraft(t.TempDir())
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestParseDraft_Invalid(t *testing.T) {
	_, err := ParseDraft("To: a@example.com\nSubject: x\n")
	assert.Error(t, err)

	_, err = ParseDraft("Subject: x\n\n=====\n\nbody")
	assert.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("## Project\n\n- **done** task")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Project</h2>")
	assert.Contains(t, html, "<strong>done</strong>")
}

func TestMessage(t *testing.T) {
	e := Email{
		To:      []string{"boss@example.com"},
		Cc:      []string{"team@example.com"},
		From:    "ada@example.com",
		Subject: "Weekly Update",
		Body:    "## Project\n\n- done",
	}
	m, err := Message(e)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Subject: Weekly Update")
	assert.Contains(t, out, "boss@example.com")
	assert.Contains(t, out, "text/html")

	_, err = Message(Email{From: "not an address", To: []string{"boss@example.com"}})
	assert.Error(t, err)
}
