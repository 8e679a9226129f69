package todo

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionhelper/internal/types"
)

// shape flattens a tree into "depth|text|done" lines for comparison.
func shape(items []types.TodoItem) []string {
	var out []string
	for _, root := range items {
		root.Walk(func(it types.TodoItem) bool {
			out = append(out, fmt.Sprintf("%d|%s|%v", it.Depth, it.Text, it.Completed))
			return true
		})
	}
	return out
}

func TestParseLines_Markers(t *testing.T) {
	input := strings.Join([]string{
		"# Monday",
		"- [ ] open task",
		"- [x] done lower",
		"* [X] done upper",
		"+ [ ] plus bullet",
		"- ~~struck entry~~",
		"- [ ] ~~struck checkbox~~",
		"plain prose is ignored",
		"- plain bullet is ignored",
	}, "\n")

	items, parseErrs, err := ParseLines(strings.NewReader(input), LineSource{File: "day.md"})
	require.NoError(t, err)
	assert.Empty(t, parseErrs)

	want := []string{
		"0|open task|false",
		"0|done lower|true",
		"0|done upper|true",
		"0|plus bullet|false",
		"0|struck entry|true",
		"0|struck checkbox|true",
	}
	if diff := cmp.Diff(want, shape(items)); diff != "" {
		t.Errorf("ParseLines() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, types.Source{File: "day.md", Line: 2}, items[0].Source)
}

func TestParseLines_Hierarchy(t *testing.T) {
	input := "- [ ] [adr] Task A\n" +
		"  - [ ] Subtask A1\n" +
		"    - [x] Deep A1a\n" +
		"  - [ ] Subtask A2\n" +
		"- [ ] Task B\n" +
		"\t- [ ] Tabbed child\n"

	items, _, err := ParseLines(strings.NewReader(input), LineSource{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	want := []string{
		"0|[adr] Task A|false",
		"1|Subtask A1|false",
		"2|Deep A1a|true",
		"1|Subtask A2|false",
		"0|Task B|false",
		"1|Tabbed child|false",
	}
	if diff := cmp.Diff(want, shape(items)); diff != "" {
		t.Errorf("ParseLines() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "adr", items[0].Prefix)
	assert.Equal(t, "Task A", items[0].DisplayText())
	for _, it := range items {
		assert.NoError(t, it.Validate())
	}
}

func TestParseLines_DedentAttachesToNearestShallower(t *testing.T) {
	input := "- [ ] root\n" +
		"      - [ ] deep\n" +
		"   - [ ] middle\n"

	items, _, err := ParseLines(strings.NewReader(input), LineSource{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	// "middle" (3) pops "deep" (6) and attaches to "root" (0)
	want := []string{"0|root|false", "1|deep|false", "1|middle|false"}
	if diff := cmp.Diff(want, shape(items)); diff != "" {
		t.Errorf("ParseLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLines_EmptyItemIsParseError(t *testing.T) {
	input := "- [ ] ok\n- [ ]   \n- [x] also ok\n"
	items, parseErrs, err := ParseLines(strings.NewReader(input), LineSource{File: "f.md"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	require.Len(t, parseErrs, 1)
	assert.ErrorIs(t, parseErrs[0], types.ErrParse)
	assert.ErrorIs(t, parseErrs[0], ErrEmptyItem)

	var pe *types.ParseError
	require.True(t, errors.As(parseErrs[0], &pe))
	assert.Equal(t, 2, pe.Source.Line)
}

func TestParseLines_SetsDate(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	items, _, err := ParseLines(strings.NewReader("- [x] a\n  - [ ] b\n"), LineSource{Date: day})
	require.NoError(t, err)
	assert.Equal(t, day, items[0].Date)
	assert.Equal(t, day, items[0].Children[0].Date)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParseLines_ReadErrorSurfaces(t *testing.T) {
	_, _, err := ParseLines(failingReader{}, LineSource{})
	assert.EqualError(t, err, "disk gone")
}

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"[adr] Task A", "adr"},
		{"  [Q3plan] review", "Q3plan"},
		{"no prefix", ""},
		{"[with space] nope", ""},
		{"mid [adr] text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPrefix(tt.text))
		})
	}
}

func TestParseOutline_ReadsRenderedTree(t *testing.T) {
	tree := []types.TodoItem{
		{Text: "Monday, June 10", Kind: types.KindHeading, Children: []types.TodoItem{
			{Text: "[cal] 09:00: Standup", Prefix: "cal", Kind: types.KindTodo},
			{Text: "note", Kind: types.KindBullet},
		}},
		{Text: "[adr] Task A", Prefix: "adr", Kind: types.KindTodo, Children: []types.TodoItem{
			{Text: "Subtask A1", Kind: types.KindTodo, Completed: true},
		}},
	}
	rendered := RenderMarkdown(tree)
	assert.Equal(t, "### Monday, June 10\n"+
		"  - [ ] 09:00: Standup\n"+
		"  - note\n"+
		"- [ ] Task A\n"+
		"  - [x] Subtask A1\n", rendered)

	items, parseErrs, err := ParseOutline(strings.NewReader(rendered), LineSource{})
	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	want := []string{
		"0|Monday, June 10|false",
		"1|09:00: Standup|false",
		"1|note|false",
		"0|Task A|false",
		"1|Subtask A1|true",
	}
	if diff := cmp.Diff(want, shape(items)); diff != "" {
		t.Errorf("ParseOutline() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, types.KindHeading, items[0].Kind)
	assert.Equal(t, types.KindBullet, items[0].Children[1].Kind)
}

func TestParseOutline_UnindentedItemsAfterHeadingStayRoots(t *testing.T) {
	input := "# Notes\n- [ ] loose task\n"
	items, _, err := ParseOutline(strings.NewReader(input), LineSource{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Empty(t, items[0].Children)
}
