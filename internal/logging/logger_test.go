package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_NoopBeforeInitialize(t *testing.T) {
	CloseAll()
	assert.False(t, IsCategoryEnabled(CategoryTodos))
	// must not panic
	Get(CategoryTodos).Info("ignored %d", 1)
}

func TestInitialize_ConsoleAndFile(t *testing.T) {
	t.Cleanup(CloseAll)
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "run.log")

	require.NoError(t, Initialize(Options{Level: "info", File: logPath, Console: &console}))

	Get(CategoryNotion).Info("appended %d blocks", 3)
	Get(CategoryNotion).Debug("hidden on console")
	CloseAll()

	assert.Contains(t, console.String(), "appended 3 blocks")
	assert.Contains(t, console.String(), "notion")
	assert.NotContains(t, console.String(), "hidden on console")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// the file core records debug entries too
	require.Len(t, lines, 2)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "notion", entry["logger"])
	assert.Equal(t, "appended 3 blocks", entry["msg"])
}

func TestInitialize_VerboseAndCategories(t *testing.T) {
	t.Cleanup(CloseAll)
	var console bytes.Buffer
	require.NoError(t, Initialize(Options{
		Verbose:    true,
		Console:    &console,
		Categories: map[string]bool{"cron": false},
	}))

	assert.False(t, IsCategoryEnabled(CategoryCron))
	assert.True(t, IsCategoryEnabled(CategoryCalendar))

	Get(CategoryCron).Info("suppressed")
	CalendarDebug("imported %d events", 4)
	assert.NotContains(t, console.String(), "suppressed")
	assert.Contains(t, console.String(), "imported 4 events")
}

func TestInitialize_InvalidLevel(t *testing.T) {
	t.Cleanup(CloseAll)
	assert.Error(t, Initialize(Options{Level: "chatty", Console: &bytes.Buffer{}}))
}

func TestAudit_Events(t *testing.T) {
	t.Cleanup(CloseAll)
	var console bytes.Buffer
	require.NoError(t, Initialize(Options{Console: &console}))

	a := Audit("run-1")
	a.Append("page-123", 2, nil)
	a.Write(AuditEmailSent, "team@example.com", errors.New("smtp: auth failed"))

	out := console.String()
	assert.Contains(t, out, "target_append")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "smtp: auth failed")
}
