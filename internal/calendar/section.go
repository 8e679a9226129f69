package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"notionhelper/internal/todo"
)

// Markers delimiting the generated section in a daily file.
const (
	SectionStart = "# Calendar Events"
	SectionEnd   = "# End Calendar Events"
)

// ReplaceSection removes any existing calendar section from content and
// appends a fresh one holding lines. A start marker without an end marker
// drops everything after it.
func ReplaceSection(content string, lines []string) string {
	if i := strings.Index(content, SectionStart); i >= 0 {
		rest := content[i:]
		if j := strings.Index(rest, SectionEnd); j >= 0 {
			content = content[:i] + rest[j+len(SectionEnd):]
		} else {
			content = content[:i]
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(content, " \t\r\n"))
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("\n" + SectionStart + "\n\n")
	for _, l := range lines {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("\n" + SectionEnd + "\n")
	return sb.String()
}

// SectionLines renders a group's events as checkbox lines.
func SectionLines(g Group) []string {
	items := g.Items(0)
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- [ ] "+it.Text)
	}
	return lines
}

// SectionWriter writes calendar sections into daily files.
type SectionWriter struct {
	Files todo.DailyFiles
}

// Write replaces the calendar section of the group's daily file, creating
// the file if needed. It returns the path written.
func (w SectionWriter) Write(g Group) (string, error) {
	path := w.Files.Path(g.Date)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return path, fmt.Errorf("read daily file: %w", err)
	}
	out := ReplaceSection(string(existing), SectionLines(g))
	if err := writeAtomic(path, []byte(out)); err != nil {
		return path, err
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create daily directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
