package email

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DraftDir is the default directory for saved drafts.
const DraftDir = "emails"

const (
	draftPrefix = "weekly_update_"
	draftLayout = "20060102_150405"
	separator   = "=================================================="
)

// ErrNoDraft is returned by LatestDraft when dir holds no draft.
var ErrNoDraft = errors.New("no email drafts found")

// DraftName returns the file name of a draft saved at now.
func DraftName(now time.Time) string {
	return draftPrefix + now.Format(draftLayout) + ".txt"
}

// FormatDraft renders e as the draft file layout: header lines, a row of
// '=' and the body.
func FormatDraft(e Email) string {
	var sb strings.Builder
	sb.WriteString("To: " + strings.Join(e.To, ", ") + "\n")
	if len(e.Cc) > 0 {
		sb.WriteString("CC: " + strings.Join(e.Cc, ", ") + "\n")
	}
	sb.WriteString("From: " + e.From + "\n")
	sb.WriteString("Subject: " + e.Subject + "\n")
	sb.WriteString("\n" + separator + "\n\n")
	sb.WriteString(e.Body)
	return sb.String()
}

// SaveDraft writes e into dir and returns the file path.
func SaveDraft(dir string, e Email, now time.Time) (string, error) {
	if dir == "" {
		dir = DraftDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create draft dir: %w", err)
	}
	path := filepath.Join(dir, DraftName(now))
	if err := os.WriteFile(path, []byte(FormatDraft(e)), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}
	return path, nil
}

// ParseDraft reads a draft produced by FormatDraft.
func ParseDraft(content string) (Email, error) {
	lines := strings.Split(content, "\n")
	var e Email
	body := -1
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "To: "):
			e.To = splitList(line[4:])
		case strings.HasPrefix(line, "CC: "):
			e.Cc = splitList(line[4:])
		case strings.HasPrefix(line, "From: "):
			e.From = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "Subject: "):
			e.Subject = strings.TrimSpace(line[9:])
		case strings.HasPrefix(line, "="):
			body = i + 1
		}
		if body >= 0 {
			break
		}
	}
	if body < 0 {
		return Email{}, errors.New("draft has no header separator")
	}
	e.Body = strings.TrimSpace(strings.Join(lines[body:], "\n"))
	if len(e.To) == 0 || e.Subject == "" || e.Body == "" {
		return Email{}, errors.New("draft is missing recipients, subject or body")
	}
	return e, nil
}

// ReadDraft loads and parses a draft file.
func ReadDraft(path string) (Email, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Email{}, err
	}
	e, err := ParseDraft(string(data))
	if err != nil {
		return Email{}, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// LatestDraft returns the most recently modified draft in dir.
func LatestDraft(dir string) (string, error) {
	if dir == "" {
		dir = DraftDir
	}
	matches, err := filepath.Glob(filepath.Join(dir, draftPrefix+"*.txt"))
	if err != nil {
		return "", err
	}
	var latest string
	var latestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		// names sort by timestamp, so ties on mtime go to the later name
		if latest == "" || info.ModTime().After(latestMod) || (info.ModTime().Equal(latestMod) && m > latest) {
			latest, latestMod = m, info.ModTime()
		}
	}
	if latest == "" {
		return "", ErrNoDraft
	}
	return latest, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
