// Package todo extracts todo trees from daily text files and Notion block trees.
//
// Completion state is read from the marker only: a checked box or a struck
// through entry. Lines without a recognized marker are not items and are
// ignored. Indentation (or block nesting) decides parent/child attachment.
package todo

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"notionhelper/internal/types"
)

var (
	// "- [ ] text", "* [x] text", "+ [X] text"
	checkboxPattern = regexp.MustCompile(`^([ \t]*)[-*+][ \t]+\[([ xX])\][ \t]*(.*)$`)
	// "- ~~text~~"
	strikePattern = regexp.MustCompile(`^([ \t]*)[-*+][ \t]+~~(.+)~~[ \t]*$`)
	// "[adr] text"
	prefixPattern = regexp.MustCompile(`^\[([A-Za-z0-9]+)\]`)
	// a whole-text strikethrough inside a checkbox
	struckPattern = regexp.MustCompile(`^~~(.+)~~$`)
	// outline mode only
	headingPattern = regexp.MustCompile(`^#{1,6}[ \t]+(.+)$`)
	bulletPattern  = regexp.MustCompile(`^([ \t]*)[-*+][ \t]+(.+)$`)
)

// ErrEmptyItem is reported for a checkbox line that carries no text.
var ErrEmptyItem = errors.New("todo marker without text")

// TabWidth is the number of columns a tab contributes to indentation.
const TabWidth = 4

// ExtractPrefix returns the leading [tag] of text, or "".
func ExtractPrefix(text string) string {
	m := prefixPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}
	return m[1]
}

// parsedLine is one recognized item line before attachment.
type parsedLine struct {
	indent    int
	text      string
	completed bool
	kind      types.ItemKind
}

// parseLine recognizes a single line. ok is false for lines without a marker.
func parseLine(line string) (pl parsedLine, ok bool) {
	if m := checkboxPattern.FindStringSubmatch(line); m != nil {
		text := strings.TrimSpace(m[3])
		completed := m[2] != " "
		if s := struckPattern.FindStringSubmatch(text); s != nil {
			text = strings.TrimSpace(s[1])
			completed = true
		}
		return parsedLine{indent: indentWidth(m[1]), text: text, completed: completed, kind: types.KindTodo}, true
	}
	if m := strikePattern.FindStringSubmatch(line); m != nil {
		return parsedLine{indent: indentWidth(m[1]), text: strings.TrimSpace(m[2]), completed: true, kind: types.KindTodo}, true
	}
	return parsedLine{}, false
}

// parseOutlineLine additionally recognizes headings and plain bullets.
// Headings always sit at indentation 0 so indented lines nest under them.
func parseOutlineLine(line string) (parsedLine, bool) {
	if pl, ok := parseLine(line); ok {
		return pl, true
	}
	if m := headingPattern.FindStringSubmatch(line); m != nil {
		return parsedLine{text: strings.TrimSpace(m[1]), kind: types.KindHeading}, true
	}
	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		return parsedLine{indent: indentWidth(m[1]), text: strings.TrimSpace(m[2]), kind: types.KindBullet}, true
	}
	return parsedLine{}, false
}

func indentWidth(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += TabWidth
		} else {
			n++
		}
	}
	return n
}

// LineSource describes where lines come from; it seeds each item's Source and Date.
type LineSource struct {
	File string
	Date time.Time
}

// ParseLines reads todo items from r and returns the root items with their
// full hierarchy. Malformed item lines are returned as ParseErrors and
// skipped; err is set only when reading r fails.
func ParseLines(r io.Reader, src LineSource) (items []types.TodoItem, parseErrs []error, err error) {
	return scanLines(r, src, parseLine)
}

// ParseOutline is ParseLines plus headings and plain bullets. It reads the
// content of reconciliation target files written by RenderMarkdown.
func ParseOutline(r io.Reader, src LineSource) (items []types.TodoItem, parseErrs []error, err error) {
	return scanLines(r, src, parseOutlineLine)
}

func scanLines(r io.Reader, src LineSource, recognize func(string) (parsedLine, bool)) ([]types.TodoItem, []error, error) {
	b := newTreeBuilder()
	var parseErrs []error

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		pl, ok := recognize(raw)
		if !ok {
			continue
		}
		source := types.Source{File: src.File, Line: lineNo}
		if pl.text == "" {
			parseErrs = append(parseErrs, &types.ParseError{Source: source, Input: raw, Err: ErrEmptyItem})
			continue
		}
		b.add(pl.indent, types.TodoItem{
			Text:      pl.text,
			Completed: pl.completed,
			Kind:      pl.kind,
			Prefix:    ExtractPrefix(pl.text),
			Date:      src.Date,
			Source:    source,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, parseErrs, err
	}
	return b.roots(), parseErrs, nil
}
