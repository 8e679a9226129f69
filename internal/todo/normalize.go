package todo

import (
	"regexp"
	"strings"

	"notionhelper/internal/types"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	markerPattern     = regexp.MustCompile(`^[-*+]\s+(\[[ xX]\]\s*)?`)
)

// Normalize reduces item text to its comparable form: list and checkbox
// markers, strikethrough and the leading [tag] removed, whitespace collapsed.
// Case is kept.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	s = markerPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if m := struckPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = prefixPattern.ReplaceAllString(strings.TrimSpace(s), "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// RenderMarkdown writes items as indented markdown lines, two spaces per
// depth level relative to the first item. Todos get checkboxes, top-level
// headings a "###" line and bullets a plain "-". ParseOutline reads the
// result back into the same tree.
func RenderMarkdown(items []types.TodoItem) string {
	var sb strings.Builder
	for _, it := range items {
		renderItem(&sb, it, "", 0, true)
	}
	return sb.String()
}

// RenderMarkdownUnder renders items as children of an existing line whose
// own indentation is parentIndent. Headings are written as bullets.
func RenderMarkdownUnder(items []types.TodoItem, parentIndent string) string {
	var sb strings.Builder
	for _, it := range items {
		renderItem(&sb, it, parentIndent+"  ", 0, false)
	}
	return sb.String()
}

func renderItem(sb *strings.Builder, it types.TodoItem, base string, level int, top bool) {
	indent := base + strings.Repeat("  ", level)
	text := it.DisplayText()
	switch {
	case it.Kind == types.KindHeading && level == 0 && top:
		sb.WriteString("### " + text + "\n")
	case it.Kind == types.KindBullet || it.Kind == types.KindHeading:
		sb.WriteString(indent + "- " + text + "\n")
	case it.Completed:
		sb.WriteString(indent + "- [x] " + text + "\n")
	default:
		sb.WriteString(indent + "- [ ] " + text + "\n")
	}
	for _, c := range it.Children {
		renderItem(sb, c, base, level+1, top)
	}
}
