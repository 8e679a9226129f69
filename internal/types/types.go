// Package types provides the shared data model used across notionhelper packages.
// It exists to break import cycles between the parser, matcher, reconciler and
// the external adapters. Types here carry no behavior beyond small invariants.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TODO ITEMS
// =============================================================================

// ItemKind distinguishes checkbox todos from structural entries such as the
// per-date headings produced by the calendar importer and the weekly summaries.
type ItemKind string

const (
	KindTodo    ItemKind = "todo"
	KindHeading ItemKind = "heading"
	KindBullet  ItemKind = "bullet"
)

// Source records where an item was read from.
// Exactly one of (File, Line) or BlockID is set.
type Source struct {
	File    string
	Line    int
	BlockID string
}

// String renders the source for log fields and error messages.
func (s Source) String() string {
	switch {
	case s.BlockID != "":
		return "block:" + s.BlockID
	case s.File != "":
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	default:
		return "unknown"
	}
}

// TodoItem is one entry of a todo tree. Children are owned by their parent
// and kept in source order.
type TodoItem struct {
	Text      string
	Completed bool
	Depth     int
	Kind      ItemKind
	Prefix    string
	Date      time.Time
	Source    Source
	Children  []TodoItem
}

// IsTodo reports whether the item is a checkbox todo. The zero Kind counts as a todo.
func (t TodoItem) IsTodo() bool {
	return t.Kind == "" || t.Kind == KindTodo
}

// DisplayText returns the text without its leading [prefix] tag.
func (t TodoItem) DisplayText() string {
	text := strings.TrimSpace(t.Text)
	if t.Prefix == "" {
		return text
	}
	tag := "[" + t.Prefix + "]"
	if strings.HasPrefix(text, tag) {
		return strings.TrimSpace(strings.TrimPrefix(text, tag))
	}
	return text
}

// Count returns the number of items in the tree rooted at t, including t.
func (t TodoItem) Count() int {
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

// WithDepth returns a copy of the tree re-based so that t sits at depth d.
func (t TodoItem) WithDepth(d int) TodoItem {
	out := t
	out.Depth = d
	if len(t.Children) > 0 {
		out.Children = make([]TodoItem, len(t.Children))
		for i, c := range t.Children {
			out.Children[i] = c.WithDepth(d + 1)
		}
	}
	return out
}

// Validate checks the depth invariant: every child is deeper than its parent.
func (t TodoItem) Validate() error {
	for _, c := range t.Children {
		if c.Depth <= t.Depth {
			return fmt.Errorf("item %q at depth %d has child %q at depth %d", t.Text, t.Depth, c.Text, c.Depth)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits t and its descendants depth-first, parent before children.
// Returning false from fn skips the visited item's subtree.
func (t TodoItem) Walk(fn func(item TodoItem) bool) {
	if !fn(t) {
		return
	}
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

// =============================================================================
// PROJECTS
// =============================================================================

// Project is a reference record loaded once per run.
// Prefix is unique across the active project set.
type Project struct {
	Name   string
	Prefix string
	Target string
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarEvent is one event occurrence. Start and End are already in the
// configured zone. End is zero when the source had none.
type CalendarEvent struct {
	Summary  string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Calendar string
}

// HasEnd reports whether the event carries an end time.
func (e CalendarEvent) HasEnd() bool {
	return !e.End.IsZero()
}

// InZone returns a copy with Start and End converted to loc.
func (e CalendarEvent) InZone(loc *time.Location) CalendarEvent {
	out := e
	out.Start = e.Start.In(loc)
	if e.HasEnd() {
		out.End = e.End.In(loc)
	}
	return out
}
