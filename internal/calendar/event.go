// Package calendar imports calendar events for a date range and turns them
// into per-day todo trees.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"notionhelper/internal/types"
)

// Source fetches events from one calendar backend.
type Source interface {
	Name() string
	// Events returns events overlapping r. Unparsable events are skipped
	// and counted in Fetched.Skipped.
	Events(ctx context.Context, r types.DateRange) (Fetched, error)
}

// Fetched is the outcome of one Source call.
type Fetched struct {
	Events  []types.CalendarEvent
	Skipped int
}

// Label renders an event the way it appears in a todo list:
// all-day events by summary, timed events as "HH:MM: summary" or
// "HH:MM-HH:MM: summary".
func Label(e types.CalendarEvent) string {
	if e.AllDay {
		return e.Summary
	}
	start := e.Start.Format("15:04")
	if e.HasEnd() && !e.End.Equal(e.Start) {
		return fmt.Sprintf("%s-%s: %s", start, e.End.Format("15:04"), e.Summary)
	}
	return fmt.Sprintf("%s: %s", start, e.Summary)
}

// ItemText is the todo text for an event: its label followed by the
// calendar name, "09:00: Standup (Work)". The name stays part of the
// comparable text, so equal events from two calendars remain distinct.
func ItemText(e types.CalendarEvent) string {
	name := strings.TrimSpace(e.Calendar)
	if name == "" {
		return Label(e)
	}
	return Label(e) + " (" + name + ")"
}

// Group is one local date and the events that occupy it.
type Group struct {
	Date   time.Time
	Events []types.CalendarEvent
}

// HeadingLayout formats group headings. It carries the year so the block
// parser can read the date back.
const HeadingLayout = "Monday, January 2, 2006"

// Heading is the group's heading text.
func (g Group) Heading() string {
	return g.Date.Format(HeadingLayout)
}

// Items converts the events into uncompleted todos. They carry no project
// prefix, so sync-todos never routes calendar entries to a project.
func (g Group) Items(depth int) []types.TodoItem {
	items := make([]types.TodoItem, 0, len(g.Events))
	for _, e := range g.Events {
		items = append(items, types.TodoItem{
			Text:  ItemText(e),
			Depth: depth,
			Kind:  types.KindTodo,
			Date:  g.Date,
		})
	}
	return items
}

// Tree returns the day as a heading item with one child per event.
func (g Group) Tree() types.TodoItem {
	return types.TodoItem{
		Text:     g.Heading(),
		Kind:     types.KindHeading,
		Date:     g.Date,
		Children: g.Items(1),
	}
}

// GroupByDay places events on local dates in loc. Only events starting
// inside r are kept. An all-day event occupies every date of its span
// (end exclusive) inside r; a timed event occupies its start date.
func GroupByDay(events []types.CalendarEvent, r types.DateRange, loc *time.Location) []Group {
	byDay := make(map[string]*Group)
	for _, e := range events {
		e = e.InZone(loc)
		if !r.Contains(e.Start) {
			continue
		}
		for _, d := range occupiedDays(e, loc) {
			if !r.Contains(d) {
				continue
			}
			key := d.Format("2006-01-02")
			g, ok := byDay[key]
			if !ok {
				g = &Group{Date: d}
				byDay[key] = g
			}
			g.Events = append(g.Events, e)
		}
	}

	groups := make([]Group, 0, len(byDay))
	for _, g := range byDay {
		sortEvents(g.Events)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date.Before(groups[j].Date) })
	return groups
}

func occupiedDays(e types.CalendarEvent, loc *time.Location) []time.Time {
	first := types.Day(e.Start, loc)
	if !e.AllDay || !e.HasEnd() {
		return []time.Time{first}
	}
	last := types.Day(e.End, loc).AddDate(0, 0, -1)
	if last.Before(first) {
		return []time.Time{first}
	}
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// sortEvents orders all-day events first, then by start and summary.
func sortEvents(evs []types.CalendarEvent) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Summary < b.Summary
	})
}
