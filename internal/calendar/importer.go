package calendar

import (
	"context"
	"time"

	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

// Importer collects events from its sources and groups them by day.
type Importer struct {
	Sources  []Source
	Location *time.Location
}

// Result is the outcome of one import.
type Result struct {
	Groups  []Group
	Events  int
	Skipped int
}

// Trees returns one heading tree per day.
func (r Result) Trees() []types.TodoItem {
	out := make([]types.TodoItem, 0, len(r.Groups))
	for _, g := range r.Groups {
		out = append(out, g.Tree())
	}
	return out
}

// Import fetches events in r from every source, keeps those on calendars
// named in names (all when empty) and groups them by local date. The first
// unreachable source aborts the import.
func (im *Importer) Import(ctx context.Context, r types.DateRange, names []string) (Result, error) {
	loc := im.Location
	if loc == nil {
		loc = time.Local
	}
	allow := make(map[string]bool, len(names))
	for _, n := range names {
		allow[n] = true
	}

	var res Result
	var events []types.CalendarEvent
	for _, src := range im.Sources {
		fetched, err := src.Events(ctx, r)
		if err != nil {
			return res, err
		}
		res.Skipped += fetched.Skipped
		for _, e := range fetched.Events {
			if len(allow) > 0 && !allow[e.Calendar] {
				continue
			}
			events = append(events, e)
		}
	}

	res.Groups = GroupByDay(events, r, loc)
	for _, g := range res.Groups {
		res.Events += len(g.Events)
	}
	logging.Calendar("imported %d event entries on %d days for %s (%d skipped)", res.Events, len(res.Groups), r, res.Skipped)
	return res, nil
}
