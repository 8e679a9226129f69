package types

import (
	"fmt"
	"time"
)

// DateRange is an inclusive range of calendar days in one location.
// Start and End are normalized to midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NewDateRange builds a range from two instants, normalizing both to days in loc.
func NewDateRange(start, end time.Time, loc *time.Location) DateRange {
	return DateRange{Start: Day(start, loc), End: Day(end, loc)}
}

// weekStart returns the Monday of the week containing t.
func weekStart(t time.Time, loc *time.Location) time.Time {
	d := Day(t, loc)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// CurrentWeek is Monday..Sunday of the week containing now.
func CurrentWeek(now time.Time, loc *time.Location) DateRange {
	mon := weekStart(now, loc)
	return DateRange{Start: mon, End: mon.AddDate(0, 0, 6)}
}

// LastWeek is Monday..Sunday of the week before now.
func LastWeek(now time.Time, loc *time.Location) DateRange {
	mon := weekStart(now, loc).AddDate(0, 0, -7)
	return DateRange{Start: mon, End: mon.AddDate(0, 0, 6)}
}

// NextWeek is Monday..Sunday of the week after now.
func NextWeek(now time.Time, loc *time.Location) DateRange {
	mon := weekStart(now, loc).AddDate(0, 0, 7)
	return DateRange{Start: mon, End: mon.AddDate(0, 0, 6)}
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t, r.Start.Location())
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every day of the range in order.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Until returns the exclusive upper bound (midnight after End).
func (r DateRange) Until() time.Time {
	return r.End.AddDate(0, 0, 1)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}
