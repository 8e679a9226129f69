package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apognu/gocal"

	"notionhelper/internal/types"
)

// ErrNoStart is reported for an event without DTSTART.
var ErrNoStart = errors.New("event has no start")

// parseICS parses iCalendar data bounded to [from, until), expanding
// recurrences. If the document as a whole does not parse, each VEVENT is
// parsed on its own so one bad event does not hide the rest.
func parseICS(data []byte, calendar string, from, until time.Time, loc *time.Location) ([]types.CalendarEvent, []error) {
	events, err := parseBounded(bytes.NewReader(data), from, until)
	if err == nil {
		return convertAll(events, calendar, loc)
	}

	var out []types.CalendarEvent
	errs := []error{}
	for _, chunk := range splitEvents(data) {
		evs, err := parseBounded(bytes.NewReader(chunk), from, until)
		if err != nil {
			errs = append(errs, &types.ParseError{Source: types.Source{File: calendar}, Input: firstSummary(chunk), Err: err})
			continue
		}
		conv, cerrs := convertAll(evs, calendar, loc)
		out = append(out, conv...)
		errs = append(errs, cerrs...)
	}
	return out, errs
}

func parseBounded(r io.Reader, from, until time.Time) ([]gocal.Event, error) {
	// widen by a day: date-only values are parsed in their own zone
	start, end := from.AddDate(0, 0, -1), until.AddDate(0, 0, 1)
	c := gocal.NewParser(r)
	c.Start, c.End = &start, &end
	if err := c.Parse(); err != nil {
		return nil, err
	}
	return c.Events, nil
}

func convertAll(events []gocal.Event, calendar string, loc *time.Location) ([]types.CalendarEvent, []error) {
	out := make([]types.CalendarEvent, 0, len(events))
	var errs []error
	for _, e := range events {
		ce, err := convertEvent(e, calendar, loc)
		if err != nil {
			errs = append(errs, &types.ParseError{Source: types.Source{File: calendar}, Input: e.Summary, Err: err})
			continue
		}
		out = append(out, ce)
	}
	return out, errs
}

func isDateOnly(raw gocal.RawDate) bool {
	if strings.EqualFold(raw.Params["VALUE"], "DATE") {
		return true
	}
	return len(strings.TrimSpace(raw.Value)) == 8
}

// convertEvent normalizes a parsed event into loc. Date-only values keep
// their calendar date and become midnight in loc.
func convertEvent(e gocal.Event, calendar string, loc *time.Location) (types.CalendarEvent, error) {
	if e.Start == nil {
		return types.CalendarEvent{}, ErrNoStart
	}
	summary := strings.TrimSpace(e.Summary)
	if summary == "" {
		summary = "Untitled Event"
	}
	out := types.CalendarEvent{
		Summary:  summary,
		AllDay:   isDateOnly(e.RawStart),
		Calendar: calendar,
	}
	if out.AllDay {
		out.Start = midnight(*e.Start, loc)
		if days, ok := rawSpanDays(e.RawStart, e.RawEnd); ok {
			out.End = out.Start.AddDate(0, 0, days)
		} else if e.End != nil {
			out.End = midnight(*e.End, loc)
		}
		return out, nil
	}
	out.Start = e.Start.In(loc)
	if e.End != nil {
		out.End = e.End.In(loc)
	}
	return out, nil
}

// rawSpanDays is the DTSTART..DTEND distance in days for date-only values.
// Taken from the raw values so it holds for every recurrence instance.
func rawSpanDays(start, end gocal.RawDate) (int, bool) {
	s, err := time.Parse("20060102", strings.TrimSpace(start.Value))
	if err != nil {
		return 0, false
	}
	e, err := time.Parse("20060102", strings.TrimSpace(end.Value))
	if err != nil || !e.After(s) {
		return 0, false
	}
	return int(e.Sub(s).Hours() / 24), true
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// splitEvents wraps every VEVENT of a document in its own VCALENDAR,
// carrying the VTIMEZONE blocks along.
func splitEvents(data []byte) [][]byte {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var zones, cur []string
	var chunks [][]byte
	inEvent, inZone := false, false
	for _, l := range lines {
		switch strings.ToUpper(strings.TrimSpace(l)) {
		case "BEGIN:VTIMEZONE":
			inZone = true
		case "BEGIN:VEVENT":
			inEvent = true
			cur = cur[:0]
		}
		switch {
		case inZone:
			zones = append(zones, l)
		case inEvent:
			cur = append(cur, l)
		}
		switch strings.ToUpper(strings.TrimSpace(l)) {
		case "END:VTIMEZONE":
			inZone = false
		case "END:VEVENT":
			inEvent = false
			doc := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0"}, zones...)
			doc = append(doc, cur...)
			doc = append(doc, "END:VCALENDAR", "")
			chunks = append(chunks, []byte(strings.Join(doc, "\r\n")))
		}
	}
	return chunks
}

func firstSummary(chunk []byte) string {
	for _, l := range strings.Split(string(chunk), "\n") {
		if strings.HasPrefix(strings.ToUpper(l), "SUMMARY") {
			if i := strings.Index(l, ":"); i >= 0 {
				return strings.TrimSpace(l[i+1:])
			}
		}
	}
	return fmt.Sprintf("%d bytes", len(chunk))
}
