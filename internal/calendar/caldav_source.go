package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

// ICloudEndpoint is the CalDAV discovery endpoint for iCloud.
const ICloudEndpoint = "https://caldav.icloud.com"

var errNoData = errors.New("calendar object has no data")

// caldavClient is the part of *caldav.Client the source uses.
type caldavClient interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]caldav.Calendar, error)
	QueryCalendar(ctx context.Context, calendar string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error)
}

// CalDAVSource reads events from a CalDAV server (iCloud by default)
// using an app-specific password.
type CalDAVSource struct {
	Endpoint string
	Username string
	Password string
	Location *time.Location
	Timeout  time.Duration

	client caldavClient
}

func (s *CalDAVSource) Name() string { return "caldav" }

func (s *CalDAVSource) connect() (caldavClient, error) {
	if s.client != nil {
		return s.client, nil
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = ICloudEndpoint
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	hc := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: timeout}, s.Username, s.Password)
	c, err := caldav.NewClient(hc, endpoint)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

// Calendars discovers the user's calendars.
func (s *CalDAVSource) Calendars(ctx context.Context) ([]caldav.Calendar, error) {
	c, err := s.connect()
	if err != nil {
		return nil, types.Connectivity("caldav", "connect", err)
	}
	principal, err := c.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, types.Connectivity("caldav", "find principal", err)
	}
	home, err := c.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, types.Connectivity("caldav", "find calendar home", err)
	}
	cals, err := c.FindCalendars(ctx, home)
	if err != nil {
		return nil, types.Connectivity("caldav", "list calendars", err)
	}
	return cals, nil
}

// Events queries every calendar that supports VEVENT. Each returned object
// is parsed on its own; failures are skipped and counted.
func (s *CalDAVSource) Events(ctx context.Context, r types.DateRange) (Fetched, error) {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	cals, err := s.Calendars(ctx)
	if err != nil {
		return Fetched{}, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: r.Start,
				End:   r.Until(),
			}},
		},
	}

	log := logging.Get(logging.CategoryCalendar)
	var out Fetched
	for _, cal := range cals {
		if !supportsEvents(cal) {
			continue
		}
		objs, err := s.client.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			return out, types.Connectivity("caldav", "query "+cal.Name, err)
		}
		for _, obj := range objs {
			events, err := objectEvents(obj, cal.Name, r, loc)
			if err != nil {
				out.Skipped++
				log.Warn("skipping %s: %v", obj.Path, err)
				continue
			}
			out.Events = append(out.Events, events...)
		}
		log.Debug("calendar %q: %d objects", cal.Name, len(objs))
	}
	return out, nil
}

func supportsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, c := range cal.SupportedComponentSet {
		if strings.EqualFold(c, ical.CompEvent) {
			return true
		}
	}
	return false
}

// objectEvents re-encodes one calendar object and parses it with the same
// parser as .ics files.
func objectEvents(obj caldav.CalendarObject, calendar string, r types.DateRange, loc *time.Location) ([]types.CalendarEvent, error) {
	if obj.Data == nil {
		return nil, &types.ParseError{Source: types.Source{File: obj.Path}, Err: errNoData}
	}
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(obj.Data); err != nil {
		return nil, &types.ParseError{Source: types.Source{File: obj.Path}, Err: fmt.Errorf("encode: %w", err)}
	}
	events, errs := parseICS(buf.Bytes(), calendar, r.Start, r.Until(), loc)
	if len(events) == 0 && len(errs) > 0 {
		return nil, errs[0]
	}
	return events, nil
}
