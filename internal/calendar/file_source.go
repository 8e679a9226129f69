package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

// FileSource reads events from local .ics files or http(s)/webcal URLs.
type FileSource struct {
	// Paths are file paths or URLs.
	Paths []string
	// Calendar names the events; defaults to each path's base name.
	Calendar string
	Location *time.Location
	Client   *http.Client
}

func (s *FileSource) Name() string { return "ics" }

// Events reads every path. A path that cannot be read returns a
// ConnectivityError; bad events are skipped and counted.
func (s *FileSource) Events(ctx context.Context, r types.DateRange) (Fetched, error) {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	var out Fetched
	for _, p := range s.Paths {
		data, err := s.read(ctx, p)
		if err != nil {
			return out, types.Connectivity("calendar", "read "+p, err)
		}
		name := s.Calendar
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		events, errs := parseICS(data, name, r.Start, r.Until(), loc)
		for _, e := range errs {
			logging.Get(logging.CategoryCalendar).Warn("skipping event: %v", e)
		}
		out.Events = append(out.Events, events...)
		out.Skipped += len(errs)
	}
	logging.CalendarDebug("ics: %d events, %d skipped from %d sources", len(out.Events), out.Skipped, len(s.Paths))
	return out, nil
}

func (s *FileSource) read(ctx context.Context, p string) ([]byte, error) {
	if strings.HasPrefix(p, "webcal://") {
		p = "https://" + strings.TrimPrefix(p, "webcal://")
	}
	if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") {
		return os.ReadFile(p)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
