package todo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

// DefaultFilePattern is the daily file name layout.
const DefaultFilePattern = "2006-01-02.md"

// DailyFiles reads one todo file per day from Dir. Pattern is a Go time
// layout producing the file name for a day.
type DailyFiles struct {
	Dir      string
	Pattern  string
	Location *time.Location
}

// Path returns the file for day.
func (d DailyFiles) Path(day time.Time) string {
	pattern := d.Pattern
	if pattern == "" {
		pattern = DefaultFilePattern
	}
	return filepath.Join(d.Dir, d.day(day).Format(pattern))
}

func (d DailyFiles) day(t time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return types.Day(t, loc)
}

// Read parses the file for day. A missing file yields no items and no error.
func (d DailyFiles) Read(day time.Time) ([]types.TodoItem, []error, error) {
	path := d.Path(day)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.TodosDebug("no daily file %s", path)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open daily file: %w", err)
	}
	defer f.Close()

	items, parseErrs, err := ParseLines(f, LineSource{File: path, Date: d.day(day)})
	if err != nil {
		return nil, parseErrs, fmt.Errorf("read %s: %w", path, err)
	}
	return items, parseErrs, nil
}

// ReadRange reads every day of r in order. Parse errors are logged and
// returned; the first IO error stops the walk.
func (d DailyFiles) ReadRange(ctx context.Context, r types.DateRange) ([]types.TodoItem, []error, error) {
	var all []types.TodoItem
	var parseErrs []error
	for _, day := range r.Days() {
		if err := ctx.Err(); err != nil {
			return all, parseErrs, err
		}
		items, perrs, err := d.Read(day)
		for _, pe := range perrs {
			logging.Get(logging.CategoryTodos).Warn("skipping malformed item: %v", pe)
		}
		parseErrs = append(parseErrs, perrs...)
		if err != nil {
			return all, parseErrs, err
		}
		all = append(all, items...)
	}
	logging.Todos("read %d root items from %s (%s)", len(all), d.Dir, r)
	return all, parseErrs, nil
}
