// Package report aggregates completed todos by project and date.
package report

import (
	"sort"
	"time"

	"notionhelper/internal/project"
	"notionhelper/internal/types"
)

// Task is one completed item in a report.
type Task struct {
	Text string
	Date time.Time
	Item types.TodoItem
}

// Day holds the tasks completed on one date.
type Day struct {
	Date  time.Time
	Tasks []Task
}

// Project is the report section for one project or keyword category.
type Project struct {
	Key     string
	Project types.Project
	Matched bool
	Days    []Day
	Total   int
}

// Tasks returns the section's tasks in date order.
func (p Project) Tasks() []Task {
	var out []Task
	for _, d := range p.Days {
		out = append(out, d.Tasks...)
	}
	return out
}

// Report is the aggregation for one date range.
type Report struct {
	Range      types.DateRange
	Projects   []Project
	TotalTasks int
}

// Empty reports whether no task was completed in the range.
func (r Report) Empty() bool { return r.TotalTasks == 0 }

// Build groups completed items in r by resolved project, then by date.
// A completed item counts once and its subtree rides along; incomplete
// items are descended and pass their prefix down to untagged children.
func Build(items []types.TodoItem, r types.DateRange, m *project.Matcher) Report {
	rep := Report{Range: r}
	sections := make(map[string]*Project)

	var visit func(it types.TodoItem, inherited string)
	visit = func(it types.TodoItem, inherited string) {
		if it.Prefix == "" {
			it.Prefix = inherited
		}
		if !it.Completed || !it.IsTodo() {
			for _, c := range it.Children {
				visit(c, it.Prefix)
			}
			return
		}
		if it.Date.IsZero() || !r.Contains(it.Date) {
			return
		}

		match := m.Match(it)
		key := match.Key()
		sec, ok := sections[key]
		if !ok {
			sec = &Project{Key: key, Project: match.Project, Matched: match.Matched}
			sections[key] = sec
		}
		day := types.Day(it.Date, r.Start.Location())
		task := Task{Text: it.DisplayText(), Date: day, Item: it}
		if n := len(sec.Days); n > 0 && sec.Days[n-1].Date.Equal(day) {
			sec.Days[n-1].Tasks = append(sec.Days[n-1].Tasks, task)
		} else {
			sec.Days = append(sec.Days, Day{Date: day, Tasks: []Task{task}})
		}
		sec.Total++
		rep.TotalTasks++
	}
	for _, it := range items {
		visit(it, "")
	}

	for _, sec := range sections {
		mergeDays(sec)
		rep.Projects = append(rep.Projects, *sec)
	}
	sort.Slice(rep.Projects, func(i, j int) bool {
		a, b := rep.Projects[i], rep.Projects[j]
		if a.Matched != b.Matched {
			return a.Matched
		}
		return a.Key < b.Key
	})
	return rep
}

// mergeDays sorts a section's days and folds duplicates created when
// input items were not in date order.
func mergeDays(p *Project) {
	sort.SliceStable(p.Days, func(i, j int) bool { return p.Days[i].Date.Before(p.Days[j].Date) })
	var out []Day
	for _, d := range p.Days {
		if n := len(out); n > 0 && out[n-1].Date.Equal(d.Date) {
			out[n-1].Tasks = append(out[n-1].Tasks, d.Tasks...)
			continue
		}
		out = append(out, d)
	}
	p.Days = out
}
