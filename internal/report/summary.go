package report

import (
	"fmt"

	"notionhelper/internal/types"
)

// ProjectSummaryTree is the weekly block appended to a project page:
//
//	Weekly Update - June 03, 2024 Week
//	  Monday, June 03
//	    - task
func ProjectSummaryTree(p Project, r types.DateRange) types.TodoItem {
	root := types.TodoItem{
		Text: fmt.Sprintf("Weekly Update - %s Week", r.Start.Format("January 02, 2006")),
		Kind: types.KindHeading,
		Date: r.Start,
	}
	for _, d := range p.Days {
		day := types.TodoItem{
			Text:  d.Date.Format("Monday, January 02"),
			Kind:  types.KindHeading,
			Depth: 1,
			Date:  d.Date,
		}
		for _, t := range d.Tasks {
			day.Children = append(day.Children, types.TodoItem{
				Text:  t.Text,
				Kind:  types.KindBullet,
				Depth: 2,
				Date:  t.Date,
			})
		}
		root.Children = append(root.Children, day)
	}
	return root
}

// WeeklyLogTree is the weekly block appended to the daily log page:
//
//	Weekly Summary: June 03 - June 09, 2024
//	  project
//	    - 06/03: task
func WeeklyLogTree(rep Report) types.TodoItem {
	root := types.TodoItem{
		Text: fmt.Sprintf("Weekly Summary: %s - %s", rep.Range.Start.Format("January 02"), rep.Range.End.Format("January 02, 2006")),
		Kind: types.KindHeading,
		Date: rep.Range.Start,
	}
	for _, p := range rep.Projects {
		sec := types.TodoItem{Text: p.Key, Kind: types.KindHeading, Depth: 1}
		for _, t := range p.Tasks() {
			sec.Children = append(sec.Children, types.TodoItem{
				Text:  fmt.Sprintf("%s: %s", t.Date.Format("01/02"), t.Text),
				Kind:  types.KindBullet,
				Depth: 2,
				Date:  t.Date,
			})
		}
		root.Children = append(root.Children, sec)
	}
	return root
}
