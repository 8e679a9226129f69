package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"notionhelper/internal/calendar"
	"notionhelper/internal/pipeline"
	"notionhelper/internal/types"
)

var (
	syncDryRun bool
	syncDate   string
)

// syncTodosCmd copies prefixed todos into their project pages
var syncTodosCmd = &cobra.Command{
	Use:   "sync-todos",
	Short: "Copy [prefix] todos from the daily list into their project pages",
	Long: `Reads the day's todos, resolves each root item to a project and appends
the items missing from the project's page (or file) with their subtasks.

Items already present are skipped, so the command can be rerun safely.`,
	RunE: runSyncTodos,
}

// syncCalendarCmd imports next week's calendar events
var syncCalendarCmd = &cobra.Command{
	Use:   "sync-calendar",
	Short: "Import next week's calendar events into the daily todo lists",
	RunE:  runSyncCalendar,
}

func init() {
	for _, c := range []*cobra.Command{syncTodosCmd, syncCalendarCmd} {
		c.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would be written without writing")
		c.Flags().StringVar(&syncDate, "date", "", "Day to sync (YYYY-MM-DD); sync-calendar syncs the week containing it")
	}
}

func runSyncTodos(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	day, err := a.today(syncDate)
	if err != nil {
		return err
	}
	r := types.DateRange{Start: day, End: day}

	a.out.header("Syncing todos to project pages (%s)", day.Format("2006-01-02"))
	return a.runSteps(ctx, "sync-todos", []pipeline.Step{{
		Name:     "sync-todos",
		Required: true,
		Run: func(ctx context.Context) (string, error) {
			return a.syncTodosStep(ctx, r, syncDryRun)
		},
	}})
}

func (a *app) syncTodosStep(ctx context.Context, r types.DateRange, dryRun bool) (string, error) {
	results, unmatched, err := a.syncTodos(ctx, r, dryRun)
	verb := "synced"
	if dryRun {
		verb = "would sync"
	}
	total := 0
	for _, res := range results {
		total += res.Items
		switch {
		case res.Err != nil:
			a.out.fail("%s: %v", res.Project, res.Err)
		case res.Items > 0:
			a.out.ok("%s: %s %d todos (%d already present)", res.Project, verb, res.Items, res.Skipped)
		default:
			a.out.dim("%s: up to date", res.Project)
		}
	}
	if unmatched > 0 {
		a.out.dim("%d items without a project", unmatched)
	}
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		a.out.info("No todos with matching prefixes found")
		return "", pipeline.Skip("no prefixed todos")
	}
	return fmt.Sprintf("%s %d todos to %d projects", verb, total, len(results)), nil
}

func runSyncCalendar(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	r := types.NextWeek(a.now(), a.loc)
	if syncDate != "" {
		day, err := a.today(syncDate)
		if err != nil {
			return err
		}
		r = types.CurrentWeek(day, a.loc)
	}
	im, err := a.calendarImporter()
	if err != nil {
		return err
	}

	a.out.header("Syncing calendar events for %s", r)
	return a.runSteps(ctx, "sync-calendar", []pipeline.Step{{
		Name:     "calendar",
		Required: true,
		Run: func(ctx context.Context) (string, error) {
			return a.calendarStep(ctx, im, r, syncDryRun)
		},
	}})
}

// previewEvents is how many labels are shown per day.
const previewEvents = 3

func (a *app) calendarStep(ctx context.Context, im *calendar.Importer, r types.DateRange, dryRun bool) (string, error) {
	res, err := im.Import(ctx, r, a.cfg.Calendar.Calendars)
	if err != nil {
		return "", err
	}
	if len(res.Groups) == 0 {
		a.out.info("No calendar events found for %s", r)
		return "", pipeline.Skip("no events")
	}
	for _, g := range res.Groups {
		a.out.info("%s: %d events", g.Heading(), len(g.Events))
		for i, e := range g.Events {
			if i == previewEvents {
				a.out.dim("... and %d more", len(g.Events)-previewEvents)
				break
			}
			a.out.dim("%s", calendar.Label(e))
		}
	}
	if res.Skipped > 0 {
		a.out.warn("%d events could not be parsed", res.Skipped)
	}
	detail, err := a.writeCalendar(ctx, res, dryRun)
	if err != nil {
		return detail, err
	}
	if dryRun {
		a.out.ok("dry run: nothing written")
	} else {
		a.out.ok("%s", detail)
	}
	return detail, nil
}
