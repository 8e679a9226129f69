package main

import (
	"context"

	"github.com/spf13/cobra"

	"notionhelper/internal/pipeline"
	"notionhelper/internal/types"
)

// weeklyCmd runs the whole weekly workflow
var weeklyCmd = &cobra.Command{
	Use:   "weekly-automation",
	Short: "Run the full weekly workflow",
	Long: `Runs, in order:
  1. calendar        import next week's events (a failure is recorded, the run continues)
  2. sync-todos      copy prefixed todos from last week until today into project pages
  3. update-notion   append last week's summaries to Notion
  4. email           write (and optionally send) the weekly email

A failure in step 2 or 3 stops the run. Any failure exits non-zero.
This is the command installed by setup-cron.`,
	RunE: runWeekly,
}

func runWeekly(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// Configuration problems fail before any network call.
	opts := emailOptions{Polish: cfg.LLM.Enabled, Send: cfg.Email.Send}
	if err := a.preflightEmail(opts); err != nil {
		return err
	}
	im, err := a.calendarImporter()
	if err != nil {
		return err
	}

	now := a.now()
	lastWeek := types.LastWeek(now, a.loc)
	nextWeek := types.NextWeek(now, a.loc)
	todoRange := types.NewDateRange(lastWeek.Start, now, a.loc)
	getReport := a.reportOnce(lastWeek)

	a.out.header("Starting weekly automation (run %s)", a.runID)
	steps := []pipeline.Step{
		{
			Name: "calendar",
			Run: func(ctx context.Context) (string, error) {
				a.out.header("Syncing next week's calendar events")
				return a.calendarStep(ctx, im, nextWeek, false)
			},
		},
		{
			Name:     "sync-todos",
			Required: true,
			Run: func(ctx context.Context) (string, error) {
				a.out.header("Syncing todos to project pages")
				return a.syncTodosStep(ctx, todoRange, false)
			},
		},
		{
			Name:     "update-notion",
			Required: true,
			Run: func(ctx context.Context) (string, error) {
				a.out.header("Updating Notion")
				if cfg.Notion.Token == "" {
					a.out.info("Notion is not configured. Skipping.")
					return "", pipeline.Skip("notion not configured")
				}
				return a.updateNotionStep(ctx, getReport)
			},
		},
		{
			Name: "email",
			Run: func(ctx context.Context) (string, error) {
				a.out.header("Generating weekly email")
				return a.emailStep(ctx, getReport, opts, false)
			},
		},
	}

	if err := a.runSteps(ctx, "weekly-automation", steps); err != nil {
		a.out.fail("Weekly automation finished with errors")
		return err
	}
	a.out.ok("Weekly automation completed successfully")
	return nil
}
