package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notionhelper/internal/calendar"
	"notionhelper/internal/config"
	"notionhelper/internal/cron"
	"notionhelper/internal/notion"
	"notionhelper/internal/types"
)

// testConfigCmd checks configuration and connections
var testConfigCmd = &cobra.Command{
	Use:   "test-config",
	Short: "Check the configuration and every configured connection",
	Long: `Validates the configuration, then connects to Notion and the calendar
source. Exits non-zero if any check fails.`,
	RunE: runTestConfig,
}

// errChecksFailed is returned when at least one check failed.
var errChecksFailed = errors.New("configuration test failed")

type checker struct {
	p      printer
	failed int
}

func (c *checker) report(name, detail string, err error) {
	if err != nil {
		c.failed++
		c.p.fail("%s: %v", name, err)
		return
	}
	c.p.ok("%s: %s", name, detail)
}

func runTestConfig(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	ck := &checker{p: a.out}

	a.out.header("Testing configuration")
	ck.report("config", fmt.Sprintf("loaded %s (timezone %s)", configPath, a.loc), nil)

	a.out.header("Email")
	if err := cfg.RequireEmail(); err != nil {
		ck.report("email", "", err)
	} else {
		ck.report("recipients", fmt.Sprintf("%d to, %d cc", len(cfg.Email.ToList), len(cfg.Email.CCList)), nil)
	}
	if cfg.Email.Send {
		ck.report("smtp", fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port), cfg.RequireSMTP())
	}
	if cfg.LLM.Enabled {
		ck.report("llm", cfg.LLM.Provider, cfg.RequireLLM())
	}

	a.out.header("Notion")
	if c, err := a.notionClient(); err != nil {
		ck.report("notion", "", err)
	} else {
		for _, chk := range notion.TestConnection(ctx, c, cfg.Notion.ProjectDatabaseID, cfg.Notion.DailyLogPageID) {
			ck.report(chk.Name, chk.Detail, chk.Err)
		}
	}

	a.out.header("Calendar")
	a.checkCalendar(ctx, ck)

	a.out.header("Schedule")
	if next, err := cron.Next(cfg.Cron.Schedule, a.now()); err != nil {
		ck.report("cron schedule", "", err)
	} else {
		ck.report("cron schedule", fmt.Sprintf("%q, next run %s", cfg.Cron.Schedule, next.Format("Mon Jan 2 15:04")), nil)
	}

	fmt.Fprintln(a.out.w)
	if ck.failed > 0 {
		a.out.fail("%d checks failed", ck.failed)
		return errChecksFailed
	}
	a.out.ok("Configuration test completed")
	return nil
}

func (a *app) checkCalendar(ctx context.Context, ck *checker) {
	if err := cfg.RequireCalendar(); err != nil {
		ck.report("calendar", "", err)
		return
	}
	if cfg.Calendar.Source == config.SourceICS {
		src := &calendar.FileSource{Paths: cfg.Calendar.ICSFiles, Location: a.loc}
		fetched, err := src.Events(ctx, types.NextWeek(a.now(), a.loc))
		ck.report("ics files", fmt.Sprintf("%d files, %d events next week", len(cfg.Calendar.ICSFiles), len(fetched.Events)), err)
		return
	}

	src := &calendar.CalDAVSource{
		Endpoint: cfg.ICloud.Endpoint,
		Username: cfg.ICloud.Username,
		Password: cfg.ICloud.Password,
		Location: a.loc,
	}
	cals, err := src.Calendars(ctx)
	if err != nil {
		ck.report("icloud", "", err)
		return
	}
	var names []string
	found := make(map[string]bool, len(cals))
	for _, c := range cals {
		names = append(names, c.Name)
		found[c.Name] = true
	}
	ck.report("icloud", fmt.Sprintf("connected as %s, %d calendars: %s", cfg.ICloud.Username, len(cals), strings.Join(names, ", ")), nil)

	if len(cfg.Calendar.Calendars) == 0 {
		a.out.dim("all calendars selected")
		return
	}
	for _, want := range cfg.Calendar.Calendars {
		if !found[want] {
			ck.report("calendar "+want, "", fmt.Errorf("not found on the server"))
			continue
		}
		ck.report("calendar "+want, "selected", nil)
	}
}
