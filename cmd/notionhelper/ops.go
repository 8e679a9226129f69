package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"notionhelper/internal/calendar"
	"notionhelper/internal/config"
	"notionhelper/internal/email"
	"notionhelper/internal/logging"
	"notionhelper/internal/notion"
	"notionhelper/internal/pipeline"
	"notionhelper/internal/polish"
	"notionhelper/internal/report"
	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

// noTasks is the skip reason when last week has no completed task.
const noTasks = "no completed tasks"

// =============================================================================
// TODOS
// =============================================================================

// readTodos returns the root items of every day in r from the configured
// source. Items from a Notion daily log keep the date of the heading they
// sit under; undated items belong to r.Start.
func (a *app) readTodos(ctx context.Context, r types.DateRange) ([]types.TodoItem, error) {
	if a.cfg.TodoSource != config.SourceNotion {
		items, _, err := a.dailyFiles().ReadRange(ctx, r)
		return items, err
	}

	c, err := a.notionClient()
	if err != nil {
		return nil, err
	}
	items, parseErrs, err := todo.ParseBlocks(ctx, &notion.Fetcher{Blocks: c.Blocks}, a.cfg.Notion.DailyLogPageID, todo.BlockOptions{
		Mode:         todo.ModeExtract,
		FallbackDate: r.Start,
		Location:     a.loc,
	})
	for _, pe := range parseErrs {
		logging.Get(logging.CategoryTodos).Warn("skipping malformed item: %v", pe)
	}
	if err != nil {
		return nil, types.Connectivity("notion", "read daily log", err)
	}
	var out []types.TodoItem
	for _, it := range items {
		if r.Contains(it.Date) {
			out = append(out, it)
		}
	}
	logging.Todos("read %d of %d root items from the daily log (%s)", len(out), len(items), r)
	return out, nil
}

type projectSync struct {
	Project string
	Target  string
	Items   int
	Skipped int
	Err     error
}

// syncTodos copies the items of day that resolve to a project into that
// project's target. A failed target stops the sync.
func (a *app) syncTodos(ctx context.Context, day types.DateRange, dryRun bool) ([]projectSync, int, error) {
	set, err := a.projects(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := a.readTodos(ctx, day)
	if err != nil {
		return nil, 0, err
	}
	routed, unmatched := a.matcher(set).Route(items)

	eng := a.engine(dryRun)
	var results []projectSync
	for _, rt := range routed {
		target, err := a.projectTarget(rt.Project)
		if err != nil {
			return results, unmatched, err
		}
		res, err := a.apply(ctx, eng, target, rt.Items)
		ps := projectSync{Project: rt.Project.Name, Target: target.Name(), Items: res.Items, Skipped: res.Skipped, Err: err}
		if dryRun {
			ps.Items = 0
			for _, op := range res.Ops {
				ps.Items += op.Item.Count()
			}
		}
		results = append(results, ps)
		if err != nil {
			return results, unmatched, err
		}
	}
	return results, unmatched, nil
}

// =============================================================================
// CALENDAR
// =============================================================================

func (a *app) calendarImporter() (*calendar.Importer, error) {
	if err := a.cfg.RequireCalendar(); err != nil {
		var ce *types.ConfigurationError
		if a.cfg.Calendar.Source == config.SourceICS || !errors.As(err, &ce) || ce.Field != "icloud.password" {
			return nil, err
		}
		pw, perr := promptPassword("iCloud app-specific password: ")
		if perr != nil || pw == "" {
			return nil, err
		}
		a.cfg.ICloud.Password = pw
	}

	var src calendar.Source
	switch a.cfg.Calendar.Source {
	case config.SourceICS:
		src = &calendar.FileSource{Paths: a.cfg.Calendar.ICSFiles, Location: a.loc}
	default:
		src = &calendar.CalDAVSource{
			Endpoint: a.cfg.ICloud.Endpoint,
			Username: a.cfg.ICloud.Username,
			Password: a.cfg.ICloud.Password,
			Location: a.loc,
		}
	}
	return &calendar.Importer{Sources: []calendar.Source{src}, Location: a.loc}, nil
}

// importCalendar fetches and groups the events of r.
func (a *app) importCalendar(ctx context.Context, r types.DateRange) (calendar.Result, error) {
	im, err := a.calendarImporter()
	if err != nil {
		return calendar.Result{}, err
	}
	return im.Import(ctx, r, a.cfg.Calendar.Calendars)
}

// writeCalendar writes the groups to the configured destinations.
func (a *app) writeCalendar(ctx context.Context, res calendar.Result, dryRun bool) (string, error) {
	if len(res.Groups) == 0 {
		return "no events", nil
	}
	var parts []string
	dest := a.cfg.Calendar.WriteTo

	if dest == config.TargetFiles || dest == config.TargetBoth {
		w := calendar.SectionWriter{Files: a.dailyFiles()}
		written := 0
		for _, g := range res.Groups {
			if dryRun {
				continue
			}
			path, err := w.Write(g)
			a.audit.Write(logging.AuditCalendarSection, path, err)
			if err != nil {
				return strings.Join(parts, ", "), err
			}
			written++
		}
		parts = append(parts, fmt.Sprintf("%d daily files", written))
	}

	if dest == config.TargetNotion || dest == config.TargetBoth {
		c, err := a.notionClient()
		if err != nil {
			return strings.Join(parts, ", "), err
		}
		target := notion.NewPageTarget(c, a.cfg.Notion.DailyLogPageID, "daily log", a.loc)
		r, err := a.apply(ctx, a.engine(dryRun), target, res.Trees())
		if err != nil {
			return strings.Join(parts, ", "), err
		}
		parts = append(parts, fmt.Sprintf("%d days on the daily log (%d already present)", r.Planned, r.Skipped))
	}
	return fmt.Sprintf("%d events: %s", res.Events, strings.Join(parts, ", ")), nil
}

// =============================================================================
// REPORT / NOTION
// =============================================================================

func (a *app) buildReport(ctx context.Context, r types.DateRange) (report.Report, error) {
	set, err := a.projects(ctx)
	if err != nil {
		return report.Report{}, err
	}
	items, err := a.readTodos(ctx, r)
	if err != nil {
		return report.Report{}, err
	}
	rep := report.Build(items, r, a.matcher(set))
	logging.Get(logging.CategoryReport).Info("%d completed tasks across %d projects for %s", rep.TotalTasks, len(rep.Projects), r)
	return rep, nil
}

// updateNotion appends each project's weekly summary to its page, creating
// pages for projects and categories missing from the database, then
// appends the weekly log to the daily log page.
func (a *app) updateNotion(ctx context.Context, rep report.Report) (string, error) {
	if rep.Empty() {
		return "", pipeline.Skip(noTasks)
	}
	c, err := a.notionClient()
	if err != nil {
		return "", err
	}
	db := &notion.ProjectDB{Client: c, DatabaseID: a.cfg.Notion.ProjectDatabaseID}
	eng := a.engine(false)
	// Summaries are merged so a rerun adds late tasks under the existing week.
	eng.Merge = true

	for _, p := range rep.Projects {
		pageID := ""
		if p.Matched && a.cfg.Sync.ProjectTarget == config.TargetNotion {
			pageID = p.Project.Target
		}
		if pageID == "" {
			found, err := db.FindOrCreate(ctx, p.Key)
			if err != nil {
				return "", err
			}
			pageID = found.Target
		}
		target := notion.NewPageTarget(c, pageID, p.Key, a.loc)
		if _, err := a.apply(ctx, eng, target, []types.TodoItem{report.ProjectSummaryTree(p, rep.Range)}); err != nil {
			return "", err
		}
	}

	logTarget := notion.NewPageTarget(c, a.cfg.Notion.DailyLogPageID, "daily log", a.loc)
	if _, err := a.apply(ctx, eng, logTarget, []types.TodoItem{report.WeeklyLogTree(rep)}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d projects updated", len(rep.Projects)), nil
}

// =============================================================================
// EMAIL
// =============================================================================

type emailOptions struct {
	Polish bool
	Send   bool
}

// preflightEmail validates everything generateEmail needs before any
// network call.
func (a *app) preflightEmail(opts emailOptions) error {
	if err := a.cfg.RequireEmail(); err != nil {
		return err
	}
	if opts.Polish {
		if err := a.cfg.RequireLLM(); err != nil {
			return err
		}
	}
	if opts.Send {
		return a.cfg.RequireSMTP()
	}
	return nil
}

func (a *app) composer() (email.Composer, error) {
	c := email.Composer{
		SubjectTemplate: a.cfg.Email.SubjectTemplate,
		YourName:        a.cfg.Email.YourName,
		From:            a.cfg.Email.From,
		To:              a.cfg.Email.ToList,
		Cc:              a.cfg.Email.CCList,
	}
	if path := a.cfg.Paths.EmailTemplate; path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logging.Get(logging.CategoryEmail).Debug("no template at %s, using default layout", path)
		case err != nil:
			return c, fmt.Errorf("read email template: %w", err)
		default:
			c.Template = string(data)
		}
	}
	return c, nil
}

// generateEmail composes, optionally polishes, saves and optionally sends
// the weekly email. It returns the draft path.
func (a *app) generateEmail(ctx context.Context, rep report.Report, opts emailOptions) (string, email.Email, error) {
	if rep.Empty() {
		return "", email.Email{}, pipeline.Skip(noTasks)
	}
	comp, err := a.composer()
	if err != nil {
		return "", email.Email{}, err
	}
	msg := comp.Compose(rep)

	if opts.Polish {
		msg.Body = a.polish(ctx, msg.Body)
	}

	path, err := email.SaveDraft(a.cfg.Email.DraftDir, msg, a.now())
	a.audit.Write(logging.AuditDraftSaved, path, err)
	if err != nil {
		return "", msg, err
	}

	if opts.Send {
		if err := a.send(ctx, msg); err != nil {
			return path, msg, err
		}
	}
	return path, msg, nil
}

func (a *app) polish(ctx context.Context, body string) string {
	l := a.cfg.LLM
	opts := polish.Options{
		Provider:       l.Provider,
		Model:          l.Model,
		APIKey:         l.APIKey,
		BaseURL:        l.BaseURL,
		Temperature:    l.Temperature,
		MaxInputTokens: l.MaxInputTokens,
		Timeout:        a.cfg.GetLLMTimeout(),
		Projects:       l.Projects,
		Signature:      l.Signature,
	}
	if opts.Signature == "" {
		opts.Signature = a.cfg.Email.YourName
	}
	p, err := polish.New(ctx, opts)
	if err != nil {
		logging.Get(logging.CategoryPolish).Warn("polish unavailable: %v", err)
		return body
	}
	svc := &polish.Service{Polisher: p, Options: opts}
	out, _ := svc.Polish(ctx, body)
	return out
}

func (a *app) send(ctx context.Context, msg email.Email) error {
	s := &email.SMTPSender{
		Host:     a.cfg.SMTP.Host,
		Port:     a.cfg.SMTP.Port,
		Username: a.cfg.SMTP.Username,
		Password: a.cfg.SMTP.Password,
		TLS:      a.cfg.SMTP.TLS,
	}
	err := s.Send(ctx, msg)
	a.audit.Write(logging.AuditEmailSent, strings.Join(msg.To, ","), err)
	return err
}
