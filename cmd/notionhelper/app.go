package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"notionhelper/internal/config"
	"notionhelper/internal/history"
	"notionhelper/internal/logging"
	"notionhelper/internal/notion"
	"notionhelper/internal/pipeline"
	"notionhelper/internal/project"
	"notionhelper/internal/reconcile"
	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

// app carries the state shared by one command invocation.
type app struct {
	cfg   *config.Config
	loc   *time.Location
	runID string
	audit *logging.AuditLogger
	out   printer
	now   func() time.Time

	notion *notion.Client

	// Totals across reconciliation steps, recorded in history.
	appended int
	skipped  int
}

func newApp(c *config.Config, out io.Writer) (*app, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	return &app{
		cfg:   c,
		loc:   loc,
		runID: id,
		audit: logging.Audit(id),
		out:   printer{w: out},
		now:   time.Now,
	}, nil
}

// today is the current day in the configured zone, or the --date value.
func (a *app) today(date string) (time.Time, error) {
	if date == "" {
		return types.Day(a.now(), a.loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", date, a.loc)
	if err != nil {
		return time.Time{}, &types.ConfigurationError{Field: "--date", Err: fmt.Errorf("want YYYY-MM-DD: %w", err)}
	}
	return d, nil
}

func (a *app) notionClient() (*notion.Client, error) {
	if a.notion != nil {
		return a.notion, nil
	}
	if err := a.cfg.RequireNotion(); err != nil {
		return nil, err
	}
	a.notion = notion.NewClient(a.cfg.Notion.Token, a.cfg.GetNotionTimeout())
	return a.notion, nil
}

func (a *app) dailyFiles() todo.DailyFiles {
	return todo.DailyFiles{
		Dir:      a.cfg.Paths.DailyTodosDir,
		Pattern:  a.cfg.DailyTodoFilenamePattern,
		Location: a.loc,
	}
}

func (a *app) engine(dryRun bool) *reconcile.Engine {
	return &reconcile.Engine{Merge: a.cfg.Sync.Merge, DryRun: dryRun, Audit: a.audit}
}

// apply runs the engine and keeps the run totals.
func (a *app) apply(ctx context.Context, eng *reconcile.Engine, target reconcile.Target, items []types.TodoItem) (reconcile.Result, error) {
	res, err := eng.Apply(ctx, target, items)
	a.appended += res.Items
	a.skipped += res.Skipped
	return res, err
}

// =============================================================================
// PROJECTS
// =============================================================================

// projects merges the configured projects with the Notion project database.
// The database is consulted only when a Notion token is configured.
func (a *app) projects(ctx context.Context) (*project.Set, error) {
	list := a.cfg.ProjectList()
	if a.cfg.Notion.Token != "" && a.cfg.Notion.ProjectDatabaseID != "" {
		c, err := a.notionClient()
		if err != nil {
			return nil, err
		}
		db := &notion.ProjectDB{Client: c, DatabaseID: a.cfg.Notion.ProjectDatabaseID}
		fromDB, err := db.List(ctx)
		if err != nil {
			return nil, err
		}
		list = mergeProjects(list, fromDB)
	}
	return project.NewSet(list)
}

// mergeProjects fills configured projects from database entries of the
// same name and appends database projects not configured.
func mergeProjects(configured, fromDB []types.Project) []types.Project {
	byName := make(map[string]int, len(configured))
	out := append([]types.Project(nil), configured...)
	for i, p := range out {
		byName[p.Name] = i
	}
	for _, p := range fromDB {
		i, ok := byName[p.Name]
		if !ok {
			out = append(out, p)
			continue
		}
		if out[i].Prefix == "" {
			out[i].Prefix = p.Prefix
		}
		if out[i].Target == "" {
			out[i].Target = p.Target
		}
	}
	return out
}

func (a *app) matcher(set *project.Set) *project.Matcher {
	var cats []project.Category
	for _, c := range a.cfg.Sync.Categories {
		cats = append(cats, project.NewCategory(c.Name, c.Keywords...))
	}
	return project.NewMatcher(set, cats)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// projectFile is the default file target for a project.
func projectFile(dir, name string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-")
	if base == "" {
		base = "project"
	}
	return filepath.Join(dir, base+".md")
}

// projectTarget returns where a project's todos are reconciled.
func (a *app) projectTarget(p types.Project) (reconcile.Target, error) {
	if a.cfg.Sync.ProjectTarget == config.TargetFiles {
		path := p.Target
		if path == "" {
			path = projectFile(a.cfg.Paths.ProjectDir, p.Name)
		}
		return reconcile.NewFileTarget(path), nil
	}
	if p.Target == "" {
		return nil, &types.ConfigurationError{Field: "projects", Err: fmt.Errorf("project %q has no Notion page", p.Name)}
	}
	c, err := a.notionClient()
	if err != nil {
		return nil, err
	}
	return notion.NewPageTarget(c, p.Target, p.Name, a.loc), nil
}

// =============================================================================
// RUN RECORDING
// =============================================================================

// runSteps executes steps as one recorded run. History failures are logged
// and never fail the command.
func (a *app) runSteps(ctx context.Context, command string, steps []pipeline.Step) error {
	log := logging.Get(logging.CategoryPipeline).With("run_id", a.runID)
	started := a.now()

	var store *history.Store
	if a.cfg.History.Enabled {
		s, err := history.Open(a.cfg.History.Path)
		if err != nil {
			logging.Get(logging.CategoryHistory).Warn("history disabled: %v", err)
		} else {
			defer s.Close()
			if err := s.Begin(ctx, a.runID, command, started); err != nil {
				logging.Get(logging.CategoryHistory).Warn("record run start: %v", err)
			} else {
				store = s
			}
		}
	}

	a.audit.Log(logging.AuditEvent{Type: logging.AuditRunStart, Target: command, Success: true})
	runner := &pipeline.Runner{RunID: a.runID, Now: a.now}
	if store != nil {
		runner.Recorder = store
	}
	outcomes, err := runner.Run(ctx, steps)

	run := history.Run{
		ID:       a.runID,
		Command:  command,
		Started:  started,
		Ended:    a.now(),
		Status:   runStatus(outcomes, err),
		Appended: a.appended,
		Skipped:  a.skipped,
	}
	if err != nil {
		run.Error = err.Error()
	}
	if store != nil {
		if ferr := store.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			logging.Get(logging.CategoryHistory).Warn("record run end: %v", ferr)
		}
	}
	a.audit.Log(logging.AuditEvent{
		Type:     logging.AuditRunEnd,
		Target:   command,
		Count:    a.appended,
		Success:  err == nil,
		Error:    run.Error,
		Duration: run.Ended.Sub(started),
	})
	log.Info("%s finished: %s", command, run.Status)
	return err
}

func runStatus(outcomes []pipeline.Outcome, err error) history.Status {
	if err != nil {
		return history.StatusFailed
	}
	for _, o := range outcomes {
		if o.Status != history.StatusSkipped {
			return history.StatusOK
		}
	}
	return history.StatusSkipped
}
