// Package pipeline runs the steps of weekly-automation in order.
//
// A failing optional step is recorded and the run continues. A failing
// required step stops the run; the steps after it are marked skipped. Any
// failure makes Run return an error so the process exits non-zero.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notionhelper/internal/history"
	"notionhelper/internal/logging"
)

// Step is one unit of work. Run returns a short human detail.
type Step struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) (string, error)
}

// SkipError marks a step that had nothing to do. It is not a failure.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns a SkipError for reason.
func Skip(reason string) error { return &SkipError{Reason: reason} }

// Outcome is the result of one step.
type Outcome struct {
	Name     string
	Status   history.Status
	Detail   string
	Err      error
	Duration time.Duration
}

// Recorder receives each outcome as it happens.
type Recorder interface {
	AddStep(ctx context.Context, runID string, step history.Step) error
}

// Runner executes steps sequentially.
type Runner struct {
	RunID    string
	Recorder Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes steps and returns every outcome. The error joins all step
// failures, or is nil when none failed.
func (r *Runner) Run(ctx context.Context, steps []Step) ([]Outcome, error) {
	log := logging.Get(logging.CategoryPipeline).With("run_id", r.RunID)
	outcomes := make([]Outcome, 0, len(steps))
	var failures []error
	aborted := ""

	for _, st := range steps {
		if aborted == "" && ctx.Err() != nil {
			aborted = "canceled"
			failures = append(failures, ctx.Err())
		}
		if aborted != "" {
			out := Outcome{Name: st.Name, Status: history.StatusSkipped, Detail: "not run: " + aborted}
			r.record(ctx, out)
			outcomes = append(outcomes, out)
			continue
		}

		log.Info("step %s: starting", st.Name)
		start := r.now()
		detail, err := st.Run(ctx)
		out := Outcome{Name: st.Name, Detail: detail, Duration: r.now().Sub(start)}

		var skip *SkipError
		switch {
		case err == nil:
			out.Status = history.StatusOK
			log.Info("step %s: ok %s", st.Name, detail)
		case errors.As(err, &skip):
			out.Status = history.StatusSkipped
			if out.Detail == "" {
				out.Detail = skip.Reason
			}
			log.Info("step %s: skipped (%s)", st.Name, skip.Reason)
		default:
			out.Status = history.StatusFailed
			out.Err = err
			failures = append(failures, fmt.Errorf("%s: %w", st.Name, err))
			if st.Required {
				aborted = st.Name + " failed"
				log.Error("step %s failed, stopping: %v", st.Name, err)
			} else {
				log.Warn("step %s failed, continuing: %v", st.Name, err)
			}
		}
		r.record(ctx, out)
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(failures...)
}

func (r *Runner) record(ctx context.Context, out Outcome) {
	if r.Recorder == nil {
		return
	}
	step := history.Step{Name: out.Name, Status: out.Status, Detail: out.Detail, Duration: out.Duration}
	if out.Err != nil {
		step.Error = out.Err.Error()
	}
	// history is best effort; a canceled ctx must not lose the record
	if err := r.Recorder.AddStep(context.WithoutCancel(ctx), r.RunID, step); err != nil {
		logging.Get(logging.CategoryHistory).Warn("record step %s: %v", out.Name, err)
	}
}
