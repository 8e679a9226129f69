package reconcile

import (
	"context"
	"fmt"
	"time"

	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

// Target is a location todo trees are copied into: a project page or file.
type Target interface {
	// Name identifies the target in logs and errors.
	Name() string
	// Snapshot reads the current content as item trees and records the
	// state later appends are checked against.
	Snapshot(ctx context.Context) ([]types.TodoItem, error)
	// Append writes op.Item with its subtree, order and relative depth
	// preserved. It returns a WriteConflictError if the target changed
	// since the last Snapshot or Append.
	Append(ctx context.Context, op Op) error
}

// SplitAppender is implemented by targets whose Append writes a subtree in
// more than one request. A failure between requests leaves a root with only
// some of its children, so Apply always merges into such targets.
type SplitAppender interface {
	SplitAppends() bool
}

func mergeInto(target Target, merge bool) bool {
	if s, ok := target.(SplitAppender); ok && s.SplitAppends() {
		return true
	}
	return merge
}

// Result describes one Apply call. On error it describes the writes that
// succeeded before the failure.
type Result struct {
	Target   string
	Planned  int
	Appended int
	Items    int
	Skipped  int
	DryRun   bool
	Ops      []Op
}

// Engine applies plans to targets. It never retries and never rolls back:
// a failed Apply may leave earlier appends in place, and the next run
// converges because planning reads the target again.
type Engine struct {
	// Merge descends into items already present and adds missing children.
	// Targets implementing SplitAppender are merged regardless.
	Merge bool
	// DryRun plans without writing.
	DryRun bool
	Audit  *logging.AuditLogger
}

// Apply snapshots target, plans items against it and appends the plan in
// order.
func (e *Engine) Apply(ctx context.Context, target Target, items []types.TodoItem) (Result, error) {
	log := logging.Get(logging.CategoryReconcile).With("target", target.Name())
	res := Result{Target: target.Name(), DryRun: e.DryRun}

	existing, err := target.Snapshot(ctx)
	if err != nil {
		return res, fmt.Errorf("snapshot %s: %w", target.Name(), err)
	}

	var ops []Op
	if mergeInto(target, e.Merge) {
		ops = PlanMerge(existing, items)
	} else {
		for _, it := range Plan(existing, items) {
			ops = append(ops, Op{Item: it})
		}
	}
	res.Ops = ops
	res.Planned = len(ops)
	res.Skipped = countSkipped(items, ops)
	log.Debug("planned %d appends from %d candidates (%d existing roots)", len(ops), len(items), len(existing))

	if e.DryRun || len(ops) == 0 {
		return res, nil
	}

	start := time.Now()
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			e.audit(target, res, err, start)
			return res, err
		}
		if err := target.Append(ctx, op); err != nil {
			log.Error("append failed after %d of %d: %v", res.Appended, len(ops), err)
			e.audit(target, res, err, start)
			return res, fmt.Errorf("append to %s: %w", target.Name(), err)
		}
		res.Appended++
		res.Items += op.Item.Count()
	}
	log.Info("appended %d items in %d writes", res.Items, res.Appended)
	e.audit(target, res, nil, start)
	return res, nil
}

func (e *Engine) audit(target Target, res Result, err error, start time.Time) {
	if e.Audit == nil {
		return
	}
	e.Audit.Log(logging.AuditEvent{
		Type:     logging.AuditTargetAppend,
		Target:   target.Name(),
		Count:    res.Items,
		Success:  err == nil,
		Error:    errString(err),
		Duration: time.Since(start),
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// countSkipped is the number of candidate items not written by any op.
func countSkipped(items []types.TodoItem, ops []Op) int {
	total := 0
	for _, it := range items {
		total += it.Count()
	}
	for _, op := range ops {
		total -= op.Item.Count()
	}
	if total < 0 {
		return 0
	}
	return total
}
