package notion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"notionhelper/internal/logging"
	"notionhelper/internal/reconcile"
	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

var errMissingResult = errors.New("append response is missing a created block")

// PageTarget is a Notion page used as a reconciliation target. The page's
// last_edited_time is recorded at snapshot and after each append; an
// append finding a different value fails with a WriteConflictError.
type PageTarget struct {
	Client   *Client
	PageID   string
	Label    string
	Location *time.Location

	lastEdited time.Time
	ready      bool
}

// NewPageTarget returns a target for pageID. label names it in logs.
func NewPageTarget(c *Client, pageID, label string, loc *time.Location) *PageTarget {
	return &PageTarget{Client: c, PageID: pageID, Label: label, Location: loc}
}

func (p *PageTarget) Name() string {
	if p.Label != "" {
		return "notion:" + p.Label
	}
	return "notion:" + p.PageID
}

func (p *PageTarget) edited(ctx context.Context) (time.Time, error) {
	page, err := p.Client.Pages.Get(ctx, notionapi.PageID(p.PageID))
	if err != nil {
		return time.Time{}, types.Connectivity("notion", "get page "+p.PageID, err)
	}
	return page.LastEditedTime, nil
}

// SplitAppends reports that a tree is written one level per request.
func (p *PageTarget) SplitAppends() bool { return true }

// Snapshot reads the page as an outline: todos, toggles and headings as
// heading items, bulleted items as bullets.
func (p *PageTarget) Snapshot(ctx context.Context) ([]types.TodoItem, error) {
	edited, err := p.edited(ctx)
	if err != nil {
		return nil, err
	}
	items, parseErrs, err := todo.ParseBlocks(ctx, &Fetcher{Blocks: p.Client.Blocks}, p.PageID, todo.BlockOptions{
		Mode:     todo.ModeSnapshot,
		Location: p.Location,
	})
	if err != nil {
		return nil, err
	}
	for _, pe := range parseErrs {
		logging.NotionDebug("%s: %v", p.Name(), pe)
	}
	p.lastEdited = edited
	p.ready = true
	return items, nil
}

// Append writes op.Item under the page, or under the parent block when op
// has a parent read from the snapshot.
func (p *PageTarget) Append(ctx context.Context, op reconcile.Op) error {
	if !p.ready {
		return fmt.Errorf("append to %s before snapshot", p.Name())
	}
	edited, err := p.edited(ctx)
	if err != nil {
		return err
	}
	if !edited.Equal(p.lastEdited) {
		return &types.WriteConflictError{
			Target: p.Name(),
			Detail: fmt.Sprintf("page edited at %s, last read at %s", edited.Format(time.RFC3339), p.lastEdited.Format(time.RFC3339)),
		}
	}

	parent := p.PageID
	if op.Parent != nil {
		if op.Parent.Source.BlockID == "" {
			return fmt.Errorf("parent %q has no block id", op.Parent.Text)
		}
		parent = op.Parent.Source.BlockID
	}
	n, err := appendTree(ctx, p.Client.Blocks, parent, []types.TodoItem{op.Item})
	logging.NotionDebug("%s: appended %d blocks under %s", p.Name(), n, parent)
	if err != nil {
		return err
	}

	// our own write moves last_edited_time
	edited, err = p.edited(ctx)
	if err != nil {
		return err
	}
	p.lastEdited = edited
	return nil
}
