package todo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"notionhelper/internal/types"
)

// BlockType is the block kind as reported by the block store.
type BlockType string

const (
	BlockToDo      BlockType = "to_do"
	BlockToggle    BlockType = "toggle"
	BlockBulleted  BlockType = "bulleted_list_item"
	BlockHeading1  BlockType = "heading_1"
	BlockHeading2  BlockType = "heading_2"
	BlockHeading3  BlockType = "heading_3"
	BlockParagraph BlockType = "paragraph"
)

// IsHeading reports whether t is one of the heading levels.
func (t BlockType) IsHeading() bool {
	return t == BlockHeading1 || t == BlockHeading2 || t == BlockHeading3
}

// Block is the store-agnostic view of one block: its plain text and, for
// to_do blocks, the checked flag.
type Block struct {
	ID          string
	Type        BlockType
	Text        string
	Checked     bool
	HasChildren bool
}

// BlockFetcher lists the direct children of a block in order, following
// pagination internally.
type BlockFetcher interface {
	Children(ctx context.Context, id string) ([]Block, error)
}

// Mode selects how container blocks are treated.
type Mode int

const (
	// ModeExtract returns todos only. Toggles, bulleted items and headings
	// are flattened: their todo descendants join the current level.
	ModeExtract Mode = iota
	// ModeSnapshot keeps containers as heading and bullet items so the tree
	// mirrors the page. Reconciliation targets are read this way.
	ModeSnapshot
)

// BlockOptions configures ParseBlocks.
type BlockOptions struct {
	Mode Mode
	// FallbackDate is given to items not under a dated heading.
	FallbackDate time.Time
	// Location is used to interpret heading dates; defaults to time.Local.
	Location *time.Location
}

var (
	isoDatePattern  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	longDatePattern = regexp.MustCompile(`\b((?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4})\b`)
)

// HeadingDate extracts a day from heading text ("2024-06-10" or
// "June 10, 2024").
func HeadingDate(text string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := time.ParseInLocation("2006-01-02", m[1], loc); err == nil {
			return t, true
		}
	}
	if m := longDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := time.ParseInLocation("January 2, 2006", m[1], loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBlocks walks the block tree under rootID and returns the root items.
// A dated heading or toggle sets Date for everything after it on its level,
// its own children included. Empty to_do blocks are returned as ParseErrors.
func ParseBlocks(ctx context.Context, fetcher BlockFetcher, rootID string, opts BlockOptions) (items []types.TodoItem, parseErrs []error, err error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	w := &blockWalker{fetcher: fetcher, opts: opts}
	items, err = w.level(ctx, rootID, 0, opts.FallbackDate)
	return items, w.parseErrs, err
}

type blockWalker struct {
	fetcher   BlockFetcher
	opts      BlockOptions
	parseErrs []error
}

func (w *blockWalker) level(ctx context.Context, id string, depth int, date time.Time) ([]types.TodoItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blocks, err := w.fetcher.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch children of %s: %w", id, err)
	}

	var out []types.TodoItem
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if b.Type.IsHeading() || b.Type == BlockToggle {
			if d, ok := HeadingDate(text, w.opts.Location); ok {
				date = d
			}
		}

		switch {
		case b.Type == BlockToDo:
			source := types.Source{BlockID: b.ID}
			if text == "" {
				w.parseErrs = append(w.parseErrs, &types.ParseError{Source: source, Input: b.Text, Err: ErrEmptyItem})
				continue
			}
			item := types.TodoItem{
				Text:      text,
				Completed: b.Checked,
				Depth:     depth,
				Kind:      types.KindTodo,
				Prefix:    ExtractPrefix(text),
				Date:      date,
				Source:    source,
			}
			if b.HasChildren {
				kids, err := w.level(ctx, b.ID, depth+1, date)
				if err != nil {
					return nil, err
				}
				item.Children = kids
			}
			out = append(out, item)

		case b.Type == BlockToggle || b.Type == BlockBulleted || b.Type.IsHeading():
			if w.opts.Mode == ModeExtract || text == "" {
				if b.HasChildren {
					kids, err := w.level(ctx, b.ID, depth, date)
					if err != nil {
						return nil, err
					}
					out = append(out, kids...)
				}
				continue
			}
			kind := types.KindHeading
			if b.Type == BlockBulleted {
				kind = types.KindBullet
			}
			item := types.TodoItem{
				Text:   text,
				Depth:  depth,
				Kind:   kind,
				Prefix: ExtractPrefix(text),
				Date:   date,
				Source: types.Source{BlockID: b.ID},
			}
			if b.HasChildren {
				kids, err := w.level(ctx, b.ID, depth+1, date)
				if err != nil {
					return nil, err
				}
				item.Children = kids
			}
			out = append(out, item)
		}
	}
	return out, nil
}
