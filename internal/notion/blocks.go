package notion

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"

	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

const (
	// pageSize is the largest page the block API returns.
	pageSize = 100
	// maxTextLen is the API limit for one rich text object.
	maxTextLen = 2000
	// maxAppend is the API limit on children per append request.
	maxAppend = 100
)

// Fetcher implements todo.BlockFetcher over the block API.
type Fetcher struct {
	Blocks Blocks
}

// Children returns all direct children of id, following next_cursor.
func (f *Fetcher) Children(ctx context.Context, id string) ([]todo.Block, error) {
	var out []todo.Block
	var cursor notionapi.Cursor
	for {
		resp, err := f.Blocks.GetChildren(ctx, notionapi.BlockID(id), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, types.Connectivity("notion", "get children", err)
		}
		for _, b := range resp.Results {
			out = append(out, FromAPI(b))
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// FromAPI converts an API block. Unsupported block types keep their type
// and ID but carry no text.
func FromAPI(b notionapi.Block) todo.Block {
	switch v := b.(type) {
	case *notionapi.ToDoBlock:
		return todo.Block{ID: string(v.ID), Type: todo.BlockToDo, Text: plainText(v.ToDo.RichText), Checked: v.ToDo.Checked, HasChildren: v.HasChildren}
	case *notionapi.ToggleBlock:
		return todo.Block{ID: string(v.ID), Type: todo.BlockToggle, Text: plainText(v.Toggle.RichText), HasChildren: v.HasChildren}
	case *notionapi.BulletedListItemBlock:
		return todo.Block{ID: string(v.ID), Type: todo.BlockBulleted, Text: plainText(v.BulletedListItem.RichText), HasChildren: v.HasChildren}
	case *notionapi.Heading1Block:
		return todo.Block{ID: string(v.ID), Type: todo.BlockHeading1, Text: plainText(v.Heading1.RichText), HasChildren: v.HasChildren}
	case *notionapi.Heading2Block:
		return todo.Block{ID: string(v.ID), Type: todo.BlockHeading2, Text: plainText(v.Heading2.RichText), HasChildren: v.HasChildren}
	case *notionapi.Heading3Block:
		return todo.Block{ID: string(v.ID), Type: todo.BlockHeading3, Text: plainText(v.Heading3.RichText), HasChildren: v.HasChildren}
	case *notionapi.ParagraphBlock:
		return todo.Block{ID: string(v.ID), Type: todo.BlockParagraph, Text: plainText(v.Paragraph.RichText), HasChildren: v.HasChildren}
	default:
		return todo.Block{ID: string(b.GetID()), Type: todo.BlockType(b.GetType())}
	}
}

func plainText(rt []notionapi.RichText) string {
	var sb strings.Builder
	for _, r := range rt {
		switch {
		case r.PlainText != "":
			sb.WriteString(r.PlainText)
		case r.Text != nil:
			sb.WriteString(r.Text.Content)
		}
	}
	return sb.String()
}

// richText splits s into API-sized text objects.
func richText(s string) []notionapi.RichText {
	var out []notionapi.RichText
	for len(s) > maxTextLen {
		cut := maxTextLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		out = append(out, notionapi.RichText{Text: &notionapi.Text{Content: s[:cut]}})
		s = s[cut:]
	}
	return append(out, notionapi.RichText{Text: &notionapi.Text{Content: s}})
}

// ToAPI converts one item without its children. Todos become to_do
// blocks and bullets bulleted items. Headings become toggles when they
// have children (only toggles can hold them) and heading_3 otherwise.
// The project tag is not written, matching file targets.
func ToAPI(it types.TodoItem) notionapi.Block {
	text := richText(it.DisplayText())
	switch it.Kind {
	case types.KindBullet:
		return &notionapi.BulletedListItemBlock{
			BasicBlock:       notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeBulletedListItem},
			BulletedListItem: notionapi.ListItem{RichText: text},
		}
	case types.KindHeading:
		if len(it.Children) > 0 {
			return &notionapi.ToggleBlock{
				BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeToggle},
				Toggle:     notionapi.Toggle{RichText: text},
			}
		}
		return &notionapi.Heading3Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading3},
			Heading3:   notionapi.Heading{RichText: text},
		}
	default:
		return &notionapi.ToDoBlock{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeToDo},
			ToDo:       notionapi.ToDo{RichText: text, Checked: it.Completed},
		}
	}
}

// appendTree appends items under parent level by level: one request per
// sibling batch, then each appended block's children under its new ID.
// It returns the number of blocks written.
func appendTree(ctx context.Context, blocks Blocks, parent string, items []types.TodoItem) (int, error) {
	written := 0
	for start := 0; start < len(items); start += maxAppend {
		end := min(start+maxAppend, len(items))
		batch := items[start:end]

		children := make([]notionapi.Block, len(batch))
		for i, it := range batch {
			children[i] = ToAPI(it)
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
		resp, err := blocks.AppendChildren(ctx, notionapi.BlockID(parent), &notionapi.AppendBlockChildrenRequest{Children: children})
		if err != nil {
			return written, types.Connectivity("notion", "append children", err)
		}
		written += len(batch)

		for i, it := range batch {
			if len(it.Children) == 0 {
				continue
			}
			if i >= len(resp.Results) {
				return written, types.Connectivity("notion", "append children", errMissingResult)
			}
			n, err := appendTree(ctx, blocks, string(resp.Results[i].GetID()), it.Children)
			written += n
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
