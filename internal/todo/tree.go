package todo

import "notionhelper/internal/types"

type node struct {
	item     types.TodoItem
	indent   int
	children []*node
}

// treeBuilder attaches items by indentation. An item deeper than the open
// item becomes its child; otherwise open items are closed until one with a
// smaller indentation remains.
type treeBuilder struct {
	top   []*node
	stack []*node
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{}
}

func (b *treeBuilder) add(indent int, item types.TodoItem) {
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].indent >= indent {
		b.stack = b.stack[:len(b.stack)-1]
	}
	item.Depth = len(b.stack)
	n := &node{item: item, indent: indent}
	if len(b.stack) == 0 {
		b.top = append(b.top, n)
	} else {
		parent := b.stack[len(b.stack)-1]
		parent.children = append(parent.children, n)
	}
	b.stack = append(b.stack, n)
}

func (b *treeBuilder) roots() []types.TodoItem {
	out := make([]types.TodoItem, 0, len(b.top))
	for _, n := range b.top {
		out = append(out, n.freeze())
	}
	return out
}

func (n *node) freeze() types.TodoItem {
	item := n.item
	if len(n.children) > 0 {
		item.Children = make([]types.TodoItem, 0, len(n.children))
		for _, c := range n.children {
			item.Children = append(item.Children, c.freeze())
		}
	}
	return item
}
