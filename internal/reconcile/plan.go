// Package reconcile copies todo trees into a target without duplicating
// what is already there.
//
// There is no sync ledger. The seen-set is rebuilt from the target's current
// content on every run, so the target content IS the idempotence log: editing
// or deleting an item by hand makes it eligible to be copied again.
package reconcile

import (
	"strings"

	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

// pathSep joins normalized texts in a fingerprint.
const pathSep = "\x1f"

// Fingerprint returns the dedup key for an item whose ancestors' fingerprint
// is parent ("" for roots).
func Fingerprint(parent string, item types.TodoItem) string {
	n := todo.Normalize(item.Text)
	if parent == "" {
		return n
	}
	return parent + pathSep + n
}

// Fingerprints collects the fingerprint of every item in the trees.
func Fingerprints(items []types.TodoItem) map[string]struct{} {
	seen := make(map[string]struct{})
	for _, it := range items {
		addAll(seen, "", it)
	}
	return seen
}

func addAll(seen map[string]struct{}, parent string, it types.TodoItem) {
	fp := Fingerprint(parent, it)
	seen[fp] = struct{}{}
	for _, c := range it.Children {
		addAll(seen, fp, c)
	}
}

// Path splits a fingerprint back into its normalized texts.
func Path(fingerprint string) []string {
	if fingerprint == "" {
		return nil
	}
	return strings.Split(fingerprint, pathSep)
}

// Plan returns the candidate roots that must be appended, each with its
// full subtree. A root already present in existing is skipped together
// with its subtree; a root repeated within candidates is kept once.
func Plan(existing, candidates []types.TodoItem) []types.TodoItem {
	seen := Fingerprints(existing)
	var out []types.TodoItem
	for _, c := range candidates {
		if _, ok := seen[Fingerprint("", c)]; ok {
			continue
		}
		addAll(seen, "", c)
		out = append(out, c.WithDepth(0))
	}
	return out
}

// Op is one append: Item (with subtree) goes under Parent, or becomes a new
// root when Parent is nil. ParentPath holds the normalized texts from the
// root down to Parent.
type Op struct {
	Parent     *types.TodoItem
	ParentPath []string
	Item       types.TodoItem
}

// PlanMerge is Plan that also descends into candidates already present in
// existing and appends their missing children under the existing item.
// Items added earlier in the same batch are still skipped whole.
func PlanMerge(existing, candidates []types.TodoItem) []Op {
	index := make(map[string]*types.TodoItem)
	var walk func(parent string, items []types.TodoItem)
	walk = func(parent string, items []types.TodoItem) {
		for i := range items {
			fp := Fingerprint(parent, items[i])
			if _, dup := index[fp]; !dup {
				index[fp] = &items[i]
			}
			walk(fp, items[i].Children)
		}
	}
	walk("", existing)

	seen := Fingerprints(existing)
	var ops []Op
	var visit func(parentFP string, parent *types.TodoItem, item types.TodoItem)
	visit = func(parentFP string, parent *types.TodoItem, item types.TodoItem) {
		fp := Fingerprint(parentFP, item)
		if _, ok := seen[fp]; !ok {
			addAll(seen, parentFP, item)
			depth := 0
			if parent != nil {
				depth = parent.Depth + 1
			}
			ops = append(ops, Op{Parent: parent, ParentPath: Path(parentFP), Item: item.WithDepth(depth)})
			return
		}
		have, inTarget := index[fp]
		if !inTarget {
			return
		}
		for _, c := range item.Children {
			visit(fp, have, c)
		}
	}
	for _, c := range candidates {
		visit("", nil, c)
	}
	return ops
}
