package project

import "notionhelper/internal/types"

// Routed is the set of root items resolved to one project, in input order.
type Routed struct {
	Project types.Project
	Items   []types.TodoItem
}

// Route assigns each root item to the project it matches; subtrees ride
// along with their root. Items that resolve only to a keyword category
// are counted in unmatched.
func (m *Matcher) Route(items []types.TodoItem) (routed []Routed, unmatched int) {
	index := make(map[string]int)
	for _, it := range items {
		match := m.Match(it)
		if !match.Matched {
			unmatched++
			continue
		}
		i, ok := index[match.Project.Name]
		if !ok {
			i = len(routed)
			index[match.Project.Name] = i
			routed = append(routed, Routed{Project: match.Project})
		}
		routed[i].Items = append(routed[i].Items, it)
	}
	return routed, unmatched
}
