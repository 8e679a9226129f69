// Package project resolves todo items to projects or keyword categories.
package project

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"notionhelper/internal/types"
)

var namePrefixPattern = regexp.MustCompile(`^\s*\[([A-Za-z0-9]+)\]`)

// PrefixFromName returns the text inside the leading bracket pair of a
// project name ("[adr] Architecture" -> "adr"), or "".
func PrefixFromName(name string) string {
	m := namePrefixPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// Set is the active project set for a run. Prefixes are unique.
type Set struct {
	projects []types.Project
	byPrefix map[string]int
	byName   map[string]int
}

// NewSet indexes projects. A project without an explicit Prefix gets one
// derived from its name. Duplicate prefixes are a ConfigurationError.
func NewSet(projects []types.Project) (*Set, error) {
	s := &Set{
		byPrefix: make(map[string]int, len(projects)),
		byName:   make(map[string]int, len(projects)),
	}
	for _, p := range projects {
		p.Name = strings.TrimSpace(p.Name)
		if p.Prefix == "" {
			p.Prefix = PrefixFromName(p.Name)
		}
		if p.Prefix != "" {
			if prev, dup := s.byPrefix[p.Prefix]; dup {
				return nil, &types.ConfigurationError{
					Field: "projects",
					Err:   fmt.Errorf("prefix %q used by both %q and %q", p.Prefix, s.projects[prev].Name, p.Name),
				}
			}
			s.byPrefix[p.Prefix] = len(s.projects)
		}
		if p.Name != "" {
			s.byName[p.Name] = len(s.projects)
		}
		s.projects = append(s.projects, p)
	}
	return s, nil
}

// ByPrefix finds a project by exact, case-sensitive prefix.
func (s *Set) ByPrefix(prefix string) (types.Project, bool) {
	if s == nil || prefix == "" {
		return types.Project{}, false
	}
	i, ok := s.byPrefix[prefix]
	if !ok {
		return types.Project{}, false
	}
	return s.projects[i], true
}

// ByName finds a project by exact name.
func (s *Set) ByName(name string) (types.Project, bool) {
	if s == nil || name == "" {
		return types.Project{}, false
	}
	i, ok := s.byName[name]
	if !ok {
		return types.Project{}, false
	}
	return s.projects[i], true
}

// Projects returns the projects in load order.
func (s *Set) Projects() []types.Project {
	if s == nil {
		return nil
	}
	out := make([]types.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Prefixes returns the known prefixes sorted.
func (s *Set) Prefixes() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.byPrefix))
	for p := range s.byPrefix {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of projects.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.projects)
}
