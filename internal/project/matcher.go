package project

import (
	"regexp"
	"strings"

	"notionhelper/internal/types"
)

// CategoryGeneral is assigned when neither a project nor a keyword matches.
const CategoryGeneral = "general"

// Rule names reported in Match.Rule.
const (
	RulePrefix  = "prefix"
	RuleBracket = "bracket"
	RuleMention = "mention"
	RuleHashtag = "hashtag"
	RuleName    = "name"
	RuleKeyword = "keyword"
	RuleDefault = "default"
)

// Extractor is one fallback tag extraction rule.
type Extractor struct {
	Name    string
	Pattern *regexp.Regexp
}

// Extract returns the first capture group of the rule's pattern.
func (e Extractor) Extract(text string) (string, bool) {
	m := e.Pattern.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// DefaultExtractors is the fallback order: bracket, @mention, #tag, "Name:".
func DefaultExtractors() []Extractor {
	return []Extractor{
		{Name: RuleBracket, Pattern: regexp.MustCompile(`\[([^\[\]\s]+)\]`)},
		{Name: RuleMention, Pattern: regexp.MustCompile(`(?:^|\s)@([A-Za-z0-9_-]+)`)},
		{Name: RuleHashtag, Pattern: regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_-]+)`)},
		{Name: RuleName, Pattern: regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 _-]*?):\s`)},
	}
}

// Category is one keyword rule: the first category whose pattern matches wins.
// A nil Pattern never matches.
type Category struct {
	Name    string
	Pattern *regexp.Regexp
}

// NewCategory builds a case-insensitive, word-bounded pattern from keywords.
func NewCategory(name string, keywords ...string) Category {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	if len(quoted) == 0 {
		return Category{Name: name}
	}
	return Category{
		Name:    name,
		Pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// DefaultCategories lists the keyword categories in priority order.
func DefaultCategories() []Category {
	return []Category{
		NewCategory("meetings", "meeting", "meetings", "meet", "standup", "stand-up", "1:1", "sync", "call", "interview", "retro", "retrospective"),
		NewCategory("communication", "email", "emails", "reply", "respond", "slack", "message", "follow up", "follow-up", "ping", "announce"),
		NewCategory("development", "code", "implement", "fix", "bug", "refactor", "deploy", "release", "test", "tests", "build", "debug", "merge", "pr"),
		NewCategory("documentation", "doc", "docs", "document", "documentation", "readme", "wiki", "write up", "write-up", "notes"),
	}
}

// Match is the outcome of resolving one item.
type Match struct {
	Project   types.Project
	Matched   bool
	Category  string
	Rule      string
	Candidate string
}

// Key is the report grouping key: the project name or the category.
func (m Match) Key() string {
	if m.Matched {
		return m.Project.Name
	}
	return m.Category
}

// Matcher resolves items against a project Set. It holds no mutable state.
type Matcher struct {
	set        *Set
	extractors []Extractor
	categories []Category
}

// NewMatcher returns a matcher with the default rule tables. Non-empty
// categories replace the default keyword table.
func NewMatcher(set *Set, categories []Category) *Matcher {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return &Matcher{set: set, extractors: DefaultExtractors(), categories: categories}
}

// Set returns the project set the matcher resolves against.
func (m *Matcher) Set() *Set { return m.set }

// Match resolves item: exact prefix, then the first fallback extractor that
// yields a candidate, then keyword categories, then "general".
func (m *Matcher) Match(item types.TodoItem) Match {
	if p, ok := m.set.ByPrefix(item.Prefix); ok {
		return Match{Project: p, Matched: true, Rule: RulePrefix, Candidate: item.Prefix}
	}

	text := strings.TrimSpace(item.Text)
	for _, ex := range m.extractors {
		cand, ok := ex.Extract(text)
		if !ok {
			continue
		}
		if p, ok := m.set.ByPrefix(cand); ok {
			return Match{Project: p, Matched: true, Rule: ex.Name, Candidate: cand}
		}
		if p, ok := m.set.ByName(cand); ok {
			return Match{Project: p, Matched: true, Rule: ex.Name, Candidate: cand}
		}
		break
	}

	for _, c := range m.categories {
		if c.Pattern != nil && c.Pattern.MatchString(text) {
			return Match{Category: c.Name, Rule: RuleKeyword}
		}
	}
	return Match{Category: CategoryGeneral, Rule: RuleDefault}
}
