// Package exclusion removes vacancies for roles the pipeline must never
// recommend. Retrieval over title embeddings happily surfaces software and IT
// roles whose titles are semantically close to operational ones; the filter is
// the hard backstop against that.
package exclusion

import "strings"

// Filter decides whether a vacancy must be dropped from retrieval results.
type Filter interface {
	Excluded(title, description string) bool
}

// DefaultKeywords is the built-in technical role deny list. Matching is a
// case-insensitive substring test over the enriched job title.
var DefaultKeywords = []string{
	"software engineer", "software developer", "frontend developer",
	"backend developer", "full stack developer", "fullstack developer",
	"web developer", "mobile developer", "devops", "sre",
	"site reliability", "infrastructure engineer", "platform engineer",
	"cloud engineer", "data engineer", "etl developer",
	"qa engineer", "test engineer", "quality assurance engineer",
	"sdet", "automation engineer", "product manager",
	"it administrator", "system administrator", "sysadmin",
	"network administrator", "database administrator", "dba",
	"release engineer", "build engineer", "mlops",
}

// KeywordFilter excludes titles containing any deny-list keyword.
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter builds a filter over the given keywords, lowercased once.
// An empty list falls back to DefaultKeywords.
func NewKeywordFilter(keywords []string) *KeywordFilter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &KeywordFilter{keywords: lowered}
}

// Excluded reports whether the title matches the deny list. The description is
// part of the contract so richer filters can use it; the keyword filter only
// inspects the title.
func (f *KeywordFilter) Excluded(title, _ string) bool {
	lowered := strings.ToLower(title)
	for _, kw := range f.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
