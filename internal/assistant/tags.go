package assistant

import (
	"regexp"
	"strings"
)

// searchTagRe matches one <search>…</search> span. Matching is
// case-insensitive, the body may span lines, and the first opening tag
// pairs with its nearest closing tag.
var searchTagRe = regexp.MustCompile(`(?is)<search>(.*?)</search>`)

// ExtractSearchQueries returns the trimmed bodies of all search tags in
// source order. Bodies that are empty after trimming are discarded.
func ExtractSearchQueries(text string) []string {
	var queries []string
	for _, m := range searchTagRe.FindAllStringSubmatch(text, -1) {
		q := strings.TrimSpace(m[1])
		if q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// StripSearchTags removes all search tag spans, leaving the surrounding
// text untouched. Text without tags is returned unchanged.
func StripSearchTags(text string) string {
	return searchTagRe.ReplaceAllString(text, "")
}
