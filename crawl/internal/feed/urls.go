package feed

import (
	"net/url"
	"strings"
)

// Kind selects which feed shape a term is crawled through. Both kinds go
// through the same extraction logic; only the landing URL differs.
type Kind string

const (
	KindSearch  Kind = "search"
	KindHashtag Kind = "hashtag"
)

// URL builds the feed landing URL for a term on the given platform base
// (e.g. "https://www.tiktok.com").
func URL(base string, kind Kind, term string) string {
	base = strings.TrimRight(base, "/")
	switch kind {
	case KindHashtag:
		return base + "/tag/" + url.PathEscape(strings.TrimPrefix(term, "#"))
	default:
		return base + "/search?q=" + url.QueryEscape(term)
	}
}
