package crawl

import (
	"github.com/nquill/memescope/crawl/internal/feed"
	"github.com/nquill/memescope/crawl/internal/store"
)

// Aliases for the internal domain types, so callers outside this
// package tree can hold results without reaching into internal/.
type (
	ContentItem      = store.ContentItem
	MentionAggregate = store.MentionAggregate
	ItemResult       = store.ItemResult
	CrawlEvent       = store.CrawlEvent
	Stats            = store.Stats
	BatchResult      = store.BatchResult
	TopMention       = store.TopMention

	FeedKind = feed.Kind
)

const (
	FeedSearch  = feed.KindSearch
	FeedHashtag = feed.KindHashtag
)

// FeedURL returns the feed URL for a term, for logging and diagnostics.
func FeedURL(base string, kind FeedKind, term string) string {
	return feed.URL(base, kind, term)
}
