package store

import "time"

// ContentItem is one discovered video. ContentID is the stable identity,
// taken from the canonical /video/ URL path segment.
type ContentItem struct {
	ContentID    string    `json:"content_id"`
	AuthorHandle string    `json:"author_handle"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Hashtags     []string  `json:"hashtags"`
	ViewCountRaw string    `json:"view_count_raw"` // as scraped; normalized on write
	PostedAt     time.Time `json:"posted_at"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// MentionAggregate is one (content, mention key) pair with the total count
// observed across all deduplicated comments of that item in one run.
type MentionAggregate struct {
	ContentID  string    `json:"content_id"`
	Key        string    `json:"mention_key"`
	TickerLike bool      `json:"ticker_like"`
	Count      int       `json:"count"`
	ObservedAt time.Time `json:"observed_at"`
}

// ItemResult is the combined per-item outcome of one crawl pass: the item
// plus everything mined from its comments.
type ItemResult struct {
	Item         *ContentItem       `json:"item"`
	CommentCount int                `json:"comment_count"`
	Mentions     []MentionAggregate `json:"mentions"`
}

// CrawlEvent is one per-term outcome row, kept for observability.
type CrawlEvent struct {
	ID           string `json:"id"`
	Term         string `json:"term"`
	FeedKind     string `json:"feed_kind"`
	Items        int    `json:"items"`
	Mentions     int    `json:"mentions"`
	DurationMs   int64  `json:"duration_ms"`
	Status       string `json:"status"` // ok | skipped | error
	ErrorMessage string `json:"error_message"`
	CreatedAt    int64  `json:"created_at"`
}

// Stats summarises the stored corpus.
type Stats struct {
	ContentItems    int64 `json:"content_items"`
	Mentions        int64 `json:"mentions"`
	DistinctTickers int64 `json:"distinct_tickers"`
	CrawlEvents     int64 `json:"crawl_events"`
}

// BatchResult reports the outcome of one upsert batch. A failed batch does
// not stop later batches; callers inspect Err per batch.
type BatchResult struct {
	Start int   `json:"start"`
	Count int   `json:"count"`
	Err   error `json:"-"`
}
