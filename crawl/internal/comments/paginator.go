package comments

import (
	"context"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/nquill/memescope/mention"
)

// Aggregate is everything mined from one item's comment thread in one run.
type Aggregate struct {
	// Total is the number of distinct (authorId, text) comments processed.
	Total int

	// Mentions maps mention key to its summed occurrence data.
	Mentions map[string]mention.Mention
}

// Config configures a Paginator.
type Config struct {
	// PageSize is the count requested per page and the cursor step.
	// Default: 20.
	PageSize int

	// Now is the clock, injectable for tests. Default: time.Now.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Paginator walks a comment thread from cursor 0 until the API reports no
// more pages, deduplicates comments, and folds mention extraction results
// into a running aggregate.
type Paginator struct {
	fetcher  Fetcher
	sanitize *bluemonday.Policy
	cfg      Config
	log      *slog.Logger
}

// New creates a Paginator on the given page fetcher.
func New(fetcher Fetcher, cfg Config, logger *slog.Logger) *Paginator {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		fetcher:  fetcher,
		sanitize: bluemonday.StrictPolicy(),
		cfg:      cfg,
		log:      logger,
	}
}

// Run paginates contentID's comments. A fresh run always starts at cursor 0.
// Termination is driven entirely by the API's hasMore flag; a request
// failure ends the run early with whatever was aggregated so far (logged,
// not retried within the same crawl pass).
func (p *Paginator) Run(ctx context.Context, contentID string) *Aggregate {
	agg := &Aggregate{Mentions: make(map[string]mention.Mention)}
	seen := make(map[string]struct{})
	now := p.cfg.Now()

	cursor := 0
	for {
		page, err := p.fetcher.FetchPage(ctx, contentID, cursor, p.cfg.PageSize)
		if err != nil {
			p.log.Warn("comments: page fetch failed, keeping partial aggregate",
				"content_id", contentID, "cursor", cursor, "error", err)
			return agg
		}

		for _, c := range page.Comments {
			text := c.Text
			if text == "" {
				text = c.ShareText
			}

			key := c.AuthorID + "\x00" + text
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			agg.Total++

			for k, m := range mention.Extract(p.sanitize.Sanitize(text), now) {
				prev := agg.Mentions[k]
				prev.Count += m.Count
				prev.TickerLike = m.TickerLike
				prev.LastSeen = m.LastSeen
				agg.Mentions[k] = prev
			}
		}

		if !page.HasMore {
			return agg
		}
		cursor += p.cfg.PageSize
	}
}
