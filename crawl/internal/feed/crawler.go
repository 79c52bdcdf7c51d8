// Package feed drives one browser feed (a search results page or a hashtag
// page) through an extract/scroll loop until a target item count is
// reached or the feed is exhausted.
//
// The platform gives no authoritative "end of feed" or "no results" signal,
// so both are inferred: an unchanged scroll height means the feed is
// exhausted, and repeated empty polls bounded by a retry budget mean there
// is nothing to find.
package feed

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/nquill/memescope/crawl/internal/comments"
	"github.com/nquill/memescope/crawl/internal/item"
	"github.com/nquill/memescope/crawl/internal/store"
)

// Page is the crawler's view of one browser tab. Implemented by RodPage;
// faked in tests.
type Page interface {
	// Navigate loads the feed URL and waits for a basic DOM-ready signal.
	Navigate(ctx context.Context, url string) error
	// Elements returns all current matches for a CSS selector.
	Elements(selector string) ([]item.Handle, error)
	// ScrollHeight reports the document scroll height.
	ScrollHeight() (int, error)
	// ScrollToBottom triggers a scroll to the bottom of the document.
	ScrollToBottom() error
}

// Paginate mines one item's comment thread. Wired to comments.Paginator.Run.
type Paginate func(ctx context.Context, contentID string) *comments.Aggregate

// Config configures a Crawler. All constants are injected so the state
// machine stays testable with deterministic clocks.
type Config struct {
	// TargetCount is the number of items to collect before stopping.
	// Default: 10.
	TargetCount int

	// MaxEmptyRetries bounds re-polls when the feed yields zero item
	// handles. Default: 3.
	MaxEmptyRetries int

	// RetryDelay is the pause before re-polling an empty feed. Default: 2s.
	RetryDelay time.Duration

	// Settle is the pause after navigation, for client-side hydration.
	// Default: 2s.
	Settle time.Duration

	// ScrollPause is the wait between a scroll and the height re-measure.
	// Default: 1500ms.
	ScrollPause time.Duration

	// Sleep is the delay function, injectable for tests. Default honours
	// context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Config) defaults() {
	if c.TargetCount <= 0 {
		c.TargetCount = 10
	}
	if c.MaxEmptyRetries <= 0 {
		c.MaxEmptyRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 2 * time.Second
	}
	if c.ScrollPause <= 0 {
		c.ScrollPause = 1500 * time.Millisecond
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Crawler walks one feed. It is single-use: one Run per instance.
type Crawler struct {
	page     Page
	extract  *item.Extractor
	paginate Paginate
	seen     *SeenSet
	cfg      Config
	log      *slog.Logger
}

// New creates a Crawler over page.
func New(page Page, extractor *item.Extractor, paginate Paginate, seen *SeenSet, cfg Config, logger *slog.Logger) *Crawler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		page:     page,
		extract:  extractor,
		paginate: paginate,
		seen:     seen,
		cfg:      cfg,
		log:      logger,
	}
}

// Run navigates to feedURL and collects up to TargetCount items. A partial
// or empty result is a normal outcome, never an error: navigation failures,
// empty feeds, and exhausted scrolls all end the run with what was
// collected so far.
func (c *Crawler) Run(ctx context.Context, feedURL string) []store.ItemResult {
	log := c.log.With("feed_url", feedURL)

	// Loading.
	if err := c.page.Navigate(ctx, feedURL); err != nil {
		log.Warn("feed: navigation failed, zero results", "error", err)
		return nil
	}
	if err := c.cfg.Sleep(ctx, c.cfg.Settle); err != nil {
		return nil
	}

	var results []store.ItemResult
	retries := 0

	for {
		if ctx.Err() != nil {
			return results
		}

		// Extracting.
		handles := c.visibleHandles()
		if len(handles) == 0 {
			retries++
			if retries > c.cfg.MaxEmptyRetries {
				log.Info("feed: empty after retries, done", "retries", retries-1, "collected", len(results))
				return results
			}
			if err := c.cfg.Sleep(ctx, c.cfg.RetryDelay); err != nil {
				return results
			}
			continue
		}

		for _, h := range handles {
			if len(results) >= c.cfg.TargetCount {
				break
			}
			if r, ok := c.processHandle(ctx, h); ok {
				results = append(results, r)
			}
		}

		if len(results) >= c.cfg.TargetCount {
			log.Info("feed: target reached", "collected", len(results))
			return results
		}

		// Scrolling.
		before, err := c.page.ScrollHeight()
		if err != nil {
			log.Warn("feed: scroll height failed, done", "error", err)
			return results
		}
		if err := c.page.ScrollToBottom(); err != nil {
			log.Warn("feed: scroll failed, done", "error", err)
			return results
		}
		if err := c.cfg.Sleep(ctx, c.cfg.ScrollPause); err != nil {
			return results
		}
		after, err := c.page.ScrollHeight()
		if err != nil {
			log.Warn("feed: scroll height failed, done", "error", err)
			return results
		}
		if after == before {
			log.Info("feed: height unchanged, feed exhausted", "collected", len(results))
			return results
		}
	}
}

// visibleHandles tries the container selector chain and returns the matches
// of the first candidate that yields any elements.
func (c *Crawler) visibleHandles() []item.Handle {
	for _, sel := range containerSelectors {
		handles, err := c.page.Elements(sel)
		if err != nil {
			continue
		}
		if len(handles) > 0 {
			return handles
		}
	}
	return nil
}

// processHandle extracts one item and, when it is fresh, discoverable, and
// unseen, mines its comments. ok is false for stale, undiscoverable, and
// already-seen items.
func (c *Crawler) processHandle(ctx context.Context, h item.Handle) (store.ItemResult, bool) {
	it := c.extract.Extract(h)
	if it == nil {
		return store.ItemResult{}, false // stale
	}
	if it.URL == "" || it.ContentID == "" {
		return store.ItemResult{}, false // undiscoverable
	}
	if !c.seen.Add(it.ContentID) {
		return store.ItemResult{}, false // re-discovered under another term
	}

	agg := c.paginate(ctx, it.ContentID)

	r := store.ItemResult{Item: it, CommentCount: agg.Total}
	for _, key := range slices.Sorted(maps.Keys(agg.Mentions)) {
		m := agg.Mentions[key]
		r.Mentions = append(r.Mentions, store.MentionAggregate{
			ContentID:  it.ContentID,
			Key:        key,
			TickerLike: m.TickerLike,
			Count:      m.Count,
			ObservedAt: m.LastSeen,
		})
	}
	return r, true
}
