// Package store is the persistence adapter for crawl results: batched,
// idempotent upserts of content items and mention aggregates into SQLite,
// plus the symbol registry lookup and the crawl event log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nquill/memescope/dbopen"
	"github.com/nquill/memescope/idgen"
)

// Store wraps an already-opened database. Open it with dbopen so the WAL
// and busy-timeout pragmas are in place.
type Store struct {
	DB        *sql.DB
	BatchSize int // rows per upsert transaction. Default: 50.
	newID     idgen.Generator
}

// New creates a Store on db.
func New(db *sql.DB) *Store {
	return &Store{
		DB:        db,
		BatchSize: 50,
		newID:     idgen.Prefixed("crw_", idgen.Default),
	}
}

// batchSize guards against a zero or negative BatchSize; the upsert loops
// would otherwise never advance.
func (s *Store) batchSize() int {
	if s.BatchSize <= 0 {
		return 50
	}
	return s.BatchSize
}

// UpsertContent writes items in batches of BatchSize. Conflict on content_id
// replaces the row (last write wins). One failed batch is reported in its
// BatchResult and does not stop the remaining batches.
func (s *Store) UpsertContent(ctx context.Context, items []*ContentItem) []BatchResult {
	var results []BatchResult
	size := s.batchSize()
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batch := items[start:end]

		err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
			for _, it := range batch {
				if it.ContentID == "" {
					return fmt.Errorf("store: content item without id (url %q)", it.URL)
				}
				tags, err := json.Marshal(it.Hashtags)
				if err != nil {
					return fmt.Errorf("store: marshal hashtags: %w", err)
				}
				_, err = tx.ExecContext(ctx,
					`INSERT INTO content_items (content_id, author_handle, url, thumbnail_url,
					hashtags, view_count, posted_at, discovered_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT(content_id) DO UPDATE SET
						author_handle = excluded.author_handle,
						url           = excluded.url,
						thumbnail_url = excluded.thumbnail_url,
						hashtags      = excluded.hashtags,
						view_count    = excluded.view_count,
						posted_at     = excluded.posted_at,
						discovered_at = excluded.discovered_at`,
					it.ContentID, it.AuthorHandle, it.URL, it.ThumbnailURL,
					string(tags), ParseViewCount(it.ViewCountRaw),
					it.PostedAt.UnixMilli(), it.DiscoveredAt.UnixMilli(),
				)
				if err != nil {
					return fmt.Errorf("store: upsert content %s: %w", it.ContentID, err)
				}
			}
			return nil
		})

		results = append(results, BatchResult{Start: start, Count: len(batch), Err: err})
	}
	return results
}

// UpsertMentions writes mention aggregates in batches. Conflict on
// (content_id, mention_key) replaces the row with this run's totals.
func (s *Store) UpsertMentions(ctx context.Context, aggs []MentionAggregate) []BatchResult {
	var results []BatchResult
	size := s.batchSize()
	for start := 0; start < len(aggs); start += size {
		end := min(start+size, len(aggs))
		batch := aggs[start:end]

		err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
			for _, a := range batch {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO mentions (content_id, mention_key, ticker_like, count, observed_at)
					VALUES (?, ?, ?, ?, ?)
					ON CONFLICT(content_id, mention_key) DO UPDATE SET
						ticker_like = excluded.ticker_like,
						count       = excluded.count,
						observed_at = excluded.observed_at`,
					a.ContentID, a.Key, a.TickerLike, a.Count, a.ObservedAt.UnixMilli(),
				)
				if err != nil {
					return fmt.Errorf("store: upsert mention %s/%s: %w", a.ContentID, a.Key, err)
				}
			}
			return nil
		})

		results = append(results, BatchResult{Start: start, Count: len(batch), Err: err})
	}
	return results
}

// ListRecentItems returns the most recently discovered items.
func (s *Store) ListRecentItems(ctx context.Context, limit int) ([]*ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT content_id, author_handle, url, thumbnail_url, hashtags,
		view_count, posted_at, discovered_at
		FROM content_items ORDER BY discovered_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ContentItem
	for rows.Next() {
		var (
			it         ContentItem
			tags       string
			views      int64
			posted     int64
			discovered int64
		)
		if err := rows.Scan(&it.ContentID, &it.AuthorHandle, &it.URL, &it.ThumbnailURL,
			&tags, &views, &posted, &discovered); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &it.Hashtags); err != nil {
			it.Hashtags = nil
		}
		it.ViewCountRaw = fmt.Sprintf("%d", views)
		it.PostedAt = time.UnixMilli(posted)
		it.DiscoveredAt = time.UnixMilli(discovered)
		items = append(items, &it)
	}
	return items, rows.Err()
}

// TopMention is one aggregated row from TopMentions.
type TopMention struct {
	Key        string `json:"mention_key"`
	TickerLike bool   `json:"ticker_like"`
	Total      int64  `json:"total"`
	Items      int64  `json:"items"`
}

// TopMentions returns mention keys ranked by total count since the given
// time (zero time = all history).
func (s *Store) TopMentions(ctx context.Context, since time.Time, limit int) ([]TopMention, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT mention_key, MAX(ticker_like), SUM(count), COUNT(DISTINCT content_id)
		FROM mentions WHERE observed_at >= ?
		GROUP BY mention_key ORDER BY SUM(count) DESC LIMIT ?`,
		since.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopMention
	for rows.Next() {
		var m TopMention
		var ticker int
		if err := rows.Scan(&m.Key, &ticker, &m.Total, &m.Items); err != nil {
			return nil, err
		}
		m.TickerLike = ticker != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// ResolveSymbol looks up a ticker-like mention key in the symbol registry
// and returns the known token IDs. Zero matches is a normal outcome:
// unresolved mentions are still stored and emitted.
func (s *Store) ResolveSymbol(ctx context.Context, symbol string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT token_id FROM symbols WHERE symbol = ? ORDER BY token_id`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddSymbol registers a symbol → token mapping. Idempotent.
func (s *Store) AddSymbol(ctx context.Context, symbol, tokenID string) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO symbols (symbol, token_id) VALUES (?, ?)
		ON CONFLICT(symbol, token_id) DO NOTHING`, symbol, tokenID)
	return err
}

// InsertCrawlEvent records one per-term outcome. An empty ID is filled in.
func (s *Store) InsertCrawlEvent(ctx context.Context, ev *CrawlEvent) error {
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if ev.CreatedAt == 0 {
		ev.CreatedAt = time.Now().UnixMilli()
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO crawl_events (id, term, feed_kind, items, mentions,
		duration_ms, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Term, ev.FeedKind, ev.Items, ev.Mentions,
		ev.DurationMs, ev.Status, ev.ErrorMessage, ev.CreatedAt)
	return err
}

// Stats returns corpus-level counters.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.DB.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM content_items),
		(SELECT COUNT(*) FROM mentions),
		(SELECT COUNT(DISTINCT mention_key) FROM mentions WHERE ticker_like = 1),
		(SELECT COUNT(*) FROM crawl_events)`)
	if err := row.Scan(&st.ContentItems, &st.Mentions, &st.DistinctTickers, &st.CrawlEvents); err != nil {
		return nil, err
	}
	return &st, nil
}
