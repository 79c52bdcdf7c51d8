package store

import "database/sql"

// Schema is the complete memescope schema. Timestamps are unix milliseconds.
const Schema = `
-- Discovered videos. Upsert keyed on content_id (last write wins).
CREATE TABLE IF NOT EXISTS content_items (
    content_id    TEXT PRIMARY KEY,
    author_handle TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL DEFAULT '',
    hashtags      TEXT NOT NULL DEFAULT '[]',
    view_count    INTEGER NOT NULL DEFAULT 0,
    posted_at     INTEGER NOT NULL,
    discovered_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_discovered ON content_items(discovered_at DESC);

-- Mentions mined from comments, one row per (content, key) per run.
CREATE TABLE IF NOT EXISTS mentions (
    content_id  TEXT NOT NULL REFERENCES content_items(content_id) ON DELETE CASCADE,
    mention_key TEXT NOT NULL,
    ticker_like INTEGER NOT NULL DEFAULT 0,
    count       INTEGER NOT NULL DEFAULT 1,
    observed_at INTEGER NOT NULL,
    PRIMARY KEY (content_id, mention_key)
);
CREATE INDEX IF NOT EXISTS idx_mentions_key ON mentions(mention_key, observed_at DESC);

-- Symbol registry: maps a ticker-like mention key to known token IDs.
-- Maintained externally; mentions with no registry row are still stored.
CREATE TABLE IF NOT EXISTS symbols (
    symbol   TEXT NOT NULL COLLATE NOCASE,
    token_id TEXT NOT NULL,
    PRIMARY KEY (symbol, token_id)
);

-- Per-term crawl outcomes (observability).
CREATE TABLE IF NOT EXISTS crawl_events (
    id            TEXT PRIMARY KEY,
    term          TEXT NOT NULL,
    feed_kind     TEXT NOT NULL,
    items         INTEGER NOT NULL DEFAULT 0,
    mentions      INTEGER NOT NULL DEFAULT 0,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_crawl_events_time ON crawl_events(created_at DESC);
`

// ApplySchema creates all tables and indexes. Safe to run repeatedly.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
