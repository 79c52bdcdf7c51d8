package crawl

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nquill/memescope/crawl/internal/feed"
	"github.com/nquill/memescope/crawl/internal/store"
	"github.com/nquill/memescope/dbopen"
	"github.com/nquill/memescope/mention"
)

func testConfig() *Config {
	cfg := &Config{
		SearchTerms:    []string{"memecoin"},
		HashtagTerms:   []string{"crypto"},
		InterTermDelay: Duration(time.Nanosecond),
	}
	cfg.applyDefaults()
	cfg.InterTermDelay = Duration(time.Nanosecond)
	return cfg
}

func newTestService(t *testing.T, cfg *Config) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	svc, err := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)), WithDB(db))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func resultFor(id string, mentions ...string) store.ItemResult {
	r := store.ItemResult{
		Item: &store.ContentItem{
			ContentID:    id,
			AuthorHandle: "degen",
			URL:          "https://www.tiktok.com/@degen/video/" + id,
			PostedAt:     time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
			DiscoveredAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		},
		CommentCount: 5,
	}
	for _, key := range mentions {
		r.Mentions = append(r.Mentions, store.MentionAggregate{
			ContentID:  id,
			Key:        key,
			TickerLike: true,
			Count:      2,
			ObservedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		})
	}
	return r
}

func TestNew_HandBuiltConfigGetsDefaults(t *testing.T) {
	// WHAT: A caller constructing a minimal Config by hand gets the
	// documented defaults filled in, and a run over it completes and
	// persists instead of hanging on a zero batch size or skipping every
	// term under a zero budget.
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	svc, err := New(&Config{SearchTerms: []string{"memecoin"}}, slog.New(slog.NewTextHandler(os.Stderr, nil)), WithDB(db))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.cfg.Store.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", svc.cfg.Store.BatchSize)
	}
	if svc.cfg.RunBudget != Duration(30*time.Minute) {
		t.Errorf("RunBudget = %v, want 30m", svc.cfg.RunBudget.Std())
	}
	if svc.cfg.TargetPerTerm != 10 || svc.cfg.Comments.PageSize != 20 {
		t.Errorf("defaults not applied: %+v", svc.cfg)
	}

	svc.crawlFeed = func(_ context.Context, _ feed.Kind, _ string) []store.ItemResult {
		return []store.ItemResult{resultFor("901", "BONK")}
	}
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TermsCrawled != 1 || rep.Items != 1 {
		t.Errorf("report = %+v, want one crawled term with one item", rep)
	}

	var n int64
	if err := svc.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("persisted items = %d, want 1", n)
	}
}

func TestRun_PersistsResultsAndEvents(t *testing.T) {
	// WHAT: A run with two terms persists every item and mention the
	// crawl produced and records one ok event per term.
	svc := newTestService(t, testConfig())

	var crawled []string
	svc.crawlFeed = func(_ context.Context, kind feed.Kind, term string) []store.ItemResult {
		crawled = append(crawled, string(kind)+":"+term)
		switch term {
		case "memecoin":
			return []store.ItemResult{resultFor("701", "BONK"), resultFor("702", "WIF", "BONK")}
		default:
			return []store.ItemResult{resultFor("703", "PEPE")}
		}
	}

	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"search:memecoin", "hashtag:crypto"}
	if len(crawled) != 2 || crawled[0] != want[0] || crawled[1] != want[1] {
		t.Fatalf("crawled %v, want %v", crawled, want)
	}
	if rep.TermsCrawled != 2 || rep.TermsSkipped != 0 {
		t.Errorf("report terms = %d crawled / %d skipped", rep.TermsCrawled, rep.TermsSkipped)
	}
	if rep.Items != 3 || rep.Mentions != 4 {
		t.Errorf("report items=%d mentions=%d, want 3 and 4", rep.Items, rep.Mentions)
	}

	var items, mentions, okEvents int
	ctx := context.Background()
	if err := svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items`).Scan(&items); err != nil {
		t.Fatal(err)
	}
	if err := svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mentions`).Scan(&mentions); err != nil {
		t.Fatal(err)
	}
	if err := svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crawl_events WHERE status = 'ok'`).Scan(&okEvents); err != nil {
		t.Fatal(err)
	}
	if items != 3 || mentions != 4 || okEvents != 2 {
		t.Errorf("persisted items=%d mentions=%d okEvents=%d", items, mentions, okEvents)
	}
}

func TestRun_BudgetSkipsRemainingTerms(t *testing.T) {
	// WHAT: Once the wall-clock budget is spent, later terms are not
	// crawled; each gets a skipped event instead.
	cfg := testConfig()
	cfg.RunBudget = Duration(time.Hour)
	svc := newTestService(t, cfg)

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := base
	svc.now = func() time.Time { return clock }

	var crawled []string
	svc.crawlFeed = func(_ context.Context, _ feed.Kind, term string) []store.ItemResult {
		crawled = append(crawled, term)
		// The first term eats the whole budget.
		clock = base.Add(2 * time.Hour)
		return nil
	}

	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(crawled) != 1 || crawled[0] != "memecoin" {
		t.Fatalf("crawled %v, want only memecoin", crawled)
	}
	if rep.TermsCrawled != 1 || rep.TermsSkipped != 1 {
		t.Errorf("report terms = %d crawled / %d skipped, want 1/1", rep.TermsCrawled, rep.TermsSkipped)
	}

	var term, status string
	err = svc.db.QueryRow(`SELECT term, status FROM crawl_events WHERE status = 'skipped'`).Scan(&term, &status)
	if err != nil {
		t.Fatalf("skipped event: %v", err)
	}
	if term != "crypto" {
		t.Errorf("skipped term = %q, want crypto", term)
	}
}

func TestRun_CancelledContextSkips(t *testing.T) {
	svc := newTestService(t, testConfig())
	svc.crawlFeed = func(_ context.Context, _ feed.Kind, _ string) []store.ItemResult {
		t.Fatal("crawlFeed called despite cancellation")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TermsCrawled != 0 || rep.TermsSkipped != 2 {
		t.Errorf("report terms = %d crawled / %d skipped, want 0/2", rep.TermsCrawled, rep.TermsSkipped)
	}
}

func TestRun_Exclusive(t *testing.T) {
	// WHAT: A second Run while one is active fails fast with
	// ErrRunInProgress instead of queueing.
	svc := newTestService(t, testConfig())

	release := make(chan struct{})
	started := make(chan struct{})
	svc.crawlFeed = func(_ context.Context, _ feed.Kind, _ string) []store.ItemResult {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()
	<-started

	if _, err := svc.Run(context.Background()); err != ErrRunInProgress {
		t.Errorf("second Run error = %v, want ErrRunInProgress", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
}

func TestRun_BatchFailureRecorded(t *testing.T) {
	// WHAT: A poisoned batch marks the term's event as error and bumps
	// the report's failed-batch counter, without aborting the run.
	cfg := testConfig()
	cfg.HashtagTerms = nil
	svc := newTestService(t, cfg)

	svc.crawlFeed = func(_ context.Context, _ feed.Kind, _ string) []store.ItemResult {
		bad := resultFor("", "BONK") // empty content_id is rejected by the store
		return []store.ItemResult{bad}
	}

	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.FailedBatches == 0 {
		t.Error("FailedBatches = 0, want > 0")
	}

	var status, msg string
	if err := svc.db.QueryRow(`SELECT status, error_message FROM crawl_events`).Scan(&status, &msg); err != nil {
		t.Fatalf("event: %v", err)
	}
	if status != "error" || msg == "" {
		t.Errorf("event status=%q message=%q, want error with message", status, msg)
	}
}

func TestRun_LastReport(t *testing.T) {
	svc := newTestService(t, testConfig())
	if svc.LastReport() != nil {
		t.Fatal("LastReport before any run should be nil")
	}
	svc.crawlFeed = func(_ context.Context, _ feed.Kind, _ string) []store.ItemResult { return nil }
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rep := svc.LastReport()
	if rep == nil || rep.TermsCrawled != 2 {
		t.Errorf("LastReport = %+v, want 2 crawled terms", rep)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memescope.yaml")
	data := []byte(`
search_terms: ["memecoin", "solana gems"]
hashtag_terms: ["crypto"]
target_per_term: 5
run_budget: 10m
feed:
  staleness: 24h
store:
  path: /tmp/ms.db
  batch_size: 10
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if len(cfg.SearchTerms) != 2 || cfg.SearchTerms[1] != "solana gems" {
		t.Errorf("SearchTerms = %v", cfg.SearchTerms)
	}
	if cfg.TargetPerTerm != 5 || cfg.RunBudget != Duration(10*time.Minute) {
		t.Errorf("TargetPerTerm=%d RunBudget=%v", cfg.TargetPerTerm, cfg.RunBudget)
	}
	if cfg.Feed.Staleness != Duration(24*time.Hour) {
		t.Errorf("Staleness = %v", cfg.Feed.Staleness)
	}
	// Untouched fields fall back to defaults.
	if cfg.BaseURL != "https://www.tiktok.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Comments.PageSize != 20 || cfg.Feed.MaxEmptyRetries != 3 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Store.Path != "/tmp/ms.db" || cfg.Store.BatchSize != 10 {
		t.Errorf("store config = %+v", cfg.Store)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// Guards the alias surface: a mention extracted by the pure extractor must
// be expressible as a MentionAggregate without conversion.
func TestMentionBridging(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	found := mention.Extract("$BONK to the moon", at)
	m, ok := found["BONK"]
	if !ok {
		t.Fatal("BONK not extracted")
	}
	agg := MentionAggregate{ContentID: "1", Key: "BONK", TickerLike: m.TickerLike, Count: m.Count, ObservedAt: m.LastSeen}
	if !agg.TickerLike || agg.Count != 1 {
		t.Errorf("aggregate = %+v", agg)
	}
}
