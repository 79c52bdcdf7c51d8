// Package crawl orchestrates memescope runs: it walks the configured
// search and hashtag feeds, mines each discovered item's comment thread
// for crypto mentions, and persists the results.
package crawl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nquill/memescope/crawl/internal/browser"
	"github.com/nquill/memescope/crawl/internal/comments"
	"github.com/nquill/memescope/crawl/internal/feed"
	"github.com/nquill/memescope/crawl/internal/item"
	"github.com/nquill/memescope/crawl/internal/store"
	"github.com/nquill/memescope/dbopen"
)

// ErrRunInProgress is returned when Run is called while another run holds
// the service.
var ErrRunInProgress = errors.New("crawl: run already in progress")

// RunReport summarises one completed run.
type RunReport struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	TermsCrawled  int       `json:"terms_crawled"`
	TermsSkipped  int       `json:"terms_skipped"`
	Items         int       `json:"items"`
	Mentions      int       `json:"mentions"`
	FailedBatches int       `json:"failed_batches"`
}

// crawlFunc collects one feed's items. The production implementation
// drives a Chrome tab; tests inject their own.
type crawlFunc func(ctx context.Context, kind feed.Kind, term string) []store.ItemResult

// Service is the long-lived crawl orchestrator. One Service owns the
// database and the cross-run seen-set; at most one run is active at a time.
type Service struct {
	cfg   *Config
	log   *slog.Logger
	db    *sql.DB
	ownDB bool
	store *store.Store
	seen  *feed.SeenSet

	// limiter paces term-to-term feed loads.
	limiter *rate.Limiter

	now       func() time.Time
	crawlFeed crawlFunc // nil = rod-backed default

	mu         sync.Mutex
	running    bool
	lastReport *RunReport
}

// Option adjusts a Service at construction time.
type Option func(*Service)

// WithDB supplies an already-opened database. The caller keeps ownership;
// the schema must already be applied.
func WithDB(db *sql.DB) Option {
	return func(s *Service) {
		s.db = db
		s.ownDB = false
	}
}

// New builds a Service from cfg. Unless WithDB is given, it opens (and
// owns) the SQLite database at cfg.Store.Path, applying the schema.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:     cfg,
		log:     logger,
		seen:    feed.NewSeenSet(),
		limiter: rate.NewLimiter(rate.Every(cfg.InterTermDelay.Std()), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.db == nil {
		db, err := dbopen.Open(cfg.Store.Path,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(store.Schema))
		if err != nil {
			return nil, fmt.Errorf("crawl: open store: %w", err)
		}
		s.db = db
		s.ownDB = true
	}

	s.store = store.New(s.db)
	s.store.BatchSize = cfg.Store.BatchSize
	return s, nil
}

// Close releases the database if the Service owns it.
func (s *Service) Close() error {
	if s.ownDB && s.db != nil {
		return s.db.Close()
	}
	return nil
}

type term struct {
	kind feed.Kind
	name string
}

func (s *Service) terms() []term {
	out := make([]term, 0, len(s.cfg.SearchTerms)+len(s.cfg.HashtagTerms))
	for _, t := range s.cfg.SearchTerms {
		out = append(out, term{kind: feed.KindSearch, name: t})
	}
	for _, t := range s.cfg.HashtagTerms {
		out = append(out, term{kind: feed.KindHashtag, name: t})
	}
	return out
}

// Run executes one full crawl: all search terms, then all hashtag terms,
// within the configured wall-clock budget. Per-term failures are recorded
// and do not abort the run; only the browser failing to start is fatal.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	if !s.begin() {
		return nil, ErrRunInProgress
	}
	defer s.end()

	report := &RunReport{StartedAt: s.now()}
	deadline := report.StartedAt.Add(s.cfg.RunBudget.Std())

	crawlFeed := s.crawlFeed
	if crawlFeed == nil {
		mgr := browser.NewManager(browser.Config{
			RemoteURL:        s.cfg.Browser.Remote,
			Headless:         s.cfg.Browser.Headless,
			ResourceBlocking: s.cfg.Browser.ResourceBlocking,
			NavTimeout:       s.cfg.Browser.NavTimeout.Std(),
			Logger:           s.log,
		})
		if err := mgr.Start(ctx); err != nil {
			return nil, fmt.Errorf("crawl: start browser: %w", err)
		}
		defer mgr.Close()
		crawlFeed = s.rodCrawlFeed(mgr)
	}

	for _, t := range s.terms() {
		if ctx.Err() != nil || s.now().After(deadline) {
			s.recordSkipped(ctx, t, report)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.recordSkipped(ctx, t, report)
			continue
		}
		s.crawlTerm(ctx, crawlFeed, t, report)
	}

	report.FinishedAt = s.now()
	s.log.Info("run finished",
		"terms_crawled", report.TermsCrawled,
		"terms_skipped", report.TermsSkipped,
		"items", report.Items,
		"mentions", report.Mentions,
		"failed_batches", report.FailedBatches)

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
	return report, nil
}

func (s *Service) crawlTerm(ctx context.Context, crawlFeed crawlFunc, t term, report *RunReport) {
	start := s.now()
	s.log.Info("crawling term", "kind", string(t.kind), "term", t.name)

	results := crawlFeed(ctx, t.kind, t.name)

	ev := &store.CrawlEvent{
		Term:     t.name,
		FeedKind: string(t.kind),
		Items:    len(results),
		Status:   "ok",
	}

	items := make([]*store.ContentItem, 0, len(results))
	var aggs []store.MentionAggregate
	for _, r := range results {
		items = append(items, r.Item)
		aggs = append(aggs, r.Mentions...)
	}
	ev.Mentions = len(aggs)

	for _, br := range s.store.UpsertContent(ctx, items) {
		if br.Err != nil {
			report.FailedBatches++
			ev.Status = "error"
			ev.ErrorMessage = br.Err.Error()
			s.log.Warn("content batch failed",
				"term", t.name, "start", br.Start, "count", br.Count, "error", br.Err)
		}
	}
	for _, br := range s.store.UpsertMentions(ctx, aggs) {
		if br.Err != nil {
			report.FailedBatches++
			ev.Status = "error"
			ev.ErrorMessage = br.Err.Error()
			s.log.Warn("mention batch failed",
				"term", t.name, "start", br.Start, "count", br.Count, "error", br.Err)
		}
	}

	ev.DurationMs = s.now().Sub(start).Milliseconds()
	if err := s.store.InsertCrawlEvent(ctx, ev); err != nil {
		s.log.Warn("crawl event not recorded", "term", t.name, "error", err)
	}

	report.TermsCrawled++
	report.Items += len(results)
	report.Mentions += len(aggs)
}

// recordSkipped notes a term the run budget (or cancellation) pushed out.
func (s *Service) recordSkipped(ctx context.Context, t term, report *RunReport) {
	report.TermsSkipped++
	ev := &store.CrawlEvent{
		Term:     t.name,
		FeedKind: string(t.kind),
		Status:   "skipped",
	}
	if err := s.store.InsertCrawlEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("skip event not recorded", "term", t.name, "error", err)
	}
}

// rodCrawlFeed builds the production crawl function on a started browser.
// One tab per term; the comment client and extractor are shared.
func (s *Service) rodCrawlFeed(mgr *browser.Manager) crawlFunc {
	client := comments.NewClient(comments.ClientConfig{
		BaseURL: s.cfg.Comments.APIURL,
		Timeout: s.cfg.Comments.Timeout.Std(),
	})
	paginator := comments.New(client, comments.Config{PageSize: s.cfg.Comments.PageSize}, s.log)
	extractor := item.New(item.Config{Staleness: s.cfg.Feed.Staleness.Std()}, s.log)

	return func(ctx context.Context, kind feed.Kind, name string) []store.ItemResult {
		tab, err := mgr.NewTab()
		if err != nil {
			s.log.Error("tab open failed", "term", name, "error", err)
			return nil
		}
		defer tab.Close()

		crawler := feed.New(feed.NewRodPage(tab), extractor, paginator.Run, s.seen, feed.Config{
			TargetCount:     s.cfg.TargetPerTerm,
			MaxEmptyRetries: s.cfg.Feed.MaxEmptyRetries,
			RetryDelay:      s.cfg.Feed.RetryDelay.Std(),
			Settle:          s.cfg.Feed.Settle.Std(),
			ScrollPause:     s.cfg.Feed.ScrollPause.Std(),
		}, s.log)
		return crawler.Run(ctx, feed.URL(s.cfg.BaseURL, kind, name))
	}
}

func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Running reports whether a run is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the most recent completed run report, or nil.
func (s *Service) LastReport() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// Stats returns corpus-level counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// RecentItems lists the most recently discovered items.
func (s *Service) RecentItems(ctx context.Context, limit int) ([]*ContentItem, error) {
	return s.store.ListRecentItems(ctx, limit)
}

// TopMentions ranks mention keys by total count since the given time.
func (s *Service) TopMentions(ctx context.Context, since time.Time, limit int) ([]TopMention, error) {
	return s.store.TopMentions(ctx, since, limit)
}

// ResolveSymbol maps a ticker symbol to its registered token identifiers.
func (s *Service) ResolveSymbol(ctx context.Context, symbol string) ([]string, error) {
	return s.store.ResolveSymbol(ctx, symbol)
}

// AddSymbol registers a symbol-to-token mapping.
func (s *Service) AddSymbol(ctx context.Context, symbol, tokenID string) error {
	return s.store.AddSymbol(ctx, symbol, tokenID)
}
