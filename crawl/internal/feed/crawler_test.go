package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nquill/memescope/crawl/internal/comments"
	"github.com/nquill/memescope/crawl/internal/item"
	"github.com/nquill/memescope/mention"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// --- fake DOM ---

type fakeNode struct {
	text string
	attr map[string]string
}

func (n *fakeNode) Text() (string, error) { return n.text, nil }
func (n *fakeNode) Attribute(name string) (*string, error) {
	if v, ok := n.attr[name]; ok {
		return &v, nil
	}
	return nil, nil
}

type fakeHandle struct {
	nodes map[string][]*fakeNode
}

func (h *fakeHandle) Element(sel string) (item.Node, error) {
	ns := h.nodes[sel]
	if len(ns) == 0 {
		return nil, errors.New("not found")
	}
	return ns[0], nil
}

func (h *fakeHandle) Elements(sel string) ([]item.Node, error) {
	out := make([]item.Node, 0, len(h.nodes[sel]))
	for _, n := range h.nodes[sel] {
		out = append(out, n)
	}
	return out, nil
}

// fakeItem builds a feed-card handle for a fresh video with the given id.
func fakeItem(id string) item.Handle {
	return &fakeHandle{nodes: map[string][]*fakeNode{
		`time`:               {{text: "1h ago"}},
		`a[href*="/video/"]`: {{attr: map[string]string{"href": "https://www.tiktok.com/@u/video/" + id}}},
	}}
}

// staleItem builds a handle older than any reasonable staleness threshold.
func staleItem(id string) item.Handle {
	return &fakeHandle{nodes: map[string][]*fakeNode{
		`time`:               {{text: "2026-1-1"}},
		`a[href*="/video/"]`: {{attr: map[string]string{"href": "https://www.tiktok.com/@u/video/" + id}}},
	}}
}

// --- fake page ---

// fakePage serves scripted extraction rounds: batches[i] is what the
// container selector yields on poll i (last batch repeats). Heights are
// consumed one per ScrollHeight call (last height repeats).
type fakePage struct {
	navErr    error
	batches   [][]item.Handle
	heights   []int
	polls     int
	heightIdx int
	scrolled  int
}

func (p *fakePage) Navigate(context.Context, string) error { return p.navErr }

func (p *fakePage) Elements(sel string) ([]item.Handle, error) {
	if sel != containerSelectors[0] {
		return nil, nil
	}
	i := min(p.polls, len(p.batches)-1)
	p.polls++
	if len(p.batches) == 0 {
		return nil, nil
	}
	return p.batches[i], nil
}

func (p *fakePage) ScrollHeight() (int, error) {
	i := min(p.heightIdx, len(p.heights)-1)
	p.heightIdx++
	return p.heights[i], nil
}

func (p *fakePage) ScrollToBottom() error {
	p.scrolled++
	return nil
}

// --- harness ---

func noSleep(context.Context, time.Duration) error { return nil }

func emptyPaginate(context.Context, string) *comments.Aggregate {
	return &comments.Aggregate{Mentions: map[string]mention.Mention{}}
}

func newCrawler(p Page, seen *SeenSet, cfg Config, paginate Paginate) *Crawler {
	if seen == nil {
		seen = NewSeenSet()
	}
	if paginate == nil {
		paginate = emptyPaginate
	}
	cfg.Sleep = noSleep
	ex := item.New(item.Config{Staleness: 48 * time.Hour, Now: func() time.Time { return now }}, nil)
	return New(p, ex, paginate, seen, cfg, nil)
}

// --- tests ---

func TestRun_TargetReached(t *testing.T) {
	p := &fakePage{
		batches: [][]item.Handle{{fakeItem("1"), fakeItem("2"), fakeItem("3")}},
		heights: []int{100},
	}
	results := newCrawler(p, nil, Config{TargetCount: 2}, nil).Run(context.Background(), "https://example.com/search?q=x")

	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if p.scrolled != 0 {
		t.Errorf("scrolls: got %d, want 0 (target reached before scrolling)", p.scrolled)
	}
}

func TestRun_UnchangedHeightTerminates(t *testing.T) {
	// WHAT: Two consecutive equal height measurements end the run.
	// WHY: The platform has no end-of-feed signal; DOM stability is the
	// only exhaustion heuristic.
	p := &fakePage{
		batches: [][]item.Handle{{fakeItem("1")}},
		heights: []int{500, 500},
	}
	results := newCrawler(p, nil, Config{TargetCount: 10}, nil).Run(context.Background(), "u")

	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if p.scrolled != 1 {
		t.Errorf("scrolls: got %d, want 1", p.scrolled)
	}
}

func TestRun_ScrollGrowsThenStops(t *testing.T) {
	p := &fakePage{
		batches: [][]item.Handle{
			{fakeItem("1")},
			{fakeItem("1"), fakeItem("2")},
		},
		heights: []int{500, 900, 900, 900},
	}
	results := newCrawler(p, nil, Config{TargetCount: 10}, nil).Run(context.Background(), "u")

	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if p.scrolled != 2 {
		t.Errorf("scrolls: got %d, want 2", p.scrolled)
	}
}

func TestRun_EmptyFeedRetriesThenDone(t *testing.T) {
	p := &fakePage{
		batches: [][]item.Handle{nil},
		heights: []int{100},
	}
	results := newCrawler(p, nil, Config{TargetCount: 5, MaxEmptyRetries: 3}, nil).Run(context.Background(), "u")

	if len(results) != 0 {
		t.Fatalf("results: got %d, want 0", len(results))
	}
	// Initial poll plus three retries before giving up.
	if p.polls != 4 {
		t.Errorf("polls: got %d, want 4", p.polls)
	}
}

func TestRun_NavFailureIsZeroResults(t *testing.T) {
	p := &fakePage{navErr: errors.New("timeout"), heights: []int{0}}
	results := newCrawler(p, nil, Config{}, nil).Run(context.Background(), "u")
	if results != nil {
		t.Fatalf("results: got %v, want nil", results)
	}
}

func TestRun_SeenSetSkipsAcrossCrawls(t *testing.T) {
	// WHAT: An item discovered under one term is skipped when another term
	// surfaces it again.
	// WHY: The SeenSet is shared process state; re-discovery must be a
	// persistence no-op.
	seen := NewSeenSet()
	var paginated []string
	paginate := func(ctx context.Context, id string) *comments.Aggregate {
		paginated = append(paginated, id)
		return emptyPaginate(ctx, id)
	}

	p1 := &fakePage{batches: [][]item.Handle{{fakeItem("1"), fakeItem("2")}}, heights: []int{100, 100}}
	r1 := newCrawler(p1, seen, Config{TargetCount: 10}, paginate).Run(context.Background(), "term1")

	p2 := &fakePage{batches: [][]item.Handle{{fakeItem("2"), fakeItem("3")}}, heights: []int{100, 100}}
	r2 := newCrawler(p2, seen, Config{TargetCount: 10}, paginate).Run(context.Background(), "term2")

	if len(r1) != 2 || len(r2) != 1 {
		t.Fatalf("results: got %d and %d, want 2 and 1", len(r1), len(r2))
	}
	if len(paginated) != 3 {
		t.Errorf("paginated: got %v, want 3 distinct ids", paginated)
	}
	if seen.Len() != 3 {
		t.Errorf("seen: got %d, want 3", seen.Len())
	}
}

func TestRun_StaleAndUndiscoverableSkipped(t *testing.T) {
	noURL := &fakeHandle{nodes: map[string][]*fakeNode{
		`time`: {{text: "1h ago"}},
	}}
	p := &fakePage{
		batches: [][]item.Handle{{staleItem("9"), noURL, fakeItem("1")}},
		heights: []int{100, 100},
	}
	results := newCrawler(p, nil, Config{TargetCount: 10}, nil).Run(context.Background(), "u")

	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if results[0].Item.ContentID != "1" {
		t.Errorf("content id: got %q", results[0].Item.ContentID)
	}
}

func TestRun_MentionsInResult(t *testing.T) {
	paginate := func(_ context.Context, id string) *comments.Aggregate {
		return &comments.Aggregate{
			Total: 2,
			Mentions: map[string]mention.Mention{
				"BONK": {Count: 3, TickerLike: true, LastSeen: now},
				"0x1111111111111111111111111111111111111111": {Count: 1, LastSeen: now},
			},
		}
	}
	p := &fakePage{batches: [][]item.Handle{{fakeItem("1")}}, heights: []int{100, 100}}
	results := newCrawler(p, nil, Config{TargetCount: 1}, paginate).Run(context.Background(), "u")

	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	r := results[0]
	if r.CommentCount != 2 {
		t.Errorf("comment count: got %d, want 2", r.CommentCount)
	}
	if len(r.Mentions) != 2 {
		t.Fatalf("mentions: got %d, want 2", len(r.Mentions))
	}
	// Sorted by key for deterministic persistence order.
	if r.Mentions[0].Key != "0x1111111111111111111111111111111111111111" || r.Mentions[1].Key != "BONK" {
		t.Errorf("mention order: got %q, %q", r.Mentions[0].Key, r.Mentions[1].Key)
	}
	if r.Mentions[1].Count != 3 || !r.Mentions[1].TickerLike {
		t.Errorf("BONK aggregate: got %+v", r.Mentions[1])
	}
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()
	if !s.Add("a") {
		t.Error("first add should report new")
	}
	if s.Add("a") {
		t.Error("second add should report duplicate")
	}
	if !s.Has("a") || s.Has("b") {
		t.Error("membership wrong")
	}
	if s.Len() != 1 {
		t.Errorf("len: got %d, want 1", s.Len())
	}
}

func TestFeedURL(t *testing.T) {
	base := "https://www.tiktok.com"
	tests := []struct {
		kind Kind
		term string
		want string
	}{
		{KindSearch, "bonk coin", "https://www.tiktok.com/search?q=bonk+coin"},
		{KindHashtag, "memecoin", "https://www.tiktok.com/tag/memecoin"},
		{KindHashtag, "#memecoin", "https://www.tiktok.com/tag/memecoin"},
	}
	for _, tt := range tests {
		if got := URL(base, tt.kind, tt.term); got != tt.want {
			t.Errorf("URL(%s, %q): got %q, want %q", tt.kind, tt.term, got, tt.want)
		}
	}
}
