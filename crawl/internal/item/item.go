// Package item extracts structured video metadata from one feed-item DOM
// element. The platform's markup is unstable, so every field is read
// through an ordered chain of selector candidates; a failing selector is
// "field absent", never an extraction failure.
package item

import (
	"log/slog"
	"strings"
	"time"

	"github.com/nquill/memescope/crawl/internal/store"
)

// Node is one matched DOM element.
type Node interface {
	Text() (string, error)
	Attribute(name string) (*string, error)
}

// Handle is the in-memory reference to one feed entry, valid only during a
// single extraction pass. The rod adapter lives in the feed package.
type Handle interface {
	Element(selector string) (Node, error)
	Elements(selector string) ([]Node, error)
}

// videoPathMarker identifies a canonical video URL. The content ID is the
// path segment that follows it.
const videoPathMarker = "/video/"

// Config configures the extractor.
type Config struct {
	// Staleness is the maximum content age eligible for extraction.
	// Items strictly older are discarded. Default: 48h.
	Staleness time.Duration

	// Now is the clock, injectable for tests. Default: time.Now.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.Staleness <= 0 {
		c.Staleness = 48 * time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Extractor reads ContentItems from feed-item handles.
type Extractor struct {
	cfg Config
	log *slog.Logger
}

// New creates an Extractor.
func New(cfg Config, logger *slog.Logger) *Extractor {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, log: logger}
}

// Extract reads one feed item. It returns nil when the item is older than
// the staleness threshold (an item exactly at the threshold is kept).
// A missing video URL yields an item with URL and ContentID empty; the
// caller treats that as undiscoverable, not as an error.
func (e *Extractor) Extract(h Handle) *store.ContentItem {
	now := e.cfg.Now()

	// Timestamp first: it decides whether the rest is worth extracting.
	// No time element at all means the item is new enough that the
	// platform hasn't rendered one: treated as posted one second ago.
	// That reading is a policy choice inherited from production behaviour,
	// not a verified fact about the platform.
	postedAt := now.Add(-time.Second)
	if raw := firstText(h, postedAtChain); raw != "" {
		if ts, ok := ParsePostedAt(raw, now); ok {
			postedAt = ts
		}
	}

	if now.Sub(postedAt) > e.cfg.Staleness {
		return nil
	}

	url := firstAttr(h, videoURLChain, "href")
	if !strings.Contains(url, videoPathMarker) {
		url = ""
	}

	item := &store.ContentItem{
		ContentID:    contentIDFromURL(url),
		AuthorHandle: firstText(h, authorChain),
		URL:          url,
		ThumbnailURL: firstAttr(h, thumbnailChain, "src"),
		Hashtags:     collectHashtags(h),
		ViewCountRaw: firstText(h, viewCountChain),
		PostedAt:     postedAt,
		DiscoveredAt: now,
	}
	return item
}

// contentIDFromURL pulls the path segment after the video marker. An empty
// or unparseable URL yields an empty ID; such items never reach persistence.
func contentIDFromURL(url string) string {
	i := strings.Index(url, videoPathMarker)
	if i < 0 {
		return ""
	}
	id := url[i+len(videoPathMarker):]
	if j := strings.IndexAny(id, "/?#"); j >= 0 {
		id = id[:j]
	}
	return id
}

// firstText walks a selector chain and returns the first non-empty text,
// or "" when no candidate matches. Selector errors count as non-matches.
func firstText(h Handle, chain []string) string {
	for _, sel := range chain {
		n, err := h.Element(sel)
		if err != nil || n == nil {
			continue
		}
		text, err := n.Text()
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr walks a selector chain and returns the first non-empty value of
// the given attribute.
func firstAttr(h Handle, chain []string, attr string) string {
	for _, sel := range chain {
		n, err := h.Element(sel)
		if err != nil || n == nil {
			continue
		}
		v, err := n.Attribute(attr)
		if err != nil || v == nil {
			continue
		}
		if t := strings.TrimSpace(*v); t != "" {
			return t
		}
	}
	return ""
}

// collectHashtags gathers tag link text across every selector in the chain,
// in DOM order, deduplicated, without the leading #.
func collectHashtags(h Handle) []string {
	var tags []string
	seen := make(map[string]struct{})

	for _, sel := range hashtagChain {
		nodes, err := h.Elements(sel)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			text, err := n.Text()
			if err != nil {
				continue
			}
			tag := strings.TrimPrefix(strings.TrimSpace(text), "#")
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}
