package crawl

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML scalars in
// time.ParseDuration form ("30s", "2h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("crawl: duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level memescope configuration. Everything the crawl
// core needs (term lists, targets, thresholds, retry constants, the run
// budget) arrives here; nothing is hard-coded in the state machines.
type Config struct {
	// SearchTerms are crawled first, in order, through the search feed.
	SearchTerms []string `yaml:"search_terms"`

	// HashtagTerms are crawled after the search terms, through tag pages.
	HashtagTerms []string `yaml:"hashtag_terms"`

	// BaseURL is the platform root. Default: https://www.tiktok.com.
	BaseURL string `yaml:"base_url"`

	// TargetPerTerm is the item count collected per feed. Default: 10.
	TargetPerTerm int `yaml:"target_per_term"`

	// InterTermDelay is the politeness pause between terms. Default: 30s.
	InterTermDelay Duration `yaml:"inter_term_delay"`

	// RunBudget is the wall-clock budget for one whole run, checked
	// between terms. Default: 30m.
	RunBudget Duration `yaml:"run_budget"`

	Feed     FeedConfig     `yaml:"feed"`
	Comments CommentsConfig `yaml:"comments"`
	Browser  BrowserConfig  `yaml:"browser"`
	Store    StoreConfig    `yaml:"store"`
}

// FeedConfig carries the per-feed crawl constants.
type FeedConfig struct {
	// Staleness is the maximum content age. Default: 48h.
	Staleness Duration `yaml:"staleness"`

	// MaxEmptyRetries bounds empty-feed re-polls. Default: 3.
	MaxEmptyRetries int `yaml:"max_empty_retries"`

	// RetryDelay before re-polling an empty feed. Default: 2s.
	RetryDelay Duration `yaml:"retry_delay"`

	// Settle after navigation, for client-side hydration. Default: 2s.
	Settle Duration `yaml:"settle"`

	// ScrollPause between scroll and height re-measure. Default: 1500ms.
	ScrollPause Duration `yaml:"scroll_pause"`
}

// CommentsConfig configures the comment API client.
type CommentsConfig struct {
	// APIURL is the comment list endpoint.
	APIURL string `yaml:"api_url"`

	// PageSize per request; also the cursor step. Default: 20.
	PageSize int `yaml:"page_size"`

	// Timeout per request. Default: 15s.
	Timeout Duration `yaml:"timeout"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty = launch.
	Remote string `yaml:"remote"`

	// Headless runs Chrome without a display. Default: true.
	Headless *bool `yaml:"headless"`

	// ResourceBlocking lists resource types to block. Default:
	// images, fonts, media. A video platform's feeds are expensive.
	ResourceBlocking []string `yaml:"resource_blocking"`

	// NavTimeout bounds one navigation. Default: 30s.
	NavTimeout Duration `yaml:"nav_timeout"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	// Path of the SQLite database. Default: memescope.db.
	Path string `yaml:"path"`

	// BatchSize chunks upserts. Default: 50.
	BatchSize int `yaml:"batch_size"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("crawl: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("crawl: parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.tiktok.com"
	}
	if c.TargetPerTerm <= 0 {
		c.TargetPerTerm = 10
	}
	if c.InterTermDelay <= 0 {
		c.InterTermDelay = Duration(30 * time.Second)
	}
	if c.RunBudget <= 0 {
		c.RunBudget = Duration(30 * time.Minute)
	}
	if c.Feed.Staleness <= 0 {
		c.Feed.Staleness = Duration(48 * time.Hour)
	}
	if c.Feed.MaxEmptyRetries <= 0 {
		c.Feed.MaxEmptyRetries = 3
	}
	if c.Feed.RetryDelay <= 0 {
		c.Feed.RetryDelay = Duration(2 * time.Second)
	}
	if c.Feed.Settle <= 0 {
		c.Feed.Settle = Duration(2 * time.Second)
	}
	if c.Feed.ScrollPause <= 0 {
		c.Feed.ScrollPause = Duration(1500 * time.Millisecond)
	}
	if c.Comments.APIURL == "" {
		c.Comments.APIURL = c.BaseURL + "/api/comment/list"
	}
	if c.Comments.PageSize <= 0 {
		c.Comments.PageSize = 20
	}
	if c.Comments.Timeout <= 0 {
		c.Comments.Timeout = Duration(15 * time.Second)
	}
	if c.Browser.Headless == nil {
		t := true
		c.Browser.Headless = &t
	}
	if c.Browser.ResourceBlocking == nil {
		c.Browser.ResourceBlocking = []string{"images", "fonts", "media"}
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = Duration(30 * time.Second)
	}
	if c.Store.Path == "" {
		c.Store.Path = "memescope.db"
	}
	if c.Store.BatchSize <= 0 {
		c.Store.BatchSize = 50
	}
}
