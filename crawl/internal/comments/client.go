// Package comments paginates a cursor-based comment API for one content
// item and mines each comment for crypto mentions.
package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Comment is one comment as returned by the API. Either Text or ShareText
// carries the body, depending on the endpoint variant.
type Comment struct {
	AuthorID  string `json:"authorId"`
	Text      string `json:"text"`
	ShareText string `json:"shareText"`
	CreatedAt int64  `json:"createdAt"` // epoch seconds
}

// Page is one page of comments plus the continuation flag. The next cursor
// is implicit: previous cursor + page size.
type Page struct {
	Comments []Comment `json:"comments"`
	HasMore  bool      `json:"hasMore"`
}

// Fetcher retrieves one comment page. Implemented by Client; faked in tests.
type Fetcher interface {
	FetchPage(ctx context.Context, contentID string, cursor, pageSize int) (*Page, error)
}

// ClientConfig configures the HTTP comment client.
type ClientConfig struct {
	// BaseURL is the comment list endpoint.
	BaseURL string

	// Timeout per request. Default: 15s.
	Timeout time.Duration

	// UserAgent sent with requests.
	UserAgent string

	// MaxBytes caps the response body. Default: 4MB.
	MaxBytes int64
}

func (c *ClientConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "memescope/1.0"
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 4 * 1024 * 1024
	}
}

// Client fetches comment pages over HTTP.
type Client struct {
	http *http.Client
	cfg  ClientConfig
}

// NewClient creates a comment API client.
func NewClient(cfg ClientConfig) *Client {
	cfg.defaults()
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// FetchPage requests one page of comments for contentID at the given cursor.
func (c *Client) FetchPage(ctx context.Context, contentID string, cursor, pageSize int) (*Page, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("comments: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("content_id", contentID)
	q.Set("cursor", fmt.Sprintf("%d", cursor))
	q.Set("count", fmt.Sprintf("%d", pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("comments: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comments: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("comments: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("comments: read body: %w", err)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("comments: json decode: %w", err)
	}
	return &page, nil
}
