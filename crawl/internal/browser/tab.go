package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab wraps a rod page with stealth and resource blocking applied. One Tab
// serves one feed pass; the crawler navigates it and queries its DOM.
type Tab struct {
	Page    *rod.Page
	manager *Manager
}

// NewTab creates a stealth tab with the manager's resource blocking in
// place. The tab starts blank; call Navigate to load a feed.
func (m *Manager) NewTab() (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	return &Tab{Page: page, manager: m}, nil
}

// Navigate loads pageURL and waits for the load event, both bounded by the
// manager's NavTimeout.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
