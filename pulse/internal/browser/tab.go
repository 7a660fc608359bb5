package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// navigateTimeout bounds page navigation and load.
const navigateTimeout = 30 * time.Second

// Tab wraps a Rod page opened with stealth and resource blocking applied.
type Tab struct {
	Page   *rod.Page
	URL    string
	router *rod.HijackRouter
	mgr    *Manager
}

// OpenTab creates a stealth tab and navigates it to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{Page: page, mgr: mgr}
	t.router = applyResourceBlocking(page, mgr.cfg.ResourceBlocking)

	if err := t.Navigate(ctx, pageURL); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Navigate loads pageURL in the tab and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	t.URL = pageURL
	return nil
}

// CurrentURL returns the URL the page is showing now, which differs from
// URL after in-app navigation.
func (t *Tab) CurrentURL(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", fmt.Errorf("browser: current url: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
		t.router = nil
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
