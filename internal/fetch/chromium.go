package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"influxcal/internal/config"
)

// Browser fetches pages through headless Chromium so that listings built
// client-side by JavaScript are present in the returned HTML.
type Browser struct {
	// Timeout bounds one page load, including the wait for WaitSelector.
	Timeout time.Duration
	// WaitSelector must be visible before the DOM is captured.
	WaitSelector string
}

// NewBrowser returns a Browser from cfg, or nil when rendering is disabled.
func NewBrowser(cfg config.BrowserConfig) *Browser {
	if !cfg.Enabled {
		return nil
	}
	return &Browser{Timeout: cfg.Timeout, WaitSelector: cfg.WaitSelector}
}

// Fetch navigates to url, waits for the page to settle and returns the
// serialized document.
func (b *Browser) Fetch(parentCtx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, &TransportError{URL: url, Err: errors.New("source URL is empty")}
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	wait := b.WaitSelector
	if wait == "" {
		wait = "body"
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady(wait, chromedp.ByQuery),
		// Small extra delay for late client-side inserts.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("render: %w", err)}
	}
	return []byte(html), nil
}
