// Package cvm drives the CVM RAD/ENET portal: opening the external consulta
// page for a company, applying the DFP filters, scraping the filings listing
// and capturing the archive downloads.
package cvm

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"cvm-dfp-bot/internal/logger"
)

// BrowserConfig holds the remote-browser settings.
type BrowserConfig struct {
	Headless    bool
	Timeout     time.Duration
	DownloadDir string
	UserAgent   string
}

// Browser owns one Chrome instance. The portal session is stateful, so each
// company run gets its own instance.
type Browser struct {
	ctx     context.Context
	cancels []context.CancelFunc
	timeout time.Duration
	dlDir   string
}

// NewBrowser launches Chrome, verifies it responds and routes downloads into
// the configured directory (files land named by their download GUID).
func NewBrowser(ctx context.Context, cfg BrowserConfig) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b := &Browser{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{browserCancel, allocCancel},
		timeout: cfg.Timeout,
		dlDir:   cfg.DownloadDir,
	}
	if b.timeout <= 0 {
		b.timeout = 60 * time.Second
	}

	testCtx, cancel := context.WithTimeout(browserCtx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		b.Close()
		return nil, fmt.Errorf("browser did not start: %w", err)
	}

	if cfg.DownloadDir != "" {
		if err := chromedp.Run(browserCtx,
			browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
				WithDownloadPath(cfg.DownloadDir).
				WithEventsEnabled(true),
		); err != nil {
			b.Close()
			return nil, fmt.Errorf("configuring download behavior: %w", err)
		}
	}

	logger.Debug(ctx, "Browser started", "headless", cfg.Headless, "downloads", cfg.DownloadDir)
	return b, nil
}

// Run executes chromedp actions against the browser under the configured
// step timeout.
func (b *Browser) Run(actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Close tears the browser down.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}
