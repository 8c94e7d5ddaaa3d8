package cvm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"cvm-dfp-bot/internal/archive"
	"cvm-dfp-bot/internal/interfaces"
	"cvm-dfp-bot/internal/logger"
)

// DownloadAll clicks every download icon of the listing in order, waits for
// each browser download to finish, validates the archive and renames it into
// destDir. Invalid or failed downloads are retried up to retries times; a
// filing that still fails is skipped, not fatal.
func (f *Flow) DownloadAll(ctx context.Context, ticker, codigoCVM, destDir string, retries int) ([]interfaces.Download, error) {
	referenceDates, err := f.Listing(ctx)
	if err != nil {
		return nil, err
	}
	if len(referenceDates) == 0 {
		logger.Warn(ctx, "No filings to download", "ticker", ticker)
		return nil, nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}
	if retries <= 0 {
		retries = 1
	}

	var downloads []interfaces.Download
	for idx, referenceDate := range referenceDates {
		name := fmt.Sprintf("%s__%s__%03d.zip", ticker, codigoCVM, idx+1)
		destPath := filepath.Join(destDir, name)
		logger.Info(ctx, "Downloading filing", "file", name, "reference_date", referenceDate)
		if err := f.downloadOne(ctx, idx, destPath, retries); err != nil {
			logger.ErrorWithErr(ctx, "Filing download failed", err, "file", name)
			continue
		}
		downloads = append(downloads, interfaces.Download{
			ZipPath:       destPath,
			ReferenceDate: referenceDate,
		})
	}
	return downloads, nil
}

func (f *Flow) downloadOne(ctx context.Context, idx int, destPath string, retries int) error {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		guid, err := f.clickAndWait(ctx, idx)
		if err == nil {
			err = f.placeDownload(guid, destPath)
			if err == nil {
				return nil
			}
		}
		lastErr = err
		logger.Warn(ctx, "Download attempt failed",
			"file", filepath.Base(destPath),
			"attempt", fmt.Sprintf("%d/%d", attempt, retries),
			"error", err)
	}
	return lastErr
}

// clickAndWait clicks the idx-th download icon and blocks until the browser
// reports the download completed, returning its GUID (the on-disk name under
// the download directory).
func (f *Flow) clickAndWait(ctx context.Context, idx int) (string, error) {
	done := make(chan string, 1)
	listenCtx, cancel := context.WithCancel(f.browser.ctx)
	defer cancel()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if progress, ok := ev.(*browser.EventDownloadProgress); ok &&
			progress.State == browser.DownloadProgressStateCompleted {
			select {
			case done <- progress.GUID:
			default:
			}
		}
	})

	script := fmt.Sprintf(`document.querySelectorAll('%s')[%d].click(); true`, downloadIconSelector, idx)
	var clicked bool
	if err := f.browser.Run(chromedp.Evaluate(script, &clicked)); err != nil {
		return "", fmt.Errorf("clicking download icon %d: %w", idx, err)
	}

	select {
	case guid := <-done:
		return guid, nil
	case <-time.After(f.browser.timeout):
		return "", fmt.Errorf("download %d timed out", idx)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// placeDownload moves a finished download into place and checks it really is
// a ZIP; the portal serves HTML error pages with a 200 on throttling.
func (f *Flow) placeDownload(guid, destPath string) error {
	src := filepath.Join(f.browser.dlDir, guid)
	if err := os.Rename(src, destPath); err != nil {
		return fmt.Errorf("moving download: %w", err)
	}
	if !archive.ValidateZip(destPath) {
		os.Remove(destPath)
		return fmt.Errorf("invalid zip: %s", filepath.Base(destPath))
	}
	return nil
}
