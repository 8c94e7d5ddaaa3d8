package cvm

import (
	"context"
	"fmt"
	"path/filepath"

	"cvm-dfp-bot/internal/interfaces"
)

// Source implements the filing retrieval collaborator on top of the portal
// flow. Each Fetch runs in a fresh browser; the portal keeps per-session
// state that leaks between companies otherwise.
type Source struct {
	config  BrowserConfig
	retries int
}

// NewSource builds a filing source.
func NewSource(config BrowserConfig, retries int) *Source {
	return &Source{config: config, retries: retries}
}

// Fetch downloads every DFP archive the portal lists for the company inside
// the date window. Archives land under destDir.
func (s *Source) Fetch(ctx context.Context, ticker, codigoCVM, startDate, endDate, destDir string) ([]interfaces.Download, error) {
	config := s.config
	config.DownloadDir = destDir
	if config.DownloadDir == "" {
		config.DownloadDir = filepath.Join(".", "downloads")
	}

	b, err := NewBrowser(ctx, config)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	flow := NewFlow(b)
	if err := flow.OpenCompany(ctx, codigoCVM); err != nil {
		return nil, fmt.Errorf("opening company %s: %w", codigoCVM, err)
	}
	if err := flow.ApplyFilters(ctx, startDate, endDate); err != nil {
		return nil, fmt.Errorf("applying filters: %w", err)
	}
	return flow.DownloadAll(ctx, ticker, codigoCVM, config.DownloadDir, s.retries)
}
