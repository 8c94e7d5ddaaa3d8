package cvm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"cvm-dfp-bot/internal/logger"
)

var listingDateRe = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// Listing scrapes the filings table after a consulta: one entry per row
// carrying a download icon, with the row's reference date when one is
// printed. Indexes align with the download icons' DOM order.
func (f *Flow) Listing(ctx context.Context) ([]string, error) {
	var html string
	if err := f.browser.Run(chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("reading listing page: %w", err)
	}

	referenceDates, err := parseListing(html)
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}
	logger.Info(ctx, "Filings listed", "rows", len(referenceDates))
	return referenceDates, nil
}

// parseListing walks the result rows that carry a download icon and pulls
// each row's printed reference date (empty when the row has none).
func parseListing(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var referenceDates []string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find(downloadIconSelector).Length() == 0 {
			return
		}
		referenceDates = append(referenceDates, listingDateRe.FindString(row.Text()))
	})
	return referenceDates, nil
}
