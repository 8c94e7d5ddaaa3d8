// Package reconcile merges the per-document year records extracted from a
// company's filings into one canonical per-year record.
package reconcile

import (
	"context"
	"time"

	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/types"
)

// referenceDateLayouts are the date formats the portal annotates downloads
// with, tried in order.
var referenceDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"20060102",
}

// ParseReferenceDate parses a filing reference date. Unparseable input
// yields the zero time, which sorts before every real date so an undated
// filing never overrides a dated one.
func ParseReferenceDate(text string) (time.Time, bool) {
	for _, layout := range referenceDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Merge selects, for each fiscal year reported by any filing, the entire
// field mapping from the filing with the latest reference date covering that
// year. Ties keep the earlier filing in input order. Mappings are cloned, so
// the canonical record is independent of the filings afterwards.
//
// Returns the canonical record plus the source filename chosen per year.
func Merge(ctx context.Context, filings []*types.Filing) (types.YearRecord, map[int]string) {
	canonical := types.YearRecord{}
	sources := make(map[int]string)
	chosen := make(map[int]time.Time)

	for _, filing := range filings {
		if filing == nil {
			continue
		}
		for year, fields := range filing.RawByYear {
			if len(fields) == 0 {
				continue
			}
			if prev, seen := chosen[year]; seen && !filing.ReferenceTime.After(prev) {
				continue
			}
			chosen[year] = filing.ReferenceTime
			canonical[year] = fields.Clone()
			sources[year] = filing.Filename
		}
	}

	logger.Info(ctx, "Filings reconciled",
		"filings", len(filings),
		"years", canonical.Years(),
	)
	return canonical, sources
}
