// Package pdftext extracts canonical financial fields from the rendered
// statement documents inside DFP archives. The core works on plain text
// pages; reader.go turns a PDF file into pages.
package pdftext

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/parse"
	"cvm-dfp-bot/internal/statement"
	"cvm-dfp-bot/internal/types"
)

var (
	thousandsRe    = regexp.MustCompile(`(?i)(reais\s*mil|em\s*milhares)`)
	yearColumnRe   = regexp.MustCompile(`31/12/(20\d{2})`)
	dividendAmtRe  = regexp.MustCompile(`(?i)(dividendos?|jcp|juros\s+sobre\s+capital).*?(\d{1,3}(?:\.\d{3})*,\d+)`)
	dividendDateRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	codeLineRe     = regexp.MustCompile(`^\s*(\d(?:\.\d{2}){0,2})\s+(.*)$`)
)

// Options controls document extraction policy.
type Options struct {
	// DiscardUnscoped drops documents where no page matches either the
	// consolidated or the individual keywords instead of extracting them
	// unscoped.
	DiscardUnscoped bool
}

// Result is the outcome of extracting one document.
type Result struct {
	RawByYear           types.YearRecord
	CurrencyUnit        string
	Scope               statement.Scope
	UltimoDividendo     *float64
	DataUltimoDividendo *string
}

// Empty reports whether no field was extracted.
func (r *Result) Empty() bool {
	return len(r.RawByYear) == 0
}

// ExtractPages runs the extraction over pre-split text pages.
func ExtractPages(ctx context.Context, pages []string, opts Options) *Result {
	result := &Result{
		RawByYear:    types.YearRecord{},
		CurrencyUnit: types.UnitBRL,
	}
	fullText := strings.Join(pages, "\n")

	multiplier := 1.0
	if thousandsRe.MatchString(fullText) {
		multiplier = 1000
		result.CurrencyUnit = types.UnitBRLThousands
	}

	scopes := make([]statement.Scope, len(pages))
	hasConsolidated, hasIndividual := false, false
	for i, page := range pages {
		scopes[i] = statement.DetectScope(page)
		switch scopes[i] {
		case statement.ScopeConsolidated:
			hasConsolidated = true
		case statement.ScopeIndividual:
			hasIndividual = true
		}
	}
	selected := statement.ScopeNone
	switch {
	case hasConsolidated:
		selected = statement.ScopeConsolidated
	case hasIndividual:
		selected = statement.ScopeIndividual
	default:
		if opts.DiscardUnscoped {
			logger.Warn(ctx, "Document has no scope markers, discarded by policy")
			return result
		}
	}
	result.Scope = selected

	for i, page := range pages {
		if scopes[i] != selected {
			continue
		}
		section := statement.DetectSection(page)
		if section == statement.SectionNone {
			continue
		}
		extractPage(ctx, page, section, multiplier, result.RawByYear)
	}

	finalizeShares(result.RawByYear)
	extractDividend(fullText, multiplier, result)

	logger.Info(ctx, "Document extracted",
		"scope", string(selected),
		"years", result.RawByYear.Years(),
		"unit", result.CurrencyUnit,
	)
	return result
}

// extractPage scans one statement page. The first line carrying year tokens
// fixes the column-to-year mapping for the whole page; lines before that are
// skipped.
func extractPage(ctx context.Context, page string, section statement.Section, multiplier float64, target types.YearRecord) {
	var years []int
	for _, line := range strings.Split(page, "\n") {
		if len(years) == 0 {
			years = yearsFromLine(line)
			if len(years) == 0 {
				continue
			}
		}
		code, desc := splitCodeLine(line)
		field, ok := statement.Match(code, desc, section)
		if !ok {
			continue
		}
		values := parse.FindAmounts(line)
		if len(values) == 0 {
			logger.Debug(ctx, "Matched line without values", "line", line)
			continue
		}
		if len(values) >= len(years) {
			values = values[len(values)-len(years):]
		}
		if len(values) != len(years) {
			logger.Debug(ctx, "Line values misaligned with years, skipped", "line", line)
			continue
		}
		for i, year := range years {
			target.Store(year, field, values[i]*multiplier)
			if field == types.FieldDepreciacao && statement.CombinedDepreciationAmortization(desc) {
				target.Store(year, types.FieldAmortizacao, 0)
			}
		}
	}

	if section == statement.SectionCapital {
		extractCapitalPage(page, years, target)
	}
}

// extractCapitalPage tracks the paid-in capital and treasury blocks of a
// capital-composition page; each block's "total" line carries the share
// count as its trailing numeric token, booked under the page's first
// detected year.
func extractCapitalPage(page string, years []int, target types.YearRecord) {
	if len(years) == 0 {
		return
	}
	year := years[0]
	inIssued, inTreasury := false, false
	for _, line := range strings.Split(page, "\n") {
		lowered := strings.ToLower(line)
		switch {
		case strings.Contains(lowered, "capital integralizado"):
			inIssued, inTreasury = true, false
			continue
		case strings.Contains(lowered, "tesouraria"):
			inIssued, inTreasury = false, true
			continue
		}
		if !strings.Contains(lowered, "total") || (!inIssued && !inTreasury) {
			continue
		}
		values := parse.FindAmounts(line)
		if len(values) == 0 {
			continue
		}
		shareMultiplier := 1.0
		if strings.Contains(lowered, "mil") {
			shareMultiplier = 1000
		}
		total := values[len(values)-1] * shareMultiplier
		if inIssued {
			target.Store(year, types.FieldQtdAcoesEmitidas, total)
		}
		if inTreasury {
			target.Store(year, types.FieldQtdAcoesTesouraria, total)
		}
	}
}

// finalizeShares derives outstanding shares for every year where both the
// issued and treasury counts landed and issued covers treasury.
func finalizeShares(target types.YearRecord) {
	for _, fields := range target {
		issued, okIssued := fields.Get(types.FieldQtdAcoesEmitidas)
		treasury, okTreasury := fields.Get(types.FieldQtdAcoesTesouraria)
		if okIssued && okTreasury && issued >= treasury {
			fields.Set(types.FieldQtdAcoesTotal, issued-treasury)
		}
	}
}

// extractDividend pulls the last declared dividend or interest-on-equity
// payment out of the full document text.
func extractDividend(fullText string, multiplier float64, result *Result) {
	dateSearchText := fullText
	if loc := dividendAmtRe.FindStringSubmatchIndex(fullText); loc != nil {
		amount := fullText[loc[4]:loc[5]]
		if value, ok := parse.ParseAmount(amount); ok {
			scaled := value * multiplier
			result.UltimoDividendo = &scaled
		}
		// prefer the payment date, which follows the declared amount
		dateSearchText = fullText[loc[0]:]
	}
	if m := dividendDateRe.FindStringSubmatch(dateSearchText); m != nil {
		iso := m[3] + "-" + m[2] + "-" + m[1]
		result.DataUltimoDividendo = &iso
	}
}

func yearsFromLine(line string) []int {
	var years []int
	for _, m := range yearColumnRe.FindAllStringSubmatch(line, -1) {
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	return years
}

func splitCodeLine(line string) (code, desc string) {
	if m := codeLineRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2]
	}
	return "", line
}
