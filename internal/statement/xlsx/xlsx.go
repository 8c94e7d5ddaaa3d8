// Package xlsx extracts canonical financial fields from the structured
// spreadsheet export ("dadosdocumento.xlsx") shipped inside DFP archives.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/parse"
	"cvm-dfp-bot/internal/statement"
	"cvm-dfp-bot/internal/types"
)

// Result is the outcome of extracting one spreadsheet filing.
type Result struct {
	RawByYear      types.YearRecord
	CurrencyUnit   string
	BaseYear       int
	BaseYearSource string
}

// Empty reports whether nothing was extracted (missing filing downstream).
func (r *Result) Empty() bool {
	return len(r.RawByYear) == 0
}

// header names, lowercase, accent variants included
var (
	codeColumns      = []string{"código conta", "codigo conta"}
	descColumns      = []string{"descrição conta", "descricao conta"}
	lastColumns      = []string{"valor ultimo exercicio", "valor último exercicio"}
	prevColumns      = []string{"valor penultimo exercicio", "valor penúltimo exercicio"}
	prev2Columns     = []string{"valor antepenultimo exercicio", "valor antepenúltimo exercicio"}
	precisionColumns = []string{"precisao", "precisão"}
)

var capitalSheetKeywords = []string{"composição do capital", "composicao do capital", "capital"}

// Extractor reads DFP spreadsheets. The zero value is not usable; construct
// with New.
type Extractor struct {
	opts parse.Options
}

// New creates an Extractor with the given year-inference options.
func New(opts parse.Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract maps a spreadsheet filing to a per-year field record. declaredYear
// is the caller-supplied reference year (0 when unknown); it is the lowest
// priority base-year source. When no base year can be established the result
// is empty, never guessed.
func (e *Extractor) Extract(ctx context.Context, path string, declaredYear int, preferConsolidated bool) (*Result, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	selected := selectStatementSheets(sheets, preferConsolidated)

	baseYear, baseSource := e.inferBaseYear(file, sheets, selected, declaredYear)
	result := &Result{
		RawByYear:      types.YearRecord{},
		CurrencyUnit:   types.UnitBRL,
		BaseYear:       baseYear,
		BaseYearSource: baseSource,
	}
	if baseYear == 0 {
		logger.Warn(ctx, "No base year could be established for spreadsheet", "path", path)
		return result, nil
	}

	thousands := false
	for _, sheet := range selected {
		rows, err := file.GetRows(sheet)
		if err != nil {
			logger.Warn(ctx, "Unreadable worksheet skipped", "sheet", sheet, "error", err)
			continue
		}
		if scanStatementSheet(rows, sheetSection(sheet), baseYear, result.RawByYear) {
			thousands = true
		}
	}
	if thousands {
		result.CurrencyUnit = types.UnitBRLThousands
	}

	e.extractShares(ctx, file, sheets, baseYear, result.RawByYear)

	logger.Info(ctx, "Spreadsheet extracted",
		"path", path,
		"base_year", baseYear,
		"base_year_source", baseSource,
		"years", result.RawByYear.Years(),
		"unit", result.CurrencyUnit,
	)
	return result, nil
}

// selectStatementSheets picks consolidated or individual statement sheets by
// name prefix, falling back to whichever scope exists.
func selectStatementSheets(sheets []string, preferConsolidated bool) []string {
	prefixes := []string{"df cons", "df ind"}
	if !preferConsolidated {
		prefixes = []string{"df ind", "df cons"}
	}
	for _, prefix := range prefixes {
		var selected []string
		for _, name := range sheets {
			if strings.HasPrefix(strings.ToLower(name), prefix) {
				selected = append(selected, name)
			}
		}
		if len(selected) > 0 {
			return selected
		}
	}
	return nil
}

// sheetSection derives the statement section from a worksheet name so the
// depreciation/amortization fallback stays scoped to cash-flow sheets.
func sheetSection(sheet string) statement.Section {
	lowered := strings.ToLower(sheet)
	if strings.Contains(lowered, "dfc") || strings.Contains(lowered, "fluxo") {
		return statement.SectionDFC
	}
	return statement.SectionNone
}

// inferBaseYear resolves the filing's base fiscal year in priority order:
// capital-composition worksheet date, any date-like cell in a selected
// worksheet, the declared reference year.
func (e *Extractor) inferBaseYear(file *excelize.File, sheets, selected []string, declaredYear int) (int, string) {
	for _, sheet := range sheets {
		if !isCapitalSheet(sheet) {
			continue
		}
		if year, source, ok := e.scanForYear(file, sheet); ok {
			return year, "capital_sheet_" + source
		}
	}
	for _, sheet := range selected {
		if year, source, ok := e.scanForYear(file, sheet); ok {
			return year, "worksheet_" + source
		}
	}
	if declaredYear > 0 {
		return declaredYear, parse.YearFromDeclared
	}
	return 0, ""
}

func (e *Extractor) scanForYear(file *excelize.File, sheet string) (int, string, bool) {
	rows, err := file.GetRows(sheet)
	if err != nil {
		return 0, "", false
	}
	for _, row := range rows {
		for _, cell := range row {
			if year, source, ok := parse.InferYear(cell, e.opts); ok {
				return year, source, true
			}
		}
	}
	return 0, "", false
}

func isCapitalSheet(sheet string) bool {
	lowered := strings.ToLower(sheet)
	for _, keyword := range capitalSheetKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// scanStatementSheet walks the data rows of one worksheet, storing matched
// values under base year, base−1 and base−2. Returns whether any matched row
// carried a thousands precision hint; the caller reduces that into the
// document-wide unit after all sheets are scanned.
func scanStatementSheet(rows [][]string, section statement.Section, baseYear int, target types.YearRecord) bool {
	if len(rows) < 2 {
		return false
	}
	header := newHeaderIndex(rows[0])
	codeIdx := header.any(codeColumns)
	descIdx := header.any(descColumns)
	lastIdx := header.any(lastColumns)
	prevIdx := header.any(prevColumns)
	prev2Idx := header.any(prev2Columns)
	precisionIdx := header.any(precisionColumns)
	if lastIdx < 0 || prevIdx < 0 || prev2Idx < 0 {
		return false
	}

	thousands := false
	for _, row := range rows[1:] {
		field, ok := statement.Match(cellAt(row, codeIdx), cellAt(row, descIdx), section)
		if !ok {
			continue
		}
		multiplier := parse.PrecisionMultiplier(cellAt(row, precisionIdx))
		if multiplier == 1000 {
			thousands = true
		}
		exercises := []struct {
			year int
			idx  int
		}{
			{baseYear, lastIdx},
			{baseYear - 1, prevIdx},
			{baseYear - 2, prev2Idx},
		}
		for _, ex := range exercises {
			value, parsed := parse.ParseAmount(cellAt(row, ex.idx))
			if !parsed {
				continue
			}
			target.Store(ex.year, field, value*multiplier)
			if field == types.FieldDepreciacao && statement.CombinedDepreciationAmortization(cellAt(row, descIdx)) {
				target.Store(ex.year, types.FieldAmortizacao, 0)
			}
		}
	}
	return thousands
}

// extractShares derives outstanding shares from a capital-composition
// worksheet: issued minus treasury, stored under the base year only and only
// when issued >= treasury.
func (e *Extractor) extractShares(ctx context.Context, file *excelize.File, sheets []string, baseYear int, target types.YearRecord) {
	for _, sheet := range sheets {
		if !isCapitalSheet(sheet) {
			continue
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			continue
		}
		issued, treasury := scanCapitalRows(rows)
		if issued == nil || treasury == nil {
			logger.Debug(ctx, "Capital composition incomplete", "sheet", sheet,
				"issued", issued != nil, "treasury", treasury != nil)
			continue
		}
		if *issued < *treasury {
			logger.Warn(ctx, "Issued shares below treasury shares, skipping", "sheet", sheet)
			continue
		}
		target.Store(baseYear, types.FieldQtdAcoesEmitidas, *issued)
		target.Store(baseYear, types.FieldQtdAcoesTesouraria, *treasury)
		target.Store(baseYear, types.FieldQtdAcoesTotal, *issued-*treasury)
		return
	}
}

// scanCapitalRows tracks the paid-in capital vs treasury header rows as mode
// switches and captures each block's "total" line.
func scanCapitalRows(rows [][]string) (issued, treasury *float64) {
	inIssued, inTreasury := false, false
	for _, row := range rows {
		joined := strings.ToLower(strings.Join(row, " "))
		switch {
		case strings.Contains(joined, "capital integralizado"):
			inIssued, inTreasury = true, false
			continue
		case strings.Contains(joined, "tesouraria"):
			inIssued, inTreasury = false, true
			continue
		}
		if !strings.Contains(joined, "total") || (!inIssued && !inTreasury) {
			continue
		}
		values := parse.FindAmounts(strings.Join(row, " "))
		if len(values) == 0 {
			continue
		}
		multiplier := 1.0
		if strings.Contains(joined, "mil") {
			multiplier = 1000
		}
		total := values[len(values)-1] * multiplier
		if inIssued && issued == nil {
			issued = &total
		}
		if inTreasury && treasury == nil {
			treasury = &total
		}
	}
	return issued, treasury
}

// headerIndex maps normalized header names to their column positions.
type headerIndex map[string]int

func newHeaderIndex(row []string) headerIndex {
	idx := headerIndex{}
	for i, cell := range row {
		idx[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	return idx
}

func (h headerIndex) any(names []string) int {
	for _, name := range names {
		if i, ok := h[name]; ok {
			return i
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
