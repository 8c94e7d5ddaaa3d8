package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cvm-dfp-bot/internal/archive"
	"cvm-dfp-bot/internal/indicators"
	"cvm-dfp-bot/internal/interfaces"
	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/normalize"
	"cvm-dfp-bot/internal/parse"
	"cvm-dfp-bot/internal/reconcile"
	"cvm-dfp-bot/internal/statement/pdftext"
	"cvm-dfp-bot/internal/statement/xlsx"
	"cvm-dfp-bot/internal/store"
	"cvm-dfp-bot/internal/types"
)

// SourceName identifies where filings come from in every result.json.
const SourceName = "CVM_RAD_ENET_DFP"

// DataSource tags every downstream payload with this pipeline.
const DataSource = "cvm_dfp_bot"

// Runner drives the per-company pipeline: fetch filings, extract, reconcile,
// compute indicators, normalize, and submit. Collaborator fields are
// exported so tests can substitute fakes; New fills in production defaults.
type Runner struct {
	Config   *store.Config
	Source   interfaces.FilingSource
	Archives interfaces.ArchiveExtractor
	Sheets   interfaces.SpreadsheetExtractor
	Docs     interfaces.DocumentExtractor

	// Ingest is nil when submission is disabled. IngestErr carries the
	// client construction failure, recorded per company instead of
	// aborting the whole batch.
	Ingest    interfaces.IngestClient
	IngestErr error

	Now func() time.Time
}

// New builds a runner with production extractors derived from the
// configuration.
func New(cfg *store.Config, source interfaces.FilingSource) *Runner {
	parseOpts := parse.Options{CenturyPivot: cfg.Parser.CenturyPivot}
	return &Runner{
		Config:   cfg,
		Source:   source,
		Archives: zipExtractor{},
		Sheets:   xlsx.New(parseOpts),
		Docs:     documentExtractor{opts: pdftext.Options{DiscardUnscoped: cfg.Parser.DiscardUnscoped}},
		Now:      time.Now,
	}
}

// Run processes every company sequentially. A failed company never stops the
// batch; its result carries the failure.
func (r *Runner) Run(ctx context.Context, companies []store.Company, period types.Period) []*types.CompanyResult {
	results := make([]*types.CompanyResult, 0, len(companies))
	for i := range companies {
		results = append(results, r.ProcessCompany(ctx, companies[i], period))
	}
	return results
}

// ProcessCompany runs the full pipeline for one company and writes
// result.json under the company's output directory in every outcome.
func (r *Runner) ProcessCompany(ctx context.Context, company store.Company, period types.Period) (result *types.CompanyResult) {
	ticker := company.Ticker
	companyRoot := filepath.Join(r.Config.OutputRoot, ticker)

	result = &types.CompanyResult{
		Ticker:               ticker,
		CodigoCVM:            company.CodCVM,
		Source:               SourceName,
		Period:               period,
		Historical:           map[string]map[int]float64{},
		RawExtracted:         types.FieldMapping{},
		RawByYear:            types.YearRecord{},
		NormalizedFinancials: map[int]types.FieldMapping{},
		RawIndicatorsByYear:  map[int]types.IndicatorSet{},
		Indicators:           map[int]types.IndicatorSet{},
		IngestPayload:        []map[string]any{},
		Documents:            []types.Filing{},
		MissingInputs:        []string{},
		Errors:               []string{},
		Status:               types.StatusPending,
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "Company processing panicked", "ticker", ticker, "panic", rec)
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", rec))
			result.Status = types.StatusFailed
		}
		result.GeneratedAt = r.Now().UTC().Format(time.RFC3339)
		if err := writeResult(companyRoot, result); err != nil {
			logger.Error(ctx, "Writing result.json failed", "ticker", ticker, "error", err)
		}
	}()

	for _, dir := range []string{"downloads", "extracted", "pdfs", "excels"} {
		if err := os.MkdirAll(filepath.Join(companyRoot, dir), 0o755); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("creating output directory: %v", err))
			result.Status = types.StatusFailed
			return result
		}
	}

	if company.CodCVM == "" {
		logger.Warn(ctx, "CVM code missing in universe row", "ticker", ticker)
		result.Errors = append(result.Errors, "CVM code missing in universe row")
		result.Status = types.StatusFailed
		return result
	}

	logger.Info(ctx, "Processing company", "ticker", ticker, "codigo_cvm", company.CodCVM)

	downloads, err := r.Source.Fetch(ctx, ticker, company.CodCVM, period.StartDate, period.EndDate,
		filepath.Join(companyRoot, "downloads"))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetching filings: %v", err))
		result.Status = types.StatusFailed
		return result
	}
	if len(downloads) == 0 {
		result.Errors = append(result.Errors, "no filing archives found")
	}

	currencyUnit := types.UnitBRL
	hasParsingErrors := false
	var dividendValue *float64
	var dividendDate *string
	filings := make([]*types.Filing, 0, len(downloads))

	for _, download := range downloads {
		filing, unit := r.processArchive(ctx, download, companyRoot, result, &dividendValue, &dividendDate, &hasParsingErrors)
		if filing == nil {
			continue
		}
		if unit == types.UnitBRLThousands {
			currencyUnit = unit
		}
		result.Documents = append(result.Documents, *filing)
		filings = append(filings, filing)
	}

	canonical, _ := reconcile.Merge(ctx, filings)
	result.RawByYear = canonical
	result.NormalizedFinancials = canonical
	result.CurrencyUnit = currencyUnit

	historical := map[string]map[int]float64{
		types.FieldReceitaLiquida: {},
		types.FieldLucroLiquido:   {},
	}
	for _, year := range canonical.Years() {
		fields := canonical[year]
		result.RawExtracted.Merge(fields)
		if v, ok := fields.Get(types.FieldReceitaLiquida); ok {
			historical[types.FieldReceitaLiquida][year] = v
		}
		if v, ok := fields.Get(types.FieldLucroLiquido); ok {
			historical[types.FieldLucroLiquido][year] = v
		}
	}
	result.Historical = historical

	cagrYears := r.Config.Indicators.CAGRYears
	cagrReceitas := indicators.CAGR(historical[types.FieldReceitaLiquida], cagrYears)
	cagrLucros := indicators.CAGR(historical[types.FieldLucroLiquido], cagrYears)
	if !indicators.SufficientSeries(historical[types.FieldReceitaLiquida], cagrYears) {
		result.MissingInputs = appendUnique(result.MissingInputs, "serie_5y_incompleta")
	}
	if !indicators.SufficientSeries(historical[types.FieldLucroLiquido], cagrYears) {
		result.MissingInputs = appendUnique(result.MissingInputs, "serie_5y_incompleta")
	}

	market := company.MarketData()
	computed := indicators.Compute(ctx, canonical, market, r.Config.Indicators.TaxRate)
	result.CalcTraceByYear = computed.TraceByYear
	result.MissingInputsByYear = computed.MissingInputs
	result.MissingByIndicatorByYear = computed.MissingByYear

	isFinancial, financialType := normalize.FinancialProfile(ticker)
	conversionsTotal, anomaliesTotal := 0, 0

	for year, set := range computed.ByYear {
		if cagrReceitas != nil {
			set["cagr_receitas_5"] = *cagrReceitas
		} else {
			r.markMissingCAGR(result, year, "cagr_receitas_5", "historical_receita_liquida")
		}
		if cagrLucros != nil {
			set["cagr_lucros_5"] = *cagrLucros
		} else {
			r.markMissingCAGR(result, year, "cagr_lucros_5", "historical_lucro_liquido")
		}
		result.RawIndicatorsByYear[year] = set.Clone()

		outcome := normalize.Indicators(ctx, set, isFinancial, ticker, year)
		result.Indicators[year] = outcome.Indicators
		conversionsTotal += outcome.Conversions
		anomaliesTotal += outcome.Anomalies
	}
	logger.Info(ctx, "Normalization summary",
		"ticker", ticker, "conversions", conversionsTotal,
		"anomalies", anomaliesTotal, "is_financial", isFinancial)

	for _, year := range result.RawByYear.Years() {
		if _, ok := result.MissingInputsByYear[year]; !ok {
			continue
		}
		for _, missing := range result.MissingInputsByYear[year] {
			result.MissingInputs = appendUnique(result.MissingInputs, missing)
		}
	}

	result.Dividends = types.DividendFacts{
		UltimoDividendo:     dividendValue,
		DataUltimoDividendo: dividendDate,
	}

	liquidity := company.Liquidity()
	for _, year := range sortedYears(result.Indicators) {
		payload := map[string]any{
			"ticker":                ticker,
			"asset_class":           company.AssetClass,
			"data_source":           DataSource,
			"fiscal_year":           year,
			"is_financial":          isFinancial,
			"financial_type":        financialType,
			"current_price":         floatOrNil(market.CurrentPrice),
			"market_cap":            floatOrNil(market.MarketCap),
			"enterprise_value":      floatOrNil(market.EnterpriseValue),
			"dividend_yield":        nil,
			"ultimo_dividendo":      floatOrNil(dividendValue),
			"data_ultimo_dividendo": stringOrNil(dividendDate),
		}
		r.fillAbsoluteFields(ctx, payload, canonical, ticker, year)
		for key, value := range result.Indicators[year] {
			payload[key] = value
		}
		if liquidity != nil {
			payload["liquidez_media_diaria"] = *liquidity
		}
		result.IngestPayload = append(result.IngestPayload, payload)
	}

	r.submit(ctx, result)

	if len(result.Errors) > 0 || hasParsingErrors {
		result.Status = types.StatusPartial
	} else {
		result.Status = types.StatusSuccess
	}
	return result
}

// processArchive extracts one downloaded archive and maps its statements to
// per-year fields. Spreadsheet exports win; documents are parsed only when
// the spreadsheet yielded nothing.
func (r *Runner) processArchive(
	ctx context.Context,
	download interfaces.Download,
	companyRoot string,
	result *types.CompanyResult,
	dividendValue **float64,
	dividendDate **string,
	hasParsingErrors *bool,
) (*types.Filing, string) {
	zipName := filepath.Base(download.ZipPath)
	destDir := filepath.Join(companyRoot, "extracted", trimExt(zipName))

	contents, err := r.Archives.Extract(ctx, download.ZipPath, destDir)
	if err != nil {
		*hasParsingErrors = true
		result.Errors = append(result.Errors, fmt.Sprintf("extracting %s: %v", zipName, err))
		return nil, ""
	}

	sha, err := archive.SHA256File(download.ZipPath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("hashing %s: %v", zipName, err))
	}
	var size int64
	if info, statErr := os.Stat(download.ZipPath); statErr == nil {
		size = info.Size()
	}

	filing := &types.Filing{
		Filename:      zipName,
		SHA256:        sha,
		SizeBytes:     size,
		PDFsExtracted: len(contents.PDFPaths),
		ReferenceDate: download.ReferenceDate,
		RawByYear:     types.YearRecord{},
	}
	if t, ok := reconcile.ParseReferenceDate(download.ReferenceDate); ok {
		filing.ReferenceTime = t
		filing.BaseYear = t.Year()
		filing.BaseYearSource = "reference_date"
	}

	unit := ""
	usedSpreadsheet := false
	if len(contents.XLSXPaths) > 0 {
		logger.Info(ctx, "Spreadsheet found", "archive", zipName, "path", contents.XLSXPaths[0])
		sheet, sheetErr := r.Sheets.Extract(ctx, contents.XLSXPaths[0], filing.BaseYear, true)
		if sheetErr != nil {
			*hasParsingErrors = true
			result.Errors = append(result.Errors, fmt.Sprintf("parsing spreadsheet in %s: %v", zipName, sheetErr))
		} else if !sheet.Empty() {
			usedSpreadsheet = true
			unit = sheet.CurrencyUnit
			if sheet.BaseYear != 0 {
				filing.BaseYear = sheet.BaseYear
				filing.BaseYearSource = sheet.BaseYearSource
			}
			for year, fields := range sheet.RawByYear {
				mergeYear(filing.RawByYear, year, fields)
			}
		}
	}

	if !usedSpreadsheet {
		for _, pdfPath := range contents.PDFPaths {
			doc, docErr := r.Docs.ExtractFile(ctx, pdfPath)
			if docErr != nil {
				*hasParsingErrors = true
				result.Errors = append(result.Errors,
					fmt.Sprintf("parsing document %s: %v", filepath.Base(pdfPath), docErr))
				continue
			}
			if doc.CurrencyUnit == types.UnitBRLThousands {
				unit = doc.CurrencyUnit
			}
			for year, fields := range doc.RawByYear {
				mergeYear(filing.RawByYear, year, fields)
			}
			if *dividendValue == nil && doc.UltimoDividendo != nil {
				*dividendValue = doc.UltimoDividendo
			}
			if *dividendDate == nil && doc.DataUltimoDividendo != nil {
				*dividendDate = doc.DataUltimoDividendo
			}
		}
	}

	filing.YearsCovered = filing.RawByYear.Years()
	return filing, unit
}

// fillAbsoluteFields adds the monetary fields sent verbatim alongside the
// computed indicators. Absent fields are sent as explicit nulls.
func (r *Runner) fillAbsoluteFields(ctx context.Context, payload map[string]any, canonical types.YearRecord, ticker string, year int) {
	absoluteFields := []string{
		types.FieldReceitaLiquida,
		types.FieldLucroLiquido,
		types.FieldLucroBruto,
		types.FieldCaixa,
		types.FieldEmprestimosCP,
		types.FieldEmprestimosLP,
		types.FieldEBIT,
		types.FieldAtivoTotal,
		types.FieldPatrimonioLiquido,
	}
	fields := canonical[year]
	filled := make([]string, 0, len(absoluteFields))
	for _, name := range absoluteFields {
		if v, ok := fields.Get(name); ok {
			payload[name] = v
			filled = append(filled, name)
		} else {
			payload[name] = nil
		}
	}
	logger.Info(ctx, "Absolute fields filled", "ticker", ticker, "year", year, "fields", filled)
}

func (r *Runner) markMissingCAGR(result *types.CompanyResult, year int, indicator, input string) {
	if result.MissingByIndicatorByYear == nil {
		result.MissingByIndicatorByYear = map[int]map[string][]string{}
	}
	if result.MissingByIndicatorByYear[year] == nil {
		result.MissingByIndicatorByYear[year] = map[string][]string{}
	}
	result.MissingByIndicatorByYear[year][indicator] = []string{input}
	if result.MissingInputsByYear == nil {
		result.MissingInputsByYear = map[int][]string{}
	}
	result.MissingInputsByYear[year] = appendUnique(result.MissingInputsByYear[year], input)
}

// submit sends the per-year payloads downstream and records the response.
// Ingest problems degrade the run to partial, never to failed.
func (r *Runner) submit(ctx context.Context, result *types.CompanyResult) {
	if r.IngestErr != nil {
		result.Errors = append(result.Errors, r.IngestErr.Error())
		return
	}
	if r.Ingest == nil {
		logger.Info(ctx, "Ingest disabled, skipping submission", "ticker", result.Ticker)
		return
	}
	if len(result.IngestPayload) == 0 {
		result.IngestResponse = map[string]any{"error": "No fiscal year indicators to send"}
		return
	}
	result.IngestResponse = r.Ingest.SendBatch(ctx, result.IngestPayload)
}

func writeResult(companyRoot string, result *types.CompanyResult) error {
	if err := os.MkdirAll(companyRoot, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(companyRoot, "result.json"), data, 0o644)
}

func mergeYear(target types.YearRecord, year int, fields types.FieldMapping) {
	existing, ok := target[year]
	if !ok {
		existing = types.FieldMapping{}
		target[year] = existing
	}
	existing.Merge(fields)
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

func sortedYears(byYear map[int]types.IndicatorSet) []int {
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	for i := 1; i < len(years); i++ {
		for j := i; j > 0 && years[j] < years[j-1]; j-- {
			years[j], years[j-1] = years[j-1], years[j]
		}
	}
	return years
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// zipExtractor adapts the archive package to the extractor interface.
type zipExtractor struct{}

func (zipExtractor) Extract(ctx context.Context, zipPath, destDir string) (*archive.Contents, error) {
	return archive.Extract(ctx, zipPath, destDir)
}

// documentExtractor adapts document parsing with a fixed policy.
type documentExtractor struct {
	opts pdftext.Options
}

func (d documentExtractor) ExtractFile(ctx context.Context, path string) (*pdftext.Result, error) {
	return pdftext.ExtractFile(ctx, path, d.opts)
}
