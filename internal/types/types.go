package types

import "time"

// Canonical financial field names extracted from DFP filings. Values are
// monetary amounts in BRL (or thousands of BRL, see CurrencyUnit) except the
// share-count fields.
const (
	FieldAtivoTotal         = "ativo_total"
	FieldAtivoCirculante    = "ativo_circulante"
	FieldCaixa              = "caixa"
	FieldEstoques           = "estoques"
	FieldPassivoTotal       = "passivo_total"
	FieldPassivoCirculante  = "passivo_circulante"
	FieldPatrimonioLiquido  = "patrimonio_liquido"
	FieldEmprestimosCP      = "emprestimos_cp"
	FieldEmprestimosLP      = "emprestimos_lp"
	FieldReceitaLiquida     = "receita_liquida"
	FieldLucroBruto         = "lucro_bruto"
	FieldEBIT               = "ebit"
	FieldLucroLiquido       = "lucro_liquido"
	FieldDepreciacao        = "depreciacao"
	FieldAmortizacao        = "amortizacao"
	FieldQtdAcoesTotal      = "qtd_acoes_total"
	FieldQtdAcoesEmitidas   = "qtd_acoes_emitidas"
	FieldQtdAcoesTesouraria = "qtd_acoes_tesouraria"
)

// Currency units reported by a filing.
const (
	UnitBRL          = "BRL"
	UnitBRLThousands = "BRL_THOUSANDS"
)

// Company run status.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// FieldMapping maps a canonical field name to an extracted amount. A field is
// either present with a finite value or absent from the map; zero never
// stands in for "unknown".
type FieldMapping map[string]float64

// Set stores a value under field only if the field is still unset
// (first-write-wins within one document).
func (m FieldMapping) Set(field string, value float64) bool {
	if _, ok := m[field]; ok {
		return false
	}
	m[field] = value
	return true
}

// Get returns the value for field and whether it is present.
func (m FieldMapping) Get(field string) (float64, bool) {
	v, ok := m[field]
	return v, ok
}

// Merge copies fields from other that are not yet set in m.
func (m FieldMapping) Merge(other FieldMapping) {
	for field, value := range other {
		m.Set(field, value)
	}
}

// Clone returns an independent copy of the mapping.
func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// YearRecord maps fiscal years to the fields extracted for that year.
type YearRecord map[int]FieldMapping

// Store records value under (year, field), first-write-wins.
func (r YearRecord) Store(year int, field string, value float64) bool {
	fields, ok := r[year]
	if !ok {
		fields = FieldMapping{}
		r[year] = fields
	}
	return fields.Set(field, value)
}

// Years returns the fiscal years present, ascending.
func (r YearRecord) Years() []int {
	years := make([]int, 0, len(r))
	for year := range r {
		years = append(years, year)
	}
	for i := 1; i < len(years); i++ {
		for j := i; j > 0 && years[j] < years[j-1]; j-- {
			years[j], years[j-1] = years[j-1], years[j]
		}
	}
	return years
}

// Filing is one downloaded DFP archive after extraction. Immutable once the
// extraction pass that produced it finishes.
type Filing struct {
	Filename       string     `json:"filename"`
	SHA256         string     `json:"sha256"`
	SizeBytes      int64      `json:"size_bytes"`
	PDFsExtracted  int        `json:"pdfs_extracted"`
	ReferenceDate  string     `json:"reference_date,omitempty"`
	ReferenceTime  time.Time  `json:"-"`
	BaseYear       int        `json:"base_year,omitempty"`
	BaseYearSource string     `json:"base_year_source,omitempty"`
	YearsCovered   []int      `json:"years_covered"`
	RawByYear      YearRecord `json:"raw_by_year"`
}

// MarketData carries the point-in-time inputs supplied with the company
// listing. They apply uniformly to every fiscal year of the run.
type MarketData struct {
	CurrentPrice    *float64
	MarketCap       *float64
	EnterpriseValue *float64
	Dividendos12M   *float64
}

// IndicatorSet maps an indicator name to its computed value; an indicator
// that could not be computed is absent from the map.
type IndicatorSet map[string]float64

// Clone returns an independent copy of the set.
func (s IndicatorSet) Clone() IndicatorSet {
	out := make(IndicatorSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// TraceEntry records how one indicator was derived: the formula applied and
// the inputs visible at computation time (nil for absent inputs).
type TraceEntry struct {
	Formula string              `json:"formula"`
	Inputs  map[string]*float64 `json:"inputs"`
}

// CalcTrace maps indicator names to their derivation records.
type CalcTrace map[string]TraceEntry

// DividendFacts is the last declared dividend/JCP payment found in a filing.
type DividendFacts struct {
	UltimoDividendo     *float64 `json:"ultimo_dividendo"`
	DataUltimoDividendo *string  `json:"data_ultimo_dividendo"`
}

// Period is the lookup window applied on the ENET portal.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CompanyResult is the full per-company output, written to result.json in
// every outcome so consumers can tell "no data" from "pipeline broke".
type CompanyResult struct {
	Ticker                   string                   `json:"ticker"`
	CodigoCVM                string                   `json:"codigo_cvm,omitempty"`
	Source                   string                   `json:"source"`
	Period                   Period                   `json:"period"`
	CurrencyUnit             string                   `json:"currency_unit,omitempty"`
	Historical               map[string]map[int]float64 `json:"historical"`
	RawExtracted             FieldMapping             `json:"raw_extracted"`
	RawByYear                YearRecord               `json:"raw_by_year"`
	NormalizedFinancials     map[int]FieldMapping     `json:"normalized_financials"`
	RawIndicatorsByYear      map[int]IndicatorSet     `json:"raw_indicators_by_year"`
	Indicators               map[int]IndicatorSet     `json:"indicators"`
	CalcTraceByYear          map[int]CalcTrace        `json:"calc_trace_by_year,omitempty"`
	Dividends                DividendFacts            `json:"dividends"`
	Documents                []Filing                 `json:"documents"`
	MissingInputs            []string                 `json:"missing_inputs"`
	MissingInputsByYear      map[int][]string         `json:"missing_inputs_by_year,omitempty"`
	MissingByIndicatorByYear map[int]map[string][]string `json:"missing_inputs_by_indicator_by_year,omitempty"`
	IngestPayload            []map[string]any         `json:"moniitor_payload"`
	IngestResponse           any                      `json:"moniitor_response"`
	Errors                   []string                 `json:"errors"`
	Status                   string                   `json:"status"`
	GeneratedAt              string                   `json:"generated_at"`
}
