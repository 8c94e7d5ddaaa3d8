package indicators

import (
	"context"
	"math"
	"testing"

	"cvm-dfp-bot/internal/types"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestBookValueAndPriceToBook(t *testing.T) {
	raw := types.FieldMapping{
		types.FieldPatrimonioLiquido: 1_000_000,
		types.FieldQtdAcoesTotal:     100_000,
	}
	price := 15.0
	result := ComputeYear(raw, types.MarketData{CurrentPrice: &price}, DefaultTaxRate)

	if v, ok := result.Indicators["vpa"]; !ok || !approx(v, 10.0) {
		t.Errorf("vpa = %v (ok=%v), want 10.0", v, ok)
	}
	if v, ok := result.Indicators["p_vp"]; !ok || !approx(v, 1.5) {
		t.Errorf("p_vp = %v (ok=%v), want 1.5", v, ok)
	}
}

func TestEBITDAAndEnterpriseValueMultiple(t *testing.T) {
	raw := types.FieldMapping{
		types.FieldEBIT:        200,
		types.FieldDepreciacao: 30,
		types.FieldAmortizacao: 20,
	}
	ev := 2500.0
	result := ComputeYear(raw, types.MarketData{EnterpriseValue: &ev}, DefaultTaxRate)

	if v, ok := result.Indicators["ev_ebitda"]; !ok || !approx(v, 10.0) {
		t.Errorf("ev_ebitda = %v (ok=%v), want 10.0", v, ok)
	}
	entry, ok := result.Trace["ebitda"]
	if !ok {
		t.Fatal("ebitda derivation should be traced")
	}
	if entry.Formula != "ebit+depreciacao+amortizacao" {
		t.Errorf("ebitda formula = %q", entry.Formula)
	}
}

func TestNonPositiveDenominatorsYieldAbsent(t *testing.T) {
	price := 15.0
	market := types.MarketData{CurrentPrice: &price}

	// zero share count
	raw := types.FieldMapping{
		types.FieldPatrimonioLiquido: 1_000_000,
		types.FieldQtdAcoesTotal:     0,
	}
	result := ComputeYear(raw, market, DefaultTaxRate)
	if _, ok := result.Indicators["p_vp"]; ok {
		t.Error("p_vp must be absent with zero shares")
	}

	// negative net income never yields a negative P/E
	raw = types.FieldMapping{
		types.FieldLucroLiquido:  -500,
		types.FieldQtdAcoesTotal: 100,
	}
	result = ComputeYear(raw, market, DefaultTaxRate)
	if _, ok := result.Indicators["p_l"]; ok {
		t.Error("p_l must be absent with negative earnings")
	}
	if got := result.MissingByIndicator["p_l"]; len(got) != 3 {
		t.Errorf("p_l missing inputs = %v", got)
	}
}

func TestPlainRatiosAllowNegativeDenominator(t *testing.T) {
	raw := types.FieldMapping{
		types.FieldLucroLiquido:      100,
		types.FieldPatrimonioLiquido: -400,
	}
	result := ComputeYear(raw, types.MarketData{}, DefaultTaxRate)
	if v, ok := result.Indicators["roe"]; !ok || !approx(v, -0.25) {
		t.Errorf("roe = %v (ok=%v), want -0.25 (negative equity is a real state)", v, ok)
	}
}

func TestMissingInputsLedger(t *testing.T) {
	result := ComputeYear(types.FieldMapping{}, types.MarketData{}, DefaultTaxRate)
	if len(result.Indicators) != 0 {
		t.Errorf("no inputs should mean no indicators, got %v", result.Indicators)
	}
	found := false
	for _, field := range result.MissingInputs {
		if field == "receita_liquida" {
			found = true
		}
	}
	if !found {
		t.Errorf("aggregated missing inputs should name receita_liquida, got %v", result.MissingInputs)
	}
	// deduplicated
	seen := make(map[string]int)
	for _, field := range result.MissingInputs {
		seen[field]++
		if seen[field] > 1 {
			t.Errorf("missing input %q listed twice", field)
		}
	}
}

func TestNOPATUsesConfiguredTaxRate(t *testing.T) {
	raw := types.FieldMapping{
		types.FieldEBIT:              1000,
		types.FieldPatrimonioLiquido: 2000,
		types.FieldEmprestimosCP:     500,
		types.FieldEmprestimosLP:     700,
		types.FieldCaixa:             200,
	}
	result := ComputeYear(raw, types.MarketData{}, 0.25)
	// nopat 750 / capital investido (2000 + 1000) = 0.25
	if v, ok := result.Indicators["roic"]; !ok || !approx(v, 0.25) {
		t.Errorf("roic = %v (ok=%v), want 0.25", v, ok)
	}
}

func TestComputeCoversEveryYear(t *testing.T) {
	record := types.YearRecord{
		2021: {types.FieldLucroLiquido: 100, types.FieldAtivoTotal: 1000},
		2022: {types.FieldLucroLiquido: 120, types.FieldAtivoTotal: 1100},
	}
	results := Compute(context.Background(), record, types.MarketData{}, DefaultTaxRate)
	if len(results.ByYear) != 2 {
		t.Fatalf("years computed = %d, want 2", len(results.ByYear))
	}
	if v := results.ByYear[2021]["roa"]; !approx(v, 0.1) {
		t.Errorf("roa 2021 = %v, want 0.1", v)
	}
}

func TestCAGR(t *testing.T) {
	series := map[int]float64{2018: 100, 2019: 110, 2020: 121, 2021: 133.1, 2022: 146.41}
	got := CAGR(series, 5)
	if got == nil {
		t.Fatal("CAGR should be computable over a full 5-year span")
	}
	if !approx(*got, 0.10) {
		t.Errorf("CAGR = %v, want 0.10", *got)
	}

	short := map[int]float64{2020: 100, 2021: 110, 2022: 121}
	if got := CAGR(short, 5); got != nil {
		t.Errorf("3-year span should yield absent, got %v", *got)
	}

	negative := map[int]float64{2018: -100, 2022: 146.41}
	if got := CAGR(negative, 5); got != nil {
		t.Errorf("non-positive endpoint should yield absent, got %v", *got)
	}
}

func TestCAGRUsesActualSpan(t *testing.T) {
	// six-year span still qualifies for the 5-year window; exponent is 1/6
	series := map[int]float64{2016: 100, 2022: 200}
	got := CAGR(series, 5)
	if got == nil {
		t.Fatal("6-year span should be computable")
	}
	want := math.Round((math.Pow(2, 1.0/6)-1)*10000) / 10000
	if !approx(*got, want) {
		t.Errorf("CAGR = %v, want %v", *got, want)
	}
}

func TestSufficientSeries(t *testing.T) {
	if SufficientSeries(map[int]float64{2020: 1, 2022: 2}, 5) {
		t.Error("2-year span is not sufficient for the 5-year window")
	}
	if !SufficientSeries(map[int]float64{2018: -1, 2022: 2}, 5) {
		t.Error("span check ignores endpoint sign")
	}
	if SufficientSeries(map[int]float64{2022: 2}, 5) {
		t.Error("single point is never sufficient")
	}
}
