// Package indicators derives the per-year financial ratios from a canonical
// year record plus point-in-time market data. Every ratio is either a finite
// number or absent; the engine records which raw inputs were missing for
// each ratio it could not compute.
package indicators

import (
	"context"

	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/types"
)

// DefaultTaxRate is the statutory corporate rate applied in the NOPAT
// derivation when the configuration does not override it.
const DefaultTaxRate = 0.34

// YearResult is the engine output for one fiscal year.
type YearResult struct {
	Indicators         types.IndicatorSet
	MissingByIndicator map[string][]string
	MissingInputs      []string
	Trace              types.CalcTrace
}

// Results is the engine output for a whole run, keyed by fiscal year.
type Results struct {
	ByYear        map[int]types.IndicatorSet
	MissingByYear map[int]map[string][]string
	MissingInputs map[int][]string
	TraceByYear   map[int]types.CalcTrace
}

func fieldPtr(m types.FieldMapping, name string) *float64 {
	if v, ok := m[name]; ok {
		value := v
		return &value
	}
	return nil
}

func gt0(v *float64) bool {
	return v != nil && *v > 0
}

// safeDiv is the plain-ratio guard: absent operand or zero denominator
// yields absent. Negative denominators are allowed here; the strictly
// positive policy applies only to the price multiples.
func safeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	out := *num / *den
	return &out
}

func ptr(v float64) *float64 { return &v }

type yearEngine struct {
	out   *YearResult
	order []string
}

func (e *yearEngine) trace(name, formula string, inputs map[string]*float64) {
	e.out.Trace[name] = types.TraceEntry{Formula: formula, Inputs: inputs}
}

// record books one indicator: present values land in the set, absent ones
// land in the missing ledger with the raw fields a consumer should chase.
func (e *yearEngine) record(name string, value *float64, missing []string, formula string, inputs map[string]*float64) {
	if value != nil {
		e.out.Indicators[name] = *value
	} else {
		e.out.MissingByIndicator[name] = missing
		e.order = append(e.order, name)
	}
	if formula != "" {
		e.trace(name, formula, inputs)
	}
}

func (e *yearEngine) finish() {
	seen := make(map[string]bool)
	for _, indicator := range e.order {
		for _, field := range e.out.MissingByIndicator[indicator] {
			if !seen[field] {
				seen[field] = true
				e.out.MissingInputs = append(e.out.MissingInputs, field)
			}
		}
	}
}

// ComputeYear derives the full indicator set for one fiscal year.
func ComputeYear(raw types.FieldMapping, market types.MarketData, taxRate float64) *YearResult {
	e := &yearEngine{out: &YearResult{
		Indicators:         types.IndicatorSet{},
		MissingByIndicator: map[string][]string{},
		Trace:              types.CalcTrace{},
	}}

	currentPrice := market.CurrentPrice
	marketCap := market.MarketCap
	enterpriseValue := market.EnterpriseValue
	dividendos12M := market.Dividendos12M

	lucroLiquido := fieldPtr(raw, types.FieldLucroLiquido)
	patrimonioLiquido := fieldPtr(raw, types.FieldPatrimonioLiquido)
	ativoTotal := fieldPtr(raw, types.FieldAtivoTotal)
	ativoCirculante := fieldPtr(raw, types.FieldAtivoCirculante)
	passivoCirculante := fieldPtr(raw, types.FieldPassivoCirculante)
	receitaLiquida := fieldPtr(raw, types.FieldReceitaLiquida)
	lucroBruto := fieldPtr(raw, types.FieldLucroBruto)
	ebit := fieldPtr(raw, types.FieldEBIT)
	depreciacao := fieldPtr(raw, types.FieldDepreciacao)
	amortizacao := fieldPtr(raw, types.FieldAmortizacao)
	qtdAcoes := fieldPtr(raw, types.FieldQtdAcoesTotal)
	passivoTotal := fieldPtr(raw, types.FieldPassivoTotal)
	emprestimosCP := fieldPtr(raw, types.FieldEmprestimosCP)
	emprestimosLP := fieldPtr(raw, types.FieldEmprestimosLP)
	caixa := fieldPtr(raw, types.FieldCaixa)
	estoques := fieldPtr(raw, types.FieldEstoques)

	var ebitda *float64
	if ebit != nil && depreciacao != nil && amortizacao != nil {
		ebitda = ptr(*ebit + *depreciacao + *amortizacao)
	}
	e.trace("ebitda", "ebit+depreciacao+amortizacao", map[string]*float64{
		"ebit": ebit, "depreciacao": depreciacao, "amortizacao": amortizacao,
	})

	var dividaBruta *float64
	if emprestimosCP != nil && emprestimosLP != nil {
		dividaBruta = ptr(*emprestimosCP + *emprestimosLP)
	}
	e.trace("divida_bruta", "emprestimos_cp+emprestimos_lp", map[string]*float64{
		"emprestimos_cp": emprestimosCP, "emprestimos_lp": emprestimosLP,
	})

	var dividaLiquida *float64
	if dividaBruta != nil && caixa != nil {
		dividaLiquida = ptr(*dividaBruta - *caixa)
	}
	e.trace("divida_liquida", "divida_bruta-caixa", map[string]*float64{
		"divida_bruta": dividaBruta, "caixa": caixa,
	})

	var capitalInvestido *float64
	if patrimonioLiquido != nil && dividaLiquida != nil {
		capitalInvestido = ptr(*patrimonioLiquido + *dividaLiquida)
	}
	e.trace("capital_investido", "patrimonio_liquido+divida_liquida", map[string]*float64{
		"patrimonio_liquido": patrimonioLiquido, "divida_liquida": dividaLiquida,
	})

	var nopat *float64
	if ebit != nil {
		nopat = ptr(*ebit * (1 - taxRate))
	}
	e.trace("nopat", "ebit*(1-aliquota_ir)", map[string]*float64{
		"ebit": ebit, "aliquota_ir": ptr(taxRate),
	})

	var capitalGiro *float64
	if ativoCirculante != nil && passivoCirculante != nil {
		capitalGiro = ptr(*ativoCirculante - *passivoCirculante)
	}
	e.trace("capital_giro", "ativo_circulante-passivo_circulante", map[string]*float64{
		"ativo_circulante": ativoCirculante, "passivo_circulante": passivoCirculante,
	})

	// inventories default to zero here: many service companies simply do
	// not report the line
	var ativoCircLiq *float64
	if ativoCirculante != nil && passivoCirculante != nil {
		estoquesVal := 0.0
		if estoques != nil {
			estoquesVal = *estoques
		}
		ativoCircLiq = ptr(*ativoCirculante - *passivoCirculante - estoquesVal)
	}
	e.trace("ativo_circ_liq", "ativo_circulante-passivo_circulante-estoques", map[string]*float64{
		"ativo_circulante": ativoCirculante, "passivo_circulante": passivoCirculante, "estoques": estoques,
	})

	vpa := safeDiv(patrimonioLiquido, qtdAcoes)
	e.trace("vpa", "patrimonio_liquido/qtd_acoes_total", map[string]*float64{
		"patrimonio_liquido": patrimonioLiquido, "qtd_acoes_total": qtdAcoes,
	})

	var lpa *float64
	if gt0(lucroLiquido) && gt0(qtdAcoes) {
		lpa = ptr(*lucroLiquido / *qtdAcoes)
	}

	var pl *float64
	if gt0(currentPrice) && gt0(lpa) {
		pl = ptr(*currentPrice / *lpa)
	}
	e.record("p_l", pl,
		[]string{"current_price", "lucro_liquido", "qtd_acoes_total"},
		"current_price/(lucro_liquido/qtd_acoes_total)", map[string]*float64{
			"current_price": currentPrice, "lucro_liquido": lucroLiquido, "qtd_acoes_total": qtdAcoes,
		})

	var pvp *float64
	if gt0(currentPrice) && gt0(patrimonioLiquido) && gt0(qtdAcoes) && gt0(vpa) {
		pvp = ptr(*currentPrice / *vpa)
	}
	e.record("p_vp", pvp,
		[]string{"current_price", "patrimonio_liquido", "qtd_acoes_total"},
		"current_price/(patrimonio_liquido/qtd_acoes_total)", map[string]*float64{
			"current_price": currentPrice, "patrimonio_liquido": patrimonioLiquido, "qtd_acoes_total": qtdAcoes,
		})

	var evEbitda *float64
	if gt0(enterpriseValue) && gt0(ebitda) {
		evEbitda = ptr(*enterpriseValue / *ebitda)
	}
	e.record("ev_ebitda", evEbitda,
		[]string{"enterprise_value", "ebit", "depreciacao", "amortizacao"},
		"enterprise_value/ebitda", map[string]*float64{
			"enterprise_value": enterpriseValue, "ebitda": ebitda,
		})

	var pEbit *float64
	if gt0(marketCap) && gt0(ebit) {
		pEbit = ptr(*marketCap / *ebit)
	}
	e.record("p_ebit", pEbit,
		[]string{"market_cap", "ebit"},
		"market_cap/ebit", map[string]*float64{"market_cap": marketCap, "ebit": ebit})

	var pEbitda *float64
	if gt0(marketCap) && gt0(ebitda) {
		pEbitda = ptr(*marketCap / *ebitda)
	}
	e.record("p_ebitda", pEbitda,
		[]string{"market_cap", "ebit", "depreciacao", "amortizacao"},
		"market_cap/ebitda", map[string]*float64{"market_cap": marketCap, "ebitda": ebitda})

	var pAtivo *float64
	if gt0(marketCap) && gt0(ativoTotal) {
		pAtivo = ptr(*marketCap / *ativoTotal)
	}
	e.record("p_ativo", pAtivo,
		[]string{"market_cap", "ativo_total"},
		"market_cap/ativo_total", map[string]*float64{"market_cap": marketCap, "ativo_total": ativoTotal})

	var pCapGiro *float64
	if gt0(marketCap) && gt0(capitalGiro) {
		pCapGiro = ptr(*marketCap / *capitalGiro)
	}
	e.record("p_cap_giro", pCapGiro,
		[]string{"market_cap", "ativo_circulante", "passivo_circulante"},
		"market_cap/capital_giro", map[string]*float64{"market_cap": marketCap, "capital_giro": capitalGiro})

	var pAtivoCircLiq *float64
	if gt0(marketCap) && gt0(ativoCircLiq) {
		pAtivoCircLiq = ptr(*marketCap / *ativoCircLiq)
	}
	e.record("p_ativo_circ_liq", pAtivoCircLiq,
		[]string{"market_cap", "ativo_circulante", "passivo_circulante", "estoques"},
		"market_cap/ativo_circ_liq", map[string]*float64{"market_cap": marketCap, "ativo_circ_liq": ativoCircLiq})

	e.record("payout_ratio", safeDiv(dividendos12M, lucroLiquido),
		[]string{"dividendos_12m", "lucro_liquido"},
		"dividendos_12m/lucro_liquido", map[string]*float64{
			"dividendos_12m": dividendos12M, "lucro_liquido": lucroLiquido,
		})

	e.record("roe", safeDiv(lucroLiquido, patrimonioLiquido),
		[]string{"lucro_liquido", "patrimonio_liquido"},
		"lucro_liquido/patrimonio_liquido", map[string]*float64{
			"lucro_liquido": lucroLiquido, "patrimonio_liquido": patrimonioLiquido,
		})

	e.record("roa", safeDiv(lucroLiquido, ativoTotal),
		[]string{"lucro_liquido", "ativo_total"},
		"lucro_liquido/ativo_total", map[string]*float64{
			"lucro_liquido": lucroLiquido, "ativo_total": ativoTotal,
		})

	e.record("roic", safeDiv(nopat, capitalInvestido),
		[]string{"ebit", "patrimonio_liquido", "emprestimos_cp", "emprestimos_lp", "caixa"},
		"nopat/capital_investido", map[string]*float64{
			"nopat": nopat, "capital_investido": capitalInvestido,
		})

	e.record("m_bruta", safeDiv(lucroBruto, receitaLiquida),
		[]string{"lucro_bruto", "receita_liquida"},
		"lucro_bruto/receita_liquida", map[string]*float64{
			"lucro_bruto": lucroBruto, "receita_liquida": receitaLiquida,
		})

	e.record("m_ebitda", safeDiv(ebitda, receitaLiquida),
		[]string{"ebit", "depreciacao", "amortizacao", "receita_liquida"},
		"ebitda/receita_liquida", map[string]*float64{
			"ebitda": ebitda, "receita_liquida": receitaLiquida,
		})

	e.record("m_ebit", safeDiv(ebit, receitaLiquida),
		[]string{"ebit", "receita_liquida"},
		"ebit/receita_liquida", map[string]*float64{"ebit": ebit, "receita_liquida": receitaLiquida})

	e.record("m_liquida", safeDiv(lucroLiquido, receitaLiquida),
		[]string{"lucro_liquido", "receita_liquida"},
		"lucro_liquido/receita_liquida", map[string]*float64{
			"lucro_liquido": lucroLiquido, "receita_liquida": receitaLiquida,
		})

	e.record("div_liquida_ebitda", safeDiv(dividaLiquida, ebitda),
		[]string{"emprestimos_cp", "emprestimos_lp", "caixa", "ebit", "depreciacao", "amortizacao"},
		"divida_liquida/ebitda", map[string]*float64{
			"divida_liquida": dividaLiquida, "ebitda": ebitda,
		})

	e.record("div_liquida_ebit", safeDiv(dividaLiquida, ebit),
		[]string{"emprestimos_cp", "emprestimos_lp", "caixa", "ebit"},
		"divida_liquida/ebit", map[string]*float64{"divida_liquida": dividaLiquida, "ebit": ebit})

	e.record("div_liquida_pl", safeDiv(dividaLiquida, patrimonioLiquido),
		[]string{"emprestimos_cp", "emprestimos_lp", "caixa", "patrimonio_liquido"},
		"divida_liquida/patrimonio_liquido", map[string]*float64{
			"divida_liquida": dividaLiquida, "patrimonio_liquido": patrimonioLiquido,
		})

	e.record("passivo_ativo", safeDiv(passivoTotal, ativoTotal),
		[]string{"passivo_total", "ativo_total"},
		"passivo_total/ativo_total", map[string]*float64{
			"passivo_total": passivoTotal, "ativo_total": ativoTotal,
		})

	e.record("liq_corrente", safeDiv(ativoCirculante, passivoCirculante),
		[]string{"ativo_circulante", "passivo_circulante"},
		"ativo_circulante/passivo_circulante", map[string]*float64{
			"ativo_circulante": ativoCirculante, "passivo_circulante": passivoCirculante,
		})

	e.record("pl_ativo", safeDiv(patrimonioLiquido, ativoTotal),
		[]string{"patrimonio_liquido", "ativo_total"},
		"patrimonio_liquido/ativo_total", map[string]*float64{
			"patrimonio_liquido": patrimonioLiquido, "ativo_total": ativoTotal,
		})

	e.record("giro_ativos", safeDiv(receitaLiquida, ativoTotal),
		[]string{"receita_liquida", "ativo_total"},
		"receita_liquida/ativo_total", map[string]*float64{
			"receita_liquida": receitaLiquida, "ativo_total": ativoTotal,
		})

	e.record("vpa", vpa, []string{"patrimonio_liquido", "qtd_acoes_total"}, "", nil)

	// equity itself rides along so the payload carries an absolute anchor
	e.record("patrimonio_liquido", patrimonioLiquido, []string{"patrimonio_liquido"},
		"patrimonio_liquido", map[string]*float64{"patrimonio_liquido": patrimonioLiquido})

	e.finish()
	return e.out
}

// Compute runs the engine over every year of the canonical record.
func Compute(ctx context.Context, rawByYear types.YearRecord, market types.MarketData, taxRate float64) *Results {
	results := &Results{
		ByYear:        make(map[int]types.IndicatorSet, len(rawByYear)),
		MissingByYear: make(map[int]map[string][]string, len(rawByYear)),
		MissingInputs: make(map[int][]string, len(rawByYear)),
		TraceByYear:   make(map[int]types.CalcTrace, len(rawByYear)),
	}
	for year, raw := range rawByYear {
		yr := ComputeYear(raw, market, taxRate)
		results.ByYear[year] = yr.Indicators
		results.MissingByYear[year] = yr.MissingByIndicator
		results.MissingInputs[year] = yr.MissingInputs
		results.TraceByYear[year] = yr.Trace
	}
	logger.Info(ctx, "Indicators computed", "years", len(results.ByYear))
	return results
}
