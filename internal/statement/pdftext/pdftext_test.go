package pdftext

import (
	"context"
	"math"
	"testing"

	"cvm-dfp-bot/internal/statement"
	"cvm-dfp-bot/internal/types"
)

const balanceConsolidated = `DFs Consolidadas
Balanço Patrimonial Ativo
(Reais Mil)
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
1 Ativo Total 1.000 900 800
1.01 Ativo Circulante 400 380 360
1.01.01 Caixa e Equivalentes de Caixa 100.500 90.400 80.300
`

const balanceIndividual = `DFs Individuais
Balanço Patrimonial Ativo
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
1 Ativo Total 111 111 111
`

const incomeConsolidated = `DFs Consolidadas
Demonstração do Resultado
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
3.01 Receita de Venda de Bens e/ou Serviços 500 450 400
3.05 Resultado Antes do Resultado Financeiro e dos Tributos 200 180 160
3.11 Lucro/Prejuízo do Período 150 140 130
`

const cashFlowConsolidated = `DFs Consolidadas
Demonstração dos Fluxos de Caixa
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
Depreciação e Amortização 30.500 25.400 20.300
`

func TestExtractPrefersConsolidatedScope(t *testing.T) {
	pages := []string{balanceConsolidated, balanceIndividual, incomeConsolidated}
	result := ExtractPages(context.Background(), pages, Options{})

	if result.Scope != statement.ScopeConsolidated {
		t.Fatalf("scope = %q, want consolidado", result.Scope)
	}
	if result.CurrencyUnit != types.UnitBRLThousands {
		t.Errorf("unit = %s, want thousands", result.CurrencyUnit)
	}
	// consolidated figures, scaled by the document-wide thousands multiplier
	if v := result.RawByYear[2022][types.FieldAtivoTotal]; v != 1_000_000 {
		t.Errorf("ativo_total 2022 = %v, want 1000000 (individual page must be ignored)", v)
	}
	if v := result.RawByYear[2021][types.FieldCaixa]; v != 90_400_000 {
		t.Errorf("caixa 2021 = %v, want 90400000", v)
	}
	if v := result.RawByYear[2020][types.FieldReceitaLiquida]; v != 400_000 {
		t.Errorf("receita_liquida 2020 = %v, want 400000", v)
	}
	if v := result.RawByYear[2022][types.FieldEBIT]; v != 200_000 {
		t.Errorf("ebit 2022 = %v, want 200000", v)
	}
}

func TestExtractCombinedDepreciationAmortization(t *testing.T) {
	result := ExtractPages(context.Background(), []string{cashFlowConsolidated}, Options{})
	if v := result.RawByYear[2022][types.FieldDepreciacao]; v != 30_500 {
		t.Errorf("depreciacao = %v, want 30500", v)
	}
	if v, ok := result.RawByYear[2022][types.FieldAmortizacao]; !ok || v != 0 {
		t.Errorf("amortizacao = %v (ok=%v), want explicit 0", v, ok)
	}
}

func TestExtractMisalignedLineSkipped(t *testing.T) {
	page := `DFs Consolidadas
Demonstração do Resultado
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
Resultado Bruto 500 450
`
	// two trailing values against three year columns: unreliable, dropped
	result := ExtractPages(context.Background(), []string{page}, Options{})
	if _, ok := result.RawByYear[2022][types.FieldLucroBruto]; ok {
		t.Error("misaligned line should not produce a value")
	}
}

func TestExtractLinesBeforeYearDiscoverySkipped(t *testing.T) {
	page := `DFs Consolidadas
Demonstração do Resultado
Resultado Bruto 999 999 999
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
Resultado Bruto 500 450 400
`
	result := ExtractPages(context.Background(), []string{page}, Options{})
	if v := result.RawByYear[2022][types.FieldLucroBruto]; v != 500 {
		t.Errorf("lucro_bruto = %v, want 500 (line before year discovery must be skipped)", v)
	}
}

func TestExtractCapitalComposition(t *testing.T) {
	capital := `Dados da Empresa / Composição do Capital
Número de Ações (Unidades) 31/12/2022
Do Capital Integralizado
Ordinárias 800.000
Preferenciais 200.000
Total 1.000.000
Em Tesouraria
Ordinárias 40.000
Total 50.000
`
	result := ExtractPages(context.Background(), []string{capital}, Options{})
	if result.Scope != statement.ScopeNone {
		t.Fatalf("scope = %q, want unscoped", result.Scope)
	}
	if v := result.RawByYear[2022][types.FieldQtdAcoesEmitidas]; v != 1_000_000 {
		t.Errorf("qtd_acoes_emitidas = %v, want 1000000", v)
	}
	if v := result.RawByYear[2022][types.FieldQtdAcoesTesouraria]; v != 50_000 {
		t.Errorf("qtd_acoes_tesouraria = %v, want 50000", v)
	}
	if v := result.RawByYear[2022][types.FieldQtdAcoesTotal]; v != 950_000 {
		t.Errorf("qtd_acoes_total = %v, want 950000", v)
	}
}

func TestDiscardUnscopedPolicy(t *testing.T) {
	page := `Balanço Patrimonial Ativo
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
1 Ativo Total 1.000 900 800
`
	result := ExtractPages(context.Background(), []string{page}, Options{DiscardUnscoped: true})
	if !result.Empty() {
		t.Errorf("discard policy should yield an empty result, got %v", result.RawByYear)
	}
	result = ExtractPages(context.Background(), []string{page}, Options{})
	if result.Empty() {
		t.Error("default policy should extract unscoped documents")
	}
}

func TestExtractDividend(t *testing.T) {
	page := `DFs Consolidadas
Demonstração do Resultado
Conta Descrição 31/12/2022 31/12/2021 31/12/2020
3.01 Receita de Venda de Bens e/ou Serviços 500 450 400
Proventos: dividendos no montante de 1.234,56 por lote, pagos em 15/03/2022
Em Reais Mil
`
	result := ExtractPages(context.Background(), []string{page}, Options{})
	if result.UltimoDividendo == nil {
		t.Fatal("expected a dividend amount")
	}
	// scaled by the document-wide thousands multiplier
	if math.Abs(*result.UltimoDividendo-1_234_560) > 1e-6 {
		t.Errorf("ultimo_dividendo = %v, want 1234560", *result.UltimoDividendo)
	}
	if result.DataUltimoDividendo == nil || *result.DataUltimoDividendo != "2022-03-15" {
		t.Errorf("data_ultimo_dividendo = %v, want 2022-03-15", result.DataUltimoDividendo)
	}
}
