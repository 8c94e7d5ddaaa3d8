package xlsx

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"cvm-dfp-bot/internal/parse"
	"cvm-dfp-bot/internal/types"
)

var statementHeader = []interface{}{
	"Código Conta", "Descrição Conta",
	"Valor Ultimo Exercicio", "Valor Penultimo Exercicio", "Valor Antepenultimo Exercicio",
	"Precisao",
}

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()
	file := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			if err := file.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := file.NewSheet(name); err != nil {
				t.Fatalf("new sheet: %v", err)
			}
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := file.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "dadosdocumento.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestExtractConsolidatedPreferred(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"DF Cons Balanço": {
			statementHeader,
			{"1", "Ativo Total", "1.000", "900", "800", "Mil"},
			{"2.03", "Patrimônio Líquido", "500", "450", "400", "Mil"},
		},
		"DF Ind Balanço": {
			statementHeader,
			{"1", "Ativo Total", "111", "111", "111", ""},
		},
	})
	extractor := New(parse.DefaultOptions())
	result, err := extractor.Extract(context.Background(), path, 2022, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.BaseYear != 2022 || result.BaseYearSource != parse.YearFromDeclared {
		t.Fatalf("base year = %d (%s), want 2022 declared", result.BaseYear, result.BaseYearSource)
	}
	if result.CurrencyUnit != types.UnitBRLThousands {
		t.Errorf("unit = %s, want thousands", result.CurrencyUnit)
	}
	// consolidated values win, scaled by the thousands multiplier
	if v, ok := result.RawByYear[2022][types.FieldAtivoTotal]; !ok || v != 1_000_000 {
		t.Errorf("ativo_total 2022 = %v (ok=%v), want 1000000", v, ok)
	}
	if v, ok := result.RawByYear[2021][types.FieldAtivoTotal]; !ok || v != 900_000 {
		t.Errorf("ativo_total 2021 = %v (ok=%v), want 900000", v, ok)
	}
	if v, ok := result.RawByYear[2020][types.FieldPatrimonioLiquido]; !ok || v != 400_000 {
		t.Errorf("patrimonio_liquido 2020 = %v (ok=%v), want 400000", v, ok)
	}
}

func TestExtractFallsBackToIndividual(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"DF Ind Balanço": {
			statementHeader,
			{"1", "Ativo Total", "123", "120", "110", ""},
		},
	})
	result, err := New(parse.DefaultOptions()).Extract(context.Background(), path, 2022, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if v := result.RawByYear[2022][types.FieldAtivoTotal]; v != 123 {
		t.Errorf("ativo_total = %v, want 123", v)
	}
	if result.CurrencyUnit != types.UnitBRL {
		t.Errorf("unit = %s, want BRL", result.CurrencyUnit)
	}
}

func TestExtractBaseYearFromCapitalSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"Composição do Capital": {
			{"Data", "31/12/2021"},
			{"Do Capital Integralizado"},
			{"Total", "1.000.000"},
			{"Em Tesouraria"},
			{"Total", "50.000"},
		},
		"DF Cons Balanço": {
			statementHeader,
			{"1", "Ativo Total", "999", "888", "777", ""},
		},
	})
	result, err := New(parse.DefaultOptions()).Extract(context.Background(), path, 2019, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// the capital sheet's date beats the declared reference year
	if result.BaseYear != 2021 {
		t.Fatalf("base year = %d, want 2021", result.BaseYear)
	}
	if v := result.RawByYear[2021][types.FieldAtivoTotal]; v != 999 {
		t.Errorf("ativo_total 2021 = %v, want 999", v)
	}
	if v := result.RawByYear[2021][types.FieldQtdAcoesTotal]; v != 950_000 {
		t.Errorf("qtd_acoes_total = %v, want 950000", v)
	}
	if v := result.RawByYear[2021][types.FieldQtdAcoesEmitidas]; v != 1_000_000 {
		t.Errorf("qtd_acoes_emitidas = %v, want 1000000", v)
	}
}

func TestExtractNoBaseYearYieldsEmpty(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"DF Cons Balanço": {
			statementHeader,
			{"1", "Ativo Total", "999", "888", "777", ""},
		},
	})
	result, err := New(parse.DefaultOptions()).Extract(context.Background(), path, 0, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected empty result without a base year, got %v", result.RawByYear)
	}
}

func TestFirstWriteWinsWithinDocument(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"DF Cons Balanço": {
			statementHeader,
			{"3.11", "Lucro/Prejuízo do Período", "100", "90", "80", ""},
			{"3.11.01", "Atribuído a Sócios da Empresa Controladora", "60", "55", "50", ""},
		},
	})
	result, err := New(parse.DefaultOptions()).Extract(context.Background(), path, 2022, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if v := result.RawByYear[2022][types.FieldLucroLiquido]; math.Abs(v-100) > 1e-9 {
		t.Errorf("lucro_liquido = %v, want the aggregate line's 100", v)
	}
}

func TestCombinedDepreciationOnCashFlowSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"DF Cons DFC": {
			statementHeader,
			{"", "Depreciação e Amortização", "30", "25", "20", ""},
		},
	})
	result, err := New(parse.DefaultOptions()).Extract(context.Background(), path, 2022, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if v := result.RawByYear[2022][types.FieldDepreciacao]; v != 30 {
		t.Errorf("depreciacao = %v, want 30", v)
	}
	if v, ok := result.RawByYear[2022][types.FieldAmortizacao]; !ok || v != 0 {
		t.Errorf("amortizacao = %v (ok=%v), want explicit 0", v, ok)
	}
}
