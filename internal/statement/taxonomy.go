// Package statement holds the taxonomy shared by the spreadsheet and
// document extractors: the CVM account-code table, the free-text description
// table and the matcher chain that maps a statement row to a canonical field.
package statement

import (
	"strings"

	"cvm-dfp-bot/internal/types"
)

// Section identifies which financial statement a page or worksheet belongs
// to.
type Section string

const (
	SectionNone    Section = ""
	SectionBalanco Section = "balanco"
	SectionDRE     Section = "dre"
	SectionDFC     Section = "dfc"
	SectionCapital Section = "capital"
)

// Scope distinguishes consolidated statements from parent-entity ones.
type Scope string

const (
	ScopeNone         Scope = ""
	ScopeConsolidated Scope = "consolidado"
	ScopeIndividual   Scope = "individual"
)

// codeMap maps CVM standardized account codes to canonical fields.
var codeMap = map[string]string{
	"1":       types.FieldAtivoTotal,
	"1.01":    types.FieldAtivoCirculante,
	"1.01.01": types.FieldCaixa,
	"1.01.04": types.FieldEstoques,
	"2":       types.FieldPassivoTotal,
	"2.01":    types.FieldPassivoCirculante,
	"2.03":    types.FieldPatrimonioLiquido,
	"2.01.04": types.FieldEmprestimosCP,
	"2.02.01": types.FieldEmprestimosLP,
	"3.01":    types.FieldReceitaLiquida,
	"3.03":    types.FieldLucroBruto,
	"3.05":    types.FieldEBIT,
	"3.11":    types.FieldLucroLiquido,
}

// descMap maps canonical fields to lowercase description fragments used when
// no code matches. Accented and plain spellings both appear because filings
// mix them.
var descMap = map[string][]string{
	types.FieldAtivoTotal:        {"ativo total"},
	types.FieldAtivoCirculante:   {"ativo circulante"},
	types.FieldCaixa:             {"caixa e equivalentes de caixa", "caixa e equivalentes"},
	types.FieldEstoques:          {"estoques"},
	types.FieldPassivoTotal:      {"passivo total"},
	types.FieldPassivoCirculante: {"passivo circulante"},
	types.FieldPatrimonioLiquido: {"patrimônio líquido", "patrimonio liquido"},
	types.FieldReceitaLiquida:    {"receita de venda de bens", "receita de venda de bens e/ou serviços"},
	types.FieldLucroBruto:        {"resultado bruto", "lucro bruto"},
	types.FieldEBIT:              {"resultado antes do resultado financeiro e dos tributos"},
	types.FieldLucroLiquido:      {"lucro/prejuízo do período", "lucro/prejuizo do periodo"},
}

// descMatchOrder fixes iteration order for the description tier so matching
// is deterministic.
var descMatchOrder = []string{
	types.FieldAtivoTotal,
	types.FieldAtivoCirculante,
	types.FieldCaixa,
	types.FieldEstoques,
	types.FieldPassivoTotal,
	types.FieldPassivoCirculante,
	types.FieldPatrimonioLiquido,
	types.FieldReceitaLiquida,
	types.FieldLucroBruto,
	types.FieldEBIT,
	types.FieldLucroLiquido,
}

var sectionKeywords = map[Section][]string{
	SectionBalanco: {"balanço patrimonial", "balanco patrimonial"},
	SectionDRE:     {"demonstração do resultado", "demonstracao do resultado"},
	SectionDFC:     {"demonstração dos fluxos de caixa", "demonstracao dos fluxos de caixa"},
	SectionCapital: {"composição do capital", "composicao do capital", "dados da empresa"},
}

var sectionMatchOrder = []Section{SectionBalanco, SectionDRE, SectionDFC, SectionCapital}

// ignoredKeywords exclude narrative pages that would otherwise match a
// section keyword (management report quotes the statements, notes repeat
// line items).
var ignoredKeywords = []string{
	"relatório da administração",
	"relatorio da administracao",
	"notas explicativas",
}

var consolidatedKeywords = []string{"consolidado", "consolidadas", "dfs consolidadas"}
var individualKeywords = []string{"individual", "individuais", "dfs individuais"}

// DetectSection classifies a page of text, or SectionNone when the page is
// narrative or unrecognized.
func DetectSection(text string) Section {
	lowered := strings.ToLower(text)
	for _, keyword := range ignoredKeywords {
		if strings.Contains(lowered, keyword) {
			return SectionNone
		}
	}
	for _, section := range sectionMatchOrder {
		for _, keyword := range sectionKeywords[section] {
			if strings.Contains(lowered, keyword) {
				return section
			}
		}
	}
	return SectionNone
}

// DetectScope classifies a page as consolidated or individual.
func DetectScope(text string) Scope {
	lowered := strings.ToLower(text)
	for _, keyword := range consolidatedKeywords {
		if strings.Contains(lowered, keyword) {
			return ScopeConsolidated
		}
	}
	for _, keyword := range individualKeywords {
		if strings.Contains(lowered, keyword) {
			return ScopeIndividual
		}
	}
	return ScopeNone
}
