package statement

import (
	"strings"

	"cvm-dfp-bot/internal/types"
)

// matcherFunc is one tier of the row-matching chain. Tiers are pure and are
// tried in fixed priority order; the first hit wins.
type matcherFunc func(code, desc string, section Section) (string, bool)

var matchers = []matcherFunc{
	matchByCode,
	matchByDescription,
	matchDepreciationAmortization,
}

// Match maps a statement row to a canonical field: exact taxonomy code
// first, then description keywords, then the cash-flow depreciation and
// amortization fallback. Returns ok=false for rows the pipeline ignores.
func Match(code, desc string, section Section) (string, bool) {
	for _, matcher := range matchers {
		if field, ok := matcher(code, desc, section); ok {
			return field, ok
		}
	}
	return "", false
}

func matchByCode(code, _ string, _ Section) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	if field, ok := codeMap[code]; ok {
		return field, true
	}
	// net income recurs under sub-codes (3.11.01 attributable to
	// controllers etc.); first-write-wins keeps the aggregate line
	if strings.HasPrefix(code, "3.11.") {
		return types.FieldLucroLiquido, true
	}
	return "", false
}

func matchByDescription(_, desc string, _ Section) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(desc))
	if lowered == "" {
		return "", false
	}
	for _, field := range descMatchOrder {
		for _, keyword := range descMap[field] {
			if strings.Contains(lowered, keyword) {
				return field, true
			}
		}
	}
	return "", false
}

// matchDepreciationAmortization catches the D&A lines of the cash-flow
// statement, which carry no stable isolated code. A combined "depreciação e
// amortização" line maps to depreciation; the caller records amortization as
// zero for the same year so EBITDA is not double-counted.
func matchDepreciationAmortization(_, desc string, section Section) (string, bool) {
	if section != SectionDFC {
		return "", false
	}
	lowered := strings.ToLower(desc)
	hasDep := strings.Contains(lowered, "deprecia")
	hasAmort := strings.Contains(lowered, "amortiza")
	switch {
	case hasDep:
		return types.FieldDepreciacao, true
	case hasAmort:
		return types.FieldAmortizacao, true
	}
	return "", false
}

// CombinedDepreciationAmortization reports whether a description carries
// both the depreciation and amortization fragments on one line.
func CombinedDepreciationAmortization(desc string) bool {
	lowered := strings.ToLower(desc)
	return strings.Contains(lowered, "deprecia") && strings.Contains(lowered, "amortiza")
}
