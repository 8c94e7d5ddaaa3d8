// Package parse holds the locale-aware parsing primitives shared by the
// spreadsheet and document extractors: accounting-notation numbers, precision
// hints and fiscal-year inference.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Year-inference provenance tags. Kept on the extraction result so a bad
// base year can be traced back to the strategy that produced it.
const (
	YearFromFullDate     = "full_date"
	YearFromTwoDigitDate = "two_digit_date"
	YearFromISODate      = "iso_date"
	YearFromBareYear     = "bare_year"
	YearFromDeclared     = "declared_reference"
)

// Options controls the year-inference heuristics.
type Options struct {
	// CenturyPivot decides the century of a 2-digit year: values <= pivot
	// map to 2000s, the rest to 1900s. The split is a heuristic carried
	// over from the source data, hence configurable.
	CenturyPivot int
}

// DefaultOptions matches the historical behaviour (pivot 79).
func DefaultOptions() Options {
	return Options{CenturyPivot: 79}
}

var (
	amountRe       = regexp.MustCompile(`\(?-?\d{1,3}(?:\.\d{3})*(?:,\d+)?\)?`)
	nonNumericRe   = regexp.MustCompile(`[^0-9.\-]`)
	milRe          = regexp.MustCompile(`(?i)mil`)
	fullDateRe     = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	twoDigitDateRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2})$`)
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	bareYearRe     = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// ParseAmount parses a Brazilian accounting-formatted amount: dot thousands
// separators, comma decimals, parentheses for negatives ("(1.234,56)" =>
// -1234.56). Returns ok=false for anything unparseable.
func ParseAmount(text string) (float64, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}
	negative := strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")")
	cleaned = strings.Trim(cleaned, "()")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = nonNumericRe.ReplaceAllString(cleaned, "")
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}

// FormatAmount renders a value back into accounting notation with two
// decimals. Round-trips through ParseAmount within floating tolerance.
func FormatAmount(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	text := strconv.FormatFloat(value, 'f', 2, 64)
	parts := strings.SplitN(text, ".", 2)
	intPart, decPart := parts[0], parts[1]
	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)
	out := strings.Join(grouped, ".") + "," + decPart
	if negative {
		out = "(" + out + ")"
	}
	return out
}

// FindAmounts extracts every accounting-notation amount from a line,
// left-to-right. Unparseable matches are skipped.
func FindAmounts(line string) []float64 {
	var values []float64
	for _, match := range amountRe.FindAllString(strings.ReplaceAll(line, " ", ""), -1) {
		if value, ok := ParseAmount(match); ok {
			values = append(values, value)
		}
	}
	return values
}

// PrecisionMultiplier resolves a free-text precision hint to a multiplier.
// A hint mentioning "mil" means figures are in thousands.
func PrecisionMultiplier(hint string) float64 {
	if milRe.MatchString(hint) {
		return 1000
	}
	return 1
}

// InferYear derives a fiscal year from a date-like cell. Strategies are
// tried in fixed priority order; the returned provenance names the one that
// matched.
func InferYear(cell string, opts Options) (int, string, bool) {
	text := strings.TrimSpace(cell)
	if text == "" {
		return 0, "", false
	}
	if m := fullDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[3])
		return year, YearFromFullDate, true
	}
	if m := twoDigitDateRe.FindStringSubmatch(text); m != nil {
		short, _ := strconv.Atoi(m[3])
		year := 1900 + short
		if short <= opts.CenturyPivot {
			year = 2000 + short
		}
		return year, YearFromTwoDigitDate, true
	}
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		return year, YearFromISODate, true
	}
	if bareYearRe.MatchString(text) {
		year, _ := strconv.Atoi(text)
		return year, YearFromBareYear, true
	}
	return 0, "", false
}

// ParseDecimal parses an optional plain decimal (CSV market-data fields).
// Empty or malformed input yields nil.
func ParseDecimal(text string) *float64 {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &value
}
