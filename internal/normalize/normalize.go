// Package normalize rescales percentage-semantic indicators into fraction
// convention and nulls EBITDA-based indicators for financial entities.
package normalize

import (
	"context"
	"math"
	"strings"

	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/types"
)

var percentHints = []string{"m_", "margin", "roe", "roa", "payout", "ratio"}

var percentExactKeys = map[string]bool{
	"dividend_yield": true,
	"margem_liquida": true,
	"margem_ebitda":  true,
	"margem_bruta":   true,
}

var percentSuffixes = []string{"_margin", "_ratio"}

// IsPercentIndicator reports whether an indicator name carries percentage
// semantics: exact list first, then the margin/return/ratio naming hints.
func IsPercentIndicator(key string) bool {
	if percentExactKeys[key] {
		return true
	}
	for _, hint := range percentHints {
		if strings.Contains(key, hint) {
			return true
		}
	}
	for _, suffix := range percentSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// rescale maps a percentage-semantic value into fraction convention. A
// magnitude within [0,1] is already a fraction; (1,100] is a mis-scaled
// percentage; beyond that the value is an anomaly and yields absent.
func rescale(value float64) (float64, bool) {
	magnitude := math.Abs(value)
	if magnitude <= 1 {
		return value, true
	}
	if magnitude <= 100 {
		return value / 100, true
	}
	return 0, false
}

// Outcome summarizes one normalization pass.
type Outcome struct {
	Indicators    types.IndicatorSet
	Conversions   int
	Anomalies     int
	ConvertedKeys []string
	AnomalyKeys   []string
}

// Indicators normalizes one year's indicator set. The input set is not
// modified. Financial institutions and insurers get every EBITDA-derived
// indicator forced absent.
func Indicators(ctx context.Context, set types.IndicatorSet, isFinancial bool, ticker string, year int) *Outcome {
	out := &Outcome{Indicators: set.Clone()}

	for key, value := range set {
		if !IsPercentIndicator(key) {
			continue
		}
		updated, ok := rescale(value)
		if !ok {
			logger.Warn(ctx, "Indicator anomaly",
				"ticker", ticker, "year", year, "indicator", key, "value", value)
			out.Anomalies++
			out.AnomalyKeys = append(out.AnomalyKeys, key)
			delete(out.Indicators, key)
			continue
		}
		if updated != value {
			logger.Info(ctx, "Indicator rescaled",
				"ticker", ticker, "year", year, "indicator", key, "from", value, "to", updated)
			out.Conversions++
			out.ConvertedKeys = append(out.ConvertedKeys, key)
			out.Indicators[key] = updated
		}
	}

	if isFinancial {
		for key := range out.Indicators {
			if strings.Contains(key, "ebitda") {
				delete(out.Indicators, key)
			}
		}
	}
	return out
}
