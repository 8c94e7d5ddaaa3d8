package normalize

import "strings"

// Entity classes for which EBITDA is not a meaningful measure.
const (
	EntityBank    = "bank"
	EntityInsurer = "insurer"
)

// financialTickers maps B3 tickers of banks and insurers to their entity
// class. Membership forces EBITDA-derived indicators absent.
var financialTickers = map[string]string{
	"BBAS3":  EntityBank,
	"BBDC3":  EntityBank,
	"BBDC4":  EntityBank,
	"ITUB3":  EntityBank,
	"ITUB4":  EntityBank,
	"SANB3":  EntityBank,
	"SANB4":  EntityBank,
	"BPAC3":  EntityBank,
	"BPAC11": EntityBank,
	"BRSR6":  EntityBank,
	"BAZA3":  EntityBank,
	"BEES3":  EntityBank,
	"BEES4":  EntityBank,
	"BMEB3":  EntityBank,
	"BNBR3":  EntityBank,
	"PINE4":  EntityBank,
	"ABCB4":  EntityBank,
	"BBSE3":  EntityInsurer,
	"IRBR3":  EntityInsurer,
	"PSSA3":  EntityInsurer,
}

// FinancialProfile classifies a ticker, returning whether it is a financial
// entity and, when it is, the entity class.
func FinancialProfile(ticker string) (bool, string) {
	class, ok := financialTickers[normalizeTicker(ticker)]
	return ok, class
}

// IsFinancialTicker reports whether the ticker belongs to a bank or insurer.
func IsFinancialTicker(ticker string) bool {
	ok, _ := FinancialProfile(ticker)
	return ok
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
