package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"cvm-dfp-bot/internal/parse"
	"cvm-dfp-bot/internal/types"
)

// Company is one row of the input listing CSV. Market-data columns are
// optional; empty cells stay absent.
type Company struct {
	Ticker              string `csv:"ticker"`
	CodCVM              string `csv:"cod_cvm"`
	AssetClass          string `csv:"asset_class"`
	CurrentPrice        string `csv:"current_price"`
	MarketCap           string `csv:"market_cap"`
	EnterpriseValue     string `csv:"enterprise_value"`
	Dividendos12M       string `csv:"dividendos_12m"`
	LiquidezMediaDiaria string `csv:"liquidez_media_diaria"`
}

// MarketData parses the row's optional market-data cells.
func (c *Company) MarketData() types.MarketData {
	return types.MarketData{
		CurrentPrice:    parse.ParseDecimal(c.CurrentPrice),
		MarketCap:       parse.ParseDecimal(c.MarketCap),
		EnterpriseValue: parse.ParseDecimal(c.EnterpriseValue),
		Dividendos12M:   parse.ParseDecimal(c.Dividendos12M),
	}
}

// Liquidity parses the optional average daily liquidity cell.
func (c *Company) Liquidity() *float64 {
	return parse.ParseDecimal(c.LiquidezMediaDiaria)
}

// LoadUniverse reads the company listing. Ticker is uppercased; rows without
// a ticker are rejected, rows without a CVM code are kept (the pipeline
// records them as failed companies).
func LoadUniverse(path string) ([]Company, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var companies []Company
	if err := gocsv.UnmarshalFile(file, &companies); err != nil {
		return nil, fmt.Errorf("parsing universe %s: %w", path, err)
	}
	for i := range companies {
		companies[i].Ticker = strings.ToUpper(strings.TrimSpace(companies[i].Ticker))
		companies[i].CodCVM = strings.TrimSpace(companies[i].CodCVM)
		companies[i].AssetClass = strings.TrimSpace(companies[i].AssetClass)
		if companies[i].Ticker == "" {
			return nil, fmt.Errorf("universe %s: row %d has no ticker", path, i+1)
		}
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("universe %s is empty", path)
	}
	return companies, nil
}
