package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "output_root: /tmp/out\n")
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Parser.CenturyPivot != 79 {
		t.Errorf("century pivot = %d, want default 79", c.Parser.CenturyPivot)
	}
	if c.Indicators.TaxRate != 0.34 {
		t.Errorf("tax rate = %v, want default 0.34", c.Indicators.TaxRate)
	}
	if c.Indicators.CAGRYears != 5 {
		t.Errorf("cagr years = %d, want default 5", c.Indicators.CAGRYears)
	}
	if c.Browser.TimeoutMS != 60000 {
		t.Errorf("browser timeout = %d, want default 60000", c.Browser.TimeoutMS)
	}
	if c.Downloads.MaxRetries != 3 {
		t.Errorf("max retries = %d, want default 3", c.Downloads.MaxRetries)
	}
	if c.OutputRoot != "/tmp/out" {
		t.Errorf("output root = %q", c.OutputRoot)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	content := `
parser:
  century_pivot: 50
  discard_unscoped: true
indicators:
  tax_rate: 0.25
browser:
  headless: true
  timeout_ms: 30000
`
	c, err := LoadConfig(writeFile(t, t.TempDir(), "config.yaml", content))
	if err != nil {
		t.Fatal(err)
	}
	if c.Parser.CenturyPivot != 50 || !c.Parser.DiscardUnscoped {
		t.Errorf("parser config = %+v", c.Parser)
	}
	if c.Indicators.TaxRate != 0.25 {
		t.Errorf("tax rate = %v", c.Indicators.TaxRate)
	}
	if c.Browser.TimeoutMS != 30000 {
		t.Errorf("timeout = %d", c.Browser.TimeoutMS)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []string{
		"parser:\n  century_pivot: 150\n",
		"indicators:\n  tax_rate: 1.5\n",
		"browser:\n  timeout_ms: -1\n",
	}
	for _, content := range cases {
		if _, err := LoadConfig(writeFile(t, t.TempDir(), "config.yaml", content)); err == nil {
			t.Errorf("config %q should fail validation", content)
		}
	}
}

func TestLoadUniverse(t *testing.T) {
	content := "ticker,cod_cvm,asset_class,current_price,market_cap\n" +
		"wege3,5410,acao,35.50,150000000000\n" +
		"PETR4,9512,acao,,\n"
	companies, err := LoadUniverse(writeFile(t, t.TempDir(), "universe.csv", content))
	if err != nil {
		t.Fatal(err)
	}
	if len(companies) != 2 {
		t.Fatalf("companies = %d, want 2", len(companies))
	}
	if companies[0].Ticker != "WEGE3" {
		t.Errorf("ticker = %q, want uppercased WEGE3", companies[0].Ticker)
	}
	market := companies[0].MarketData()
	if market.CurrentPrice == nil || *market.CurrentPrice != 35.50 {
		t.Errorf("current price = %v", market.CurrentPrice)
	}
	if second := companies[1].MarketData(); second.CurrentPrice != nil {
		t.Errorf("empty cell should stay absent, got %v", *second.CurrentPrice)
	}
}

func TestLoadUniverseMissingCodCVMKept(t *testing.T) {
	content := "ticker,cod_cvm,asset_class\nWEGE3,,acao\n"
	companies, err := LoadUniverse(writeFile(t, t.TempDir(), "universe.csv", content))
	if err != nil {
		t.Fatal(err)
	}
	if companies[0].CodCVM != "" {
		t.Errorf("cod_cvm = %q", companies[0].CodCVM)
	}
}

func TestLoadUniverseEmptyFails(t *testing.T) {
	if _, err := LoadUniverse(writeFile(t, t.TempDir(), "universe.csv", "ticker,cod_cvm,asset_class\n")); err == nil {
		t.Error("empty universe should fail")
	}
}
