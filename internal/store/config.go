package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputRoot string `yaml:"output_root"`
	Parser     struct {
		CenturyPivot    int  `yaml:"century_pivot"`
		DiscardUnscoped bool `yaml:"discard_unscoped"`
	} `yaml:"parser"`
	Indicators struct {
		TaxRate   float64 `yaml:"tax_rate"`
		CAGRYears int     `yaml:"cagr_years"`
	} `yaml:"indicators"`
	Browser struct {
		Headless  bool   `yaml:"headless"`
		TimeoutMS int    `yaml:"timeout_ms"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"browser"`
	Downloads struct {
		MaxRetries int `yaml:"max_retries"`
	} `yaml:"downloads"`
	Ingest struct {
		URL       string `yaml:"url"`
		Disabled  bool   `yaml:"disabled"`
		TimeoutMS int    `yaml:"timeout_ms"`
		Retries   int    `yaml:"retries"`
	} `yaml:"ingest"`
}

func (c *Config) Validate() error {
	if c.Parser.CenturyPivot < 0 || c.Parser.CenturyPivot > 99 {
		return fmt.Errorf("parser.century_pivot must be between 0-99, got %d", c.Parser.CenturyPivot)
	}
	if c.Indicators.TaxRate < 0 || c.Indicators.TaxRate >= 1 {
		return fmt.Errorf("indicators.tax_rate must be in [0,1), got %.2f", c.Indicators.TaxRate)
	}
	if c.Indicators.CAGRYears < 2 {
		return fmt.Errorf("indicators.cagr_years must be at least 2, got %d", c.Indicators.CAGRYears)
	}
	if c.Browser.TimeoutMS <= 0 {
		return fmt.Errorf("browser.timeout_ms must be positive, got %d", c.Browser.TimeoutMS)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// DefaultConfig is the configuration used when no file is supplied.
func DefaultConfig() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.OutputRoot == "" {
		c.OutputRoot = "output"
	}
	if c.Parser.CenturyPivot == 0 {
		c.Parser.CenturyPivot = 79
	}
	if c.Indicators.TaxRate == 0 {
		c.Indicators.TaxRate = 0.34
	}
	if c.Indicators.CAGRYears == 0 {
		c.Indicators.CAGRYears = 5
	}
	if c.Browser.TimeoutMS == 0 {
		c.Browser.TimeoutMS = 60000
	}
	if c.Downloads.MaxRetries == 0 {
		c.Downloads.MaxRetries = 3
	}
	if c.Ingest.TimeoutMS == 0 {
		c.Ingest.TimeoutMS = 30000
	}
	if c.Ingest.Retries == 0 {
		c.Ingest.Retries = 3
	}
}
