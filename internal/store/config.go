package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	MarketData struct {
		// Provider selects the price source: FINANCIAL_DATASETS, YAHOO
		// or STATIC (deterministic fixture bars for dry runs).
		Provider       string  `yaml:"provider"`
		APIKeyEnv      string  `yaml:"api_key_env"`
		AnalysisBars   int     `yaml:"analysis_bars"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
	} `yaml:"market_data"`

	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`

	Agents struct {
		// StageTimeoutSeconds bounds every judgment provider call; an
		// expired stage fails the whole analysis.
		StageTimeoutSeconds int `yaml:"stage_timeout_seconds"`
		Confidence          struct {
			Sentiment    float64 `yaml:"sentiment"`
			Fundamentals float64 `yaml:"fundamentals"`
			Quant        float64 `yaml:"quant"`
			Risk         float64 `yaml:"risk"`
			Portfolio    float64 `yaml:"portfolio"`
		} `yaml:"confidence"`
	} `yaml:"agents"`

	Sizing   SizingConfig   `yaml:"sizing"`
	Backtest BacktestConfig `yaml:"backtest"`

	News struct {
		Enabled      bool `yaml:"enabled"`
		MaxHeadlines int  `yaml:"max_headlines"`
		CacheMinutes int  `yaml:"cache_minutes"`
	} `yaml:"news"`

	Auth struct {
		// Tokens maps bearer token -> owner id. Real deployments keep
		// this behind an auth service; here it is the whole contract.
		Tokens map[string]string `yaml:"tokens"`
	} `yaml:"auth"`
}

// SizingConfig governs live trade sizing. Fractions are of available
// cash (buys) or held quantity (sells).
type SizingConfig struct {
	OpeningCash          float64 `yaml:"opening_cash"`
	BuyCashFraction      float64 `yaml:"buy_cash_fraction"`
	SellPositionFraction float64 `yaml:"sell_position_fraction"`
}

// BacktestConfig parameterizes the moving-average crossover
// simulation.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	InvestFraction float64 `yaml:"invest_fraction"`
	ShortWindow    int     `yaml:"short_window"`
	LongWindow     int     `yaml:"long_window"`
}

func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case "FINANCIAL_DATASETS", "YAHOO", "STATIC":
	default:
		return fmt.Errorf("invalid market_data.provider '%s': must be 'FINANCIAL_DATASETS', 'YAHOO' or 'STATIC'", c.MarketData.Provider)
	}
	if c.Sizing.BuyCashFraction <= 0 || c.Sizing.BuyCashFraction > 1 {
		return fmt.Errorf("sizing.buy_cash_fraction must be in (0,1], got %.2f", c.Sizing.BuyCashFraction)
	}
	if c.Sizing.SellPositionFraction <= 0 || c.Sizing.SellPositionFraction > 1 {
		return fmt.Errorf("sizing.sell_position_fraction must be in (0,1], got %.2f", c.Sizing.SellPositionFraction)
	}
	if c.Sizing.OpeningCash <= 0 {
		return fmt.Errorf("sizing.opening_cash must be positive, got %.2f", c.Sizing.OpeningCash)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %.2f", c.Backtest.InitialCapital)
	}
	if c.Backtest.InvestFraction <= 0 || c.Backtest.InvestFraction > 1 {
		return fmt.Errorf("backtest.invest_fraction must be in (0,1], got %.2f", c.Backtest.InvestFraction)
	}
	if c.Backtest.ShortWindow <= 0 || c.Backtest.LongWindow <= c.Backtest.ShortWindow {
		return fmt.Errorf("backtest windows must satisfy 0 < short < long, got short=%d long=%d", c.Backtest.ShortWindow, c.Backtest.LongWindow)
	}
	if len(c.Auth.Tokens) == 0 {
		return errors.New("auth.tokens cannot be empty")
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
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/trader.db"
	}
	if c.MarketData.Provider == "" {
		c.MarketData.Provider = "STATIC"
	}
	if c.MarketData.APIKeyEnv == "" {
		c.MarketData.APIKeyEnv = "FINANCIAL_DATASETS_API_KEY"
	}
	if c.MarketData.AnalysisBars == 0 {
		c.MarketData.AnalysisBars = 30
	}
	if c.MarketData.RequestsPerSec == 0 {
		c.MarketData.RequestsPerSec = 5
	}
	if c.Agents.StageTimeoutSeconds == 0 {
		c.Agents.StageTimeoutSeconds = 30
	}
	conf := &c.Agents.Confidence
	if conf.Sentiment == 0 {
		conf.Sentiment = 0.7
	}
	if conf.Fundamentals == 0 {
		conf.Fundamentals = 0.75
	}
	if conf.Quant == 0 {
		conf.Quant = 0.8
	}
	if conf.Risk == 0 {
		conf.Risk = 0.85
	}
	if conf.Portfolio == 0 {
		conf.Portfolio = 0.9
	}
	if c.Sizing.OpeningCash == 0 {
		c.Sizing.OpeningCash = 100000
	}
	if c.Sizing.BuyCashFraction == 0 {
		c.Sizing.BuyCashFraction = 0.10
	}
	if c.Sizing.SellPositionFraction == 0 {
		c.Sizing.SellPositionFraction = 0.50
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = 100000
	}
	if c.Backtest.InvestFraction == 0 {
		c.Backtest.InvestFraction = 0.9
	}
	if c.Backtest.ShortWindow == 0 {
		c.Backtest.ShortWindow = 5
	}
	if c.Backtest.LongWindow == 0 {
		c.Backtest.LongWindow = 10
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 10
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 60
	}
}

// StageConfidence returns the configured confidence for one agent
// stage. Unknown stages get zero.
func (c *Config) StageConfidence(stage string) float64 {
	switch stage {
	case "sentiment":
		return c.Agents.Confidence.Sentiment
	case "fundamentals":
		return c.Agents.Confidence.Fundamentals
	case "quant":
		return c.Agents.Confidence.Quant
	case "risk":
		return c.Agents.Confidence.Risk
	case "portfolio":
		return c.Agents.Confidence.Portfolio
	default:
		return 0
	}
}
