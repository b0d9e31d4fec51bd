package marketdata

import (
	"os"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/store"
)

// New builds the configured price provider, rate-limited per config.
func New(cfg *store.Config) interfaces.MarketData {
	var provider interfaces.MarketData
	switch cfg.MarketData.Provider {
	case "FINANCIAL_DATASETS":
		provider = NewFinancialDatasetsClient(os.Getenv(cfg.MarketData.APIKeyEnv))
	case "YAHOO":
		provider = NewYahooClient()
	default:
		provider = NewStaticProvider()
	}
	return Throttle(provider, cfg.MarketData.RequestsPerSec)
}
