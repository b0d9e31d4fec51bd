package marketobs

import (
	"context"
	"time"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/trace"
	"agent-trader/internal/types"
)

// observableMarketData wraps a MarketData provider with tracing and
// timing logs.
type observableMarketData struct {
	provider interfaces.MarketData
}

var _ interfaces.MarketData = (*observableMarketData)(nil)

func Wrap(provider interfaces.MarketData) interfaces.MarketData {
	return &observableMarketData{provider: provider}
}

func (om *observableMarketData) Prices(ctx context.Context, ticker string, q interfaces.PriceQuery) ([]types.PriceBar, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.Prices")
	defer span.End()

	start := time.Now()
	bars, err := om.provider.Prices(ctx, ticker, q)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Price fetch failed", err,
			"ticker", ticker,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Price fetch completed",
		"ticker", ticker,
		"bars", len(bars),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return bars, nil
}
