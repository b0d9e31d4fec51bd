package marketdata

import (
	"context"

	"golang.org/x/time/rate"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/types"
)

// throttled wraps a provider with a client-side rate limit so bursts
// of pipeline runs cannot exhaust an API quota.
type throttled struct {
	next    interfaces.MarketData
	limiter *rate.Limiter
}

func Throttle(next interfaces.MarketData, requestsPerSec float64) interfaces.MarketData {
	if requestsPerSec <= 0 {
		return next
	}
	return &throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

func (t *throttled) Prices(ctx context.Context, ticker string, q interfaces.PriceQuery) ([]types.PriceBar, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Prices(ctx, ticker, q)
}
