package interfaces

import (
	"context"

	"agent-trader/internal/types"
)

// PriceQuery narrows a price series request. Dates are YYYY-MM-DD;
// empty fields are left to the provider's defaults. Limit caps the
// number of most-recent bars returned.
type PriceQuery struct {
	StartDate string
	EndDate   string
	Limit     int
}

type MarketData interface {
	// Prices returns the bars for ticker ascending by date. An empty or
	// unknown ticker yields types.ErrDataUnavailable.
	Prices(ctx context.Context, ticker string, q PriceQuery) ([]types.PriceBar, error)
}
