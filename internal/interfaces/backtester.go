package interfaces

import (
	"context"

	"agent-trader/internal/types"
)

type Backtester interface {
	Run(ctx context.Context, owner, ticker, startDate, endDate string) (*types.BacktestResult, error)
}
