package interfaces

import (
	"context"

	"agent-trader/internal/types"
)

type Executor interface {
	// Execute converts a final recommendation into a ledger mutation.
	// Returns nil, nil when the recommendation is HOLD or sizing
	// produces nothing to trade.
	Execute(ctx context.Context, owner, ticker, recommendation string, price float64) (*types.Trade, error)
}
