package interfaces

import (
	"context"

	"agent-trader/internal/types"
)

// Ledger is the durable store behind positions, trades, analyses and
// backtest results. All rows are keyed by an opaque owner identity.
type Ledger interface {
	// GetPosition returns nil (no error) when the owner holds no
	// position for ticker.
	GetPosition(ctx context.Context, owner, ticker string) (*types.Position, error)
	ListPositions(ctx context.Context, owner string) ([]types.Position, error)

	// RecordTrade writes the trade and upserts the position in one
	// transaction. pos.Version must be the version that was read
	// (zero for a new position); a mismatch on write yields
	// types.ErrLedgerConflict and nothing is persisted.
	RecordTrade(ctx context.Context, trade types.Trade, pos types.Position) error
	RecentTrades(ctx context.Context, owner string, limit int) ([]types.Trade, error)

	AppendAnalysis(ctx context.Context, a types.AgentAnalysis) error
	RecentAnalyses(ctx context.Context, owner, ticker string, limit int) ([]types.AgentAnalysis, error)

	AppendBacktestResult(ctx context.Context, r types.BacktestResult) error
}
