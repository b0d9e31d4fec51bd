package interfaces

import (
	"context"

	"agent-trader/internal/types"
)

type Analyzer interface {
	Analyze(ctx context.Context, owner, ticker string) (*types.AnalysisResult, error)
}
