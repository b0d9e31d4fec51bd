package agentsobs

import (
	"context"
	"time"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/trace"
	"agent-trader/internal/types"
)

// observableAnalyzer wraps an Analyzer with observability middleware.
type observableAnalyzer struct {
	analyzer interfaces.Analyzer
}

var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

func Wrap(analyzer interfaces.Analyzer) interfaces.Analyzer {
	return &observableAnalyzer{analyzer: analyzer}
}

func (oa *observableAnalyzer) Analyze(ctx context.Context, owner, ticker string) (*types.AnalysisResult, error) {
	ctx, span := trace.StartSpan(ctx, "analyzer.Analyze")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Starting stock analysis", "ticker", ticker)

	result, err := oa.analyzer.Analyze(ctx, owner, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Stock analysis failed", err,
			"ticker", ticker,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Stock analysis completed",
		"ticker", ticker,
		"final_recommendation", result.FinalRecommendation,
		"stages", len(result.Analyses),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
