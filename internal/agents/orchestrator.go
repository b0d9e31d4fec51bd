package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/news"
	"agent-trader/internal/store"
	"agent-trader/internal/trace"
	"agent-trader/internal/tradelog"
	"agent-trader/internal/types"
)

// Orchestrator runs the five-stage analysis pipeline over the judgment
// provider and market data gateway. It owns no durable state; the
// AgentAnalysis rows it writes are an audit trail, not a dependency.
type Orchestrator struct {
	judge  interfaces.Judge
	market interfaces.MarketData
	ledger interfaces.Ledger
	news   *news.Service
	cfg    *store.Config
}

var _ interfaces.Analyzer = (*Orchestrator)(nil)

// New builds an orchestrator. newsSvc may be nil; the sentiment stage
// then prompts on the ticker alone.
func New(cfg *store.Config, judge interfaces.Judge, market interfaces.MarketData, ledger interfaces.Ledger, newsSvc *news.Service) *Orchestrator {
	return &Orchestrator{
		judge:  judge,
		market: market,
		ledger: ledger,
		news:   newsSvc,
		cfg:    cfg,
	}
}

type stageOutcome struct {
	analysis types.AgentAnalysis
	err      error
}

// Analyze runs every stage in dependency order and returns the five
// analyses plus the portfolio stage's token. Any stage failure aborts
// the whole call; there is no partial-result fallback.
func (o *Orchestrator) Analyze(ctx context.Context, owner, ticker string) (*types.AnalysisResult, error) {
	ctx, span := trace.StartSpan(ctx, "agents.Analyze")
	defer span.End()

	bars, err := o.market.Prices(ctx, ticker, interfaces.PriceQuery{Limit: o.cfg.MarketData.AnalysisBars})
	if err != nil {
		return nil, err
	}

	state := &pipelineState{
		ticker: ticker,
		bars:   bars,
		closes: make([]float64, len(bars)),
		done:   map[types.AgentType]types.AgentAnalysis{},
	}
	for i, b := range bars {
		state.closes[i] = b.Close
	}
	state.headlines = o.fetchHeadlines(ctx, ticker)

	for _, tier := range tiers(pipeline) {
		outcomes := make([]stageOutcome, len(tier))
		var wg sync.WaitGroup
		for i, st := range tier {
			wg.Add(1)
			go func(i int, st Stage) {
				defer wg.Done()
				a, err := o.runStage(ctx, owner, st.Type, state)
				outcomes[i] = stageOutcome{analysis: a, err: err}
			}(i, st)
		}
		// Join barrier: every stage of this tier settles, success or
		// failure, before anything downstream may start.
		wg.Wait()

		for i, out := range outcomes {
			if out.err != nil {
				logger.ErrorWithErr(ctx, "Analysis stage failed", out.err, "ticker", ticker, "stage", string(tier[i].Type))
				return nil, fmt.Errorf("%s stage: %w", tier[i].Type, out.err)
			}
		}
		for _, out := range outcomes {
			state.done[out.analysis.AgentType] = out.analysis
		}
	}

	analyses := make([]types.AgentAnalysis, 0, len(pipeline))
	for _, st := range pipeline {
		analyses = append(analyses, state.done[st.Type])
	}

	// Best-effort audit trail: a failed insert is logged, never rolled
	// back, and never fails the analysis.
	for _, a := range analyses {
		if err := o.ledger.AppendAnalysis(ctx, a); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist agent analysis", err, "ticker", ticker, "stage", string(a.AgentType))
		}
	}

	final := state.done[types.AgentPortfolio].Recommendation
	currentPrice := 0.0
	if len(bars) > 0 {
		currentPrice = bars[len(bars)-1].Close
	}

	_ = tradelog.AppendDecision(tradelog.DecisionEntry{
		Owner:          owner,
		Ticker:         ticker,
		Recommendation: final,
		Confidence:     state.done[types.AgentPortfolio].Confidence,
		Price:          currentPrice,
		StageTokens:    stageTokens(analyses),
	})

	logger.Info(ctx, "Analysis pipeline completed",
		"ticker", ticker,
		"final_recommendation", final,
		"current_price", currentPrice,
	)

	return &types.AnalysisResult{
		Ticker:              ticker,
		Analyses:            analyses,
		FinalRecommendation: final,
		CurrentPrice:        currentPrice,
	}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, owner string, stage types.AgentType, state *pipelineState) (types.AgentAnalysis, error) {
	timeout := time.Duration(o.cfg.Agents.StageTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := trace.StartSpan(ctx, "agents.stage."+string(stage))
	defer span.End()

	system, user := stagePrompts(stage, state)
	text, err := o.judge.Complete(ctx, system, user)
	if err != nil {
		// Timeouts and transport failures all count as provider
		// failures for the caller.
		if !errors.Is(err, types.ErrProvider) {
			err = fmt.Errorf("%v: %w", err, types.ErrProvider)
		}
		return types.AgentAnalysis{}, err
	}

	return types.AgentAnalysis{
		ID:             uuid.NewString(),
		Owner:          owner,
		Ticker:         state.ticker,
		AgentType:      stage,
		Reasoning:      text,
		Recommendation: Classify(stage, text),
		Confidence:     o.cfg.StageConfidence(string(stage)),
		AnalyzedAt:     time.Now().UTC(),
	}, nil
}

func (o *Orchestrator) fetchHeadlines(ctx context.Context, ticker string) []string {
	if o.news == nil || !o.cfg.News.Enabled {
		return nil
	}
	headlines, err := o.news.Headlines(ctx, ticker, o.cfg.News.MaxHeadlines)
	if err != nil {
		// Headlines only enrich the sentiment prompt; scraping failure
		// degrades to the ticker-only prompt.
		logger.Warn(ctx, "Headline fetch failed, continuing without news", "ticker", ticker, "error", err)
		return nil
	}
	return headlines
}

func stageTokens(analyses []types.AgentAnalysis) map[string]string {
	out := make(map[string]string, len(analyses))
	for _, a := range analyses {
		out[string(a.AgentType)] = a.Recommendation
	}
	return out
}
