package types

import "time"

// PriceBar is one trading day of OHLCV data, immutable once fetched.
// Series are always ordered ascending by date.
type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// AgentType identifies one stage of the analysis pipeline.
type AgentType string

const (
	AgentSentiment    AgentType = "sentiment"
	AgentFundamentals AgentType = "fundamentals"
	AgentQuant        AgentType = "quant"
	AgentRisk         AgentType = "risk"
	AgentPortfolio    AgentType = "portfolio"
)

// Recommendation tokens produced by the stage classifiers.
const (
	RecBuy      = "BUY"
	RecSell     = "SELL"
	RecHold     = "HOLD"
	RecBullish  = "BULLISH"
	RecBearish  = "BEARISH"
	RecNeutral  = "NEUTRAL"
	RecApproved = "APPROVED"
)

// AgentAnalysis is the audit record of one stage run. Written once,
// never mutated.
type AgentAnalysis struct {
	ID             string    `json:"id"`
	Owner          string    `json:"owner_id"`
	Ticker         string    `json:"ticker"`
	AgentType      AgentType `json:"agent_type"`
	Reasoning      string    `json:"reasoning"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// AnalysisResult is what Analyze returns to the caller: the five stage
// records in pipeline order plus the portfolio stage's final token.
// CurrentPrice is the close of the newest bar used during analysis.
type AnalysisResult struct {
	Ticker              string          `json:"ticker"`
	Analyses            []AgentAnalysis `json:"analyses"`
	FinalRecommendation string          `json:"final_recommendation"`
	CurrentPrice        float64         `json:"current_price"`
}

// Position is the ledger row for one (owner, ticker) pair. TotalValue
// is cached at update time using the price that triggered the update;
// it is not continuously revalued. Version supports optimistic
// concurrency on updates.
type Position struct {
	Owner        string    `json:"owner_id"`
	Ticker       string    `json:"ticker"`
	Quantity     float64   `json:"quantity"`
	AveragePrice float64   `json:"average_price"`
	CashBalance  float64   `json:"cash_balance"`
	TotalValue   float64   `json:"total_value"`
	Version      int64     `json:"version"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Trade is an append-only log entry for one executed decision.
type Trade struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner_id"`
	Ticker     string    `json:"ticker"`
	Action     string    `json:"action"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	TotalValue float64   `json:"total_value"`
	CashAfter  float64   `json:"cash_after"`
	TradeDate  time.Time `json:"trade_date"`
}

// BacktestTrade is one entry of a backtest's trade history.
type BacktestTrade struct {
	Date   string  `json:"date"`
	Action string  `json:"action"`
	Price  float64 `json:"price"`
	Shares int64   `json:"shares"`
}

// BacktestResult is the outcome of one simulation run. It is isolated
// from the live ledger.
type BacktestResult struct {
	ID             string          `json:"id"`
	Owner          string          `json:"owner_id"`
	Ticker         string          `json:"ticker"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	InitialCapital float64         `json:"initial_capital"`
	FinalValue     float64         `json:"final_value"`
	TotalReturnPct float64         `json:"total_return_pct"`
	TotalTrades    int             `json:"total_trades"`
	WinRate        float64         `json:"win_rate"`
	TradeHistory   []BacktestTrade `json:"trade_history"`
	CreatedAt      time.Time       `json:"created_at"`
}
