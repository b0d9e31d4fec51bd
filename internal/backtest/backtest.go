package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/store"
	"agent-trader/internal/ta"
	"agent-trader/internal/types"
)

// Engine replays a moving-average crossover strategy over historical
// bars. A run is fully isolated from the live ledger's positions: the
// only durable output is one backtest_results row.
type Engine struct {
	market interfaces.MarketData
	ledger interfaces.Ledger
	cfg    store.BacktestConfig
}

var _ interfaces.Backtester = (*Engine)(nil)

func New(market interfaces.MarketData, ledger interfaces.Ledger, cfg store.BacktestConfig) *Engine {
	return &Engine{market: market, ledger: ledger, cfg: cfg}
}

// Run simulates the crossover strategy on ticker between startDate and
// endDate (inclusive, YYYY-MM-DD). Series shorter than longWindow+1
// bars produce a zero-trade result; an empty series is
// types.ErrDataUnavailable and nothing is persisted.
func (e *Engine) Run(ctx context.Context, owner, ticker, startDate, endDate string) (*types.BacktestResult, error) {
	bars, err := e.market.Prices(ctx, ticker, interfaces.PriceQuery{StartDate: startDate, EndDate: endDate})
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s between %s and %s: %w", ticker, startDate, endDate, types.ErrDataUnavailable)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	capital := e.cfg.InitialCapital
	shares := int64(0)
	entryPrice := 0.0
	wins := 0
	history := []types.BacktestTrade{}

	// Signals are evaluated per bar once the full long window exists;
	// the last bar only marks to market and never trades.
	for i := e.cfg.ShortWindow; i <= len(bars)-2; i++ {
		if i < e.cfg.LongWindow-1 {
			continue
		}
		shortMA := ta.SMAAt(closes, i, e.cfg.ShortWindow)
		longMA := ta.SMAAt(closes, i, e.cfg.LongWindow)
		if math.IsNaN(shortMA) || math.IsNaN(longMA) {
			continue
		}
		price := closes[i]

		switch {
		case shortMA > longMA && shares == 0 && capital > price:
			// A buy is recorded whenever capital covers one share, even
			// when the invest fraction floors the quantity to zero.
			qty := int64(math.Floor(e.cfg.InvestFraction * capital / price))
			shares = qty
			entryPrice = price
			capital -= float64(qty) * price
			history = append(history, types.BacktestTrade{
				Date:   bars[i].Date,
				Action: types.RecBuy,
				Price:  price,
				Shares: qty,
			})
		case shortMA < longMA && shares > 0:
			capital += float64(shares) * price
			if price > entryPrice {
				wins++
			}
			history = append(history, types.BacktestTrade{
				Date:   bars[i].Date,
				Action: types.RecSell,
				Price:  price,
				Shares: shares,
			})
			shares = 0
		}
	}

	finalValue := capital + float64(shares)*closes[len(closes)-1]
	// winRate is a percentage over every recorded action, so a winning
	// round trip of one buy plus one sell scores 50.
	winRate := 0.0
	if len(history) > 0 {
		winRate = float64(wins) / float64(len(history)) * 100
	}

	result := &types.BacktestResult{
		ID:             uuid.NewString(),
		Owner:          owner,
		Ticker:         ticker,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: e.cfg.InitialCapital,
		FinalValue:     finalValue,
		TotalReturnPct: (finalValue - e.cfg.InitialCapital) / e.cfg.InitialCapital * 100,
		TotalTrades:    len(history),
		WinRate:        winRate,
		TradeHistory:   history,
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.ledger.AppendBacktestResult(ctx, *result); err != nil {
		return nil, fmt.Errorf("persist backtest result: %w", err)
	}

	logger.Info(ctx, "backtest complete",
		"ticker", ticker,
		"bars", len(bars),
		"trades", result.TotalTrades,
		"final_value", finalValue,
		"return_pct", result.TotalReturnPct,
	)
	return result, nil
}
