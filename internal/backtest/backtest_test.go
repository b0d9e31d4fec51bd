package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/store"
	"agent-trader/internal/types"
)

type stubMarket struct {
	bars []types.PriceBar
	err  error
}

func (s *stubMarket) Prices(_ context.Context, _ string, _ interfaces.PriceQuery) ([]types.PriceBar, error) {
	return s.bars, s.err
}

type resultLedger struct {
	results []types.BacktestResult
}

func (r *resultLedger) GetPosition(_ context.Context, _, _ string) (*types.Position, error) {
	return nil, nil
}

func (r *resultLedger) ListPositions(_ context.Context, _ string) ([]types.Position, error) {
	return nil, nil
}

func (r *resultLedger) RecordTrade(_ context.Context, _ types.Trade, _ types.Position) error {
	return nil
}

func (r *resultLedger) RecentTrades(_ context.Context, _ string, _ int) ([]types.Trade, error) {
	return nil, nil
}

func (r *resultLedger) AppendAnalysis(_ context.Context, _ types.AgentAnalysis) error { return nil }

func (r *resultLedger) RecentAnalyses(_ context.Context, _, _ string, _ int) ([]types.AgentAnalysis, error) {
	return nil, nil
}

func (r *resultLedger) AppendBacktestResult(_ context.Context, res types.BacktestResult) error {
	r.results = append(r.results, res)
	return nil
}

func btConfig() store.BacktestConfig {
	return store.BacktestConfig{
		InitialCapital: 100000,
		InvestFraction: 0.9,
		ShortWindow:    5,
		LongWindow:     10,
	}
}

func barsFromCloses(closes []float64) []types.PriceBar {
	bars := make([]types.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = types.PriceBar{
			Date:  fmt.Sprintf("2024-01-%02d", i+1),
			Open:  c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return bars
}

func TestRunTooFewBarsProducesNoTrades(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	ledger := &resultLedger{}
	eng := New(&stubMarket{bars: barsFromCloses(closes)}, ledger, btConfig())

	result, err := eng.Run(context.Background(), "owner-1", "AAPL", "2024-01-01", "2024-01-10")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalTrades != 0 {
		t.Errorf("expected 0 trades below the long window, got %d", result.TotalTrades)
	}
	if result.FinalValue != 100000 {
		t.Errorf("expected capital untouched, got %.2f", result.FinalValue)
	}
	if result.TotalReturnPct != 0 {
		t.Errorf("expected 0%% return, got %.2f", result.TotalReturnPct)
	}
	if len(ledger.results) != 1 {
		t.Errorf("expected the zero-trade result persisted, got %d rows", len(ledger.results))
	}
}

func TestRunCrossoverRoundTrip(t *testing.T) {
	// Flat at 10, a spike to 20 drags the short average above the long
	// one, then a collapse to 5 drags it back below.
	closes := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 20, 20, 20, 5, 5, 5, 5, 5}
	ledger := &resultLedger{}
	eng := New(&stubMarket{bars: barsFromCloses(closes)}, ledger, btConfig())

	result, err := eng.Run(context.Background(), "owner-1", "AAPL", "2024-01-01", "2024-01-18")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TotalTrades != 2 {
		t.Fatalf("expected one buy and one sell, got %d trades: %+v", result.TotalTrades, result.TradeHistory)
	}

	buy := result.TradeHistory[0]
	if buy.Action != types.RecBuy || buy.Price != 20 {
		t.Errorf("expected buy at 20, got %+v", buy)
	}
	// 90% of 100000 at price 20 buys 4500 whole shares.
	if buy.Shares != 4500 {
		t.Errorf("expected 4500 shares, got %d", buy.Shares)
	}

	sell := result.TradeHistory[1]
	if sell.Action != types.RecSell || sell.Price != 5 {
		t.Errorf("expected sell at 5, got %+v", sell)
	}
	if sell.Shares != 4500 {
		t.Errorf("expected full unwind of 4500 shares, got %d", sell.Shares)
	}

	// 10000 residual cash + 4500 * 5 from the sell.
	if result.FinalValue != 32500 {
		t.Errorf("expected final value 32500, got %.2f", result.FinalValue)
	}
	if result.TotalReturnPct != -67.5 {
		t.Errorf("expected -67.5%% return, got %.2f", result.TotalReturnPct)
	}
	if result.WinRate != 0 {
		t.Errorf("losing round trip must score win rate 0, got %.2f", result.WinRate)
	}
}

func TestRunWinningRoundTrip(t *testing.T) {
	// Entry at the first crossover bar (20), then a high plateau; the
	// pullback that flips the averages still sells at 30, above entry.
	closes := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 20, 100, 100, 100, 100, 30, 30, 30, 30, 30}
	ledger := &resultLedger{}
	eng := New(&stubMarket{bars: barsFromCloses(closes)}, ledger, btConfig())

	result, err := eng.Run(context.Background(), "owner-1", "AAPL", "2024-01-01", "2024-01-20")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalTrades != 2 {
		t.Fatalf("expected one round trip, got %+v", result.TradeHistory)
	}
	// One win over two recorded actions (the buy and the sell) is 50%.
	if result.WinRate != 50 {
		t.Errorf("expected win rate 50, got %.2f (history %+v)", result.WinRate, result.TradeHistory)
	}
	// Buy 4500 at 20 leaves 10000 cash; the sell at 30 returns 135000.
	if result.FinalValue != 145000 {
		t.Errorf("expected final value 145000, got %.2f", result.FinalValue)
	}
}

func TestRunZeroShareBuyRecorded(t *testing.T) {
	// Capital covers one share but the invest fraction floors the
	// quantity to zero; the entry still fires and is recorded, and
	// because no shares are held it fires again on the next bar.
	closes := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 100, 100, 100}
	cfg := btConfig()
	cfg.InitialCapital = 105
	ledger := &resultLedger{}
	eng := New(&stubMarket{bars: barsFromCloses(closes)}, ledger, cfg)

	result, err := eng.Run(context.Background(), "owner-1", "AAPL", "2024-01-01", "2024-01-13")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalTrades != 2 {
		t.Fatalf("expected two recorded buys, got %+v", result.TradeHistory)
	}
	for _, trade := range result.TradeHistory {
		if trade.Action != types.RecBuy || trade.Shares != 0 {
			t.Errorf("expected a zero-share buy, got %+v", trade)
		}
	}
	if result.FinalValue != 105 {
		t.Errorf("capital must be untouched by zero-share buys, got %.2f", result.FinalValue)
	}
	if result.WinRate != 0 {
		t.Errorf("expected win rate 0 with no sells, got %.2f", result.WinRate)
	}
}

func TestRunEntrySkippedWhenCapitalBelowPrice(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 100, 100, 100}
	cfg := btConfig()
	cfg.InitialCapital = 50
	ledger := &resultLedger{}
	eng := New(&stubMarket{bars: barsFromCloses(closes)}, ledger, cfg)

	result, err := eng.Run(context.Background(), "owner-1", "AAPL", "2024-01-01", "2024-01-13")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalTrades != 0 {
		t.Errorf("expected no trades when a single share is unaffordable, got %+v", result.TradeHistory)
	}
	if result.FinalValue != 50 {
		t.Errorf("expected capital untouched, got %.2f", result.FinalValue)
	}
}

func TestRunEmptySeries(t *testing.T) {
	ledger := &resultLedger{}
	eng := New(&stubMarket{bars: nil}, ledger, btConfig())

	_, err := eng.Run(context.Background(), "owner-1", "ZZZZ", "2024-01-01", "2024-01-31")
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Fatalf("expected data unavailable, got %v", err)
	}
	if len(ledger.results) != 0 {
		t.Error("nothing may be persisted for an empty series")
	}
}

func TestRunProviderErrorPropagates(t *testing.T) {
	eng := New(&stubMarket{err: types.ErrDataUnavailable}, &resultLedger{}, btConfig())

	_, err := eng.Run(context.Background(), "owner-1", "AAPL", "2024-01-01", "2024-01-31")
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected provider error to surface, got %v", err)
	}
}
