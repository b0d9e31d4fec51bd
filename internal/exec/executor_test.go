package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"agent-trader/internal/store"
	"agent-trader/internal/types"
)

type memLedger struct {
	position  *types.Position
	trades    []types.Trade
	recordErr error
}

func (m *memLedger) GetPosition(_ context.Context, _, _ string) (*types.Position, error) {
	return m.position, nil
}

func (m *memLedger) ListPositions(_ context.Context, _ string) ([]types.Position, error) {
	if m.position == nil {
		return nil, nil
	}
	return []types.Position{*m.position}, nil
}

func (m *memLedger) RecordTrade(_ context.Context, trade types.Trade, pos types.Position) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.trades = append(m.trades, trade)
	pos.Version++
	m.position = &pos
	return nil
}

func (m *memLedger) RecentTrades(_ context.Context, _ string, _ int) ([]types.Trade, error) {
	return m.trades, nil
}

func (m *memLedger) AppendAnalysis(_ context.Context, _ types.AgentAnalysis) error { return nil }

func (m *memLedger) RecentAnalyses(_ context.Context, _, _ string, _ int) ([]types.AgentAnalysis, error) {
	return nil, nil
}

func (m *memLedger) AppendBacktestResult(_ context.Context, _ types.BacktestResult) error {
	return nil
}

func sizing() store.SizingConfig {
	return store.SizingConfig{
		OpeningCash:          100000,
		BuyCashFraction:      0.10,
		SellPositionFraction: 0.50,
	}
}

func TestExecuteFirstBuy(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	ledger := &memLedger{}
	ex := New(ledger, sizing())

	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecBuy, 50)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade == nil {
		t.Fatal("expected a trade")
	}
	// 10% of 100000 = 10000 cash; 10000 / 50 = 200 whole shares.
	if trade.Quantity != 200 {
		t.Errorf("expected 200 shares, got %.2f", trade.Quantity)
	}
	if trade.CashAfter != 90000 {
		t.Errorf("expected cash 90000, got %.2f", trade.CashAfter)
	}

	pos := ledger.position
	if pos == nil {
		t.Fatal("expected a position to be written")
	}
	if pos.Quantity != 200 || pos.CashBalance != 90000 {
		t.Errorf("position quantity=%.2f cash=%.2f, want 200/90000", pos.Quantity, pos.CashBalance)
	}
	if pos.AveragePrice != 50 {
		t.Errorf("expected average price 50, got %.2f", pos.AveragePrice)
	}
	// Cash out plus holdings at trade price equals the opening stake.
	if pos.TotalValue != 100000 {
		t.Errorf("expected total value 100000, got %.2f", pos.TotalValue)
	}
}

func TestExecuteBuyFlooring(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	ledger := &memLedger{position: &types.Position{
		Owner: "owner-1", Ticker: "AAPL",
		CashBalance: 1000, TotalValue: 1000,
		Version: 1, LastUpdated: time.Now().UTC(),
	}}
	ex := New(ledger, sizing())

	// 10% of 1000 = 100 cash; 100 / 33 = 3.03 -> 3 whole shares.
	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecBuy, 33)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade.Quantity != 3 {
		t.Errorf("expected 3 shares, got %.2f", trade.Quantity)
	}
	if trade.CashAfter != 1000-3*33 {
		t.Errorf("expected cash %.2f, got %.2f", 1000-3*33.0, trade.CashAfter)
	}
}

func TestExecuteBuyInsufficientCash(t *testing.T) {
	ledger := &memLedger{position: &types.Position{
		Owner: "owner-1", Ticker: "AAPL",
		CashBalance: 5, Version: 1,
	}}
	ex := New(ledger, sizing())

	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecBuy, 100)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade != nil {
		t.Errorf("expected no-op when a whole share is unaffordable, got %+v", trade)
	}
	if len(ledger.trades) != 0 {
		t.Error("expected nothing recorded")
	}
}

func TestExecuteSellHalf(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	ledger := &memLedger{position: &types.Position{
		Owner: "owner-1", Ticker: "AAPL",
		Quantity: 100, AveragePrice: 40,
		CashBalance: 1000, Version: 2,
	}}
	ex := New(ledger, sizing())

	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecSell, 10)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade.Quantity != 50 {
		t.Errorf("expected 50 shares sold, got %.2f", trade.Quantity)
	}
	if trade.CashAfter != 1500 {
		t.Errorf("expected cash 1500, got %.2f", trade.CashAfter)
	}

	pos := ledger.position
	if pos.Quantity != 50 {
		t.Errorf("expected 50 shares remaining, got %.2f", pos.Quantity)
	}
	if pos.AveragePrice != 10 {
		t.Errorf("average price records the last trade price, got %.2f", pos.AveragePrice)
	}
}

func TestExecuteSellFractional(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	ledger := &memLedger{position: &types.Position{
		Owner: "owner-1", Ticker: "AAPL",
		Quantity: 5, CashBalance: 0, Version: 1,
	}}
	ex := New(ledger, sizing())

	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecSell, 10)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade.Quantity != 2.5 {
		t.Errorf("expected 2.5 shares sold, got %.2f", trade.Quantity)
	}
	if ledger.position.Quantity != 2.5 {
		t.Errorf("expected 2.5 shares remaining, got %.2f", ledger.position.Quantity)
	}
}

func TestExecuteSellWithoutPosition(t *testing.T) {
	ledger := &memLedger{}
	ex := New(ledger, sizing())

	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecSell, 10)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade != nil {
		t.Errorf("expected no-op sell, got %+v", trade)
	}
}

func TestExecuteHoldIsNoop(t *testing.T) {
	ledger := &memLedger{}
	ex := New(ledger, sizing())

	trade, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecHold, 10)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if trade != nil || len(ledger.trades) != 0 {
		t.Error("HOLD must not touch the ledger")
	}
}

func TestExecuteInvalidPrice(t *testing.T) {
	ex := New(&memLedger{}, sizing())

	_, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecBuy, 0)
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error for non-positive price, got %v", err)
	}
}

func TestExecuteConflictPropagates(t *testing.T) {
	ledger := &memLedger{recordErr: types.ErrLedgerConflict}
	ex := New(ledger, sizing())

	_, err := ex.Execute(context.Background(), "owner-1", "AAPL", types.RecBuy, 10)
	if !errors.Is(err, types.ErrLedgerConflict) {
		t.Errorf("expected ledger conflict to surface, got %v", err)
	}
}
