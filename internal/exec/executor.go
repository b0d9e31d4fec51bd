package exec

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/store"
	"agent-trader/internal/tradelog"
	"agent-trader/internal/types"
)

// Executor turns a final recommendation into a sized ledger mutation.
// Sizing is intentionally simple: a BUY spends a fixed fraction of
// available cash, a SELL unwinds a fixed fraction of the held
// quantity. The average price column records the last trade price
// rather than a volume-weighted average.
type Executor struct {
	ledger interfaces.Ledger
	cfg    store.SizingConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ interfaces.Executor = (*Executor)(nil)

func New(ledger interfaces.Ledger, cfg store.SizingConfig) *Executor {
	return &Executor{
		ledger: ledger,
		cfg:    cfg,
		locks:  map[string]*sync.Mutex{},
	}
}

// keyLock serializes in-process executions per (owner, ticker) so the
// optimistic version check in the ledger only trips on true external
// contention.
func (e *Executor) keyLock(owner, ticker string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := owner + "/" + ticker
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

func (e *Executor) Execute(ctx context.Context, owner, ticker, recommendation string, price float64) (*types.Trade, error) {
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive, got %.4f: %w", price, types.ErrValidation)
	}
	if recommendation != types.RecBuy && recommendation != types.RecSell {
		return nil, nil
	}

	lock := e.keyLock(owner, ticker)
	lock.Lock()
	defer lock.Unlock()

	pos, err := e.ledger.GetPosition(ctx, owner, ticker)
	if err != nil {
		return nil, fmt.Errorf("load position for %s: %w", ticker, err)
	}

	cash := e.cfg.OpeningCash
	qty := 0.0
	version := int64(0)
	if pos != nil {
		cash = pos.CashBalance
		qty = pos.Quantity
		version = pos.Version
	}

	var action string
	var tradeQty float64
	switch recommendation {
	case types.RecBuy:
		action = types.RecBuy
		tradeQty = math.Floor(e.cfg.BuyCashFraction * cash / price)
		if tradeQty <= 0 {
			logger.Debug(ctx, "buy skipped, insufficient cash", "ticker", ticker, "cash", cash, "price", price)
			return nil, nil
		}
	case types.RecSell:
		if pos == nil || qty <= 0 {
			logger.Debug(ctx, "sell skipped, no position", "ticker", ticker)
			return nil, nil
		}
		action = types.RecSell
		tradeQty = qty * e.cfg.SellPositionFraction
	}

	now := time.Now().UTC()
	total := tradeQty * price

	newQty := qty
	newCash := cash
	if action == types.RecBuy {
		newQty += tradeQty
		newCash -= total
	} else {
		newQty -= tradeQty
		newCash += total
	}

	trade := types.Trade{
		ID:         uuid.NewString(),
		Owner:      owner,
		Ticker:     ticker,
		Action:     action,
		Quantity:   tradeQty,
		Price:      price,
		TotalValue: total,
		CashAfter:  newCash,
		TradeDate:  now,
	}
	next := types.Position{
		Owner:        owner,
		Ticker:       ticker,
		Quantity:     newQty,
		AveragePrice: price,
		CashBalance:  newCash,
		TotalValue:   newCash + newQty*price,
		Version:      version,
		LastUpdated:  now,
	}

	if err := e.ledger.RecordTrade(ctx, trade, next); err != nil {
		return nil, fmt.Errorf("record %s %s: %w", action, ticker, err)
	}

	logger.Info(ctx, "trade executed",
		"ticker", ticker,
		"action", action,
		"quantity", tradeQty,
		"price", price,
		"cash_after", newCash,
	)
	if err := tradelog.Append(tradelog.Entry{
		Owner:     owner,
		Ticker:    ticker,
		Action:    action,
		Quantity:  tradeQty,
		Price:     price,
		CashAfter: newCash,
		TradeID:   trade.ID,
	}); err != nil {
		logger.Warn(ctx, "trade log append failed", "error", err.Error())
	}
	return &trade, nil
}
