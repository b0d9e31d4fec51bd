package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/types"
)

// Store is the sqlite-backed decision ledger: positions, trades, the
// agent analysis audit trail and backtest results, all keyed by owner.
type Store struct {
	db *sql.DB
}

var _ interfaces.Ledger = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS portfolio (
    owner_id      TEXT NOT NULL,
    ticker        TEXT NOT NULL,
    quantity      REAL NOT NULL DEFAULT 0,
    average_price REAL NOT NULL DEFAULT 0,
    cash_balance  REAL NOT NULL,
    total_value   REAL NOT NULL,
    version       INTEGER NOT NULL DEFAULT 1,
    last_updated  DATETIME NOT NULL,
    PRIMARY KEY (owner_id, ticker)
);

CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    ticker      TEXT NOT NULL,
    action      TEXT NOT NULL,
    quantity    REAL NOT NULL,
    price       REAL NOT NULL,
    total_value REAL NOT NULL,
    cash_after  REAL NOT NULL,
    trade_date  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_owner_date ON trades(owner_id, trade_date);

CREATE TABLE IF NOT EXISTS agent_analysis (
    id             TEXT PRIMARY KEY,
    owner_id       TEXT NOT NULL,
    ticker         TEXT NOT NULL,
    agent_type     TEXT NOT NULL,
    reasoning      TEXT NOT NULL DEFAULT '',
    recommendation TEXT NOT NULL,
    confidence     REAL NOT NULL,
    analyzed_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_owner_ticker ON agent_analysis(owner_id, ticker, analyzed_at);

CREATE TABLE IF NOT EXISTS backtest_results (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL,
    ticker          TEXT NOT NULL,
    start_date      TEXT NOT NULL,
    end_date        TEXT NOT NULL,
    initial_capital REAL NOT NULL,
    final_value     REAL NOT NULL,
    total_return    REAL NOT NULL,
    total_trades    INTEGER NOT NULL,
    win_rate        REAL NOT NULL,
    trade_history   TEXT NOT NULL DEFAULT '[]',
    created_at      DATETIME NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) GetPosition(ctx context.Context, owner, ticker string) (*types.Position, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT owner_id, ticker, quantity, average_price, cash_balance, total_value, version, last_updated
FROM portfolio WHERE owner_id = ? AND ticker = ?
`, owner, ticker)

	var p types.Position
	err := row.Scan(&p.Owner, &p.Ticker, &p.Quantity, &p.AveragePrice, &p.CashBalance, &p.TotalValue, &p.Version, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPositions(ctx context.Context, owner string) ([]types.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT owner_id, ticker, quantity, average_price, cash_balance, total_value, version, last_updated
FROM portfolio WHERE owner_id = ? ORDER BY ticker
`, owner)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	out := []types.Position{}
	for rows.Next() {
		var p types.Position
		if err := rows.Scan(&p.Owner, &p.Ticker, &p.Quantity, &p.AveragePrice, &p.CashBalance, &p.TotalValue, &p.Version, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordTrade writes the trade row and the position upsert as one
// transaction. pos.Version must be the version read before computing
// the mutation: zero inserts a fresh row, anything else updates with
// an optimistic version check and surfaces types.ErrLedgerConflict
// when another writer got there first.
func (s *Store) RecordTrade(ctx context.Context, trade types.Trade, pos types.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trade tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO trades (id, owner_id, ticker, action, quantity, price, total_value, cash_after, trade_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, trade.ID, trade.Owner, trade.Ticker, trade.Action, trade.Quantity, trade.Price, trade.TotalValue, trade.CashAfter, trade.TradeDate)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	if pos.Version == 0 {
		_, err = tx.ExecContext(ctx, `
INSERT INTO portfolio (owner_id, ticker, quantity, average_price, cash_balance, total_value, version, last_updated)
VALUES (?, ?, ?, ?, ?, ?, 1, ?)
`, pos.Owner, pos.Ticker, pos.Quantity, pos.AveragePrice, pos.CashBalance, pos.TotalValue, pos.LastUpdated)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY") {
				return fmt.Errorf("position created concurrently for %s/%s: %w", pos.Owner, pos.Ticker, types.ErrLedgerConflict)
			}
			return fmt.Errorf("insert position: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
UPDATE portfolio
SET quantity = ?, average_price = ?, cash_balance = ?, total_value = ?, version = version + 1, last_updated = ?
WHERE owner_id = ? AND ticker = ? AND version = ?
`, pos.Quantity, pos.AveragePrice, pos.CashBalance, pos.TotalValue, pos.LastUpdated, pos.Owner, pos.Ticker, pos.Version)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("position %s/%s changed since read (version %d): %w", pos.Owner, pos.Ticker, pos.Version, types.ErrLedgerConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trade tx: %w", err)
	}
	return nil
}

func (s *Store) RecentTrades(ctx context.Context, owner string, limit int) ([]types.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, owner_id, ticker, action, quantity, price, total_value, cash_after, trade_date
FROM trades WHERE owner_id = ? ORDER BY trade_date DESC LIMIT ?
`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}
	defer rows.Close()

	out := []types.Trade{}
	for rows.Next() {
		var t types.Trade
		if err := rows.Scan(&t.ID, &t.Owner, &t.Ticker, &t.Action, &t.Quantity, &t.Price, &t.TotalValue, &t.CashAfter, &t.TradeDate); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) AppendAnalysis(ctx context.Context, a types.AgentAnalysis) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO agent_analysis (id, owner_id, ticker, agent_type, reasoning, recommendation, confidence, analyzed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, a.ID, a.Owner, a.Ticker, string(a.AgentType), a.Reasoning, a.Recommendation, a.Confidence, a.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (s *Store) RecentAnalyses(ctx context.Context, owner, ticker string, limit int) ([]types.AgentAnalysis, error) {
	if limit <= 0 {
		limit = 25
	}
	query := `
SELECT id, owner_id, ticker, agent_type, reasoning, recommendation, confidence, analyzed_at
FROM agent_analysis WHERE owner_id = ?`
	args := []any{owner}
	if ticker != "" {
		query += " AND ticker = ?"
		args = append(args, ticker)
	}
	query += " ORDER BY analyzed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent analyses: %w", err)
	}
	defer rows.Close()

	out := []types.AgentAnalysis{}
	for rows.Next() {
		var a types.AgentAnalysis
		var agentType string
		if err := rows.Scan(&a.ID, &a.Owner, &a.Ticker, &agentType, &a.Reasoning, &a.Recommendation, &a.Confidence, &a.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.AgentType = types.AgentType(agentType)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AppendBacktestResult(ctx context.Context, r types.BacktestResult) error {
	history, err := json.Marshal(r.TradeHistory)
	if err != nil {
		return fmt.Errorf("marshal trade history: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO backtest_results (id, owner_id, ticker, start_date, end_date, initial_capital, final_value, total_return, total_trades, win_rate, trade_history, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, r.ID, r.Owner, r.Ticker, r.StartDate, r.EndDate, r.InitialCapital, r.FinalValue, r.TotalReturnPct, r.TotalTrades, r.WinRate, string(history), created)
	if err != nil {
		return fmt.Errorf("insert backtest result: %w", err)
	}
	return nil
}
