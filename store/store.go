// Package store journals simulation runs to a local sqlite database so
// past runs can be compared and re-exported without replaying
package store

import (
	"context"
	"database/sql"
	"time"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"portfoliosim/engine"
	"portfoliosim/trade"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	starting_balance REAL NOT NULL,
	final_equity REAL NOT NULL,
	total_trades INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	strategy TEXT NOT NULL,
	ticket TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	open_price REAL NOT NULL,
	close_price REAL NOT NULL,
	stop_price REAL NOT NULL,
	sized_lots REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	entry_equity REAL NOT NULL,
	exit_equity REAL NOT NULL,
	forced_close INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	cash REAL NOT NULL,
	floating_pnl REAL NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
`

// RunSummary is the stored header of one simulation run
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	StartingBalance float64
	FinalEquity     float64
	TotalTrades     int
}

// Journal persists simulation runs in a single sqlite file
type Journal struct {
	db *sql.DB
}

// New opens (or creates) the journal database at path
func New(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening journal")
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "applying journal schema")
	}
	return &Journal{db: db}, nil
}

// SaveRun journals one full simulation result atomically
func (j *Journal) SaveRun(ctx context.Context, result *engine.Result) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting journal transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, started_at, finished_at, starting_balance, final_equity, total_trades)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.RunID, result.StartedAt, result.FinishedAt,
		result.StartingBalance.InexactFloat64(), result.FinalEquity.InexactFloat64(),
		result.TotalTrades,
	)
	if err != nil {
		return errors.Wrap(err, "journaling run")
	}

	for i := range result.Trades {
		tr := &result.Trades[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trades
			(run_id, strategy, ticket, symbol, direction, open_time, close_time,
			 open_price, close_price, stop_price, sized_lots, realized_pnl,
			 entry_equity, exit_equity, forced_close)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, tr.StrategyID, tr.Ticket, tr.Symbol, string(tr.Direction),
			tr.OpenTime, tr.CloseTime,
			tr.OpenPrice.InexactFloat64(), tr.ClosePrice.InexactFloat64(),
			tr.StopPrice.InexactFloat64(), tr.SizedLots.InexactFloat64(),
			tr.RealizedPNL.InexactFloat64(), tr.EntryEquity.InexactFloat64(),
			tr.ExitEquity.InexactFloat64(), tr.ForcedClose,
		)
		if err != nil {
			return errors.Wrap(err, "journaling trade")
		}
	}

	for i := range result.EquityCurve {
		s := &result.EquityCurve[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO equity
			(run_id, time, equity, cash, floating_pnl, open_positions)
			VALUES (?, ?, ?, ?, ?, ?)`,
			result.RunID, s.Time,
			s.Equity.InexactFloat64(), s.Cash.InexactFloat64(),
			s.FloatingPNL.InexactFloat64(), s.OpenPositions,
		)
		if err != nil {
			return errors.Wrap(err, "journaling equity sample")
		}
	}

	return errors.Wrap(tx.Commit(), "committing journal transaction")
}

// Run loads one stored run header
func (j *Journal) Run(ctx context.Context, runID string) (RunSummary, error) {
	var r RunSummary
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, starting_balance, final_equity, total_trades
		FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.StartingBalance, &r.FinalEquity, &r.TotalTrades)
	return r, errors.Wrapf(err, "loading run %v", runID)
}

// Runs lists every stored run, most recent first
func (j *Journal) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, starting_balance, final_equity, total_trades
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err = rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.StartingBalance, &r.FinalEquity, &r.TotalTrades); err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "listing runs")
}

// TradesByRun loads the stored closed-trade log of a run
func (j *Journal) TradesByRun(ctx context.Context, runID string) ([]trade.Closed, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT strategy, ticket, symbol, direction, open_time, close_time,
		       open_price, close_price, stop_price, sized_lots, realized_pnl,
		       entry_equity, exit_equity, forced_close
		FROM trades WHERE run_id = ? ORDER BY close_time`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading trades for run %v", runID)
	}
	defer rows.Close()

	var out []trade.Closed
	for rows.Next() {
		var tr trade.Closed
		var direction string
		var openPrice, closePrice, stopPrice, lots, pnl, entryEq, exitEq float64
		err = rows.Scan(&tr.StrategyID, &tr.Ticket, &tr.Symbol, &direction,
			&tr.OpenTime, &tr.CloseTime, &openPrice, &closePrice, &stopPrice,
			&lots, &pnl, &entryEq, &exitEq, &tr.ForcedClose)
		if err != nil {
			return nil, errors.Wrap(err, "scanning trade")
		}
		tr.Direction = trade.Direction(direction)
		tr.OpenPrice = decimal.NewFromFloat(openPrice)
		tr.ClosePrice = decimal.NewFromFloat(closePrice)
		tr.StopPrice = decimal.NewFromFloat(stopPrice)
		tr.SizedLots = decimal.NewFromFloat(lots)
		tr.RealizedPNL = decimal.NewFromFloat(pnl)
		tr.EntryEquity = decimal.NewFromFloat(entryEq)
		tr.ExitEquity = decimal.NewFromFloat(exitEq)
		out = append(out, tr)
	}
	return out, errors.Wrap(rows.Err(), "loading trades")
}

// EquityByRun loads the stored equity curve of a run
func (j *Journal) EquityByRun(ctx context.Context, runID string) ([]engine.EquitySample, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, equity, cash, floating_pnl, open_positions
		FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading equity for run %v", runID)
	}
	defer rows.Close()

	var out []engine.EquitySample
	for rows.Next() {
		var s engine.EquitySample
		var equity, cash, floating float64
		if err = rows.Scan(&s.Time, &equity, &cash, &floating, &s.OpenPositions); err != nil {
			return nil, errors.Wrap(err, "scanning equity sample")
		}
		s.Equity = decimal.NewFromFloat(equity)
		s.Cash = decimal.NewFromFloat(cash)
		s.FloatingPNL = decimal.NewFromFloat(floating)
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "loading equity curve")
}

// Close releases the underlying database handle
func (j *Journal) Close() error {
	return j.db.Close()
}
