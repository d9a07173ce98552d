// Package forecast implements the persisted signal-forecast lifecycle:
// creation of PENDING records, FIFO due queries, the single idempotent
// PENDING → EVALUATED transition, and window aggregation over outcomes.
package forecast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"signal-analyzer/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrAlreadyEvaluated is returned by MarkEvaluated when the conditional
// update matched no row: a concurrent evaluator won the transition. Callers
// treat it as a no-op success.
var ErrAlreadyEvaluated = errors.New("forecast already evaluated")

// Store persists forecasts in SQLite. It is the sole writer of forecast
// records; the scoring side only supplies creation data and the evaluator
// only supplies settlement data.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the forecast database with WAL mode and a
// single-writer connection pool, and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[forecast] opened store at %s", dbPath)
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS forecasts (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol          TEXT    NOT NULL,
			signal          TEXT    NOT NULL,
			confidence      INTEGER NOT NULL,
			entry_price     REAL    NOT NULL,
			risk_profile    TEXT    NOT NULL,
			created_at      INTEGER NOT NULL,
			eval_at         INTEGER NOT NULL,
			status          TEXT    NOT NULL DEFAULT 'PENDING',
			exit_price      REAL,
			return_pct      REAL,
			outcome         TEXT,
			stop_loss_hit   INTEGER,
			take_profit_hit INTEGER,
			pnl             REAL
		);

		CREATE INDEX IF NOT EXISTS idx_forecasts_due
			ON forecasts(status, eval_at);
		CREATE INDEX IF NOT EXISTS idx_forecasts_symbol
			ON forecasts(symbol, created_at);
	`)
	return err
}

// Create inserts a new PENDING forecast and returns its id.
// EvalAt must be strictly after CreatedAt.
func (s *Store) Create(ctx context.Context, f model.Forecast) (int64, error) {
	if !f.EvalAt.After(f.CreatedAt) {
		return 0, fmt.Errorf("forecast eval_at %v not after created_at %v", f.EvalAt, f.CreatedAt)
	}
	if f.Signal != model.SignalBuy && f.Signal != model.SignalSell {
		return 0, fmt.Errorf("forecast signal must be BUY or SELL, got %q", f.Signal)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO forecasts (symbol, signal, confidence, entry_price, risk_profile, created_at, eval_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Symbol, string(f.Signal), f.Confidence, f.EntryPrice, f.RiskProfile,
		f.CreatedAt.Unix(), f.EvalAt.Unix(), string(model.StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite insert forecast: %w", err)
	}
	return res.LastInsertId()
}

// Due returns all PENDING forecasts whose eval time has arrived, ordered
// oldest-created first so the longest-waiting signals are settled first.
func (s *Store) Due(ctx context.Context, now time.Time) ([]model.Forecast, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE status = ? AND eval_at <= ?
		ORDER BY created_at ASC, id ASC`,
		string(model.StatusPending), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite query due forecasts: %w", err)
	}
	defer rows.Close()
	return scanForecasts(rows)
}

// MarkEvaluated applies the PENDING → EVALUATED transition for f.ID in a
// single conditional update. The status guard makes the transition
// idempotent: a second evaluator racing on the same record matches zero rows
// and receives ErrAlreadyEvaluated.
func (s *Store) MarkEvaluated(ctx context.Context, f model.Forecast) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE forecasts
		SET status = ?, exit_price = ?, return_pct = ?, outcome = ?,
		    stop_loss_hit = ?, take_profit_hit = ?, pnl = ?
		WHERE id = ? AND status = ?`,
		string(model.StatusEvaluated), f.ExitPrice, f.ReturnPct, string(f.Outcome),
		boolToInt(f.StopLossHit), boolToInt(f.TakeProfitHit), f.PnL,
		f.ID, string(model.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("sqlite mark evaluated: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite rows affected: %w", err)
	}
	if n == 0 {
		return ErrAlreadyEvaluated
	}
	return nil
}

// EvaluatedSince returns all EVALUATED forecasts created at or after cutoff,
// oldest first. Used by the aggregator for window reports.
func (s *Store) EvaluatedSince(ctx context.Context, cutoff time.Time) ([]model.Forecast, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE status = ? AND created_at >= ?
		ORDER BY created_at ASC, id ASC`,
		string(model.StatusEvaluated), cutoff.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite query evaluated forecasts: %w", err)
	}
	defer rows.Close()
	return scanForecasts(rows)
}

// PendingCount returns the number of forecasts still awaiting evaluation.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM forecasts WHERE status = ?`,
		string(model.StatusPending),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite count pending forecasts: %w", err)
	}
	return n, nil
}

// Recent returns the last limit forecasts in any state, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.Forecast, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query recent forecasts: %w", err)
	}
	defer rows.Close()
	return scanForecasts(rows)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `
	SELECT id, symbol, signal, confidence, entry_price, risk_profile,
	       created_at, eval_at, status,
	       exit_price, return_pct, outcome, stop_loss_hit, take_profit_hit, pnl
	FROM forecasts`

func scanForecasts(rows *sql.Rows) ([]model.Forecast, error) {
	var out []model.Forecast
	for rows.Next() {
		var f model.Forecast
		var createdAt, evalAt int64
		var signal, status string
		var exitPrice, returnPct, pnl sql.NullFloat64
		var outcome sql.NullString
		var slHit, tpHit sql.NullInt64

		if err := rows.Scan(&f.ID, &f.Symbol, &signal, &f.Confidence, &f.EntryPrice,
			&f.RiskProfile, &createdAt, &evalAt, &status,
			&exitPrice, &returnPct, &outcome, &slHit, &tpHit, &pnl); err != nil {
			return nil, fmt.Errorf("sqlite scan forecast: %w", err)
		}

		f.Signal = model.Signal(signal)
		f.Status = model.ForecastStatus(status)
		f.CreatedAt = time.Unix(createdAt, 0).UTC()
		f.EvalAt = time.Unix(evalAt, 0).UTC()
		f.ExitPrice = exitPrice.Float64
		f.ReturnPct = returnPct.Float64
		f.Outcome = model.Outcome(outcome.String)
		f.StopLossHit = slHit.Int64 != 0
		f.TakeProfitHit = tpHit.Int64 != 0
		f.PnL = pnl.Float64

		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
