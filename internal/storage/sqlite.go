package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"session-vwap/internal/backtest"
	"session-vwap/internal/market"
)

// Decimals are kept as TEXT so SQLite's numeric affinity cannot round them.
const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id             TEXT PRIMARY KEY,
    created_at     TIMESTAMP NOT NULL,
    source         TEXT NOT NULL,
    bars           INTEGER NOT NULL,
    sessions       INTEGER NOT NULL,
    skipped        INTEGER NOT NULL,
    no_trade       INTEGER NOT NULL,
    mean_profit_1  TEXT,
    mean_profit_2  TEXT,
    profitable_1   INTEGER NOT NULL,
    profitable_2   INTEGER NOT NULL,
    longest_streak INTEGER NOT NULL,
    max_down_days  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS session_results (
    run_id       TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
    session      TEXT NOT NULL,
    target_label TEXT NOT NULL,
    side         TEXT NOT NULL,
    entry_price  TEXT NOT NULL,
    price_1      TEXT NOT NULL,
    profit_1     TEXT NOT NULL,
    profitable_1 BOOLEAN NOT NULL,
    price_2      TEXT NOT NULL,
    profit_2     TEXT NOT NULL,
    profitable_2 BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, session)
);`

// SQLiteStore persists runs in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

// SaveRun writes the run header and all of its results in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, results []backtest.SessionResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs
		(id, created_at, source, bars, sessions, skipped, no_trade,
		 mean_profit_1, mean_profit_2, profitable_1, profitable_2,
		 longest_streak, max_down_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Source, run.Bars, run.Sessions, run.Skipped, run.NoTrade,
		nullableDecimal(run.MeanProfit1), nullableDecimal(run.MeanProfit2),
		run.Profitable1, run.Profitable2, run.LongestStreak, run.MaxDownDays,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_results
		(run_id, session, target_label, side, entry_price,
		 price_1, profit_1, profitable_1, price_2, profit_2, profitable_2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err = stmt.ExecContext(ctx,
			run.ID, r.Session.String(), r.Label.String(), r.Side.String(), r.EntryPrice.String(),
			r.Price1.String(), r.Profit1.String(), r.Profitable1,
			r.Price2.String(), r.Profit2.String(), r.Profitable2,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", r.Session, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRecentRuns returns the newest runs first.
func (s *SQLiteStore) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source, bars, sessions, skipped, no_trade,
		       mean_profit_1, mean_profit_2, profitable_1, profitable_2,
		       longest_streak, max_down_days
		FROM analysis_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRecentResults returns stored results, latest sessions first.
func (s *SQLiteStore) ListRecentResults(ctx context.Context, limit int) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, session, target_label, side, entry_price,
		       price_1, profit_1, profitable_1, price_2, profit_2, profitable_2
		FROM session_results
		ORDER BY session DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var (
			rec     ResultRecord
			session string
			raw     rawResult
		)
		if err := rows.Scan(
			&rec.RunID,
			&session,
			&raw.label,
			&raw.side,
			&raw.entry,
			&raw.price1,
			&raw.profit1,
			&rec.Profitable1,
			&raw.price2,
			&raw.profit2,
			&rec.Profitable2,
		); err != nil {
			return nil, err
		}
		if rec.Session, err = market.ParseSession(session); err != nil {
			return nil, err
		}
		if err := raw.decode(&rec.SessionResult); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ ResultStore = (*SQLiteStore)(nil)
