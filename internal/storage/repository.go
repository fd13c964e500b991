package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"session-vwap/internal/analytics"
	"session-vwap/internal/backtest"
	"session-vwap/internal/market"
)

const (
	postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id             TEXT PRIMARY KEY,
    created_at     TIMESTAMPTZ NOT NULL,
    source         TEXT NOT NULL,
    bars           INTEGER NOT NULL,
    sessions       INTEGER NOT NULL,
    skipped        INTEGER NOT NULL,
    no_trade       INTEGER NOT NULL,
    mean_profit_1  NUMERIC,
    mean_profit_2  NUMERIC,
    profitable_1   INTEGER NOT NULL,
    profitable_2   INTEGER NOT NULL,
    longest_streak INTEGER NOT NULL,
    max_down_days  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS session_results (
    run_id       TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
    session      DATE NOT NULL,
    target_label TEXT NOT NULL,
    side         TEXT NOT NULL,
    entry_price  NUMERIC NOT NULL,
    price_1      NUMERIC NOT NULL,
    profit_1     NUMERIC NOT NULL,
    profitable_1 BOOLEAN NOT NULL,
    price_2      NUMERIC NOT NULL,
    profit_2     NUMERIC NOT NULL,
    profitable_2 BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, session)
);`

	insertRunSQL = `INSERT INTO analysis_runs (
        id, created_at, source, bars, sessions, skipped, no_trade,
        mean_profit_1, mean_profit_2, profitable_1, profitable_2,
        longest_streak, max_down_days
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`

	insertResultSQL = `INSERT INTO session_results (
        run_id, session, target_label, side, entry_price,
        price_1, profit_1, profitable_1, price_2, profit_2, profitable_2
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	listRecentRunsSQL = `SELECT
        id, created_at, source, bars, sessions, skipped, no_trade,
        mean_profit_1::text, mean_profit_2::text, profitable_1, profitable_2,
        longest_streak, max_down_days
    FROM analysis_runs
    ORDER BY id DESC
    LIMIT $1;`

	listRecentResultsSQL = `SELECT
        run_id, session, target_label, side, entry_price::text,
        price_1::text, profit_1::text, profitable_1,
        price_2::text, profit_2::text, profitable_2
    FROM session_results
    ORDER BY session DESC, run_id DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store persists runs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// SaveRun writes the run header and all of its results in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, results []backtest.SessionResult) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRunSQL,
			run.ID,
			run.CreatedAt,
			run.Source,
			run.Bars,
			run.Sessions,
			run.Skipped,
			run.NoTrade,
			nullableDecimal(run.MeanProfit1),
			nullableDecimal(run.MeanProfit2),
			run.Profitable1,
			run.Profitable2,
			run.LongestStreak,
			run.MaxDownDays,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for _, r := range results {
			batch.Queue(insertResultSQL,
				run.ID,
				r.Session.Midnight(time.UTC),
				r.Label.String(),
				r.Side.String(),
				r.EntryPrice.String(),
				r.Price1.String(),
				r.Profit1.String(),
				r.Profitable1,
				r.Price2.String(),
				r.Profit2.String(),
				r.Profitable2,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
		return nil
	})
}

// ListRecentRuns returns the newest runs first.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentRunsSQL, limit)
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
func (s *Store) ListRecentResults(ctx context.Context, limit int) ([]ResultRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentResultsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var (
			rec     ResultRecord
			session time.Time
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
		rec.Session = market.SessionOf(session)
		if err := raw.decode(&rec.SessionResult); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// rowScanner is satisfied by pgx.Rows and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run          Run
		mean1, mean2 sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.CreatedAt,
		&run.Source,
		&run.Bars,
		&run.Sessions,
		&run.Skipped,
		&run.NoTrade,
		&mean1,
		&mean2,
		&run.Profitable1,
		&run.Profitable2,
		&run.LongestStreak,
		&run.MaxDownDays,
	); err != nil {
		return Run{}, err
	}

	var err error
	if run.MeanProfit1, err = parseNullableDecimal(mean1); err != nil {
		return Run{}, fmt.Errorf("parse mean profit 1: %w", err)
	}
	if run.MeanProfit2, err = parseNullableDecimal(mean2); err != nil {
		return Run{}, fmt.Errorf("parse mean profit 2: %w", err)
	}
	return run, nil
}

// rawResult holds the text columns of a result row before conversion.
type rawResult struct {
	label, side            string
	entry, price1, profit1 string
	price2, profit2        string
}

func (r rawResult) decode(out *backtest.SessionResult) error {
	var err error
	if out.Label, err = analytics.ParseLabel(r.label); err != nil {
		return err
	}
	out.Side = backtest.SideLong
	if r.side == backtest.SideShort.String() {
		out.Side = backtest.SideShort
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"entry_price", r.entry, &out.EntryPrice},
		{"price_1", r.price1, &out.Price1},
		{"profit_1", r.profit1, &out.Profit1},
		{"price_2", r.price2, &out.Price2},
		{"profit_2", r.profit2, &out.Profit2},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullableDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var (
	_ ResultStore    = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
