package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"session-vwap/internal/analytics"
	"session-vwap/internal/market"
)

// ErrNoTrade marks a session whose label does not open a position.
var ErrNoTrade = errors.New("backtest: label does not trade")

// Side is the direction of the simulated position.
type Side int8

const (
	SideShort Side = -1
	SideLong  Side = 1
)

func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// Config holds the fixed trade rule parameters.
type Config struct {
	EntryTime   market.TimeOfDay
	Checkpoint1 market.TimeOfDay
	Checkpoint2 market.TimeOfDay
	// Buffer is added beyond the band: above the upper band for shorts,
	// below the lower band for longs.
	Buffer  decimal.Decimal
	Workers int
}

// DefaultConfig enters at 12:30 with a 10 point buffer and evaluates at
// 15:00 and 16:00.
func DefaultConfig() Config {
	return Config{
		EntryTime:   market.Clock(12, 30),
		Checkpoint1: market.Clock(15, 0),
		Checkpoint2: market.Clock(16, 0),
		Buffer:      decimal.NewFromInt(10),
		Workers:     1,
	}
}

// SessionResult is the outcome of the one trade simulated for a session.
type SessionResult struct {
	Session     market.Session
	Label       analytics.Label
	Side        Side
	EntryPrice  decimal.Decimal
	Price1      decimal.Decimal
	Profit1     decimal.Decimal
	Profitable1 bool
	Price2      decimal.Decimal
	Profit2     decimal.Decimal
	Profitable2 bool
}

// Outcome collects what a run produced and what it skipped.
type Outcome struct {
	Results []SessionResult
	Skipped []*analytics.InsufficientDataError
	NoTrade []market.Session
}

// Backtester simulates the label-driven band fade.
type Backtester struct {
	cfg Config
}

// New builds a Backtester.
func New(cfg Config) *Backtester {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Backtester{cfg: cfg}
}

// Run evaluates every session of a labelled table. Results are in session
// order.
func (b *Backtester) Run(ctx context.Context, rows []analytics.EnrichedBar) (Outcome, error) {
	sessions := analytics.Sessions(rows)
	results := make([]SessionResult, len(sessions))
	errs := make([]error, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i := range sessions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = b.Evaluate(sessions[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	var out Outcome
	for i, err := range errs {
		var gap *analytics.InsufficientDataError
		switch {
		case err == nil:
			out.Results = append(out.Results, results[i])
		case errors.Is(err, ErrNoTrade):
			out.NoTrade = append(out.NoTrade, sessions[i].Session)
		case errors.As(err, &gap):
			out.Skipped = append(out.Skipped, gap)
		default:
			return Outcome{}, fmt.Errorf("session %s: %w", sessions[i].Session, err)
		}
	}
	return out, nil
}

// Evaluate runs entry lookup, the price rule and checkpoint evaluation for a
// single session.
func (b *Backtester) Evaluate(s analytics.SessionSlice) (SessionResult, error) {
	// entry lookup
	idx, ok := s.First(b.cfg.EntryTime)
	if !ok {
		return SessionResult{}, insufficient(s.Session, analytics.StageEntry, b.cfg.EntryTime, "")
	}
	entry := s.Rows[idx]

	// price rule
	var (
		side Side
		band *float64
	)
	switch entry.Label {
	case analytics.LabelAbsent:
		return SessionResult{}, insufficient(s.Session, analytics.StageEntry, b.cfg.EntryTime, "no label")
	case analytics.LabelNeutral:
		return SessionResult{}, ErrNoTrade
	case analytics.LabelHigh:
		side, band = SideShort, entry.VWAPUpper
	case analytics.LabelLow:
		side, band = SideLong, entry.VWAPLower
	}
	if band == nil {
		return SessionResult{}, insufficient(s.Session, analytics.StageEntry, b.cfg.EntryTime, "no vwap band")
	}
	entryPrice := decimal.NewFromFloat(*band).Add(b.cfg.Buffer.Mul(decimal.NewFromInt(int64(-side))))

	// evaluate
	first, ok := s.First(b.cfg.Checkpoint1)
	if !ok {
		return SessionResult{}, insufficient(s.Session, analytics.StageCheckpoint, b.cfg.Checkpoint1, "")
	}
	second, ok := s.First(b.cfg.Checkpoint2)
	if !ok {
		return SessionResult{}, insufficient(s.Session, analytics.StageCheckpoint, b.cfg.Checkpoint2, "")
	}

	price1 := decimal.NewFromFloat(s.Rows[first].Close)
	price2 := decimal.NewFromFloat(s.Rows[second].Close)
	profit1 := profit(side, entryPrice, price1)
	profit2 := profit(side, entryPrice, price2)

	return SessionResult{
		Session:     s.Session,
		Label:       entry.Label,
		Side:        side,
		EntryPrice:  entryPrice,
		Price1:      price1,
		Profit1:     profit1,
		Profitable1: profit1.IsPositive(),
		Price2:      price2,
		Profit2:     profit2,
		Profitable2: profit2.IsPositive(),
	}, nil
}

func profit(side Side, entry, exit decimal.Decimal) decimal.Decimal {
	if side == SideShort {
		return entry.Sub(exit)
	}
	return exit.Sub(entry)
}

func insufficient(s market.Session, stage analytics.Stage, at market.TimeOfDay, reason string) error {
	return &analytics.InsufficientDataError{Session: s, Stage: stage, At: at, Reason: reason}
}
