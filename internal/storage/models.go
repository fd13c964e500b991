package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"session-vwap/internal/backtest"
)

// Run is one persisted analysis pass over a bar file.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Source        string
	Bars          int
	Sessions      int
	Skipped       int
	NoTrade       int
	MeanProfit1   *decimal.Decimal
	MeanProfit2   *decimal.Decimal
	Profitable1   int
	Profitable2   int
	LongestStreak int
	MaxDownDays   int
}

// NewRun fills the run header from a summary.
func NewRun(source string, bars, skipped, noTrade int, summary backtest.Summary) Run {
	return Run{
		ID:            NewID(),
		CreatedAt:     time.Now().UTC(),
		Source:        source,
		Bars:          bars,
		Sessions:      summary.Sessions,
		Skipped:       skipped,
		NoTrade:       noTrade,
		MeanProfit1:   summary.MeanProfit1,
		MeanProfit2:   summary.MeanProfit2,
		Profitable1:   summary.Profitable1,
		Profitable2:   summary.Profitable2,
		LongestStreak: summary.Streaks.Longest,
		MaxDownDays:   summary.MaxDownDays,
	}
}

// ResultRecord is a stored session result with the run that produced it.
type ResultRecord struct {
	RunID string
	backtest.SessionResult
}
