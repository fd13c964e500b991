package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-vwap/internal/market"
)

func TestStreaks(t *testing.T) {
	s := Streaks([]bool{true, true, false, true})
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 2, s.Longest)
	assert.Equal(t, 1, s.Shortest)
	assert.InDelta(t, 1.5, s.Average, 1e-12)

	assert.Equal(t, StreakStats{}, Streaks(nil))
	assert.Equal(t, StreakStats{}, Streaks([]bool{false, false}))

	all := Streaks([]bool{true, true, true})
	assert.Equal(t, 3, all.Longest)
	assert.Equal(t, 3, all.Shortest)
	assert.Equal(t, 1, all.Count)
}

func result(day int, p1, p2 int64) SessionResult {
	return SessionResult{
		Session:     market.Session{Year: 2025, Month: time.January, Day: day},
		Profit1:     decimal.NewFromInt(p1),
		Profitable1: p1 > 0,
		Profit2:     decimal.NewFromInt(p2),
		Profitable2: p2 > 0,
	}
}

func TestSummarize(t *testing.T) {
	// out of order on purpose; streaks follow session order
	results := []SessionResult{
		result(23, 1, 4),
		result(20, 2, 3),
		result(22, -1, -2),
		result(21, -4, 5),
	}
	s := Summarize(results)

	assert.Equal(t, 4, s.Sessions)
	require.NotNil(t, s.MeanProfit1)
	require.NotNil(t, s.MeanProfit2)
	assert.True(t, decimal.NewFromFloat(-0.5).Equal(*s.MeanProfit1), s.MeanProfit1.String())
	assert.True(t, decimal.NewFromFloat(2.5).Equal(*s.MeanProfit2), s.MeanProfit2.String())
	assert.Equal(t, 2, s.Profitable1)
	assert.Equal(t, 3, s.Profitable2)
	assert.InDelta(t, 50.0, s.ProfitablePct1, 1e-12)
	assert.InDelta(t, 75.0, s.ProfitablePct2, 1e-12)
	assert.Equal(t, StreakStats{Count: 2, Longest: 2, Average: 1.5, Shortest: 1}, s.Streaks)

	assert.Equal(t, "2025-01-23", results[0].Session.String(), "input left untouched")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Sessions)
	assert.Nil(t, s.MeanProfit1)
	assert.Nil(t, s.MeanProfit2)
	assert.Equal(t, StreakStats{}, s.Streaks)
}

func TestMaxConsecutiveDownDays(t *testing.T) {
	bar := func(day, hour int, o, c float64) market.Bar {
		return market.Bar{Time: time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC), Open: o, Close: c}
	}
	bars := []market.Bar{
		bar(20, 10, 100, 99), bar(20, 15, 99, 98), // down
		bar(21, 10, 98, 97), bar(21, 15, 97, 96), // down
		bar(22, 10, 96, 97), bar(22, 15, 97, 99), // up
		bar(23, 10, 99, 98), bar(23, 15, 98, 97), // down
		bar(24, 10, 97, 97), // flat is not down
	}
	assert.Equal(t, 2, MaxConsecutiveDownDays(bars))
	assert.Zero(t, MaxConsecutiveDownDays(nil))
}
