package backtest

import (
	"sort"

	"github.com/shopspring/decimal"

	"session-vwap/internal/market"
)

// StreakStats describes runs of consecutive profitable sessions.
type StreakStats struct {
	Count    int
	Longest  int
	Average  float64
	Shortest int
}

// Summary aggregates session results. Mean profits are nil when there are
// no results.
type Summary struct {
	Sessions       int
	MeanProfit1    *decimal.Decimal
	MeanProfit2    *decimal.Decimal
	Profitable1    int
	Profitable2    int
	ProfitablePct1 float64
	ProfitablePct2 float64
	Streaks        StreakStats // on checkpoint 2
	MaxDownDays    int
}

// Summarize computes aggregate statistics. Streaks follow session order and
// only count sessions that produced a result.
func Summarize(results []SessionResult) Summary {
	sorted := make([]SessionResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Session.Before(sorted[j].Session)
	})

	summary := Summary{Sessions: len(sorted)}
	if len(sorted) == 0 {
		return summary
	}

	sum1, sum2 := decimal.Zero, decimal.Zero
	flags := make([]bool, len(sorted))
	for i, r := range sorted {
		sum1 = sum1.Add(r.Profit1)
		sum2 = sum2.Add(r.Profit2)
		if r.Profitable1 {
			summary.Profitable1++
		}
		if r.Profitable2 {
			summary.Profitable2++
		}
		flags[i] = r.Profitable2
	}

	n := decimal.NewFromInt(int64(len(sorted)))
	mean1 := sum1.Div(n)
	mean2 := sum2.Div(n)
	summary.MeanProfit1 = &mean1
	summary.MeanProfit2 = &mean2
	summary.ProfitablePct1 = float64(summary.Profitable1) / float64(len(sorted)) * 100
	summary.ProfitablePct2 = float64(summary.Profitable2) / float64(len(sorted)) * 100
	summary.Streaks = Streaks(flags)
	return summary
}

// Streaks measures maximal runs of true values.
func Streaks(flags []bool) StreakStats {
	var (
		runs    []int
		current int
	)
	for _, ok := range flags {
		if ok {
			current++
			continue
		}
		if current > 0 {
			runs = append(runs, current)
		}
		current = 0
	}
	if current > 0 {
		runs = append(runs, current)
	}

	if len(runs) == 0 {
		return StreakStats{}
	}

	stats := StreakStats{Count: len(runs), Longest: runs[0], Shortest: runs[0]}
	total := 0
	for _, r := range runs {
		total += r
		stats.Longest = max(stats.Longest, r)
		stats.Shortest = min(stats.Shortest, r)
	}
	stats.Average = float64(total) / float64(len(runs))
	return stats
}

// MaxConsecutiveDownDays groups sorted bars by calendar date and returns the
// longest run of days whose last close is below their first open.
func MaxConsecutiveDownDays(bars []market.Bar) int {
	longest, current := 0, 0
	for start := 0; start < len(bars); {
		day := market.SessionOf(bars[start].Time)
		end := start + 1
		for end < len(bars) && market.SessionOf(bars[end].Time) == day {
			end++
		}

		if bars[end-1].Close < bars[start].Open {
			current++
			longest = max(longest, current)
		} else {
			current = 0
		}
		start = end
	}
	return longest
}
