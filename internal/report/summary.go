package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"session-vwap/internal/backtest"
	"session-vwap/internal/market"
)

// SummaryReport is the summary of one analysis run together with the
// checkpoint times it was evaluated at.
type SummaryReport struct {
	Checkpoint1 market.TimeOfDay
	Checkpoint2 market.TimeOfDay
	Summary     backtest.Summary
	Skipped     int
	NoTrade     int
}

// Text renders the plain-text summary.
func (r SummaryReport) Text() string {
	s := r.Summary
	cp1, cp2 := r.Checkpoint1.String(), r.Checkpoint2.String()

	lines := []string{
		fmt.Sprintf("Total sessions analyzed: %d", s.Sessions),
		meanLine(cp1, s.MeanProfit1),
		meanLine(cp2, s.MeanProfit2),
		profitableLine(cp1, s.Sessions, s.Profitable1, s.ProfitablePct1),
		profitableLine(cp2, s.Sessions, s.Profitable2, s.ProfitablePct2),
		"",
		fmt.Sprintf("Winning Streaks (based on %s profit):", cp2),
		fmt.Sprintf("  Longest winning streak (days): %d", s.Streaks.Longest),
		fmt.Sprintf("  Average winning streak (days): %.2f", s.Streaks.Average),
		fmt.Sprintf("  Shortest winning streak (days): %d", s.Streaks.Shortest),
		"",
		fmt.Sprintf("Max consecutive down days: %d", s.MaxDownDays),
		fmt.Sprintf("Sessions skipped (insufficient data): %d", r.Skipped),
		fmt.Sprintf("Sessions without trade (neutral): %d", r.NoTrade),
	}
	return strings.Join(lines, "\n")
}

func meanLine(at string, mean *decimal.Decimal) string {
	if mean == nil {
		return fmt.Sprintf("Average profit at %s: N/A", at)
	}
	return fmt.Sprintf("Average profit at %s: %s", at, mean.StringFixed(2))
}

func profitableLine(at string, total, count int, pct float64) string {
	if total == 0 {
		return fmt.Sprintf("Sessions profitable at %s: N/A", at)
	}
	return fmt.Sprintf("Sessions profitable at %s: %d (%.2f%%)", at, count, pct)
}

// WriteSummaryFile writes the text summary to path.
func WriteSummaryFile(path string, r SummaryReport) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Text())
		return err
	})
}

type checkpointDoc struct {
	Time          string  `yaml:"time"`
	MeanProfit    *string `yaml:"mean_profit"`
	Profitable    int     `yaml:"profitable"`
	ProfitablePct float64 `yaml:"profitable_pct"`
}

type streakDoc struct {
	Count    int     `yaml:"count"`
	Longest  int     `yaml:"longest"`
	Average  float64 `yaml:"average"`
	Shortest int     `yaml:"shortest"`
}

type summaryDoc struct {
	Sessions    int             `yaml:"sessions"`
	Checkpoints []checkpointDoc `yaml:"checkpoints"`
	Streaks     streakDoc       `yaml:"winning_streaks"`
	MaxDownDays int             `yaml:"max_consecutive_down_days"`
	Skipped     int             `yaml:"skipped"`
	NoTrade     int             `yaml:"no_trade"`
}

// YAML renders the same statistics as Text in machine-readable form.
func (r SummaryReport) YAML() ([]byte, error) {
	s := r.Summary
	doc := summaryDoc{
		Sessions: s.Sessions,
		Checkpoints: []checkpointDoc{
			{Time: r.Checkpoint1.String(), MeanProfit: decimalString(s.MeanProfit1), Profitable: s.Profitable1, ProfitablePct: s.ProfitablePct1},
			{Time: r.Checkpoint2.String(), MeanProfit: decimalString(s.MeanProfit2), Profitable: s.Profitable2, ProfitablePct: s.ProfitablePct2},
		},
		Streaks: streakDoc{
			Count:    s.Streaks.Count,
			Longest:  s.Streaks.Longest,
			Average:  s.Streaks.Average,
			Shortest: s.Streaks.Shortest,
		},
		MaxDownDays: s.MaxDownDays,
		Skipped:     r.Skipped,
		NoTrade:     r.NoTrade,
	}
	return yaml.Marshal(doc)
}

// WriteSummaryYAMLFile writes the YAML summary to path.
func WriteSummaryYAMLFile(path string, r SummaryReport) error {
	data, err := r.YAML()
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}
