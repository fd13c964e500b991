package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-vwap/internal/market"
)

func labelSession(t *testing.T, closeAtTarget float64) ([]EnrichedBar, []SessionLabel) {
	t.Helper()
	bars := []market.Bar{
		ohlcv(at(27, 9, 30), 105, 110, 104, 106, 100),
		ohlcv(at(27, 11, 0), 106, 107, 100, 101, 100),
		ohlcv(at(27, 12, 30), 101, 109, 101, closeAtTarget, 100),
		ohlcv(at(27, 15, 0), 104, 200, 50, 150, 100), // after target, ignored
	}
	rows := aggregate(t, bars)

	labeler, err := NewLabeler(DefaultLabelConfig())
	require.NoError(t, err)
	labels, missing, err := labeler.Apply(context.Background(), rows)
	require.NoError(t, err)
	require.Empty(t, missing)
	require.Len(t, labels, 1)
	return rows, labels
}

func TestLabelClassification(t *testing.T) {
	cases := []struct {
		close float64
		want  Label
	}{
		{109, LabelHigh},   // 0.9
		{107.5, LabelHigh}, // exactly 0.75
		{105, LabelNeutral},
		{102.5, LabelLow}, // exactly 0.25
		{101, LabelLow},
	}
	for _, tc := range cases {
		rows, labels := labelSession(t, tc.close)
		assert.Equal(t, tc.want, labels[0].Label, "close %.2f", tc.close)
		assert.Equal(t, 110.0, labels[0].High)
		assert.Equal(t, 100.0, labels[0].Low)
		assert.InDelta(t, (tc.close-100)/10, labels[0].Position, 1e-12)

		assert.Equal(t, tc.want, rows[2].Label)
		assert.Equal(t, LabelAbsent, rows[0].Label)
		assert.Equal(t, LabelAbsent, rows[1].Label)
		assert.Equal(t, LabelAbsent, rows[3].Label)
	}
}

func TestLabelDegenerateRangeIsNeutral(t *testing.T) {
	bars := []market.Bar{
		ohlcv(at(27, 10, 0), 100, 100, 100, 100, 10),
		ohlcv(at(27, 12, 30), 100, 100, 100, 100, 10),
	}
	rows := aggregate(t, bars)

	labeler, err := NewLabeler(DefaultLabelConfig())
	require.NoError(t, err)
	labels, _, err := labeler.Apply(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, LabelNeutral, labels[0].Label)
	assert.True(t, math.IsNaN(labels[0].Position))
}

func TestLabelMissingTargetBar(t *testing.T) {
	bars := []market.Bar{
		ohlcv(at(27, 10, 0), 100, 101, 99, 100, 10),
		ohlcv(at(27, 13, 0), 100, 101, 99, 100, 10),
		ohlcv(at(28, 10, 0), 100, 101, 99, 100, 10),
		ohlcv(at(28, 12, 30), 100, 101, 99, 101, 10),
	}
	rows := aggregate(t, bars)

	labeler, err := NewLabeler(DefaultLabelConfig())
	require.NoError(t, err)
	labels, missing, err := labeler.Apply(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, labels, 1)
	assert.Equal(t, "2025-01-28", labels[0].Session.String())
	require.Len(t, missing, 1)
	assert.Equal(t, "2025-01-27", missing[0].Session.String())
	assert.Equal(t, StageLabel, missing[0].Stage)
	assert.Contains(t, missing[0].Error(), "12:30")

	for i := 0; i < 2; i++ {
		assert.Equal(t, LabelAbsent, rows[i].Label)
	}
}

func TestLabelDuplicateTargetLastWins(t *testing.T) {
	bars := []market.Bar{
		ohlcv(at(27, 10, 0), 100, 110, 100, 105, 10),
		ohlcv(at(27, 12, 30), 105, 106, 104, 101, 10),
		ohlcv(at(27, 12, 30), 105, 110, 104, 109, 10),
	}
	rows := aggregate(t, bars)

	labeler, err := NewLabeler(DefaultLabelConfig())
	require.NoError(t, err)
	labels, _, err := labeler.Apply(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, labels, 1)
	assert.Equal(t, 2, labels[0].Index)
	assert.Equal(t, LabelHigh, labels[0].Label)
	assert.Equal(t, LabelAbsent, rows[1].Label)
	assert.Equal(t, LabelHigh, rows[2].Label)
}

func TestLabelAtMostOnePerSessionAndOnlyAtTarget(t *testing.T) {
	bars := make([]market.Bar, 0, 64)
	for day := 20; day < 25; day++ {
		for step := 0; step < 14; step++ {
			ts := at(day, 9, 30).Add(time.Duration(step) * 30 * time.Minute)
			p := 100 + float64((day*7+step*3)%11)
			bars = append(bars, ohlcv(ts, p, p+2, p-2, p+1, 10))
		}
	}
	rows := aggregate(t, bars)

	cfg := DefaultLabelConfig()
	cfg.Workers = 3
	labeler, err := NewLabeler(cfg)
	require.NoError(t, err)
	_, missing, err := labeler.Apply(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, missing)

	perSession := map[market.Session]int{}
	for _, r := range rows {
		if r.Label == LabelAbsent {
			continue
		}
		perSession[r.Session]++
		assert.Equal(t, cfg.Target, r.TimeOfDay())
	}
	assert.Len(t, perSession, 5)
	for s, n := range perSession {
		assert.Equal(t, 1, n, s.String())
	}
}

func TestLabelCancelledContext(t *testing.T) {
	rows := aggregate(t, twoSessions())
	labeler, err := NewLabeler(DefaultLabelConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = labeler.Apply(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLabelerRejectsInvertedThresholds(t *testing.T) {
	_, err := NewLabeler(LabelConfig{HighThreshold: 0.2, LowThreshold: 0.8})
	assert.Error(t, err)
}

func TestParseLabel(t *testing.T) {
	for _, l := range []Label{LabelAbsent, LabelNeutral, LabelHigh, LabelLow} {
		got, err := ParseLabel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	got, err := ParseLabel("HIGH")
	require.NoError(t, err)
	assert.Equal(t, LabelHigh, got)

	_, err = ParseLabel("sideways")
	assert.Error(t, err)
}
