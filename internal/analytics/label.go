package analytics

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"session-vwap/internal/market"
)

// LabelConfig parameterises the label engine.
type LabelConfig struct {
	Target        market.TimeOfDay
	HighThreshold float64
	LowThreshold  float64
	Workers       int
}

// DefaultLabelConfig labels at 12:30 with 0.75/0.25 thresholds.
func DefaultLabelConfig() LabelConfig {
	return LabelConfig{
		Target:        market.Clock(12, 30),
		HighThreshold: 0.75,
		LowThreshold:  0.25,
		Workers:       1,
	}
}

// SessionLabel is the classification of one session at the target time.
type SessionLabel struct {
	Session  market.Session
	Index    int // row index in the full table
	High     float64
	Low      float64
	Close    float64
	Position float64 // NaN when the range is degenerate
	Label    Label
}

// Labeler classifies each session from the range position of the close at
// the target time.
type Labeler struct {
	cfg LabelConfig
}

// NewLabeler validates cfg and builds a Labeler.
func NewLabeler(cfg LabelConfig) (*Labeler, error) {
	if cfg.LowThreshold > cfg.HighThreshold {
		return nil, fmt.Errorf("low threshold %.4f above high threshold %.4f", cfg.LowThreshold, cfg.HighThreshold)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Labeler{cfg: cfg}, nil
}

// Apply labels every session in rows and writes the label onto the last bar
// at the target time. Sessions without such a bar are returned as
// InsufficientDataError values and left unlabelled.
func (l *Labeler) Apply(ctx context.Context, rows []EnrichedBar) ([]SessionLabel, []*InsufficientDataError, error) {
	sessions := Sessions(rows)
	found := make([]*SessionLabel, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for i := range sessions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if label, ok := l.Classify(sessions[i]); ok {
				found[i] = &label
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	labels := make([]SessionLabel, 0, len(sessions))
	var missing []*InsufficientDataError
	for i, label := range found {
		if label == nil {
			missing = append(missing, &InsufficientDataError{
				Session: sessions[i].Session,
				Stage:   StageLabel,
				At:      l.cfg.Target,
			})
			continue
		}
		rows[label.Index].Label = label.Label
		labels = append(labels, *label)
	}
	return labels, missing, nil
}

// Classify labels a single session. ok is false when no bar sits exactly at
// the target time.
func (l *Labeler) Classify(s SessionSlice) (SessionLabel, bool) {
	at, ok := s.Last(l.cfg.Target)
	if !ok {
		return SessionLabel{}, false
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	for _, row := range s.Rows {
		if row.TimeOfDay() > l.cfg.Target {
			continue
		}
		high = math.Max(high, row.High)
		low = math.Min(low, row.Low)
	}

	closePrice := s.Rows[at].Close
	result := SessionLabel{
		Session:  s.Session,
		Index:    s.Offset + at,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Position: math.NaN(),
		Label:    LabelNeutral,
	}

	rng := high - low
	if rng == 0 {
		return result, true
	}

	result.Position = (closePrice - low) / rng
	switch {
	case result.Position >= l.cfg.HighThreshold:
		result.Label = LabelHigh
	case result.Position <= l.cfg.LowThreshold:
		result.Label = LabelLow
	}
	return result, true
}
