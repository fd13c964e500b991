package analytics

import (
	"errors"
	"fmt"
	"time"

	"session-vwap/internal/market"
)

// ErrUnsortedBars is returned when Aggregate sees a timestamp go backwards.
var ErrUnsortedBars = errors.New("analytics: bars must be sorted by timestamp")

// Aggregate computes per-session cumulative VWAP, expanding standard
// deviation of typical price and ±2σ bands for every bar in one forward
// scan. Bars must be sorted by timestamp.
//
// Bars whose time of day is before the session cutoff report a standard
// deviation of exactly zero, whichever session they are assigned to.
func Aggregate(bars []market.Bar, assigner market.SessionAssigner) ([]EnrichedBar, error) {
	if err := checkSorted(bars); err != nil {
		return nil, err
	}

	rows := make([]EnrichedBar, len(bars))

	var (
		current  market.Session
		count    int
		tpVolume float64
		volume   float64
		dev      welford
	)

	for i, bar := range bars {
		session := assigner.Assign(bar.Time)
		if i == 0 || session != current {
			current = session
			count = 0
			tpVolume = 0
			volume = 0
			dev.Reset()
		}

		tp := bar.TypicalPrice()
		count++
		tpVolume += tp * bar.Volume
		volume += bar.Volume
		dev.Add(tp)

		row := EnrichedBar{
			Bar:          bar,
			Session:      session,
			TypicalPrice: tp,
			CumCount:     count,
			CumTPVolume:  tpVolume,
			CumVolume:    volume,
		}

		std := dev.SampleStd()
		if assigner.BeforeCutoff(bar.Time) {
			std = 0
		}
		row.SessionStd = std

		if volume > 0 {
			vwap := tpVolume / volume
			upper := vwap + 2*std
			lower := vwap - 2*std
			row.VWAP = &vwap
			row.VWAPUpper = &upper
			row.VWAPLower = &lower
		}

		rows[i] = row
	}

	return rows, nil
}

func checkSorted(bars []market.Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Before(bars[i-1].Time) {
			return fmt.Errorf("%w: %s follows %s", ErrUnsortedBars,
				bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// SessionSlice is the contiguous run of rows belonging to one session.
// Offset is the index of Rows[0] in the full table.
type SessionSlice struct {
	Session market.Session
	Offset  int
	Rows    []EnrichedBar
}

// Sessions splits an aggregated table into its sessions in table order.
func Sessions(rows []EnrichedBar) []SessionSlice {
	sessions := make([]SessionSlice, 0, len(rows)/8+1)
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].Session != rows[start].Session {
			sessions = append(sessions, SessionSlice{
				Session: rows[start].Session,
				Offset:  start,
				Rows:    rows[start:i],
			})
			start = i
		}
	}
	return sessions
}

// First returns the index within Rows of the first bar at tod.
func (s SessionSlice) First(tod market.TimeOfDay) (int, bool) {
	for i := range s.Rows {
		if s.Rows[i].TimeOfDay() == tod {
			return i, true
		}
	}
	return 0, false
}

// Last returns the index within Rows of the last bar at tod.
func (s SessionSlice) Last(tod market.TimeOfDay) (int, bool) {
	for i := len(s.Rows) - 1; i >= 0; i-- {
		if s.Rows[i].TimeOfDay() == tod {
			return i, true
		}
	}
	return 0, false
}
