package analytics

import (
	"fmt"
	"strings"

	"session-vwap/internal/market"
)

// Label classifies where price sits in the session range at check time.
type Label uint8

const (
	// LabelAbsent marks bars that carry no classification.
	LabelAbsent Label = iota
	LabelNeutral
	LabelHigh
	LabelLow
)

func (l Label) String() string {
	switch l {
	case LabelNeutral:
		return "neutral"
	case LabelHigh:
		return "high"
	case LabelLow:
		return "low"
	default:
		return ""
	}
}

// ParseLabel is the inverse of String; the empty string is LabelAbsent.
func ParseLabel(v string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return LabelAbsent, nil
	case "neutral":
		return LabelNeutral, nil
	case "high":
		return LabelHigh, nil
	case "low":
		return LabelLow, nil
	default:
		return LabelAbsent, fmt.Errorf("unknown label %q", v)
	}
}

// EnrichedBar is a bar with its session-scoped VWAP statistics. VWAP and the
// bands are nil while the session has seen no volume.
type EnrichedBar struct {
	market.Bar

	Session      market.Session
	TypicalPrice float64
	CumCount     int
	CumTPVolume  float64
	CumVolume    float64
	VWAP         *float64
	SessionStd   float64
	VWAPUpper    *float64
	VWAPLower    *float64
	Label        Label
}

// TimeOfDay is the bar's wall-clock time.
func (e EnrichedBar) TimeOfDay() market.TimeOfDay {
	return market.TimeOfDayOf(e.Time)
}
