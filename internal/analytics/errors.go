package analytics

import (
	"fmt"

	"session-vwap/internal/market"
)

// Stage names the step that needed a bar.
type Stage string

const (
	StageLabel      Stage = "label"
	StageEntry      Stage = "entry"
	StageCheckpoint Stage = "checkpoint"
)

// InsufficientDataError reports a session that lacks a bar (or a value on
// it) at a required time of day. The session is skipped; the run goes on.
type InsufficientDataError struct {
	Session market.Session
	Stage   Stage
	At      market.TimeOfDay
	Reason  string
}

func (e *InsufficientDataError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "no bar"
	}
	return fmt.Sprintf("session %s: %s at %s (%s)", e.Session, reason, e.At, e.Stage)
}
