package market

import "time"

// DefaultCutoff is the time of day at which a new session opens.
var DefaultCutoff = Clock(9, 30)

// SessionAssigner maps bar timestamps onto trading sessions. Bars at or
// after the cutoff belong to their own date; earlier bars are the overnight
// tail of the previous date's session.
type SessionAssigner struct {
	cutoff TimeOfDay
}

// NewSessionAssigner builds an assigner for the given cutoff.
func NewSessionAssigner(cutoff TimeOfDay) SessionAssigner {
	return SessionAssigner{cutoff: cutoff}
}

// Cutoff returns the configured session open.
func (a SessionAssigner) Cutoff() TimeOfDay {
	return a.cutoff
}

// BeforeCutoff reports whether t falls before the session open on its date.
func (a SessionAssigner) BeforeCutoff(t time.Time) bool {
	return TimeOfDayOf(t) < a.cutoff
}

// Assign returns the session t belongs to.
func (a SessionAssigner) Assign(t time.Time) Session {
	if a.BeforeCutoff(t) {
		return SessionOf(t).AddDays(-1)
	}
	return SessionOf(t)
}

// Open returns the instant the session starts in loc.
func (a SessionAssigner) Open(s Session, loc *time.Location) time.Time {
	return s.Midnight(loc).Add(time.Duration(a.cutoff) * time.Second)
}
