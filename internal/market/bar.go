package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bar is one OHLCV sample.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TypicalPrice returns (high+low+close)/3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// TimeOfDay counts seconds since local midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60)
}

// TimeOfDayOf extracts the wall-clock time of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(v string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", v)
	}

	limits := []int{24, 60, 60}
	values := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n >= limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", v)
		}
		values[i] = n
	}
	return TimeOfDay(values[0]*3600 + values[1]*60 + values[2]), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests.
func MustParseTimeOfDay(v string) TimeOfDay {
	tod, err := ParseTimeOfDay(v)
	if err != nil {
		panic(err)
	}
	return tod
}

func (t TimeOfDay) String() string {
	h := int(t) / 3600
	m := int(t) % 3600 / 60
	s := int(t) % 60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Session identifies a trading session by calendar date.
type Session struct {
	Year  int
	Month time.Month
	Day   int
}

const sessionLayout = "2006-01-02"

// SessionOf returns the calendar date of t.
func SessionOf(t time.Time) Session {
	y, m, d := t.Date()
	return Session{Year: y, Month: m, Day: d}
}

// ParseSession parses a YYYY-MM-DD date.
func ParseSession(v string) (Session, error) {
	t, err := time.Parse(sessionLayout, strings.TrimSpace(v))
	if err != nil {
		return Session{}, fmt.Errorf("invalid session date %q: %w", v, err)
	}
	return SessionOf(t), nil
}

// Midnight returns the start of the session date in loc.
func (s Session) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(s.Year, s.Month, s.Day, 0, 0, 0, 0, loc)
}

// AddDays shifts the date by n calendar days.
func (s Session) AddDays(n int) Session {
	return SessionOf(time.Date(s.Year, s.Month, s.Day+n, 0, 0, 0, 0, time.UTC))
}

// Before reports whether s is an earlier date than o.
func (s Session) Before(o Session) bool {
	if s.Year != o.Year {
		return s.Year < o.Year
	}
	if s.Month != o.Month {
		return s.Month < o.Month
	}
	return s.Day < o.Day
}

// IsZero reports whether s is unset.
func (s Session) IsZero() bool {
	return s == Session{}
}

func (s Session) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", s.Year, int(s.Month), s.Day)
}
