package report

import (
	"session-vwap/internal/analytics"
	"session-vwap/internal/market"
)

// DefaultFilterDays is how many sessions before the target date are kept.
const DefaultFilterDays = 2

// FilterSessions keeps rows whose session lies in [target-days, target].
// Dates are calendar days, so weekends count toward the window.
func FilterSessions(rows []analytics.EnrichedBar, target market.Session, days int) []analytics.EnrichedBar {
	if days < 0 {
		days = 0
	}
	start := target.AddDays(-days)

	out := make([]analytics.EnrichedBar, 0, len(rows))
	for _, row := range rows {
		if row.Session.Before(start) || target.Before(row.Session) {
			continue
		}
		out = append(out, row)
	}
	return out
}
