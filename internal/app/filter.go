package app

import (
	"context"
	"errors"
	"fmt"

	"session-vwap/internal/analytics"
	"session-vwap/internal/market"
	"session-vwap/internal/report"
)

// Filter writes the sessions within [date-days, date] of an enriched table.
func (a *App) Filter(_ context.Context, opts FilterOptions) error {
	if opts.Output == "" {
		opts.Output = a.Config.Filter.Output
	}
	rows, err := a.loadWindow(opts)
	if err != nil {
		return err
	}

	if err := report.WriteEnrichedCSVFile(opts.Output, rows); err != nil {
		return err
	}
	a.Logger.Info().Str("path", opts.Output).Int("rows", len(rows)).Msg("filtered table written")
	return nil
}

func (a *App) loadWindow(opts FilterOptions) ([]analytics.EnrichedBar, error) {
	if opts.Input == "" {
		opts.Input = a.Config.Output.Resolve(a.Config.Output.EnrichedCSV)
	}
	if opts.Date == "" {
		return nil, errors.New("--date is required")
	}
	target, err := market.ParseSession(opts.Date)
	if err != nil {
		return nil, err
	}
	if opts.Days < 0 {
		return nil, fmt.Errorf("--days cannot be negative")
	}

	loc, err := a.Config.Input.Location()
	if err != nil {
		return nil, err
	}
	rows, err := report.ReadEnrichedCSVFile(opts.Input, loc)
	if err != nil {
		return nil, err
	}

	window := report.FilterSessions(rows, target, opts.Days)
	a.Logger.Info().
		Str("from", target.AddDays(-opts.Days).String()).
		Str("to", target.String()).
		Int("rows", len(window)).
		Msg("session window selected")
	if len(window) == 0 {
		return nil, fmt.Errorf("no sessions between %s and %s", target.AddDays(-opts.Days), target)
	}
	return window, nil
}
