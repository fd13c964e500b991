package app

import (
	"context"
	"fmt"

	"session-vwap/internal/report"
)

// Chart renders a session window of an enriched table to PNG.
func (a *App) Chart(_ context.Context, opts ChartOptions) error {
	if opts.Output == "" {
		opts.Output = a.Config.Chart.Output
	}
	rows, err := a.loadWindow(opts.FilterOptions)
	if err != nil {
		return err
	}

	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("Session VWAP, bands and %s labels", a.Config.Label.Target)
	}
	if err := report.WriteChartFile(opts.Output, rows, report.ChartOptions{
		Title:  title,
		Width:  a.Config.Chart.Width,
		Height: a.Config.Chart.Height,
	}); err != nil {
		return err
	}
	a.Logger.Info().Str("path", opts.Output).Msg("chart written")
	return nil
}
