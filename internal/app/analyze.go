package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"session-vwap/internal/service"
)

// Analyze runs the pipeline once and prints the summary.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	cfg := *a.Config
	if opts.Input != "" {
		cfg.Input.Path = opts.Input
	}
	if opts.OutputDir != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if opts.LookbackDays != nil {
		if *opts.LookbackDays < 0 {
			return fmt.Errorf("--lookback-days cannot be negative")
		}
		cfg.Input.LookbackDays = *opts.LookbackDays
	}
	if opts.Buffer != "" {
		buffer, err := decimal.NewFromString(opts.Buffer)
		if err != nil {
			return fmt.Errorf("--buffer: %w", err)
		}
		cfg.Backtest.BufferPoints = buffer
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := service.New(&cfg, nil, store, a.newNotifier(), a.Logger)
	rep, err := svc.Analyze(ctx, cfg.Input.Path)
	if err != nil {
		return err
	}

	if !opts.Quiet {
		fmt.Fprintln(a.Out, rep.Summary.Text())
	}
	return nil
}
