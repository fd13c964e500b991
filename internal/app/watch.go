package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"session-vwap/internal/scheduler"
	"session-vwap/internal/service"
)

// Watch re-runs the analysis on the configured cadence until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.Config.Input.Path == "" {
		return errors.New("input.path is required for watch")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		AlignToStart: a.Config.Watch.AlignToBucket,
		StartupDelay: a.Config.Watch.StartupDelay,
		RunOnStart:   a.Config.Watch.RunOnStart,
	}, a.Logger)

	svc := service.New(a.Config, sched, store, a.newNotifier(), a.Logger)

	a.Logger.Info().Str("input", a.Config.Input.Path).Dur("interval", a.Config.Watch.Interval).Msg("starting watch")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch stopped")
	return nil
}
