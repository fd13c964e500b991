package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per interval with the scheduled run time.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool // snap ticks to multiples of Interval
	StartupDelay time.Duration
	RunOnStart   bool // tick once before waiting for the first interval
}

// Scheduler re-runs a job on a fixed cadence until cancelled.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks, invoking tick at each interval until ctx is cancelled. Tick
// errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.RunOnStart {
		s.execute(ctx, tick, s.now())
	}

	next := s.nextTick(s.now())
	for {
		if delay := next.Sub(s.now()); delay < 0 {
			// a tick overran; skip the missed slots
			next = s.nextTick(s.now())
		}

		s.logger.Debug().Time("next_run", next).Msg("waiting for next run")
		if err := sleep(ctx, next.Sub(s.now())); err != nil {
			return err
		}

		s.execute(ctx, tick, s.slotStart(next))
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) execute(ctx context.Context, tick TickFunc, at time.Time) {
	started := time.Now()
	s.logger.Info().Time("at", at).Msg("executing scheduled run")
	if err := tick(ctx, at); err != nil {
		s.logger.Error().Err(err).Time("at", at).Msg("scheduled run failed")
		return
	}
	s.logger.Info().Time("at", at).Dur("elapsed", time.Since(started)).Msg("scheduled run finished")
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	slot := now.Truncate(s.opts.Interval)
	if !slot.After(now) {
		slot = slot.Add(s.opts.Interval)
	}
	return slot
}

func (s *Scheduler) slotStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
