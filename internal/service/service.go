package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"session-vwap/internal/alerting"
	"session-vwap/internal/analytics"
	"session-vwap/internal/backtest"
	"session-vwap/internal/config"
	"session-vwap/internal/market"
	"session-vwap/internal/report"
	"session-vwap/internal/scheduler"
	"session-vwap/internal/storage"
)

// Report is everything one analysis run produced.
type Report struct {
	RunID   string
	Source  string
	Bars    int
	Rows    []analytics.EnrichedBar
	Labels  []analytics.SessionLabel
	Outcome backtest.Outcome
	Summary report.SummaryReport
	Outputs []string
}

// Service runs the analysis pipeline: read, aggregate, label, backtest,
// summarise, export, persist and notify.
type Service struct {
	cfg       *config.Config
	scheduler *scheduler.Scheduler
	store     storage.ResultStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64
}

// New constructs the pipeline service. store, notifier and sched may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, store storage.ResultStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		cfg:       cfg,
		scheduler: sched,
		store:     store,
		notifier:  notifier,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		locker:    locker,
		lockKey:   cfg.Watch.AdvisoryLockKey,
	}
}

// Run re-analyses the configured input on every scheduler tick.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行一次定时分析; 其他实例持有锁时跳过。
func (s *Service) ProcessTick(ctx context.Context, at time.Time) error {
	if s.locker != nil {
		unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
		if err != nil {
			return err
		}
		if !acquired {
			s.logger.Debug().Time("at", at).Msg("skip run because advisory lock held elsewhere")
			return nil
		}
		defer unlock()
	}

	_, err := s.Analyze(ctx, s.cfg.Input.Path)
	return err
}

// Analyze runs the full pipeline over the bar file at path.
func (s *Service) Analyze(ctx context.Context, path string) (*Report, error) {
	if path == "" {
		return nil, errors.New("input path is required")
	}
	loc, err := s.cfg.Input.Location()
	if err != nil {
		return nil, err
	}

	bars, err := market.ReadBarsFile(path, market.ReadOptions{Location: loc})
	if err != nil {
		return nil, err
	}
	total := len(bars)
	bars = market.Lookback(bars, s.cfg.Input.LookbackDays)
	s.logger.Info().Str("source", path).Int("bars", total).Int("in_window", len(bars)).Msg("bars loaded")

	rows, err := analytics.Aggregate(bars, market.NewSessionAssigner(s.cfg.Session.Cutoff))
	if err != nil {
		return nil, err
	}

	labeler, err := analytics.NewLabeler(s.labelConfig())
	if err != nil {
		return nil, err
	}
	labels, missing, err := labeler.Apply(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("label sessions: %w", err)
	}
	// 每个 session 只记录一次缺数据
	logged := make(map[market.Session]bool, len(missing))
	for _, gap := range missing {
		s.logInsufficient(gap)
		logged[gap.Session] = true
	}

	outcome, err := backtest.New(s.backtestConfig()).Run(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	for _, gap := range outcome.Skipped {
		if logged[gap.Session] {
			continue
		}
		s.logInsufficient(gap)
	}
	for _, session := range outcome.NoTrade {
		s.logger.Debug().Str("session", session.String()).Msg("neutral label, no trade")
	}

	summary := backtest.Summarize(outcome.Results)
	summary.MaxDownDays = backtest.MaxConsecutiveDownDays(bars)

	rep := &Report{
		Source:  path,
		Bars:    len(bars),
		Rows:    rows,
		Labels:  labels,
		Outcome: outcome,
		Summary: report.SummaryReport{
			Checkpoint1: s.cfg.Backtest.Checkpoint1,
			Checkpoint2: s.cfg.Backtest.Checkpoint2,
			Summary:     summary,
			Skipped:     len(outcome.Skipped),
			NoTrade:     len(outcome.NoTrade),
		},
	}

	if err := s.writeOutputs(rep); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("sessions", len(analytics.Sessions(rows))).
		Int("labelled", len(labels)).
		Int("traded", summary.Sessions).
		Int("skipped", len(outcome.Skipped)).
		Int("no_trade", len(outcome.NoTrade)).
		Msg("analysis complete")

	rep.RunID = s.persist(ctx, rep)
	s.notify(ctx, rep)
	return rep, nil
}

func (s *Service) writeOutputs(rep *Report) error {
	out := s.cfg.Output
	writers := []struct {
		path  string
		write func(string) error
	}{
		{out.Resolve(out.EnrichedCSV), func(p string) error { return report.WriteEnrichedCSVFile(p, rep.Rows) }},
		{out.Resolve(out.ResultsCSV), func(p string) error { return report.WriteResultsCSVFile(p, rep.Outcome.Results) }},
		{out.Resolve(out.SummaryText), func(p string) error { return report.WriteSummaryFile(p, rep.Summary) }},
		{out.Resolve(out.SummaryYAML), func(p string) error { return report.WriteSummaryYAMLFile(p, rep.Summary) }},
		{out.Resolve(out.Parquet), func(p string) error { return report.WriteEnrichedParquetFile(p, rep.Rows) }},
	}
	for _, w := range writers {
		if w.path == "" {
			continue
		}
		if err := w.write(w.path); err != nil {
			return fmt.Errorf("write %s: %w", w.path, err)
		}
		rep.Outputs = append(rep.Outputs, w.path)
		s.logger.Info().Str("path", w.path).Msg("output written")
	}
	return nil
}

// persist stores the run; failures are logged because the files are already written.
func (s *Service) persist(ctx context.Context, rep *Report) string {
	if s.store == nil {
		return ""
	}
	run := storage.NewRun(rep.Source, rep.Bars, rep.Summary.Skipped, rep.Summary.NoTrade, rep.Summary.Summary)
	if err := s.store.SaveRun(ctx, run, rep.Outcome.Results); err != nil {
		s.logger.Error().Err(err).Msg("persist run failed")
		return ""
	}
	s.logger.Info().Str("run_id", run.ID).Int("results", len(rep.Outcome.Results)).Msg("run persisted")
	return run.ID
}

func (s *Service) notify(ctx context.Context, rep *Report) {
	if !s.cfg.Alerting.Enabled || s.notifier == nil {
		return
	}

	skipped := make([]string, 0, len(rep.Outcome.Skipped))
	for _, gap := range rep.Outcome.Skipped {
		skipped = append(skipped, gap.Session.String())
	}
	note := alerting.Notification{
		RunID:   rep.RunID,
		Source:  rep.Source,
		At:      time.Now(),
		Summary: rep.Summary.Text(),
		Skipped: skipped,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Msg("notify failed")
	}
}

func (s *Service) logInsufficient(gap *analytics.InsufficientDataError) {
	s.logger.Warn().
		Str("session", gap.Session.String()).
		Str("stage", string(gap.Stage)).
		Str("at", gap.At.String()).
		Str("reason", gap.Reason).
		Msg("insufficient data, session skipped")
}

func (s *Service) labelConfig() analytics.LabelConfig {
	return analytics.LabelConfig{
		Target:        s.cfg.Label.Target,
		HighThreshold: s.cfg.Label.HighThreshold,
		LowThreshold:  s.cfg.Label.LowThreshold,
		Workers:       s.cfg.Analysis.Workers,
	}
}

func (s *Service) backtestConfig() backtest.Config {
	return backtest.Config{
		EntryTime:   s.cfg.Backtest.EntryTime,
		Checkpoint1: s.cfg.Backtest.Checkpoint1,
		Checkpoint2: s.cfg.Backtest.Checkpoint2,
		Buffer:      s.cfg.Backtest.BufferPoints,
		Workers:     s.cfg.Analysis.Workers,
	}
}
