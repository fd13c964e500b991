package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"session-vwap/internal/alerting"
	"session-vwap/internal/config"
	"session-vwap/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer // reports and tables
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger)
	}
	return nil
}

// openStore returns a nil store when database.dsn is empty.
func (a *App) openStore(ctx context.Context) (storage.ResultStore, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, nil
	}
	return store, store.Close, nil
}

// AnalyzeOptions override configuration for a single analyze run.
type AnalyzeOptions struct {
	Input        string
	OutputDir    string
	LookbackDays *int
	Buffer       string
	Quiet        bool // do not print the summary
}

// FilterOptions select a window of sessions from an enriched table.
type FilterOptions struct {
	Input  string
	Date   string
	Days   int
	Output string
}

// ChartOptions render a window of an enriched table.
type ChartOptions struct {
	FilterOptions
	Title string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
	Runs  bool
}
