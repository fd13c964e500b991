package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"session-vwap/internal/logging"
	"session-vwap/internal/market"
)

// EnvPrefix prefixes every environment override, e.g. VWAPBT_BACKTEST_BUFFER_POINTS.
const EnvPrefix = "VWAPBT"

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Input    InputConfig    `mapstructure:"input"`
	Session  SessionConfig  `mapstructure:"session"`
	Label    LabelConfig    `mapstructure:"label"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Output   OutputConfig   `mapstructure:"output"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Database DatabaseConfig `mapstructure:"database"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Alerting AlertingConfig `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// InputConfig locates and interprets the raw bar file.
type InputConfig struct {
	Path         string `mapstructure:"path"`
	Timezone     string `mapstructure:"timezone"`
	LookbackDays int    `mapstructure:"lookback_days"` // 0 keeps everything
}

// Location resolves Timezone; empty means UTC.
func (c InputConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SessionConfig sets where one session ends and the next begins.
type SessionConfig struct {
	Cutoff market.TimeOfDay `mapstructure:"cutoff"`
}

// LabelConfig controls range-position labelling.
type LabelConfig struct {
	Target        market.TimeOfDay `mapstructure:"target"`
	HighThreshold float64          `mapstructure:"high_threshold"`
	LowThreshold  float64          `mapstructure:"low_threshold"`
}

// BacktestConfig holds the trade rule.
type BacktestConfig struct {
	EntryTime    market.TimeOfDay `mapstructure:"entry_time"`
	Checkpoint1  market.TimeOfDay `mapstructure:"checkpoint_1"`
	Checkpoint2  market.TimeOfDay `mapstructure:"checkpoint_2"`
	BufferPoints decimal.Decimal  `mapstructure:"buffer_points"`
}

// AnalysisConfig bounds per-session parallelism.
type AnalysisConfig struct {
	Workers int `mapstructure:"workers"`
}

// OutputConfig names the files written by analyze. Empty optional paths
// disable that output.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	EnrichedCSV string `mapstructure:"enriched_csv"`
	ResultsCSV  string `mapstructure:"results_csv"`
	SummaryText string `mapstructure:"summary_txt"`
	SummaryYAML string `mapstructure:"summary_yaml"`
	Parquet     string `mapstructure:"parquet"`
}

// Resolve places name under Dir unless it is empty or absolute.
func (c OutputConfig) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || c.Dir == "" {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// FilterConfig sets the default window of the filter command.
type FilterConfig struct {
	Days   int    `mapstructure:"days"`
	Output string `mapstructure:"output"`
}

// ChartConfig sizes the PNG chart.
type ChartConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Output string `mapstructure:"output"`
}

// DatabaseConfig selects the result store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatchConfig governs the re-analysis cadence.
type WatchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// AlertingConfig routes the run summary.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 推送参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vwapbt")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("input.path", "")
	v.SetDefault("input.timezone", "UTC")
	v.SetDefault("input.lookback_days", 1000)

	v.SetDefault("session.cutoff", "09:30")

	v.SetDefault("label.target", "12:30")
	v.SetDefault("label.high_threshold", 0.75)
	v.SetDefault("label.low_threshold", 0.25)

	v.SetDefault("backtest.entry_time", "12:30")
	v.SetDefault("backtest.checkpoint_1", "15:00")
	v.SetDefault("backtest.checkpoint_2", "16:00")
	v.SetDefault("backtest.buffer_points", "10")

	v.SetDefault("analysis.workers", 4)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.enriched_csv", "data_with_vwap.csv")
	v.SetDefault("output.results_csv", "trade_buffer_results.csv")
	v.SetDefault("output.summary_txt", "summary_stats.txt")
	v.SetDefault("output.summary_yaml", "")
	v.SetDefault("output.parquet", "")

	v.SetDefault("filter.days", 2)
	v.SetDefault("filter.output", "data.csv")

	v.SetDefault("chart.width", 1600)
	v.SetDefault("chart.height", 800)
	v.SetDefault("chart.output", "chart.png")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("watch.interval", "24h")
	v.SetDefault("watch.align_to_bucket", false)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.run_on_start", true)
	v.SetDefault("watch.advisory_lock_key", int64(0x76776170))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToTimeOfDayHook(),
			toDecimalHook(),
		)
	}
}

var (
	timeOfDayType = reflect.TypeOf(market.TimeOfDay(0))
	decimalType   = reflect.TypeOf(decimal.Decimal{})
)

// stringToTimeOfDayHook decodes "HH:MM" or "HH:MM:SS".
func stringToTimeOfDayHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != timeOfDayType || f.Kind() != reflect.String {
			return data, nil
		}
		return market.ParseTimeOfDay(data.(string))
	}
}

// toDecimalHook accepts strings and plain numbers for decimal fields.
func toDecimalHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		}
		return data, nil
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if _, err := c.Input.Location(); err != nil {
		return fmt.Errorf("input.timezone: %w", err)
	}
	if c.Input.LookbackDays < 0 {
		return fmt.Errorf("input.lookback_days cannot be negative")
	}
	if c.Label.LowThreshold > c.Label.HighThreshold {
		return fmt.Errorf("label.low_threshold must not exceed label.high_threshold")
	}
	if c.Label.HighThreshold < 0 || c.Label.HighThreshold > 1 || c.Label.LowThreshold < 0 || c.Label.LowThreshold > 1 {
		return fmt.Errorf("label thresholds must lie in [0, 1]")
	}
	if c.Backtest.BufferPoints.IsNegative() {
		return fmt.Errorf("backtest.buffer_points cannot be negative")
	}
	// 入场 bar 必须是打标签的那根 bar
	if c.Backtest.EntryTime != c.Label.Target {
		return fmt.Errorf("backtest.entry_time (%s) must equal label.target (%s)", c.Backtest.EntryTime, c.Label.Target)
	}
	if c.Backtest.Checkpoint2 < c.Backtest.Checkpoint1 {
		return fmt.Errorf("backtest.checkpoint_2 must not precede backtest.checkpoint_1")
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis.workers must be greater than zero")
	}
	if c.Output.EnrichedCSV == "" || c.Output.ResultsCSV == "" || c.Output.SummaryText == "" {
		return fmt.Errorf("output.enriched_csv, output.results_csv and output.summary_txt are required")
	}
	if c.Filter.Days < 0 {
		return fmt.Errorf("filter.days cannot be negative")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}
