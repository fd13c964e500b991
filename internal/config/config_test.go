package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"session-vwap/internal/market"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("默认配置加载失败: %v", err)
	}

	if cfg.Session.Cutoff != market.Clock(9, 30) {
		t.Fatalf("cutoff 默认值应为 09:30, 实际 %s", cfg.Session.Cutoff)
	}
	if cfg.Label.Target != market.Clock(12, 30) {
		t.Fatalf("label target 默认值应为 12:30, 实际 %s", cfg.Label.Target)
	}
	if cfg.Backtest.Checkpoint2 != market.Clock(16, 0) {
		t.Fatalf("checkpoint_2 默认值应为 16:00, 实际 %s", cfg.Backtest.Checkpoint2)
	}
	if !cfg.Backtest.BufferPoints.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("buffer 默认值应为 10, 实际 %s", cfg.Backtest.BufferPoints)
	}
	if cfg.Input.LookbackDays != 1000 {
		t.Fatalf("lookback_days 默认值应为 1000, 实际 %d", cfg.Input.LookbackDays)
	}
	if cfg.Watch.Interval != 24*time.Hour {
		t.Fatalf("watch.interval 默认值应为 24h, 实际 %s", cfg.Watch.Interval)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vwapbt.yaml")
	content := `
input:
  path: bars.csv
  timezone: America/New_York
  lookback_days: 0
session:
  cutoff: "09:15"
label:
  target: "12:00:30"
backtest:
  entry_time: "12:00:30"
  buffer_points: 2.5
analysis:
  workers: 8
database:
  driver: sqlite
  dsn: file:results.db
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	t.Setenv("VWAPBT_BACKTEST_CHECKPOINT_1", "14:30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("配置加载失败: %v", err)
	}

	if cfg.Session.Cutoff != market.Clock(9, 15) {
		t.Fatalf("cutoff 应为 09:15, 实际 %s", cfg.Session.Cutoff)
	}
	if cfg.Label.Target != market.Clock(12, 0)+30 || cfg.Backtest.EntryTime != cfg.Label.Target {
		t.Fatalf("target/entry 应为 12:00:30, 实际 %s %s", cfg.Label.Target, cfg.Backtest.EntryTime)
	}
	if !cfg.Backtest.BufferPoints.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("buffer 应为 2.5, 实际 %s", cfg.Backtest.BufferPoints)
	}
	if cfg.Backtest.Checkpoint1 != market.Clock(14, 30) {
		t.Fatalf("环境变量应覆盖 checkpoint_1, 实际 %s", cfg.Backtest.Checkpoint1)
	}
	if cfg.Analysis.Workers != 8 || cfg.Input.LookbackDays != 0 {
		t.Fatalf("workers/lookback 不正确: %+v %+v", cfg.Analysis, cfg.Input)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver 应为 sqlite, 实际 %s", cfg.Database.Driver)
	}

	loc, err := cfg.Input.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Fatalf("时区解析失败: %v %v", loc, err)
	}
}

func TestLoadRejectsBadTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("label:\n  target: \"25:99\"\n"), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("非法时间应报错")
	}
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatalf("默认配置加载失败: %v", err)
	}

	cases := map[string]func(c *Config){
		"inverted thresholds": func(c *Config) { c.Label.LowThreshold, c.Label.HighThreshold = 0.8, 0.2 },
		"negative buffer":     func(c *Config) { c.Backtest.BufferPoints = decimal.NewFromInt(-1) },
		"zero workers":        func(c *Config) { c.Analysis.Workers = 0 },
		"unknown driver":      func(c *Config) { c.Database.Driver = "mysql" },
		"telegram no token":   func(c *Config) { c.Alerting.Telegram.Enabled = true },
		"bad timezone":        func(c *Config) { c.Input.Timezone = "Mars/Olympus" },
		"checkpoints swapped": func(c *Config) { c.Backtest.Checkpoint1 = market.Clock(17, 0) },
		"entry off target":    func(c *Config) { c.Backtest.EntryTime = market.Clock(13, 0) },
	}
	for name, mutate := range cases {
		cfg := *base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: 应校验失败", name)
		}
	}
}

func TestOutputResolve(t *testing.T) {
	out := OutputConfig{Dir: "out"}
	if got := out.Resolve("a.csv"); got != filepath.Join("out", "a.csv") {
		t.Fatalf("Resolve 结果不正确: %s", got)
	}
	if got := out.Resolve(""); got != "" {
		t.Fatalf("空路径应保持为空: %s", got)
	}
	if got := out.Resolve("/tmp/a.csv"); got != "/tmp/a.csv" {
		t.Fatalf("绝对路径应保持不变: %s", got)
	}
}
