package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"session-vwap/internal/analytics"
	"session-vwap/internal/backtest"
	"session-vwap/internal/config"
	"session-vwap/internal/market"
)

func sampleResults() []backtest.SessionResult {
	return []backtest.SessionResult{
		{
			Session:     market.Session{Year: 2025, Month: time.January, Day: 27},
			Label:       analytics.LabelHigh,
			Side:        backtest.SideShort,
			EntryPrice:  decimal.RequireFromString("6061.37"),
			Price1:      decimal.RequireFromString("6050.25"),
			Profit1:     decimal.RequireFromString("11.12"),
			Profitable1: true,
			Price2:      decimal.RequireFromString("6070"),
			Profit2:     decimal.RequireFromString("-8.63"),
		},
		{
			Session:     market.Session{Year: 2025, Month: time.January, Day: 28},
			Label:       analytics.LabelLow,
			Side:        backtest.SideLong,
			EntryPrice:  decimal.RequireFromString("5990.50"),
			Price1:      decimal.RequireFromString("5995"),
			Profit1:     decimal.RequireFromString("4.5"),
			Profitable1: true,
			Price2:      decimal.RequireFromString("6001.75"),
			Profit2:     decimal.RequireFromString("11.25"),
			Profitable2: true,
		},
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "results.db")})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	defer store.Close()

	results := sampleResults()
	summary := backtest.Summarize(results)
	first := NewRun("bars.csv", 120, 1, 2, summary)
	if err := store.SaveRun(ctx, first, results); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	second := NewRun("bars.csv", 0, 0, 0, backtest.Summarize(nil))
	if err := store.SaveRun(ctx, second, nil); err != nil {
		t.Fatalf("保存空结果失败: %v", err)
	}

	runs, err := store.ListRecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("读取 runs 失败: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("runs 顺序不正确: %+v", runs)
	}
	if runs[0].MeanProfit1 != nil {
		t.Fatalf("空结果的均值应为 NULL: %v", runs[0].MeanProfit1)
	}
	got := runs[1]
	if got.Bars != 120 || got.Skipped != 1 || got.NoTrade != 2 || got.Sessions != 2 {
		t.Fatalf("run 字段不正确: %+v", got)
	}
	if got.MeanProfit2 == nil || !got.MeanProfit2.Equal(*summary.MeanProfit2) {
		t.Fatalf("mean_profit_2 不正确: %v", got.MeanProfit2)
	}

	records, err := store.ListRecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("读取结果失败: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("应有 2 条结果, 实际 %d", len(records))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Session.Before(records[j].Session) })
	for i, rec := range records {
		want := results[i]
		if rec.RunID != first.ID || rec.Session != want.Session || rec.Label != want.Label || rec.Side != want.Side {
			t.Fatalf("结果 %d 不一致: %+v", i, rec)
		}
		if !rec.EntryPrice.Equal(want.EntryPrice) || !rec.Profit2.Equal(want.Profit2) || rec.Profitable2 != want.Profitable2 {
			t.Fatalf("结果 %d 数值不一致: %+v", i, rec)
		}
	}
}

func TestOpenWithoutDSN(t *testing.T) {
	store, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres"})
	if err != nil || store != nil {
		t.Fatalf("未配置 DSN 时应返回 nil: %v %v", store, err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("VWAPBT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VWAPBT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, config.DatabaseConfig{Driver: "postgres", DSN: dsn})
	if err != nil {
		t.Fatalf("连接 postgres 失败: %v", err)
	}
	defer store.Close()

	results := sampleResults()
	run := NewRun("bars.csv", 10, 0, 0, backtest.Summarize(results))
	if err := store.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	runs, err := store.ListRecentRuns(ctx, 1)
	if err != nil || len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("读取最新 run 失败: %v %+v", err, runs)
	}

	locker, ok := store.(AdvisoryLocker)
	if !ok {
		t.Fatal("postgres store 应支持 advisory lock")
	}
	unlock, acquired, err := locker.TryAdvisoryLock(ctx, 0x76776170)
	if err != nil || !acquired {
		t.Fatalf("获取 advisory lock 失败: %v", err)
	}
	unlock()
}

func TestNewIDMonotonic(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		if next <= prev {
			t.Fatalf("ID 应递增: %s <= %s", next, prev)
		}
		prev = next
	}
}
