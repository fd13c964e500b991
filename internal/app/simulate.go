package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"session-vwap/internal/alerting"
)

// SimulateNotify 将最近一次分析的摘要重新推送一次, 用于验证推送通道。
func (a *App) SimulateNotify(ctx context.Context) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何推送通道")
	}

	note := alerting.Notification{
		At:      time.Now(),
		Summary: "test notification, no stored run",
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	if store != nil {
		runs, err := store.ListRecentRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			run := runs[0]
			note.RunID = run.ID
			note.Source = run.Source
			note.At = run.CreatedAt
			note.Summary = fmt.Sprintf("Total sessions analyzed: %d\nAverage profit at %s: %s\nSessions skipped: %d",
				run.Sessions, a.Config.Backtest.Checkpoint2, formatMean(run.MeanProfit2), run.Skipped)
		}
	}

	return notifier.Notify(ctx, note)
}
