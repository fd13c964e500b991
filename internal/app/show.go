package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent stored results, or runs with opts.Runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show results")
	}
	if closeStore != nil {
		defer closeStore()
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	defer writer.Flush()

	if opts.Runs {
		runs, err := store.ListRecentRuns(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(a.Out, "no runs found")
			return nil
		}

		fmt.Fprintln(writer, "Run\tCreated (UTC)\tSource\tBars\tTraded\tSkipped\tMean P1\tMean P2\tWin% P2\tLongest")
		for _, run := range runs {
			winPct := "N/A"
			if run.Sessions > 0 {
				winPct = fmt.Sprintf("%.2f", float64(run.Profitable2)/float64(run.Sessions)*100)
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%d\n",
				run.ID,
				run.CreatedAt.UTC().Format(time.RFC3339),
				run.Source,
				run.Bars,
				run.Sessions,
				run.Skipped,
				formatMean(run.MeanProfit1),
				formatMean(run.MeanProfit2),
				winPct,
				run.LongestStreak,
			)
		}
		return nil
	}

	records, err := store.ListRecentResults(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no results found")
		return nil
	}

	fmt.Fprintln(writer, "Session\tLabel\tSide\tEntry\tPrice 1\tProfit 1\tPrice 2\tProfit 2\tRun")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Session,
			rec.Label,
			rec.Side,
			rec.EntryPrice.StringFixed(2),
			rec.Price1.StringFixed(2),
			rec.Profit1.StringFixed(2),
			rec.Price2.StringFixed(2),
			rec.Profit2.StringFixed(2),
			rec.RunID,
		)
	}
	return nil
}

func formatMean(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.StringFixed(2)
}
