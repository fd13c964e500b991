package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"session-vwap/internal/backtest"
)

var resultsHeader = []string{
	"session", "target_label", "side", "entry_price",
	"price_1", "profit_1", "profitable_1",
	"price_2", "profit_2", "profitable_2",
}

// WriteResultsCSVFile writes one row per traded session to path.
func WriteResultsCSVFile(path string, results []backtest.SessionResult) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteResultsCSV(w, results)
	})
}

// WriteResultsCSV writes one row per traded session.
func WriteResultsCSV(w io.Writer, results []backtest.SessionResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultsHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Session.String(),
			r.Label.String(),
			r.Side.String(),
			r.EntryPrice.String(),
			r.Price1.String(),
			r.Profit1.String(),
			strconv.FormatBool(r.Profitable1),
			r.Price2.String(),
			r.Profit2.String(),
			strconv.FormatBool(r.Profitable2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
