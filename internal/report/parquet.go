package report

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"session-vwap/internal/analytics"
	"session-vwap/internal/market"
)

type enrichedRow struct {
	UnixNano     int64    `parquet:"datetime_unix_ns"`
	Open         float64  `parquet:"open"`
	High         float64  `parquet:"high"`
	Low          float64  `parquet:"low"`
	Close        float64  `parquet:"close"`
	Volume       float64  `parquet:"volume"`
	Session      string   `parquet:"session"`
	TypicalPrice float64  `parquet:"typical_price"`
	CumCount     int64    `parquet:"cum_count"`
	CumTPVolume  float64  `parquet:"cum_tp_volume"`
	CumVolume    float64  `parquet:"cum_volume"`
	VWAP         *float64 `parquet:"vwap,optional"`
	SessionStd   float64  `parquet:"session_std"`
	VWAPUpper    *float64 `parquet:"vwap_upper,optional"`
	VWAPLower    *float64 `parquet:"vwap_lower,optional"`
	Label        string   `parquet:"target_label"`
}

// WriteEnrichedParquetFile writes the enriched table as Parquet.
func WriteEnrichedParquetFile(path string, rows []analytics.EnrichedBar) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	out := make([]enrichedRow, len(rows))
	for i, row := range rows {
		out[i] = enrichedRow{
			UnixNano:     row.Time.UnixNano(),
			Open:         row.Open,
			High:         row.High,
			Low:          row.Low,
			Close:        row.Close,
			Volume:       row.Volume,
			Session:      row.Session.String(),
			TypicalPrice: row.TypicalPrice,
			CumCount:     int64(row.CumCount),
			CumTPVolume:  row.CumTPVolume,
			CumVolume:    row.CumVolume,
			VWAP:         row.VWAP,
			SessionStd:   row.SessionStd,
			VWAPUpper:    row.VWAPUpper,
			VWAPLower:    row.VWAPLower,
			Label:        row.Label.String(),
		}
	}
	return parquet.WriteFile(path, out)
}

// ReadEnrichedParquetFile reads a table written by WriteEnrichedParquetFile.
// Timestamps are returned in loc.
func ReadEnrichedParquetFile(path string, loc *time.Location) ([]analytics.EnrichedBar, error) {
	if loc == nil {
		loc = time.UTC
	}

	in, err := parquet.ReadFile[enrichedRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}

	rows := make([]analytics.EnrichedBar, len(in))
	for i, r := range in {
		session, err := market.ParseSession(r.Session)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		label, err := analytics.ParseLabel(r.Label)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = analytics.EnrichedBar{
			Bar: market.Bar{
				Time:   time.Unix(0, r.UnixNano).In(loc),
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			},
			Session:      session,
			TypicalPrice: r.TypicalPrice,
			CumCount:     int(r.CumCount),
			CumTPVolume:  r.CumTPVolume,
			CumVolume:    r.CumVolume,
			VWAP:         r.VWAP,
			SessionStd:   r.SessionStd,
			VWAPUpper:    r.VWAPUpper,
			VWAPLower:    r.VWAPLower,
			Label:        label,
		}
	}
	return rows, nil
}
