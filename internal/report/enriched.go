package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"session-vwap/internal/analytics"
	"session-vwap/internal/market"
)

// DateTimeLayout is the timestamp format of the enriched table. The offset
// keeps the repeated hour of a DST fall-back night distinct.
const DateTimeLayout = "2006-01-02 15:04:05-07:00"

// naiveDateTimeLayout is accepted on read and taken in the reader's location.
const naiveDateTimeLayout = "2006-01-02 15:04:05"

var enrichedHeader = []string{
	"datetime", "Open", "High", "Low", "Close", "Volume",
	"session", "typical_price", "cum_count", "cum_tp_volume", "cum_volume",
	"vwap", "session_std", "vwap_upper", "vwap_lower", "target_label",
}

// WriteEnrichedCSVFile writes rows to path, creating parent directories.
func WriteEnrichedCSVFile(path string, rows []analytics.EnrichedBar) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteEnrichedCSV(w, rows)
	})
}

// WriteEnrichedCSV writes the enriched table. Absent values are empty cells.
func WriteEnrichedCSV(w io.Writer, rows []analytics.EnrichedBar) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(enrichedHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Time.Format(DateTimeLayout),
			formatFloat(row.Open),
			formatFloat(row.High),
			formatFloat(row.Low),
			formatFloat(row.Close),
			formatFloat(row.Volume),
			row.Session.String(),
			formatFloat(row.TypicalPrice),
			strconv.Itoa(row.CumCount),
			formatFloat(row.CumTPVolume),
			formatFloat(row.CumVolume),
			formatOptional(row.VWAP),
			formatFloat(row.SessionStd),
			formatOptional(row.VWAPUpper),
			formatOptional(row.VWAPLower),
			row.Label.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadEnrichedCSVFile opens path and parses it with ReadEnrichedCSV.
func ReadEnrichedCSVFile(path string, loc *time.Location) ([]analytics.EnrichedBar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open enriched table: %w", err)
	}
	defer file.Close()

	return ReadEnrichedCSV(file, loc)
}

// ReadEnrichedCSV parses a table written by WriteEnrichedCSV. Columns are
// matched by name.
func ReadEnrichedCSV(r io.Reader, loc *time.Location) ([]analytics.EnrichedBar, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &market.MalformedInputError{Line: 1, Field: "header", Err: err}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range enrichedHeader {
		if _, ok := index[name]; !ok {
			return nil, &market.MalformedInputError{Line: 1, Field: name, Err: errors.New("column missing")}
		}
	}

	var rows []analytics.EnrichedBar
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &market.MalformedInputError{Line: line, Field: "row", Err: err}
		}

		p := rowParser{record: record, index: index, line: line}
		row := analytics.EnrichedBar{
			Bar: market.Bar{
				Time:   p.time("datetime", loc),
				Open:   p.float("Open"),
				High:   p.float("High"),
				Low:    p.float("Low"),
				Close:  p.float("Close"),
				Volume: p.float("Volume"),
			},
			Session:      p.session("session"),
			TypicalPrice: p.float("typical_price"),
			CumCount:     p.int("cum_count"),
			CumTPVolume:  p.float("cum_tp_volume"),
			CumVolume:    p.float("cum_volume"),
			VWAP:         p.optional("vwap"),
			SessionStd:   p.float("session_std"),
			VWAPUpper:    p.optional("vwap_upper"),
			VWAPLower:    p.optional("vwap_lower"),
			Label:        p.label("target_label"),
		}
		if p.err != nil {
			return nil, p.err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// rowParser keeps the first error so a record can be decoded in one
// expression.
type rowParser struct {
	record []string
	index  map[string]int
	line   int
	err    error
}

func (p *rowParser) value(field string) string {
	i := p.index[field]
	if i >= len(p.record) {
		return ""
	}
	return p.record[i]
}

func (p *rowParser) fail(field, value string, err error) {
	if p.err == nil {
		p.err = &market.MalformedInputError{Line: p.line, Field: field, Value: value, Err: err}
	}
}

func (p *rowParser) float(field string) float64 {
	v := p.value(field)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(field, v, err)
	}
	return f
}

func (p *rowParser) optional(field string) *float64 {
	if p.value(field) == "" {
		return nil
	}
	f := p.float(field)
	return &f
}

func (p *rowParser) int(field string) int {
	v := p.value(field)
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(field, v, err)
	}
	return n
}

func (p *rowParser) time(field string, loc *time.Location) time.Time {
	v := p.value(field)
	if t, err := time.Parse(DateTimeLayout, v); err == nil {
		return t.In(loc)
	}
	t, err := time.ParseInLocation(naiveDateTimeLayout, v, loc)
	if err != nil {
		p.fail(field, v, err)
	}
	return t
}

func (p *rowParser) session(field string) market.Session {
	v := p.value(field)
	s, err := market.ParseSession(v)
	if err != nil {
		p.fail(field, v, err)
	}
	return s
}

func (p *rowParser) label(field string) analytics.Label {
	v := p.value(field)
	l, err := analytics.ParseLabel(v)
	if err != nil {
		p.fail(field, v, err)
	}
	return l
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
