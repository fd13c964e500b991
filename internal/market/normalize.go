package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006"}
	timeLayouts = []string{"15:04:05", "15:04"}

	requiredColumns = []string{"date", "time", "open", "high", "low", "close", "volume"}
)

// ReadOptions tune bar parsing.
type ReadOptions struct {
	// Location interprets the naive Date/Time columns. Defaults to UTC.
	Location *time.Location
}

// ReadBarsFile opens path and parses it with ReadBars.
func ReadBarsFile(path string, opts ReadOptions) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer file.Close()

	return ReadBars(file, opts)
}

// ReadBars parses a Date,Time,Open,High,Low,Close,Volume table and returns
// the bars sorted by timestamp. Duplicate timestamps are kept.
func ReadBars(r io.Reader, opts ReadOptions) ([]Bar, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	// UTF-16 exports from charting platforms carry a BOM.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MalformedInputError{Line: 1, Field: "header", Err: io.ErrUnexpectedEOF}
		}
		return nil, &MalformedInputError{Line: 1, Field: "header", Err: err}
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, 1024)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &MalformedInputError{Line: line, Field: "row", Err: err}
		}
		if blankRecord(record) {
			continue
		}

		bar, err := parseRecord(record, index, line, loc)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	SortBars(bars)
	return bars, nil
}

// SortBars orders bars by timestamp, keeping input order for ties.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
}

// Lookback keeps bars no older than days calendar days before the last
// bar. bars must be sorted. days <= 0 returns bars unchanged.
func Lookback(bars []Bar, days int) []Bar {
	if days <= 0 || len(bars) == 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Time.Add(-time.Duration(days) * 24 * time.Hour)
	start := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Time.Before(cutoff)
	})
	return bars[start:]
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &MalformedInputError{Line: 1, Field: col, Err: errMissingColumn}
		}
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int, line int, loc *time.Location) (Bar, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(record) || strings.TrimSpace(record[i]) == "" {
			return "", &MalformedInputError{Line: line, Field: name, Err: errMissingValue}
		}
		return strings.TrimSpace(record[i]), nil
	}

	dateStr, err := field("date")
	if err != nil {
		return Bar{}, err
	}
	timeStr, err := field("time")
	if err != nil {
		return Bar{}, err
	}
	ts, err := parseTimestamp(dateStr, timeStr, loc)
	if err != nil {
		return Bar{}, &MalformedInputError{Line: line, Field: "date/time", Value: dateStr + " " + timeStr, Err: err}
	}

	values := make([]float64, 5)
	for i, name := range requiredColumns[2:] {
		raw, err := field(name)
		if err != nil {
			return Bar{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bar{}, &MalformedInputError{Line: line, Field: name, Value: raw, Err: err}
		}
		// ParseFloat accepts NaN and Inf
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Bar{}, &MalformedInputError{Line: line, Field: name, Value: raw, Err: errNotFinite}
		}
		values[i] = v
	}
	if !(values[4] >= 0) {
		return Bar{}, &MalformedInputError{Line: line, Field: "volume", Value: record[index["volume"]], Err: errNegative}
	}

	return Bar{
		Time:   ts,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

func parseTimestamp(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, dl := range dateLayouts {
		for _, tl := range timeLayouts {
			t, err := time.ParseInLocation(dl+" "+tl, dateStr+" "+padHour(timeStr), loc)
			if err == nil {
				return t, nil
			}
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// padHour turns "9:30:00" into "09:30:00".
func padHour(v string) string {
	if i := strings.IndexByte(v, ':'); i == 1 {
		return "0" + v
	}
	return v
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
