package report

import (
	"errors"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"session-vwap/internal/analytics"
)

// ChartOptions size and title the rendered PNG.
type ChartOptions struct {
	Title  string
	Width  int
	Height int
}

var (
	bandColor = drawing.ColorFromHex("f28e2b")
	volColor  = drawing.ColorFromHex("9ecae1")

	labelColors = map[analytics.Label]drawing.Color{
		analytics.LabelHigh:    drawing.ColorGreen,
		analytics.LabelLow:     drawing.ColorRed,
		analytics.LabelNeutral: drawing.ColorBlue,
	}
)

// WriteChartFile renders close, session VWAP, the ±2σ bands, volume and the
// session labels to a PNG file.
func WriteChartFile(path string, rows []analytics.EnrichedBar, opts ChartOptions) error {
	if len(rows) == 0 {
		return errors.New("no rows to chart")
	}
	return writeFile(path, func(w io.Writer) error {
		return renderChart(w, rows, opts)
	})
}

func renderChart(w io.Writer, rows []analytics.EnrichedBar, opts ChartOptions) error {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}

	x := make([]time.Time, len(rows))
	closes := make([]float64, len(rows))
	volume := make([]float64, len(rows))
	var vwap, upper, lower bandSeries
	var annotations []chart.Value2

	for i, row := range rows {
		x[i] = row.Time
		closes[i] = row.Close
		volume[i] = row.Volume
		vwap.add(row.Time, row.VWAP)
		upper.add(row.Time, row.VWAPUpper)
		lower.add(row.Time, row.VWAPLower)

		if row.Label != analytics.LabelAbsent {
			annotations = append(annotations, chart.Value2{
				XValue: chart.TimeToFloat64(row.Time),
				YValue: row.Close,
				Label:  row.Label.String(),
				Style:  chart.Style{FontColor: labelColors[row.Label]},
			})
		}
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Close",
			XValues: x,
			YValues: closes,
		},
		chart.TimeSeries{
			Name:    "Volume",
			Style:   chart.Style{StrokeColor: volColor, FillColor: volColor.WithAlpha(64)},
			XValues: x,
			YValues: volume,
			YAxis:   chart.YAxisSecondary,
		},
	}
	// the line series need at least two points
	if len(vwap.x) > 1 {
		series = append(series,
			chart.TimeSeries{
				Name:    "VWAP",
				Style:   chart.Style{StrokeColor: bandColor, StrokeWidth: 2},
				XValues: vwap.x,
				YValues: vwap.y,
			},
			chart.TimeSeries{
				Name:    "VWAP + 2 STD",
				Style:   chart.Style{StrokeColor: bandColor, StrokeDashArray: []float64{4, 4}},
				XValues: upper.x,
				YValues: upper.y,
			},
			chart.TimeSeries{
				Name:    "VWAP - 2 STD",
				Style:   chart.Style{StrokeColor: bandColor, StrokeDashArray: []float64{4, 4}},
				XValues: lower.x,
				YValues: lower.y,
			},
		)
	}
	if len(annotations) > 0 {
		series = append(series, chart.AnnotationSeries{Annotations: annotations})
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Volume",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

type bandSeries struct {
	x []time.Time
	y []float64
}

func (b *bandSeries) add(t time.Time, v *float64) {
	if v == nil {
		return
	}
	b.x = append(b.x, t)
	b.y = append(b.y, *v)
}
