package market

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Time,Open,High,Low,Close,Volume
2025-01-27,10:00:00,6036.75,6043,6017.5,6041,180546
2025-01-27,9:30:00,5998,6037.75,5996.75,6037,255260
2025-01-27,10:30:00,6041,6048,6031.25,6031.75,137204
`

func TestReadBarsSortsByTimestamp(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2025, 1, 27, 9, 30, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC), bars[1].Time)
	assert.Equal(t, time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC), bars[2].Time)

	assert.Equal(t, 5998.0, bars[0].Open)
	assert.Equal(t, 6037.75, bars[0].High)
	assert.Equal(t, 5996.75, bars[0].Low)
	assert.Equal(t, 6037.0, bars[0].Close)
	assert.Equal(t, 255260.0, bars[0].Volume)
}

func TestReadBarsHeaderOrderAndCase(t *testing.T) {
	input := "volume,CLOSE,low,high,open,time,date,extra\n100,4,1,5,2,12:30,2024/03/01,x\n"
	bars, err := ReadBars(strings.NewReader(input), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, Bar{
		Time: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Open: 2, High: 5, Low: 1, Close: 4, Volume: 100,
	}, bars[0])
}

func TestReadBarsLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	bars, err := ReadBars(strings.NewReader(sampleCSV), ReadOptions{Location: ny})
	require.NoError(t, err)
	assert.Equal(t, ny, bars[0].Time.Location())
	assert.Equal(t, Clock(9, 30), TimeOfDayOf(bars[0].Time))
}

func TestReadBarsKeepsDuplicates(t *testing.T) {
	input := "Date,Time,Open,High,Low,Close,Volume\n" +
		"2025-01-27,12:30,1,2,1,2,10\n" +
		"2025-01-27,12:30,1,3,1,3,20\n"
	bars, err := ReadBars(strings.NewReader(input), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Volume, "stable order for equal timestamps")
	assert.Equal(t, 20.0, bars[1].Volume)
}

func TestReadBarsUTF16BOM(t *testing.T) {
	utf16 := []byte{0xFF, 0xFE}
	for _, r := range sampleCSV {
		utf16 = append(utf16, byte(r), 0)
	}
	bars, err := ReadBars(strings.NewReader(string(utf16)), ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestReadBarsMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
		line  int
		field string
	}{
		{
			name:  "missing column",
			input: "Date,Time,Open,High,Low,Close\n2025-01-27,10:00,1,2,1,2\n",
			line:  1,
			field: "volume",
		},
		{
			name:  "non numeric",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,2,x,2,5\n",
			line:  2,
			field: "low",
		},
		{
			name:  "empty value",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,2,1,2,5\n2025-01-27,10:30,,2,1,2,5\n",
			line:  3,
			field: "open",
		},
		{
			name:  "bad date",
			input: "Date,Time,Open,High,Low,Close,Volume\n27.01.2025,10:00,1,2,1,2,5\n",
			line:  2,
			field: "date/time",
		},
		{
			name:  "negative volume",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,2,1,2,-5\n",
			line:  2,
			field: "volume",
		},
		{
			name:  "nan volume",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,2,1,2,NaN\n",
			line:  2,
			field: "volume",
		},
		{
			name:  "inf close",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,2,1,+Inf,5\n",
			line:  2,
			field: "close",
		},
		{
			name:  "infinity high",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,infinity,1,2,5\n",
			line:  2,
			field: "high",
		},
		{
			name:  "short row",
			input: "Date,Time,Open,High,Low,Close,Volume\n2025-01-27,10:00,1,2\n",
			line:  2,
			field: "low",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadBars(strings.NewReader(tc.input), ReadOptions{})
			require.Error(t, err)

			var malformed *MalformedInputError
			require.True(t, errors.As(err, &malformed), "expected MalformedInputError, got %T", err)
			assert.Equal(t, tc.line, malformed.Line)
			assert.Equal(t, tc.field, malformed.Field)
		})
	}
}

func TestReadBarsEmpty(t *testing.T) {
	_, err := ReadBars(strings.NewReader("Date,Time,Open,High,Low,Close,Volume\n"), ReadOptions{})
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = ReadBars(strings.NewReader(""), ReadOptions{})
	var malformed *MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}

func TestLookback(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	bars := make([]Bar, 0, 10)
	for i := 0; i < 10; i++ {
		bars = append(bars, Bar{Time: base.AddDate(0, 0, i)})
	}

	kept := Lookback(bars, 3)
	require.Len(t, kept, 4)
	assert.Equal(t, base.AddDate(0, 0, 6), kept[0].Time)

	assert.Len(t, Lookback(bars, 0), 10)
	assert.Len(t, Lookback(bars, 100), 10)
}
