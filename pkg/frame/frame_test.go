package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	start := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	index := []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour)}

	f := New(index)
	require.NoError(t, f.Set("Close", []float64{101.25, 102.5, 99.125}))
	require.NoError(t, f.Set("MA2", []float64{math.NaN(), 101.875, 100.8125}))
	require.NoError(t, f.Set("Returns", []float64{math.NaN(), 0.012345679012345678, -0.03292682926829268}))
	return f
}

func TestFrame_Set(t *testing.T) {
	f := sampleFrame(t)

	t.Run("length mismatch", func(t *testing.T) {
		err := f.Set("Bad", []float64{1})
		assert.Error(t, err)
		assert.False(t, f.Has("Bad"))
	})

	t.Run("replace keeps order", func(t *testing.T) {
		require.NoError(t, f.Set("Close", []float64{1, 2, 3}))
		assert.Equal(t, []string{"Close", "MA2", "Returns"}, f.Columns())
		col, ok := f.Col("Close")
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3}, col)
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Error(t, f.Set("", []float64{1, 2, 3}))
	})
}

func TestFrame_Head(t *testing.T) {
	f := sampleFrame(t)

	h := f.Head(2)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, f.Columns(), h.Columns())

	assert.Equal(t, 3, f.Head(10).Len())
	assert.Equal(t, 0, f.Head(-1).Len())
}

func TestCSV_RoundTrip(t *testing.T) {
	f := sampleFrame(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Datetime,Close,MA2,Returns", lines[0])
	assert.Equal(t, "2025-01-02T14:30:00Z,101.25,,", lines[1])

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.True(t, f.Equal(got, 0), "reloaded frame differs from the original")
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "missing index column", input: "Close\n1\n"},
		{name: "bad timestamp", input: "Datetime,Close\nyesterday,1\n"},
		{name: "bad number", input: "Datetime,Close\n2025-01-02T14:30:00Z,abc\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestFrame_Equal(t *testing.T) {
	a := sampleFrame(t)
	b := sampleFrame(t)
	assert.True(t, a.Equal(b, 0))

	require.NoError(t, b.Set("MA2", []float64{1, 101.875, 100.8125}))
	assert.False(t, a.Equal(b, 0))

	c := sampleFrame(t)
	require.NoError(t, c.Set("Close", []float64{101.25 + 1e-12, 102.5, 99.125}))
	assert.False(t, a.Equal(c, 0))
	assert.True(t, a.Equal(c, 1e-9))
}
