package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

const IndexColumn = "Datetime"

// WriteCSV writes the frame with a leading index column. NaN is written as an empty cell.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)

	header := append([]string{IndexColumn}, f.columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(header))
	for i, ts := range f.index {
		row[0] = ts.Format(time.RFC3339)
		for j, name := range f.columns {
			v := f.data[name][i]
			if math.IsNaN(v) {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table produced by WriteCSV.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv input")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) == 0 || header[0] != IndexColumn {
		return nil, fmt.Errorf("first column must be %q", IndexColumn)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	index := make([]time.Time, len(records))
	cols := make([][]float64, len(header)-1)
	for j := range cols {
		cols[j] = make([]float64, len(records))
	}

	for i, rec := range records {
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp %q: %w", i+1, rec[0], err)
		}
		index[i] = ts
		for j, cell := range rec[1:] {
			if cell == "" {
				cols[j][i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i+1, header[j+1], err)
			}
			cols[j][i] = v
		}
	}

	f := New(index)
	for j, name := range header[1:] {
		if err := f.Set(name, cols[j]); err != nil {
			return nil, err
		}
	}
	return f, nil
}
