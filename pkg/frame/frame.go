package frame

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Frame is a time-indexed table of float64 columns. Missing values are NaN.
type Frame struct {
	index   []time.Time
	columns []string
	data    map[string][]float64
}

func New(index []time.Time) *Frame {
	return &Frame{
		index: slices.Clone(index),
		data:  make(map[string][]float64),
	}
}

func (f *Frame) Len() int {
	return len(f.index)
}

func (f *Frame) Index() []time.Time {
	return f.index
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	return slices.Clone(f.columns)
}

// Set adds or replaces a column. The values are copied.
func (f *Frame) Set(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("column name is empty")
	}
	if len(values) != len(f.index) {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), len(f.index))
	}
	if _, ok := f.data[name]; !ok {
		f.columns = append(f.columns, name)
	}
	f.data[name] = slices.Clone(values)
	return nil
}

func (f *Frame) Col(name string) ([]float64, bool) {
	v, ok := f.data[name]
	return v, ok
}

func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Head returns a frame holding the first n rows.
func (f *Frame) Head(n int) *Frame {
	n = max(0, min(n, f.Len()))
	out := New(f.index[:n])
	for _, name := range f.columns {
		_ = out.Set(name, f.data[name][:n])
	}
	return out
}

// Equal reports whether both frames have the same index, the same columns in the same
// order and values within tol of each other. NaN equals NaN.
func (f *Frame) Equal(other *Frame, tol float64) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Len() != other.Len() || !slices.Equal(f.columns, other.columns) {
		return false
	}
	for i, ts := range f.index {
		if !ts.Equal(other.index[i]) {
			return false
		}
	}
	for _, name := range f.columns {
		a, b := f.data[name], other.data[name]
		for i := range a {
			if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
				if math.IsNaN(a[i]) != math.IsNaN(b[i]) {
					return false
				}
				continue
			}
			if math.Abs(a[i]-b[i]) > tol {
				return false
			}
		}
	}
	return true
}
