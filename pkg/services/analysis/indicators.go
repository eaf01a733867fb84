package analysis

import (
	"math"
	"time"
)

// RollingMean returns the mean of each trailing window. The first window-1 values and
// any window containing NaN are NaN.
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = mean(w)
	}
	return out
}

// RollingStd returns the sample standard deviation of each trailing window. Windows
// containing NaN are NaN.
func RollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = stdDev(w)
	}
	return out
}

// PctChange returns v[i]/v[i-1]-1. The first value is NaN.
func PctChange(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if math.IsNaN(prev) || math.IsNaN(values[i]) || prev == 0 {
			continue
		}
		out[i] = values[i]/prev - 1
	}
	return out
}

// Shift moves values n positions forward, filling the gap with NaN.
func Shift(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		j := i - n
		if j >= 0 && j < len(values) {
			out[i] = values[j]
		}
	}
	return out
}

// CumProd returns the running product. NaN positions stay NaN and do not reset the product.
func CumProd(values []float64) []float64 {
	out := nanSlice(len(values))
	acc := 1.0
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		acc *= v
		out[i] = acc
	}
	return out
}

// ForwardFill replaces NaN with the last seen value. Leading NaNs stay.
func ForwardFill(values []float64) []float64 {
	out := make([]float64, len(values))
	last := math.NaN()
	for i, v := range values {
		if !math.IsNaN(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// Align joins values keyed by times onto index as of each index time: every row takes the
// last non-NaN value stamped at or before it. Rows earlier than the first value are NaN.
// times must be ascending.
func Align(index []time.Time, times []time.Time, values []float64) []float64 {
	out := nanSlice(len(index))
	n := min(len(times), len(values))
	j := 0
	last := math.NaN()
	for i, ts := range index {
		for j < n && !times[j].After(ts) {
			if !math.IsNaN(values[j]) {
				last = values[j]
			}
			j++
		}
		out[i] = last
	}
	return out
}

// Valid reports whether values holds at least one non-NaN element.
func Valid(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// AddScalar returns v+c for every element.
func AddScalar(values []float64, c float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + c
	}
	return out
}

func mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// stdDev is the sample standard deviation of the non-NaN values.
func stdDev(values []float64) float64 {
	m := mean(values)
	if math.IsNaN(m) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += (v - m) * (v - m)
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n-1))
}

func lastValid(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
	}
	return math.NaN()
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
