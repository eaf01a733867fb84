package domain

import "github.com/de-tools/market-atlas/pkg/frame"

// AnalysisResult is everything one run produces before it is written to disk.
type AnalysisResult struct {
	Symbol  string
	Table   *frame.Frame
	Charts  []Chart
	Summary *Report
}
