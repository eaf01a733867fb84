package domain

import "time"

type RunCommand string

const (
	RunCommandStrategy RunCommand = "strategy"
	RunCommandAnalyze  RunCommand = "analyze"
)

// Run is the ledger record of one invocation and the artifacts it wrote.
type Run struct {
	ID        string
	Symbol    string
	Command   RunCommand
	Timestamp string
	StartedAt time.Time
	Artifacts []OutputLocation
}

// Artifact returns the location recorded under filename.
func (r *Run) Artifact(filename string) (OutputLocation, bool) {
	for _, a := range r.Artifacts {
		if a.Filename == filename {
			return a, true
		}
	}
	return OutputLocation{}, false
}
