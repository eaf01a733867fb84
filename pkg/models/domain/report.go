package domain

import "time"

// Report represents a complete analysis report
type Report struct {
	Title    string          `yaml:"title" json:"title"`
	Symbol   string          `yaml:"symbol" json:"symbol"`
	Currency string          `yaml:"currency" json:"currency"`
	Period   TimePeriod      `yaml:"period" json:"period"`
	Sections []ReportSection `yaml:"sections" json:"sections"`
}

// TimePeriod represents a time range for the report
type TimePeriod struct {
	Start    time.Time `yaml:"start" json:"start"`
	End      time.Time `yaml:"end" json:"end"`
	Duration int       `yaml:"duration_days" json:"duration_days"` // in days
}

// NewTimePeriod builds a period covering start..end.
func NewTimePeriod(start, end time.Time) TimePeriod {
	return TimePeriod{
		Start:    start,
		End:      end,
		Duration: int(end.Sub(start).Hours() / 24),
	}
}

// ReportSection represents a logical section in the report
type ReportSection struct {
	Title   string                 `yaml:"title" json:"title"`
	Summary map[string]interface{} `yaml:"summary,omitempty" json:"summary,omitempty"`
	Details []ReportDetail         `yaml:"details" json:"details"`
}

// ReportDetail represents detailed information within a section
type ReportDetail struct {
	Name        string      `yaml:"name" json:"name"`
	Value       interface{} `yaml:"value" json:"value"`
	Unit        string      `yaml:"unit,omitempty" json:"unit,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
}
