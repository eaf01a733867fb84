package store

import "time"

type Run struct {
	ID        string
	Symbol    string
	Command   string
	Timestamp string
	StartedAt time.Time
	Artifacts []Artifact
}

type Artifact struct {
	RunID    string
	Kind     string
	Dir      string
	Filename string
	Path     string
	Bytes    int64
	SHA256   string
}
