package api

import "time"

type Artifact struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	SHA256   string `json:"sha256"`
	URL      string `json:"url"`
}

type Run struct {
	ID        string     `json:"id"`
	Symbol    string     `json:"symbol"`
	Command   string     `json:"command"`
	Timestamp string     `json:"timestamp"`
	StartedAt time.Time  `json:"started_at"`
	Artifacts []Artifact `json:"artifacts"`
}

type Error struct {
	Message string `json:"error"`
}
