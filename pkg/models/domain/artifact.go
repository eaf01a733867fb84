package domain

// ArtifactKind names the content type of an output file. It is also the filename prefix.
type ArtifactKind string

const (
	ArtifactData  ArtifactKind = "data"
	ArtifactPlot  ArtifactKind = "plot"
	ArtifactStats ArtifactKind = "stats"
)

func (k ArtifactKind) String() string {
	return string(k)
}

// OutputLocation describes one written artifact.
type OutputLocation struct {
	Kind     ArtifactKind
	Dir      string
	Filename string
	Path     string
	Bytes    int64
	SHA256   string
}
