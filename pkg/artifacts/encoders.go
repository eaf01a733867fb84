package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/de-tools/market-atlas/pkg/frame"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/de-tools/market-atlas/pkg/runtime/terminal/export"
	"gopkg.in/yaml.v3"
)

// ErrUnexpectedPayload is returned when an encoder is handed a value of the wrong type.
var ErrUnexpectedPayload = errors.New("unexpected artifact payload")

// Encoder serializes one artifact kind.
type Encoder interface {
	Kind() domain.ArtifactKind
	Ext() string
	Encode(w io.Writer, payload any) error
}

// ChartRenderer draws a chart description into an image.
type ChartRenderer interface {
	Render(w io.Writer, c domain.Chart) error
}

// DefaultEncoders returns the table, chart and stats encoders. A nil renderer leaves
// charts without a backend.
func DefaultEncoders(renderer ChartRenderer, statsFormat string) ([]Encoder, error) {
	stats, err := NewStatsEncoder(statsFormat)
	if err != nil {
		return nil, err
	}

	encoders := []Encoder{TableEncoder{}, stats}
	if renderer != nil {
		encoders = append(encoders, ChartEncoder{Renderer: renderer})
	}
	return encoders, nil
}

type TableEncoder struct{}

func (TableEncoder) Kind() domain.ArtifactKind { return domain.ArtifactData }
func (TableEncoder) Ext() string               { return "csv" }

func (TableEncoder) Encode(w io.Writer, payload any) error {
	f, ok := payload.(*frame.Frame)
	if !ok || f == nil {
		return fmt.Errorf("%w: want *frame.Frame, got %T", ErrUnexpectedPayload, payload)
	}
	return frame.WriteCSV(w, f)
}

type ChartEncoder struct {
	Renderer ChartRenderer
}

func (ChartEncoder) Kind() domain.ArtifactKind { return domain.ArtifactPlot }
func (ChartEncoder) Ext() string               { return "png" }

func (e ChartEncoder) Encode(w io.Writer, payload any) error {
	c, ok := payload.(domain.Chart)
	if !ok {
		return fmt.Errorf("%w: want domain.Chart, got %T", ErrUnexpectedPayload, payload)
	}
	return e.Renderer.Render(w, c)
}

const (
	StatsFormatText = "txt"
	StatsFormatYAML = "yaml"
	StatsFormatJSON = "json"
)

// StatsEncoder writes the summary report as a text table, YAML or JSON.
type StatsEncoder struct {
	format string
}

func NewStatsEncoder(format string) (StatsEncoder, error) {
	switch format {
	case "", StatsFormatText:
		return StatsEncoder{format: StatsFormatText}, nil
	case StatsFormatYAML, StatsFormatJSON:
		return StatsEncoder{format: format}, nil
	default:
		return StatsEncoder{}, fmt.Errorf("unsupported stats format %q", format)
	}
}

func (StatsEncoder) Kind() domain.ArtifactKind { return domain.ArtifactStats }

func (e StatsEncoder) Ext() string {
	if e.format == "" {
		return StatsFormatText
	}
	return e.format
}

func (e StatsEncoder) Encode(w io.Writer, payload any) error {
	report, ok := payload.(*domain.Report)
	if !ok || report == nil {
		return fmt.Errorf("%w: want *domain.Report, got %T", ErrUnexpectedPayload, payload)
	}

	switch e.Ext() {
	case StatsFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case StatsFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return export.NewReporter(w).Handle(report)
	}
}

// ContentType is the MIME type of an artifact file, guessed from its extension.
func ContentType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
