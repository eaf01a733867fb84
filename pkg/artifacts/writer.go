package artifacts

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/de-tools/market-atlas/pkg/clock"
	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// TimestampLayout is the filename suffix layout. Second resolution.
const TimestampLayout = "20060102_150405"

var (
	ErrNoEncoder = errors.New("no encoder registered for artifact kind")
	ErrNoTarget  = errors.New("no target directory for artifact kind")
	ErrDirectory = errors.New("artifact directory unavailable")
	ErrExists    = errors.New("artifact already exists")
)

// Targets maps an artifact kind to the directory its files go to.
type Targets map[domain.ArtifactKind]string

type Options struct {
	Clock    clock.Clock
	Encoders []Encoder
	// Output receives one line per written artifact. Nil keeps the writer quiet.
	Output  io.Writer
	Metrics *metrics.Registry
}

// Writer names and places the artifacts of a run so that no run overwrites another.
type Writer struct {
	clock    clock.Clock
	encoders map[domain.ArtifactKind]Encoder
	output   io.Writer
	metrics  *metrics.Registry
}

func NewWriter(opts Options) *Writer {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}

	encoders := make(map[domain.ArtifactKind]Encoder, len(opts.Encoders))
	for _, e := range opts.Encoders {
		encoders[e.Kind()] = e
	}

	return &Writer{
		clock:    opts.Clock,
		encoders: encoders,
		output:   opts.Output,
		metrics:  opts.Metrics,
	}
}

// Manifest lists what one Write call produced.
type Manifest struct {
	Timestamp string
	CreatedAt time.Time
	Locations []domain.OutputLocation
}

// Paths maps each kind to the first file written for it.
func (m *Manifest) Paths() map[domain.ArtifactKind]string {
	out := make(map[domain.ArtifactKind]string, len(m.Locations))
	for _, loc := range m.Locations {
		if _, ok := out[loc.Kind]; !ok {
			out[loc.Kind] = loc.Path
		}
	}
	return out
}

func (m *Manifest) ByKind(kind domain.ArtifactKind) []domain.OutputLocation {
	var out []domain.OutputLocation
	for _, loc := range m.Locations {
		if loc.Kind == kind {
			out = append(out, loc)
		}
	}
	return out
}

type pending struct {
	kind     domain.ArtifactKind
	encoder  Encoder
	dir      string
	filename string
	payload  any
}

// Write stores every artifact present in result under its target directory as
// <kind>_<timestamp>.<ext>, using a single timestamp for the whole call.
//
// All kinds are checked before anything touches the disk. After that the first failure
// stops the call; files already written stay in place and are listed in the returned
// manifest, which is non-nil whenever planning succeeded.
func (w *Writer) Write(ctx context.Context, result *domain.AnalysisResult, targets Targets) (*Manifest, error) {
	if result == nil {
		return nil, fmt.Errorf("analysis result is nil")
	}

	now := w.clock.Now()
	manifest := &Manifest{
		Timestamp: now.Format(TimestampLayout),
		CreatedAt: now,
	}

	plan, err := w.plan(result, targets, manifest.Timestamp)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return manifest, err
		}

		loc, err := w.writeOne(p)
		if err != nil {
			logger.Error().Err(err).Str("kind", p.kind.String()).Str("dir", p.dir).Msg("failed to write artifact")
			return manifest, err
		}

		manifest.Locations = append(manifest.Locations, loc)
		w.metrics.ObserveArtifact(loc.Kind.String(), loc.Bytes)
		logger.Info().
			Str("kind", loc.Kind.String()).
			Str("path", loc.Path).
			Int64("bytes", loc.Bytes).
			Msg("artifact written")
		if w.output != nil {
			fmt.Fprintf(w.output, "Saved %s to %s\n", loc.Kind, loc.Path)
		}
	}

	return manifest, nil
}

func (w *Writer) plan(result *domain.AnalysisResult, targets Targets, ts string) ([]pending, error) {
	var plan []pending

	add := func(kind domain.ArtifactKind, payload any, seq int) error {
		enc, ok := w.encoders[kind]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoEncoder, kind)
		}
		dir, ok := targets[kind]
		if !ok || dir == "" {
			return fmt.Errorf("%w: %s", ErrNoTarget, kind)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDirectory, dir, err)
		}

		plan = append(plan, pending{
			kind:     kind,
			encoder:  enc,
			dir:      abs,
			filename: Filename(kind, ts, seq, enc.Ext()),
			payload:  payload,
		})
		return nil
	}

	if result.Table != nil {
		if err := add(domain.ArtifactData, result.Table, 1); err != nil {
			return nil, err
		}
	}
	for i, c := range result.Charts {
		if err := add(domain.ArtifactPlot, c, i+1); err != nil {
			return nil, err
		}
	}
	if result.Summary != nil {
		if err := add(domain.ArtifactStats, result.Summary, 1); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// Filename builds <kind>_<ts>.<ext>; the n-th (n > 1) artifact of a kind gets a _<n> suffix.
func Filename(kind domain.ArtifactKind, ts string, seq int, ext string) string {
	if seq > 1 {
		return fmt.Sprintf("%s_%s_%d.%s", kind, ts, seq, ext)
	}
	return fmt.Sprintf("%s_%s.%s", kind, ts, ext)
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// writeOne encodes into a temp file next to the destination and hard-links it into place.
// The link fails when the name is taken, so an existing file is never replaced.
func (w *Writer) writeOne(p pending) (domain.OutputLocation, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return domain.OutputLocation{}, fmt.Errorf("%w: %s: %w", ErrDirectory, p.dir, err)
	}

	tmp, err := os.CreateTemp(p.dir, "."+p.filename+".*.tmp")
	if err != nil {
		return domain.OutputLocation{}, fmt.Errorf("%w: %s: %w", ErrDirectory, p.dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hash := sha256.New()
	counter := &countingWriter{}
	buf := bufio.NewWriter(io.MultiWriter(tmp, hash, counter))

	if err := p.encoder.Encode(buf, p.payload); err != nil {
		tmp.Close()
		return domain.OutputLocation{}, fmt.Errorf("failed to encode %s artifact: %w", p.kind, err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return domain.OutputLocation{}, fmt.Errorf("failed to write %s artifact: %w", p.kind, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return domain.OutputLocation{}, fmt.Errorf("failed to write %s artifact: %w", p.kind, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.OutputLocation{}, fmt.Errorf("failed to write %s artifact: %w", p.kind, err)
	}

	path := filepath.Join(p.dir, p.filename)
	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.OutputLocation{}, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return domain.OutputLocation{}, fmt.Errorf("failed to place %s artifact: %w", p.kind, err)
	}

	return domain.OutputLocation{
		Kind:     p.kind,
		Dir:      p.dir,
		Filename: p.filename,
		Path:     path,
		Bytes:    counter.n,
		SHA256:   hex.EncodeToString(hash.Sum(nil)),
	}, nil
}
