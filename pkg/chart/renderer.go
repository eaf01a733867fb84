package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/de-tools/market-atlas/pkg/models/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrEmptyChart = errors.New("chart has no plottable data")

var palette = map[string]color.RGBA{
	"black":  {A: 255},
	"red":    {R: 214, G: 39, B: 40, A: 255},
	"green":  {R: 44, G: 160, B: 44, A: 255},
	"blue":   {R: 31, G: 119, B: 180, A: 255},
	"purple": {R: 148, G: 103, B: 189, A: 255},
	"orange": {R: 255, G: 127, B: 14, A: 255},
	"gray":   {R: 127, G: 127, B: 127, A: 255},
}

// Renderer draws chart descriptions as PNG images, one tile per panel.
type Renderer struct {
	Width       vg.Length
	PanelHeight vg.Length
	TimeFormat  string
}

func NewRenderer() *Renderer {
	return &Renderer{
		Width:       15 * vg.Inch,
		PanelHeight: 5 * vg.Inch,
		TimeFormat:  "2006-01-02\n15:04",
	}
}

func (r *Renderer) Render(w io.Writer, c domain.Chart) error {
	if len(c.Panels) == 0 {
		return ErrEmptyChart
	}

	plots := make([][]*plot.Plot, len(c.Panels))
	points := 0
	for i, panel := range c.Panels {
		p, n, err := r.panel(panel)
		if err != nil {
			return fmt.Errorf("failed to build panel %q: %w", panel.Title, err)
		}
		if i == 0 && c.Title != "" {
			if panel.Title != "" {
				p.Title.Text = c.Title + "\n" + panel.Title
			} else {
				p.Title.Text = c.Title
			}
		}
		plots[i] = []*plot.Plot{p}
		points += n
	}
	if points == 0 {
		return ErrEmptyChart
	}

	img := vgimg.New(r.Width, r.PanelHeight*vg.Length(len(plots)))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      4 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}

	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func (r *Renderer) panel(panel domain.Panel) (*plot.Plot, int, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.Y.Label.Text = panel.YLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: r.TimeFormat}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	total := 0
	for _, s := range panel.Series {
		xys := points(s)
		if len(xys) == 0 {
			continue
		}
		total += len(xys)

		col := colorOf(s.Color)
		switch s.Style {
		case domain.StyleBuyMarker, domain.StyleSellMarker:
			sc, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, 0, err
			}
			sc.GlyphStyle.Color = col
			sc.GlyphStyle.Radius = vg.Points(3)
			if s.Style == domain.StyleBuyMarker {
				sc.GlyphStyle.Shape = draw.TriangleGlyph{}
			} else {
				sc.GlyphStyle.Shape = draw.CrossGlyph{}
			}
			p.Add(sc)
			p.Legend.Add(s.Label, sc)
		default:
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, 0, err
			}
			line.LineStyle.Color = col
			line.LineStyle.Width = vg.Points(1)
			switch s.Style {
			case domain.StyleDashed:
				line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
			case domain.StyleDotted:
				line.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}
			}
			p.Add(line)
			p.Legend.Add(s.Label, line)
		}
	}

	if total == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
	}
	return p, total, nil
}

// points converts a series to plot coordinates, skipping NaN and infinite values.
func points(s domain.Series) plotter.XYs {
	n := min(len(s.Times), len(s.Values))
	xys := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		v := s.Values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(s.Times[i].Unix()), Y: v})
	}
	return xys
}

func colorOf(name string) color.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	return palette["black"]
}
