package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/wellness.report/internal/cluster"
)

// PNG dimensions.
var (
	PlotWidth  = 8 * vg.Inch
	PlotHeight = 5 * vg.Inch
)

// ElbowPlot builds the WCSS curve as a gonum plot, with the knee circled
// when present.
func ElbowPlot(curve cluster.WcssCurve, knee *int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Elbow Method for Optimal k"
	p.X.Label.Text = "Number of Clusters"
	p.Y.Label.Text = "WCSS"
	p.Legend.Top = true

	if len(curve) == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	pts := make(plotter.XYs, len(curve))
	for i, c := range curve {
		pts[i].X = float64(c.K)
		pts[i].Y = c.WCSS
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("build elbow line: %w", err)
	}
	line.Width = vg.Points(1.5)
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	p.Legend.Add("WCSS", line, points)

	if knee != nil {
		for _, c := range curve {
			if c.K != *knee {
				continue
			}
			mark, err := plotter.NewScatter(plotter.XYs{{X: float64(c.K), Y: c.WCSS}})
			if err != nil {
				return nil, fmt.Errorf("build knee marker: %w", err)
			}
			mark.Shape = draw.RingGlyph{}
			mark.Radius = vg.Points(7)
			mark.Color = color.RGBA{R: 220, G: 40, B: 40, A: 255}
			p.Add(mark)
			p.Legend.Add(fmt.Sprintf("knee (k=%d)", c.K), mark)
		}
	}
	return p, nil
}

// ClusterPlot builds a scatter of beneficiary count per center, coloured by
// cluster.
func ClusterPlot(res *cluster.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Clustering of Wellness Centers Based on Beneficiaries"
	p.X.Label.Text = "Wellness Center"
	p.Y.Label.Text = "Beneficiary Count"

	index := make(map[string]int, len(res.Counts))
	names := make([]string, len(res.Counts))
	for i, c := range res.Counts {
		index[c.EntityID] = i
		names[i] = c.EntityID
	}

	groups := make([]plotter.XYs, res.ChosenK)
	for _, a := range res.Assignments {
		i, ok := index[a.EntityID]
		if !ok || a.Label < 0 || a.Label >= len(groups) {
			continue
		}
		groups[a.Label] = append(groups[a.Label], plotter.XY{X: float64(i), Y: float64(res.Counts[i].Count)})
	}

	colors := generateColors(res.ChosenK)
	for label, pts := range groups {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("build cluster %d scatter: %w", label, err)
		}
		s.Shape = draw.CircleGlyph{}
		s.Radius = vg.Points(4)
		s.Color = colors[label]
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("Cluster %d", label), s)
	}

	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = draw.XRight
	p.Legend.Top = true
	return p, nil
}

// WriteElbowPNG writes the elbow plot as PNG.
func WriteElbowPNG(w io.Writer, curve cluster.WcssCurve, knee *int) error {
	p, err := ElbowPlot(curve, knee)
	if err != nil {
		return err
	}
	return writePNG(w, p)
}

// WriteClusterPNG writes the cluster scatter as PNG.
func WriteClusterPNG(w io.Writer, res *cluster.Result) error {
	p, err := ClusterPlot(res)
	if err != nil {
		return err
	}
	return writePNG(w, p)
}

func writePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hexColors is generateColors in CSS notation.
func hexColors(n int) []string {
	out := make([]string, 0, n)
	for _, c := range generateColors(n) {
		rgba := c.(color.RGBA)
		out = append(out, fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B))
	}
	return out
}

// hslToRGB converts HSL in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
