// Package debugplot draws the projected outlines behind a geometric
// measurement, for eyeballing why a target came out the way it did.
package debugplot

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"sightline/internal/calc"
	"sightline/internal/core"
)

var (
	targetColor  = color.RGBA{R: 40, G: 120, B: 220, A: 90}
	blockedColor = color.RGBA{R: 210, G: 50, B: 40, A: 140}
	visibleColor = color.RGBA{R: 40, G: 180, B: 70, A: 160}
)

// Size of saved images
var (
	Width  = 8 * vg.Inch
	Height = 8 * vg.Inch
)

// New builds a plot of the breakdown. Screen Y grows downward, so the Y
// axis is flipped to keep the picture upright.
func New(b calc.Breakdown, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", title, b.Result)
	p.X.Label.Text = "screen x"
	p.Y.Label.Text = "screen y"

	layers := []struct {
		name  string
		rings []core.Polygon2D
		fill  color.Color
	}{
		{"target", b.Target, targetColor},
		{"blocked", b.Blocked, blockedColor},
		{"visible", b.Visible, visibleColor},
	}
	for _, l := range layers {
		for i, r := range l.rings {
			poly, err := polygon(r, l.fill)
			if err != nil {
				return nil, fmt.Errorf("%s ring %d: %w", l.name, i, err)
			}
			p.Add(poly)
			if i == 0 {
				p.Legend.Add(l.name, poly)
			}
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())
	return p, nil
}

func polygon(r core.Polygon2D, fill color.Color) (*plotter.Polygon, error) {
	pts := make(plotter.XYs, len(r))
	for i, v := range r {
		pts[i] = plotter.XY{X: v.X, Y: -v.Y}
	}
	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return nil, err
	}
	poly.Color = fill
	poly.LineStyle.Width = vg.Points(1)
	poly.LineStyle.Color = color.Black
	return poly, nil
}

// Save writes the breakdown to file; the extension picks the format
func Save(b calc.Breakdown, title, file string) error {
	p, err := New(b, title)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, file); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// WritePNG renders the breakdown as PNG to w
func WritePNG(b calc.Breakdown, title string, w io.Writer) error {
	p, err := New(b, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
