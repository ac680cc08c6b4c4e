package calc

import (
	"math"

	"sightline/internal/core"
	"sightline/internal/scene"
)

// maxCells bounds how many grid cells a large body is split into
const maxCells = 64

// frontFaces keeps the faces whose outward normal points toward vp
func frontFaces(faces []core.Polygon3D, vp core.Vector3D) []core.Polygon3D {
	var out []core.Polygon3D
	for _, f := range faces {
		if f.Normal().Dot(vp.Sub(f.Centroid())) > core.Epsilon {
			out = append(out, f)
		}
	}
	return out
}

// isLarge reports whether a body spans more than one grid cell
func isLarge(t *scene.Token, grid float64) bool {
	if grid <= 0 {
		return false
	}
	b := t.Footprint.Bounds()
	return b.Width() > grid+core.Epsilon || b.Height() > grid+core.Epsilon
}

// cells splits a body along grid lines anchored at its bounds. Cells the
// footprint does not reach are dropped.
func cells(t *scene.Token, grid float64) []*scene.Token {
	b := t.Footprint.Bounds()
	nx := int(math.Ceil(b.Width()/grid - 1e-9))
	ny := int(math.Ceil(b.Height()/grid - 1e-9))
	for nx*ny > maxCells {
		grid *= 2
		nx = int(math.Ceil(b.Width()/grid - 1e-9))
		ny = int(math.Ceil(b.Height()/grid - 1e-9))
	}

	fp := t.Footprint.EnsureCCW()
	var out []*scene.Token
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			x0 := b.Min.X + float64(i)*grid
			y0 := b.Min.Y + float64(j)*grid
			x1 := math.Min(x0+grid, b.Max.X)
			y1 := math.Min(y0+grid, b.Max.Y)

			cell := fp.
				ClipHalfPlane(core.Vector2D{X: x0, Y: y0}, core.Vector2D{X: x1, Y: y0}).
				ClipHalfPlane(core.Vector2D{X: x1, Y: y0}, core.Vector2D{X: x1, Y: y1}).
				ClipHalfPlane(core.Vector2D{X: x1, Y: y1}, core.Vector2D{X: x0, Y: y1}).
				ClipHalfPlane(core.Vector2D{X: x0, Y: y1}, core.Vector2D{X: x0, Y: y0})
			if len(cell) < 3 || cell.Area() < core.Epsilon {
				continue
			}
			out = append(out, t.WithFootprint(cell))
		}
	}
	return out
}

// referenceCell is a one-cell body at the target's center, used to cap the
// denominator for large targets
func referenceCell(t *scene.Token, grid float64) *scene.Token {
	c := t.Center()
	h := grid / 2
	return t.WithFootprint(core.Rect(core.AABB{
		Min: core.Vector2D{X: c.X - h, Y: c.Y - h},
		Max: core.Vector2D{X: c.X + h, Y: c.Y + h},
	}))
}

// largestRing returns the ring with the most area
func largestRing(rings []core.Polygon2D) core.Polygon2D {
	var best core.Polygon2D
	for _, r := range rings {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best
}
