// Package polybool wraps simplefeatures planar overlay operations for the
// projected silhouettes the visibility engine works with.
package polybool

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"

	"sightline/internal/core"
)

// Shape is a planar point set. The zero value is empty.
type Shape struct {
	g  geom.Geometry
	ok bool
}

// Polygon converts a simple ring into a shape. Rings with fewer than three
// vertices, no area, or self-intersections produce an empty shape.
func Polygon(ring core.Polygon2D) Shape {
	if len(ring) < 3 || ring.Area() < core.Epsilon {
		return Shape{}
	}
	ring = ring.EnsureCCW()
	coords := make([]float64, 0, 2*len(ring)+2)
	for _, v := range ring {
		coords = append(coords, v.X, v.Y)
	}
	coords = append(coords, ring[0].X, ring[0].Y)

	ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err != nil {
		return Shape{}
	}
	poly, err := geom.NewPolygon([]geom.LineString{ls})
	if err != nil {
		return Shape{}
	}
	return Shape{g: poly.AsGeometry(), ok: true}
}

// Empty reports whether the shape covers no area
func (s Shape) Empty() bool {
	return !s.ok || s.g.IsEmpty() || s.g.Area() < core.Epsilon
}

// Area returns the covered area
func (s Shape) Area() float64 {
	if !s.ok {
		return 0
	}
	return s.g.Area()
}

// Union merges two shapes
func (s Shape) Union(o Shape) (Shape, error) {
	switch {
	case !o.ok:
		return s, nil
	case !s.ok:
		return o, nil
	}
	g, err := geom.Union(s.g, o.g)
	if err != nil {
		return Shape{}, fmt.Errorf("union: %w", err)
	}
	return Shape{g: g, ok: true}, nil
}

// Intersect returns the common part of two shapes
func (s Shape) Intersect(o Shape) (Shape, error) {
	if !s.ok || !o.ok {
		return Shape{}, nil
	}
	g, err := geom.Intersection(s.g, o.g)
	if err != nil {
		return Shape{}, fmt.Errorf("intersection: %w", err)
	}
	return Shape{g: g, ok: true}, nil
}

// Difference removes o from s
func (s Shape) Difference(o Shape) (Shape, error) {
	if !s.ok || !o.ok {
		return s, nil
	}
	g, err := geom.Difference(s.g, o.g)
	if err != nil {
		return Shape{}, fmt.Errorf("difference: %w", err)
	}
	return Shape{g: g, ok: true}, nil
}

// UnionAll merges every shape, skipping empty ones
func UnionAll(shapes []Shape) (Shape, error) {
	var out Shape
	for _, s := range shapes {
		if s.Empty() {
			continue
		}
		var err error
		if out, err = out.Union(s); err != nil {
			return Shape{}, err
		}
	}
	return out, nil
}

// Rings returns the exterior rings of every polygon in the shape
func (s Shape) Rings() []core.Polygon2D {
	if !s.ok {
		return nil
	}
	var out []core.Polygon2D
	collectRings(s.g, &out)
	return out
}

func collectRings(g geom.Geometry, out *[]core.Polygon2D) {
	switch g.Type() {
	case geom.TypePolygon:
		*out = append(*out, ringOf(g.MustAsPolygon()))
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			*out = append(*out, ringOf(mp.PolygonN(i)))
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := 0; i < gc.NumGeometries(); i++ {
			collectRings(gc.GeometryN(i), out)
		}
	}
}

func ringOf(p geom.Polygon) core.Polygon2D {
	seq := p.ExteriorRing().Coordinates()
	n := seq.Length()
	if n > 1 {
		// drop the closing point
		n--
	}
	ring := make(core.Polygon2D, 0, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		ring = append(ring, core.Vector2D{X: xy.X, Y: xy.Y})
	}
	return ring
}
