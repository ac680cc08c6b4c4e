package scene

import "sightline/internal/core"

// ConstrainFootprint clips a token footprint by every wall that fully
// crosses it, keeping the side that holds the token center. The result is
// always contained in the original footprint.
func ConstrainFootprint(t *Token, walls []*Wall, ch Channel) core.Polygon2D {
	fp := t.Footprint.EnsureCCW()
	center := t.Center()

	for _, w := range walls {
		if w.IsOpen() || w.Senses.For(ch) == RestrictNone {
			continue
		}
		if w.BottomZ > t.TopZ || w.TopZ < t.BottomZ {
			continue
		}
		if !crossesFully(fp, w.A, w.B) {
			continue
		}
		side := core.Orientation(w.A, w.B, center)
		var clipped core.Polygon2D
		switch {
		case side > core.Epsilon:
			clipped = fp.ClipHalfPlane(w.A, w.B)
		case side < -core.Epsilon:
			clipped = fp.ClipHalfPlane(w.B, w.A)
		default:
			continue
		}
		if clipped.Area() > core.Epsilon {
			fp = clipped
		}
	}
	return fp
}

// crossesFully reports whether segment a-b enters and leaves the polygon
func crossesFully(poly core.Polygon2D, a, b core.Vector2D) bool {
	if poly.Contains(a) || poly.Contains(b) {
		return false
	}
	hits := 0
	poly.Edges(func(e0, e1 core.Vector2D) bool {
		if _, _, ok := core.SegmentIntersection(a, b, e0, e1); ok {
			hits++
		}
		return hits < 2
	})
	return hits >= 2
}
