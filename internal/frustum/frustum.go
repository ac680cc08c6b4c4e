// Package frustum builds the pyramidal volume between a viewpoint and a
// target footprint and tests scene geometry against it.
package frustum

import (
	"math"

	"sightline/internal/core"
)

// MinElevationSpan keeps degenerate (flat) frusta testable
const MinElevationSpan = 1.0

// Frustum is a five-faced pyramid: apex at the viewpoint, a vertical far
// quad across the target. Planes carry outward normals.
type Frustum struct {
	Viewpoint core.Vector3D
	// Left and Right are the planar far points, ordered so that
	// (viewpoint, Left, Right) turns clockwise
	Left, Right core.Vector2D
	MinZ, MaxZ  float64

	faces  [5]core.Polygon3D
	planes [5]core.Plane
	bounds core.AABB3D
}

// Build returns the frustum from viewpoint to the footprint
func Build(viewpoint core.Vector3D, footprint core.Polygon2D, bottomZ, topZ float64) *Frustum {
	f := &Frustum{}
	f.Rebuild(viewpoint, footprint, bottomZ, topZ)
	return f
}

// Rebuild recomputes the frustum in place
func (f *Frustum) Rebuild(viewpoint core.Vector3D, footprint core.Polygon2D, bottomZ, topZ float64) {
	f.Viewpoint = viewpoint
	a, b := basePoints(viewpoint.To2D(), footprint.EnsureCCW())

	// Clockwise (viewpoint, Left, Right)
	if core.Orientation(viewpoint.To2D(), a, b) > 0 {
		a, b = b, a
	}
	f.Left, f.Right = a, b

	f.MinZ = math.Min(viewpoint.Z, bottomZ)
	f.MaxZ = math.Max(viewpoint.Z, topZ)
	if f.MaxZ-f.MinZ < MinElevationSpan {
		mid := (f.MaxZ + f.MinZ) / 2
		f.MinZ = mid - MinElevationSpan/2
		f.MaxZ = mid + MinElevationSpan/2
	}

	p := viewpoint
	lb, lt := a.To3D(f.MinZ), a.To3D(f.MaxZ)
	rb, rt := b.To3D(f.MinZ), b.To3D(f.MaxZ)

	f.faces = [5]core.Polygon3D{
		{p, lt, lb},      // left
		{p, rb, rt},      // right
		{p, rt, lt},      // top
		{p, lb, rb},      // bottom
		{lb, lt, rt, rb}, // far
	}

	// Orient every plane away from an interior point
	inside := p.Add(lb).Add(lt).Add(rb).Add(rt).Scale(0.2)
	for i, face := range f.faces {
		plane := core.PlaneFromPoints(face[0], face[1], face[2])
		if plane.Normal.LengthSquared() == 0 {
			// Collapsed face; keep a plane that rejects nothing
			plane = core.Plane{Normal: core.Vector3D{}, Distance: -1}
		} else if plane.SignedDistance(inside) > 0 {
			plane = plane.Flip()
			f.faces[i] = face.Reverse()
		}
		f.planes[i] = plane
	}

	f.bounds = core.AABB3DFromPoints(p, lb, lt, rb, rt)
}

// basePoints picks the two far points of the frustum base
func basePoints(p core.Vector2D, fp core.Polygon2D) (core.Vector2D, core.Vector2D) {
	if len(fp) < 2 {
		if len(fp) == 1 {
			return fp[0], fp[0]
		}
		return p, p
	}

	keys := keyPoints(p, fp)
	if len(keys) < 2 {
		return fp[0], fp[1]
	}

	center := fp.Centroid()
	if len(keys) == 2 && fp.IsConvex() {
		axis := center.Sub(p)
		a, okA := extendToCenterLine(p, keys[0], center, axis)
		b, okB := extendToCenterLine(p, keys[1], center, axis)
		if okA && okB {
			return a, b
		}
		return keys[0], keys[1]
	}

	// Outermost pair by angle around the view axis
	axis := center.Sub(p)
	minIdx, maxIdx := 0, 0
	minAng, maxAng := math.Inf(1), math.Inf(-1)
	for i, k := range keys {
		d := k.Sub(p)
		ang := math.Atan2(axis.Cross(d), axis.Dot(d))
		if ang < minAng {
			minAng, minIdx = ang, i
		}
		if ang > maxAng {
			maxAng, maxIdx = ang, i
		}
	}
	return keys[minIdx], keys[maxIdx]
}

// keyPoints returns the silhouette vertices of a counter-clockwise ring
// seen from p: vertices where the adjacent edges switch between facing p
// and facing away.
func keyPoints(p core.Vector2D, fp core.Polygon2D) []core.Vector2D {
	n := len(fp)
	facing := make([]bool, n)
	for i := 0; i < n; i++ {
		facing[i] = core.Orientation(fp[i], fp[(i+1)%n], p) < 0
	}
	var keys []core.Vector2D
	for i := 0; i < n; i++ {
		prev := facing[(i+n-1)%n]
		if prev != facing[i] {
			keys = append(keys, fp[i])
		}
	}
	return keys
}

// extendToCenterLine moves k along the ray p->k onto the line through center
// perpendicular to axis
func extendToCenterLine(p, k, center, axis core.Vector2D) (core.Vector2D, bool) {
	d := k.Sub(p)
	denom := d.Dot(axis)
	if math.Abs(denom) < core.Epsilon {
		return k, false
	}
	t := center.Sub(p).Dot(axis) / denom
	if t <= 0 {
		return k, false
	}
	return p.Add(d.Scale(t)), true
}

// Bounds returns the 3D bounding box
func (f *Frustum) Bounds() core.AABB3D { return f.bounds }

// Planes returns the five bounding planes with outward normals
func (f *Frustum) Planes() []core.Plane { return f.planes[:] }

// FarPlane returns the plane through the far quad
func (f *Frustum) FarPlane() core.Plane { return f.planes[4] }

// Faces returns the five boundary polygons
func (f *Frustum) Faces() []core.Polygon3D { return f.faces[:] }

// ContainsPoint reports whether p lies inside or on the frustum
func (f *Frustum) ContainsPoint(p core.Vector3D) bool {
	if !f.bounds.Contains(p) {
		return false
	}
	for _, plane := range f.planes {
		if plane.SignedDistance(p) > 1e-6 {
			return false
		}
	}
	return true
}

// OverlapsSegment clips segment a-b against every plane (Cyrus-Beck)
func (f *Frustum) OverlapsSegment(a, b core.Vector3D) bool {
	if !f.bounds.Intersects(core.AABB3DFromPoints(a, b)) {
		return false
	}
	t0, t1 := 0.0, 1.0
	d := b.Sub(a)
	for _, plane := range f.planes {
		num := plane.SignedDistance(a)
		denom := plane.Normal.Dot(d)
		if math.Abs(denom) < core.Epsilon {
			if num > 1e-6 {
				return false
			}
			continue
		}
		t := -num / denom
		if denom < 0 {
			if t > t0 {
				t0 = t
			}
		} else if t < t1 {
			t1 = t
		}
		if t0 > t1+1e-9 {
			return false
		}
	}
	return true
}

// OverlapsAABB is a conservative box test
func (f *Frustum) OverlapsAABB(box core.AABB3D) bool {
	if !f.bounds.Intersects(box) {
		return false
	}
	for _, plane := range f.planes {
		nv := box.Max
		if plane.Normal.X >= 0 {
			nv.X = box.Min.X
		}
		if plane.Normal.Y >= 0 {
			nv.Y = box.Min.Y
		}
		if plane.Normal.Z >= 0 {
			nv.Z = box.Min.Z
		}
		if plane.SignedDistance(nv) > 1e-6 {
			return false
		}
	}
	return true
}

// OverlapsSphere is a conservative sphere test
func (f *Frustum) OverlapsSphere(center core.Vector3D, radius float64) bool {
	r := core.Vector3D{X: radius, Y: radius, Z: radius}
	if !f.bounds.Intersects(core.AABB3D{Min: center.Sub(r), Max: center.Add(r)}) {
		return false
	}
	for _, plane := range f.planes {
		if plane.SignedDistance(center) > radius {
			return false
		}
	}
	return true
}

// OverlapsPolygon reports whether a planar polygon in space touches the
// frustum: one of its edges enters the volume, or one of the frustum edges
// pierces it.
func (f *Frustum) OverlapsPolygon(poly core.Polygon3D) bool {
	if len(poly) < 3 || !f.bounds.Intersects(poly.Bounds()) {
		return false
	}
	for i := range poly {
		if f.OverlapsSegment(poly[i], poly[(i+1)%len(poly)]) {
			return true
		}
	}
	for _, e := range f.edges() {
		if _, ok := poly.SegmentIntersects(e[0], e[1]); ok {
			return true
		}
	}
	return false
}

// OverlapsPrism reports whether a closed set of faces touches the frustum,
// including when the prism swallows the whole frustum
func (f *Frustum) OverlapsPrism(faces []core.Polygon3D, contains func(core.Vector3D) bool) bool {
	for _, face := range faces {
		if f.OverlapsPolygon(face) {
			return true
		}
	}
	return contains != nil && contains(f.Viewpoint)
}

func (f *Frustum) edges() [][2]core.Vector3D {
	p := f.Viewpoint
	lb, lt := f.Left.To3D(f.MinZ), f.Left.To3D(f.MaxZ)
	rb, rt := f.Right.To3D(f.MinZ), f.Right.To3D(f.MaxZ)
	return [][2]core.Vector3D{
		{p, lb}, {p, lt}, {p, rb}, {p, rt},
		{lb, lt}, {lt, rt}, {rt, rb}, {rb, lb},
	}
}
