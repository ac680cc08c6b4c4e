package core

import "math"

// EmptyAABB3D returns an inverted box that any Extend call will replace
func EmptyAABB3D() AABB3D {
	inf := math.Inf(1)
	return AABB3D{
		Min: Vector3D{X: inf, Y: inf, Z: inf},
		Max: Vector3D{X: -inf, Y: -inf, Z: -inf},
	}
}

// AABB3DFromPoints returns the smallest box containing all points
func AABB3DFromPoints(points ...Vector3D) AABB3D {
	box := EmptyAABB3D()
	for _, p := range points {
		box = box.Extend(p)
	}
	return box
}

// Extend grows the box to contain p
func (b AABB3D) Extend(p Vector3D) AABB3D {
	return AABB3D{
		Min: Vector3D{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: Vector3D{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the box containing both boxes
func (b AABB3D) Union(o AABB3D) AABB3D {
	return b.Extend(o.Min).Extend(o.Max)
}

// Contains reports whether p lies inside the box, boundary included
func (b AABB3D) Contains(p Vector3D) bool {
	return p.X >= b.Min.X-Epsilon && p.X <= b.Max.X+Epsilon &&
		p.Y >= b.Min.Y-Epsilon && p.Y <= b.Max.Y+Epsilon &&
		p.Z >= b.Min.Z-Epsilon && p.Z <= b.Max.Z+Epsilon
}

// ContainsBox reports whether o lies fully inside b
func (b AABB3D) ContainsBox(o AABB3D) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Intersects reports whether the boxes overlap, touching included
func (b AABB3D) Intersects(o AABB3D) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Planar drops the elevation range
func (b AABB3D) Planar() AABB {
	return AABB{Min: b.Min.To2D(), Max: b.Max.To2D()}
}

// Center returns the middle of the box
func (b AABB3D) Center() Vector3D {
	return b.Min.Lerp(b.Max, 0.5)
}

// Intersects reports whether the planar boxes overlap, touching included
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

// Contains reports whether p lies inside the box, boundary included
func (b AABB) Contains(p Vector2D) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// To3D lifts the box to an elevation range
func (b AABB) To3D(minZ, maxZ float64) AABB3D {
	return AABB3D{Min: b.Min.To3D(minZ), Max: b.Max.To3D(maxZ)}
}

func (b AABB) Width() float64  { return b.Max.X - b.Min.X }
func (b AABB) Height() float64 { return b.Max.Y - b.Min.Y }

// NewPlane returns the plane through point with the given normal
func NewPlane(normal, point Vector3D) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Distance: -n.Dot(point)}
}

// PlaneFromPoints returns the plane through a, b, c. The normal follows
// the right-hand rule over (b-a) x (c-a).
func PlaneFromPoints(a, b, c Vector3D) Plane {
	return NewPlane(b.Sub(a).Cross(c.Sub(a)), a)
}

// SignedDistance returns the distance from the plane, positive on the normal side
func (p Plane) SignedDistance(pt Vector3D) float64 {
	return p.Normal.Dot(pt) + p.Distance
}

// Flip returns the same plane with the opposite orientation
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Scale(-1), Distance: -p.Distance}
}

// SegmentIntersection returns the parameter t in [0, 1] where the segment a-b
// crosses the plane. Segments parallel to the plane never cross.
func (p Plane) SegmentIntersection(a, b Vector3D) (float64, bool) {
	da := p.SignedDistance(a)
	db := p.SignedDistance(b)
	denom := da - db
	if math.Abs(denom) < Epsilon {
		return 0, false
	}
	t := da / denom
	if t < 0 || t > 1 {
		return t, false
	}
	return t, true
}
