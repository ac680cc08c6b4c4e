package core

import "math"

func (v Vector2D) Add(o Vector2D) Vector2D { return Vector2D{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vector2D) Sub(o Vector2D) Vector2D { return Vector2D{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vector2D) Scale(s float64) Vector2D { return Vector2D{X: v.X * s, Y: v.Y * s} }

func (v Vector2D) Dot(o Vector2D) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the z component of the 3D cross product
func (v Vector2D) Cross(o Vector2D) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vector2D) Length() float64 { return math.Hypot(v.X, v.Y) }

func (v Vector2D) LengthSquared() float64 { return v.X*v.X + v.Y*v.Y }

// Normalize returns the unit vector, or the zero vector for zero input
func (v Vector2D) Normalize() Vector2D {
	l := v.Length()
	if l < Epsilon {
		return Vector2D{}
	}
	return Vector2D{X: v.X / l, Y: v.Y / l}
}

// Perp returns v rotated 90 degrees counter-clockwise
func (v Vector2D) Perp() Vector2D { return Vector2D{X: -v.Y, Y: v.X} }

func (v Vector2D) DistanceTo(o Vector2D) float64 { return v.Sub(o).Length() }

func (v Vector2D) DistanceSquaredTo(o Vector2D) float64 { return v.Sub(o).LengthSquared() }

// To3D lifts v to the given elevation
func (v Vector2D) To3D(z float64) Vector3D { return Vector3D{X: v.X, Y: v.Y, Z: z} }

func (v Vector2D) AlmostEqual(o Vector2D) bool {
	return AlmostEqual(v.X, o.X) && AlmostEqual(v.Y, o.Y)
}

// Angle returns the direction of v in radians
func (v Vector2D) Angle() float64 { return math.Atan2(v.Y, v.X) }

// FromAngle returns the unit vector pointing in direction a
func FromAngle(a float64) Vector2D { return Vector2D{X: math.Cos(a), Y: math.Sin(a)} }

func (v Vector3D) Add(o Vector3D) Vector3D {
	return Vector3D{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector3D) Sub(o Vector3D) Vector3D {
	return Vector3D{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vector3D) Scale(s float64) Vector3D {
	return Vector3D{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vector3D) Dot(o Vector3D) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3D) Cross(o Vector3D) Vector3D {
	return Vector3D{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3D) Length() float64 { return math.Sqrt(v.LengthSquared()) }

func (v Vector3D) LengthSquared() float64 { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

// Normalize returns the unit vector, or the zero vector for zero input
func (v Vector3D) Normalize() Vector3D {
	l := v.Length()
	if l < Epsilon {
		return Vector3D{}
	}
	return Vector3D{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

func (v Vector3D) DistanceTo(o Vector3D) float64 { return v.Sub(o).Length() }

func (v Vector3D) DistanceSquaredTo(o Vector3D) float64 { return v.Sub(o).LengthSquared() }

// To2D drops the elevation
func (v Vector3D) To2D() Vector2D { return Vector2D{X: v.X, Y: v.Y} }

// Lerp returns v + (o-v)*t
func (v Vector3D) Lerp(o Vector3D, t float64) Vector3D {
	return Vector3D{
		X: v.X + (o.X-v.X)*t,
		Y: v.Y + (o.Y-v.Y)*t,
		Z: v.Z + (o.Z-v.Z)*t,
	}
}

func (v Vector3D) AlmostEqual(o Vector3D) bool {
	return AlmostEqual(v.X, o.X) && AlmostEqual(v.Y, o.Y) && AlmostEqual(v.Z, o.Z)
}

// Orientation returns >0 when a, b, c turn counter-clockwise, <0 when clockwise
func Orientation(a, b, c Vector2D) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

// SegmentIntersection returns the parameters t (along p0-p1) and u (along q0-q1)
// where the two segments cross. Parallel segments never intersect.
func SegmentIntersection(p0, p1, q0, q1 Vector2D) (t, u float64, ok bool) {
	r := p1.Sub(p0)
	s := q1.Sub(q0)
	denom := r.Cross(s)
	if math.Abs(denom) < Epsilon {
		return 0, 0, false
	}
	qp := q0.Sub(p0)
	t = qp.Cross(s) / denom
	u = qp.Cross(r) / denom
	if t < -Epsilon || t > 1+Epsilon || u < -Epsilon || u > 1+Epsilon {
		return t, u, false
	}
	return t, u, true
}

// DistanceToSegment returns the distance from p to the closest point of a-b
func DistanceToSegment(p, a, b Vector2D) float64 {
	ab := b.Sub(a)
	l2 := ab.LengthSquared()
	if l2 < Epsilon {
		return p.DistanceTo(a)
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return p.DistanceTo(a.Add(ab.Scale(t)))
}
