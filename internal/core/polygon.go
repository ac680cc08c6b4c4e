package core

import "math"

// Polygon2D is a simple planar polygon stored as an open vertex ring
type Polygon2D []Vector2D

// Polygon3D is a planar polygon in space stored as an open vertex ring
type Polygon3D []Vector3D

// Rect returns the counter-clockwise rectangle spanning the box
func Rect(b AABB) Polygon2D {
	return Polygon2D{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}
}

// SignedArea is positive for counter-clockwise rings
func (p Polygon2D) SignedArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].Cross(p[j])
	}
	return sum / 2
}

func (p Polygon2D) Area() float64 { return math.Abs(p.SignedArea()) }

func (p Polygon2D) IsCCW() bool { return p.SignedArea() > 0 }

// EnsureCCW returns a counter-clockwise copy of the ring
func (p Polygon2D) EnsureCCW() Polygon2D {
	out := make(Polygon2D, len(p))
	copy(out, p)
	if p.SignedArea() < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Centroid returns the area centroid, falling back to the vertex mean for
// degenerate rings
func (p Polygon2D) Centroid() Vector2D {
	n := len(p)
	if n == 0 {
		return Vector2D{}
	}
	a := p.SignedArea()
	if math.Abs(a) < Epsilon {
		var sum Vector2D
		for _, v := range p {
			sum = sum.Add(v)
		}
		return sum.Scale(1 / float64(n))
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		f := p[i].Cross(p[j])
		cx += (p[i].X + p[j].X) * f
		cy += (p[i].Y + p[j].Y) * f
	}
	return Vector2D{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Bounds returns the planar bounding box
func (p Polygon2D) Bounds() AABB {
	if len(p) == 0 {
		return AABB{}
	}
	b := AABB{Min: p[0], Max: p[0]}
	for _, v := range p[1:] {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
	}
	return b
}

// Contains reports whether pt lies strictly inside the ring (even-odd rule)
func (p Polygon2D) Contains(pt Vector2D) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// IsConvex reports whether every turn has the same orientation
func (p Polygon2D) IsConvex() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		o := Orientation(p[i], p[(i+1)%n], p[(i+2)%n])
		if math.Abs(o) < Epsilon {
			continue
		}
		s := 1
		if o < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return sign != 0
}

// Edges calls fn for each edge of the ring
func (p Polygon2D) Edges(fn func(a, b Vector2D) bool) {
	n := len(p)
	for i := 0; i < n; i++ {
		if !fn(p[i], p[(i+1)%n]) {
			return
		}
	}
}

// ClipHalfPlane keeps the part of the ring on the left of the directed line
// a->b (Sutherland-Hodgman).
func (p Polygon2D) ClipHalfPlane(a, b Vector2D) Polygon2D {
	n := len(p)
	if n == 0 {
		return nil
	}
	side := func(v Vector2D) float64 { return Orientation(a, b, v) }
	out := make(Polygon2D, 0, n+2)
	for i := 0; i < n; i++ {
		cur := p[i]
		next := p[(i+1)%n]
		sc, sn := side(cur), side(next)
		if sc >= 0 {
			out = append(out, cur)
		}
		if (sc >= 0) != (sn >= 0) {
			t := sc / (sc - sn)
			out = append(out, cur.Add(next.Sub(cur).Scale(t)))
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// Inset moves every vertex toward the centroid by fraction f of its distance
func (p Polygon2D) Inset(f float64) Polygon2D {
	c := p.Centroid()
	out := make(Polygon2D, len(p))
	for i, v := range p {
		out[i] = v.Add(c.Sub(v).Scale(f))
	}
	return out
}

// Translate shifts every vertex by d
func (p Polygon2D) Translate(d Vector2D) Polygon2D {
	out := make(Polygon2D, len(p))
	for i, v := range p {
		out[i] = v.Add(d)
	}
	return out
}

// At returns the ring lifted to elevation z
func (p Polygon2D) At(z float64) Polygon3D {
	out := make(Polygon3D, len(p))
	for i, v := range p {
		out[i] = v.To3D(z)
	}
	return out
}

// Normal returns the unit normal by Newell's method
func (p Polygon3D) Normal() Vector3D {
	var n Vector3D
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n.Normalize()
}

// Plane returns the supporting plane oriented by the ring winding
func (p Polygon3D) Plane() Plane {
	if len(p) == 0 {
		return Plane{}
	}
	return NewPlane(p.Normal(), p.Centroid())
}

// Centroid returns the vertex mean
func (p Polygon3D) Centroid() Vector3D {
	var sum Vector3D
	for _, v := range p {
		sum = sum.Add(v)
	}
	if len(p) == 0 {
		return sum
	}
	return sum.Scale(1 / float64(len(p)))
}

// Bounds returns the 3D bounding box
func (p Polygon3D) Bounds() AABB3D {
	return AABB3DFromPoints(p...)
}

// Reverse returns the ring with the opposite winding
func (p Polygon3D) Reverse() Polygon3D {
	out := make(Polygon3D, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// SegmentIntersects reports whether segment a-b crosses the polygon interior
// and returns the parameter along the segment.
func (p Polygon3D) SegmentIntersects(a, b Vector3D) (float64, bool) {
	if len(p) < 3 {
		return 0, false
	}
	n := p.Normal()
	if n.LengthSquared() == 0 {
		return 0, false
	}
	plane := NewPlane(n, p[0])
	t, ok := plane.SegmentIntersection(a, b)
	if !ok {
		return 0, false
	}
	hit := a.Lerp(b, t)
	return t, p.flatten(n).Contains(flattenPoint(n, hit))
}

// flatten drops the dominant normal axis so the ring can be tested in 2D
func (p Polygon3D) flatten(n Vector3D) Polygon2D {
	out := make(Polygon2D, len(p))
	for i, v := range p {
		out[i] = flattenPoint(n, v)
	}
	return out
}

func flattenPoint(n, v Vector3D) Vector2D {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case az >= ax && az >= ay:
		return Vector2D{X: v.X, Y: v.Y}
	case ay >= ax:
		return Vector2D{X: v.X, Y: v.Z}
	default:
		return Vector2D{X: v.Y, Y: v.Z}
	}
}
