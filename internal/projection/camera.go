// Package projection maps scene geometry onto the image plane of a camera
// looking from a viewpoint at a target.
package projection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"sightline/internal/core"
)

// ViewportScale maps normalized device coordinates to image-plane units
const ViewportScale = 1000.0

// maxHalfAngle caps the field of view for targets that nearly surround the eye
const maxHalfAngle = 80 * math.Pi / 180

// Point is a projected vertex
type Point struct {
	// X, Y are normalized device coordinates
	X, Y float64
	// W is the distance in front of the camera
	W float64
	// U, V carry texture coordinates through clipping
	U, V float64
}

// Screen returns the point in image-plane units
func (p Point) Screen() core.Vector2D {
	return core.Vector2D{X: p.X * ViewportScale, Y: p.Y * ViewportScale}
}

// Vertex is a scene-space vertex with texture coordinates
type Vertex struct {
	P    core.Vector3D
	U, V float64
}

// Camera is a look-at view plus a symmetric perspective
type Camera struct {
	Eye  core.Vector3D
	Near float64
	Far  float64

	view     *mat.Dense
	proj     *mat.Dense
	viewProj *mat.Dense
}

// NewCamera aims at center and widens the field of view until a sphere of
// the given radius around center fits the image
func NewCamera(eye, center core.Vector3D, radius float64) *Camera {
	dist := eye.DistanceTo(center)
	half := maxHalfAngle
	if dist > core.Epsilon && radius < dist {
		half = math.Min(math.Asin(radius/dist)*1.05, maxHalfAngle)
	}
	near := math.Max(math.Min(1, dist*0.001), 1e-4)
	far := math.Max(2*(dist+radius), near+1)

	c := &Camera{
		Eye:  eye,
		Near: near,
		Far:  far,
		view: LookAt(eye, center),
		proj: Perspective(half*2, 1, near, far),
	}
	c.viewProj = mat.NewDense(4, 4, nil)
	c.viewProj.Mul(c.proj, c.view)
	return c
}

// LookAt returns the view matrix for a camera at eye looking at center with
// +Z up. A vertical view axis falls back to +Y up.
func LookAt(eye, center core.Vector3D) *mat.Dense {
	f := center.Sub(eye).Normalize()
	if f.LengthSquared() == 0 {
		f = core.Vector3D{X: 1}
	}
	up := core.Vector3D{Z: 1}
	if f.Cross(up).LengthSquared() < 1e-12 {
		up = core.Vector3D{Y: 1}
	}
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return mat.NewDense(4, 4, []float64{
		s.X, s.Y, s.Z, -s.Dot(eye),
		u.X, u.Y, u.Z, -u.Dot(eye),
		-f.X, -f.Y, -f.Z, f.Dot(eye),
		0, 0, 0, 1,
	})
}

// Perspective returns a right-handed projection matrix
func Perspective(fovY, aspect, near, far float64) *mat.Dense {
	f := 1 / math.Tan(fovY/2)
	return mat.NewDense(4, 4, []float64{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) / (near - far), 2 * far * near / (near - far),
		0, 0, -1, 0,
	})
}

// ToView transforms a scene point into camera space. The camera looks down -Z.
func (c *Camera) ToView(p core.Vector3D) core.Vector3D {
	v := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	out := mat.NewVecDense(4, nil)
	out.MulVec(c.view, v)
	return core.Vector3D{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Depth returns the distance of p in front of the camera
func (c *Camera) Depth(p core.Vector3D) float64 {
	return -c.ToView(p).Z
}

// Project maps a scene point in front of the near plane to device
// coordinates
func (c *Camera) Project(p core.Vector3D) Point {
	v := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	h := mat.NewVecDense(4, nil)
	h.MulVec(c.viewProj, v)
	w := h.AtVec(3)
	if w < c.Near {
		w = c.Near
	}
	return Point{X: h.AtVec(0) / w, Y: h.AtVec(1) / w, W: w}
}

// ProjectVertices clips a polygon against the near plane and projects what
// remains. Returns nil when nothing is in front of the camera.
func (c *Camera) ProjectVertices(verts []Vertex) []Point {
	clipped := c.clipNear(verts)
	if len(clipped) < 3 {
		return nil
	}
	out := make([]Point, len(clipped))
	for i, v := range clipped {
		pt := c.Project(v.P)
		pt.U, pt.V = v.U, v.V
		out[i] = pt
	}
	return out
}

// ProjectPolygon clips and projects a polygon into image-plane units
func (c *Camera) ProjectPolygon(poly core.Polygon3D) core.Polygon2D {
	pts := c.ProjectVertices(Vertices(poly))
	if pts == nil {
		return nil
	}
	out := make(core.Polygon2D, len(pts))
	for i, p := range pts {
		out[i] = p.Screen()
	}
	return out
}

// clipNear keeps the part of the polygon at least Near in front of the eye
func (c *Camera) clipNear(verts []Vertex) []Vertex {
	return clip(verts, func(p core.Vector3D) float64 {
		return c.Near - c.Depth(p)
	})
}

// ClipPlane keeps the part of the polygon on the inner side of an
// outward-facing plane
func ClipPlane(verts []Vertex, plane core.Plane) []Vertex {
	return clip(verts, plane.SignedDistance)
}

// Vertices wraps a polygon without texture coordinates
func Vertices(poly core.Polygon3D) []Vertex {
	out := make([]Vertex, len(poly))
	for i, p := range poly {
		out[i] = Vertex{P: p}
	}
	return out
}

// clip is one Sutherland-Hodgman pass keeping vertices where dist <= 0
func clip(verts []Vertex, dist func(core.Vector3D) float64) []Vertex {
	if len(verts) == 0 {
		return nil
	}
	d := make([]float64, len(verts))
	allIn := true
	for i, v := range verts {
		d[i] = dist(v.P)
		if d[i] > 0 {
			allIn = false
		}
	}
	if allIn {
		return verts
	}

	var out []Vertex
	n := len(verts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a, b := verts[i], verts[j]
		da, db := d[i], d[j]
		if da <= 0 {
			out = append(out, a)
		}
		if (da <= 0) != (db <= 0) {
			t := da / (da - db)
			out = append(out, Vertex{
				P: a.P.Lerp(b.P, t),
				U: a.U + (b.U-a.U)*t,
				V: a.V + (b.V-a.V)*t,
			})
		}
	}
	return out
}
