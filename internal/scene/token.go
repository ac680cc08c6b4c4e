package scene

import (
	"fmt"
	"math"

	"sightline/internal/core"
)

// Token is a volumetric body: a convex footprint extruded between two
// elevations. Tokens act as viewers, targets and obstacles.
type Token struct {
	ID        uint64
	Name      string
	Footprint core.Polygon2D
	BottomZ   float64
	TopZ      float64
	// Facing is the direction the token looks toward, in radians
	Facing float64
	// ConeOfVision is the full vision angle in radians; 0 or >= 2π is unlimited
	ConeOfVision float64
	Dead         bool
	Prone        bool
}

// NewSquareToken returns a token with a square footprint centered on center
func NewSquareToken(center core.Vector2D, size, bottomZ, topZ float64) *Token {
	h := size / 2
	return &Token{
		Footprint: core.Rect(core.AABB{
			Min: core.Vector2D{X: center.X - h, Y: center.Y - h},
			Max: core.Vector2D{X: center.X + h, Y: center.Y + h},
		}),
		BottomZ: bottomZ,
		TopZ:    topZ,
	}
}

func (t *Token) ObstacleID() uint64 { return t.ID }

func (t *Token) Kind() Kind { return KindToken }

func (t *Token) Bounds() core.AABB3D {
	return t.Footprint.Bounds().To3D(t.BottomZ, t.TopZ)
}

func (t *Token) Faces() ([]core.Polygon3D, error) {
	if len(t.Footprint) < 3 || t.Footprint.Area() < core.Epsilon {
		return nil, fmt.Errorf("token %d: %w", t.ID, ErrNoGeometry)
	}
	return prismFaces(t.Footprint, t.BottomZ, t.TopZ), nil
}

// Center returns the planar footprint centroid
func (t *Token) Center() core.Vector2D {
	return t.Footprint.Centroid()
}

// Center3D returns the volumetric center
func (t *Token) Center3D() core.Vector3D {
	return t.Center().To3D(t.MidZ())
}

// MidZ returns the elevation halfway up the body
func (t *Token) MidZ() float64 {
	return (t.BottomZ + t.TopZ) / 2
}

// Height returns the vertical extent
func (t *Token) Height() float64 {
	return t.TopZ - t.BottomZ
}

// Corners returns the footprint vertices in counter-clockwise order
func (t *Token) Corners() []core.Vector2D {
	return t.Footprint.EnsureCCW()
}

// SideMidpoints returns the midpoint of every footprint edge
func (t *Token) SideMidpoints() []core.Vector2D {
	ring := t.Footprint.EnsureCCW()
	out := make([]core.Vector2D, len(ring))
	for i := range ring {
		out[i] = ring[i].Add(ring[(i+1)%len(ring)]).Scale(0.5)
	}
	return out
}

// ElevationFor returns the elevation of a depth class
func (t *Token) ElevationFor(d DepthClass) float64 {
	switch d {
	case DepthBottom:
		return t.BottomZ
	case DepthMid:
		return t.MidZ()
	default:
		return t.TopZ
	}
}

// WithTopZ returns a copy with a different top elevation
func (t *Token) WithTopZ(top float64) *Token {
	c := *t
	c.TopZ = top
	return &c
}

// WithFootprint returns a copy with a different footprint
func (t *Token) WithFootprint(fp core.Polygon2D) *Token {
	c := *t
	c.Footprint = fp
	return &c
}

// UnlimitedVision reports whether the cone covers every direction
func (t *Token) UnlimitedVision() bool {
	return t.ConeOfVision <= 0 || t.ConeOfVision >= 2*math.Pi-core.Epsilon
}

// InCone reports whether a planar point falls inside the vision cone seen
// from origin
func (t *Token) InCone(origin, p core.Vector2D) bool {
	if t.UnlimitedVision() {
		return true
	}
	d := p.Sub(origin)
	if d.LengthSquared() < core.Epsilon {
		return true
	}
	delta := math.Remainder(d.Angle()-t.Facing, 2*math.Pi)
	return math.Abs(delta) <= t.ConeOfVision/2+core.Epsilon
}

// ContainsPoint reports whether p lies inside the body
func (t *Token) ContainsPoint(p core.Vector3D) bool {
	return p.Z >= t.BottomZ && p.Z <= t.TopZ && t.Footprint.Contains(p.To2D())
}

// Blocks reports whether segment p-q passes through the body
func (t *Token) Blocks(p, q core.Vector3D) bool {
	_, ok := segmentHitsPrism(t.Footprint, t.BottomZ, t.TopZ, p, q)
	return ok
}
