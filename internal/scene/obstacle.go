package scene

import (
	"errors"

	"sightline/internal/core"
)

var (
	// ErrNoGeometry is returned when an obstacle has no usable 3D shape yet
	ErrNoGeometry = errors.New("obstacle has no geometry")
	// ErrNotFound is returned for unknown obstacle ids
	ErrNotFound = errors.New("obstacle not found")
)

// Kind identifies an obstacle family
type Kind uint8

const (
	KindWall Kind = iota
	KindTile
	KindToken
	KindRegion
)

func (k Kind) String() string {
	switch k {
	case KindWall:
		return "wall"
	case KindTile:
		return "tile"
	case KindToken:
		return "token"
	case KindRegion:
		return "region"
	default:
		return "unknown"
	}
}

// Channel is a category of perception, each with its own blocking rules
type Channel uint8

const (
	ChannelSight Channel = iota
	ChannelLight
	ChannelSound
	ChannelMove
)

// ParseChannel maps a channel name, defaulting to sight
func ParseChannel(s string) (Channel, bool) {
	switch s {
	case "sight", "":
		return ChannelSight, true
	case "light":
		return ChannelLight, true
	case "sound":
		return ChannelSound, true
	case "move":
		return ChannelMove, true
	default:
		return ChannelSight, false
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelLight:
		return "light"
	case ChannelSound:
		return "sound"
	case ChannelMove:
		return "move"
	default:
		return "sight"
	}
}

// Restriction describes how an obstacle blocks a channel. The zero value
// blocks normally.
type Restriction uint8

const (
	RestrictNormal Restriction = iota
	RestrictNone
	// RestrictLimited is semi-blocking terrain: a ray must cross two
	RestrictLimited
	// RestrictProximity blocks only beyond a distance from the ray origin
	RestrictProximity
	// RestrictReverseProximity blocks only within a distance from the ray origin
	RestrictReverseProximity
)

// ParseRestriction maps a restriction name
func ParseRestriction(s string) (Restriction, bool) {
	switch s {
	case "normal", "":
		return RestrictNormal, true
	case "none":
		return RestrictNone, true
	case "limited":
		return RestrictLimited, true
	case "proximity":
		return RestrictProximity, true
	case "reverse-proximity":
		return RestrictReverseProximity, true
	default:
		return RestrictNormal, false
	}
}

// Senses holds a restriction per channel
type Senses struct {
	Sight Restriction
	Light Restriction
	Sound Restriction
	Move  Restriction
}

// For returns the restriction for one channel
func (s Senses) For(ch Channel) Restriction {
	switch ch {
	case ChannelLight:
		return s.Light
	case ChannelSound:
		return s.Sound
	case ChannelMove:
		return s.Move
	default:
		return s.Sight
	}
}

// Obstacle is anything that can stand between a viewer and a target
type Obstacle interface {
	ObstacleID() uint64
	Kind() Kind
	Bounds() core.AABB3D
	// Faces returns the boundary polygons. Walls and tiles return a single
	// quad; bodies and zones return a closed prism.
	Faces() ([]core.Polygon3D, error)
}

// Source is the scene collaborator consumed by the visibility engine
type Source interface {
	QueryObstacles(kind Kind, bounds core.AABB3D) []Obstacle
	BackgroundElevation() float64
	GridSize() float64
}

// VolumeQuerier is implemented by sources that can cull bodies against a
// convex volume directly
type VolumeQuerier interface {
	QueryVolume(kind Kind, planes []core.Plane, bounds core.AABB3D) []Obstacle
}

// prismFaces returns the outward-wound faces of a vertical prism over a
// counter-clockwise ring
func prismFaces(ring core.Polygon2D, bottom, top float64) []core.Polygon3D {
	ring = ring.EnsureCCW()
	n := len(ring)
	faces := make([]core.Polygon3D, 0, n+2)

	topFace := ring.At(top)
	faces = append(faces, topFace, ring.At(bottom).Reverse())
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		faces = append(faces, core.Polygon3D{
			a.To3D(bottom), b.To3D(bottom), b.To3D(top), a.To3D(top),
		})
	}
	return faces
}

// segmentHitsPrism reports whether segment p-q passes through the vertical
// prism over ring, and returns the entry parameter.
func segmentHitsPrism(ring core.Polygon2D, bottom, top float64, p, q core.Vector3D) (float64, bool) {
	t0, t1 := 0.0, 1.0
	dz := q.Z - p.Z
	if dz == 0 {
		if p.Z < bottom || p.Z > top {
			return 0, false
		}
	} else {
		ta := (bottom - p.Z) / dz
		tb := (top - p.Z) / dz
		if ta > tb {
			ta, tb = tb, ta
		}
		if ta > t0 {
			t0 = ta
		}
		if tb < t1 {
			t1 = tb
		}
		if t0 > t1 {
			return 0, false
		}
	}

	a := p.Lerp(q, t0).To2D()
	b := p.Lerp(q, t1).To2D()
	if ring.Contains(a) {
		return t0, true
	}

	best, hit := 2.0, false
	ring.Edges(func(e0, e1 core.Vector2D) bool {
		if t, _, ok := core.SegmentIntersection(a, b, e0, e1); ok && t < best {
			best, hit = t, true
		}
		return true
	})
	if !hit {
		return 0, false
	}
	return t0 + (t1-t0)*best, true
}
