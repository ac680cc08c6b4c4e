package scene

import (
	"fmt"
	"math"

	"sightline/internal/core"
)

// WallDirection limits which side of a wall blocks
type WallDirection uint8

const (
	// DirectionBoth blocks from either side
	DirectionBoth WallDirection = iota
	// DirectionLeft blocks only origins on the left of A->B
	DirectionLeft
	// DirectionRight blocks only origins on the right of A->B
	DirectionRight
)

// DoorState of a wall segment
type DoorState uint8

const (
	DoorNone DoorState = iota
	DoorClosed
	DoorOpen
	DoorLocked
)

// Wall is a vertical barrier between two planar endpoints
type Wall struct {
	ID        uint64
	A, B      core.Vector2D
	BottomZ   float64
	TopZ      float64
	Direction WallDirection
	Door      DoorState
	Senses    Senses
	// ProximityDistance is the threshold for proximity restrictions
	ProximityDistance float64
}

// NewWall returns a full-height, always-blocking wall
func NewWall(a, b core.Vector2D) *Wall {
	return &Wall{
		A:       a,
		B:       b,
		BottomZ: math.Inf(-1),
		TopZ:    math.Inf(1),
	}
}

func (w *Wall) ObstacleID() uint64 { return w.ID }

func (w *Wall) Kind() Kind { return KindWall }

// Bounds may be infinite in elevation
func (w *Wall) Bounds() core.AABB3D {
	b := core.Polygon2D{w.A, w.B}.Bounds()
	return b.To3D(w.BottomZ, w.TopZ)
}

// Faces returns the wall quad with its elevation clamped to a finite range
func (w *Wall) Faces() ([]core.Polygon3D, error) {
	q, err := w.Quad(-1e6, 1e6)
	if err != nil || q == nil {
		return nil, err
	}
	return []core.Polygon3D{q}, nil
}

// Quad returns the wall surface with elevation clamped to [minZ, maxZ]
func (w *Wall) Quad(minZ, maxZ float64) (core.Polygon3D, error) {
	if w.A.DistanceSquaredTo(w.B) < core.Epsilon {
		return nil, fmt.Errorf("wall %d: %w", w.ID, ErrNoGeometry)
	}
	bottom := math.Max(w.BottomZ, minZ)
	top := math.Min(w.TopZ, maxZ)
	if top <= bottom {
		return nil, nil
	}
	return core.Polygon3D{
		w.A.To3D(bottom), w.B.To3D(bottom), w.B.To3D(top), w.A.To3D(top),
	}, nil
}

// IsOpen reports whether the wall is an open door
func (w *Wall) IsOpen() bool {
	return w.Door == DoorOpen
}

// FacesAway reports whether a directional wall ignores the given origin
func (w *Wall) FacesAway(origin core.Vector2D) bool {
	side := core.Orientation(w.A, w.B, origin)
	switch w.Direction {
	case DirectionLeft:
		return side <= 0
	case DirectionRight:
		return side >= 0
	default:
		return false
	}
}

// Crossing returns where segment p-q passes through the wall. Touching an
// endpoint of the wall or starting/ending on it does not count.
func (w *Wall) Crossing(p, q core.Vector3D) (core.Vector3D, bool) {
	t, u, ok := core.SegmentIntersection(p.To2D(), q.To2D(), w.A, w.B)
	if !ok {
		return core.Vector3D{}, false
	}
	const edge = 1e-9
	if u <= edge || u >= 1-edge || t <= edge || t >= 1-edge {
		return core.Vector3D{}, false
	}
	hit := p.Lerp(q, t)
	if hit.Z < w.BottomZ || hit.Z > w.TopZ {
		return core.Vector3D{}, false
	}
	return hit, true
}

// Blocks reports whether the wall blocks the segment p-q for a channel,
// resolving proximity restrictions against the segment origin.
func (w *Wall) Blocks(ch Channel, p, q core.Vector3D) bool {
	if w.IsOpen() || w.FacesAway(p.To2D()) {
		return false
	}
	r := w.Senses.For(ch)
	if r == RestrictNone {
		return false
	}
	hit, ok := w.Crossing(p, q)
	if !ok {
		return false
	}
	switch r {
	case RestrictProximity:
		return p.To2D().DistanceTo(hit.To2D()) >= w.ProximityDistance
	case RestrictReverseProximity:
		return p.To2D().DistanceTo(hit.To2D()) < w.ProximityDistance
	default:
		return true
	}
}
