package core

import "math"

// Epsilon is the tolerance used by geometric comparisons
const Epsilon = 1e-8

// Vector2D represents a planar coordinate/vector
type Vector2D struct {
	X, Y float64
}

// Vector3D represents a 3D coordinate/vector. Z is elevation.
type Vector3D struct {
	X, Y, Z float64
}

// AABB (Axis-Aligned Bounding Box) represents a planar rectangular boundary
type AABB struct {
	Min, Max Vector2D
}

// AABB3D represents a 3D axis-aligned bounding box
type AABB3D struct {
	Min, Max Vector3D
}

// Plane is the set of points p with Normal·p + Distance = 0.
// Points with a positive signed distance lie on the side the normal points to.
type Plane struct {
	Normal   Vector3D
	Distance float64
}

// Entity is a planar spatial index entry
type Entity struct {
	ID     uint64
	Bounds AABB
	Data   interface{}
}

// Entity3D is a 3D spatial index entry
type Entity3D struct {
	ID     uint64
	Bounds AABB3D
	Data   interface{}
}

// SpatialIndex interface for planar spatial data structures
type SpatialIndex interface {
	Insert(entity *Entity) error
	Remove(id uint64) error
	Update(entity *Entity) error
	Query(bounds AABB) []*Entity
	Clear()
}

// AlmostEqual reports whether a and b differ by at most Epsilon
func AlmostEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// Clamp restricts v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
