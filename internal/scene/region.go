package scene

import (
	"fmt"

	"sightline/internal/core"
)

// Region is a zone prism with per-channel blocking
type Region struct {
	ID      uint64
	Shape   core.Polygon2D
	BottomZ float64
	TopZ    float64
	Senses  Senses
}

func (r *Region) ObstacleID() uint64 { return r.ID }

func (r *Region) Kind() Kind { return KindRegion }

func (r *Region) Bounds() core.AABB3D {
	return r.Shape.Bounds().To3D(r.BottomZ, r.TopZ)
}

func (r *Region) Faces() ([]core.Polygon3D, error) {
	if len(r.Shape) < 3 || r.Shape.Area() < core.Epsilon || r.TopZ <= r.BottomZ {
		return nil, fmt.Errorf("region %d: %w", r.ID, ErrNoGeometry)
	}
	return prismFaces(r.Shape, r.BottomZ, r.TopZ), nil
}

// Crosses reports whether segment p-q enters the region
func (r *Region) Crosses(p, q core.Vector3D) bool {
	_, ok := segmentHitsPrism(r.Shape, r.BottomZ, r.TopZ, p, q)
	return ok
}
