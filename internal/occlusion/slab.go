package occlusion

import (
	"math"

	"sightline/internal/core"
)

// segmentHitsBox clips segment p-q against the three axis slabs of box.
// It is the broad phase in front of the exact prism tests.
func segmentHitsBox(p, q core.Vector3D, box core.AABB3D) bool {
	tMin, tMax := 0.0, 1.0
	d := q.Sub(p)

	for axis := 0; axis < 3; axis++ {
		var origin, dir, slabMin, slabMax float64
		switch axis {
		case 0:
			origin, dir, slabMin, slabMax = p.X, d.X, box.Min.X, box.Max.X
		case 1:
			origin, dir, slabMin, slabMax = p.Y, d.Y, box.Min.Y, box.Max.Y
		case 2:
			origin, dir, slabMin, slabMax = p.Z, d.Z, box.Min.Z, box.Max.Z
		}

		if math.Abs(dir) < core.Epsilon {
			// Parallel to the slab
			if origin < slabMin || origin > slabMax {
				return false
			}
			continue
		}

		t1 := (slabMin - origin) / dir
		t2 := (slabMax - origin) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}
