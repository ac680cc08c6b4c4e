package spatial

import (
	"testing"

	"sightline/internal/core"
)

func box(id uint64, cx, cy, cz, half float64) *core.Entity3D {
	return &core.Entity3D{
		ID: id,
		Bounds: core.AABB3D{
			Min: core.Vector3D{X: cx - half, Y: cy - half, Z: cz - half},
			Max: core.Vector3D{X: cx + half, Y: cy + half, Z: cz + half},
		},
	}
}

func TestOctreeBasicOperations(t *testing.T) {
	octree := NewOctree(core.AABB3D{
		Min: core.Vector3D{X: -50, Y: -50, Z: -50},
		Max: core.Vector3D{X: 50, Y: 50, Z: 50},
	})

	entity := box(1, 10, 10, 10, 1)
	if err := octree.Insert(entity); err != nil {
		t.Fatalf("Failed to insert entity: %v", err)
	}

	queryBounds := core.AABB3D{
		Min: core.Vector3D{X: 5, Y: 5, Z: 5},
		Max: core.Vector3D{X: 15, Y: 15, Z: 15},
	}
	results := octree.Query(queryBounds)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].ID != entity.ID {
		t.Fatalf("Expected entity ID %d, got %d", entity.ID, results[0].ID)
	}

	if err := octree.Remove(entity.ID); err != nil {
		t.Fatalf("Failed to remove entity: %v", err)
	}
	if results = octree.Query(queryBounds); len(results) != 0 {
		t.Fatalf("Expected 0 results after removal, got %d", len(results))
	}
}

func TestOctreeSphereQuery(t *testing.T) {
	octree := NewOctree(core.AABB3D{
		Min: core.Vector3D{X: -50, Y: -50, Z: -50},
		Max: core.Vector3D{X: 50, Y: 50, Z: 50},
	})

	for _, e := range []*core.Entity3D{box(1, 0, 0, 0, 1), box(2, 5, 0, 0, 1), box(3, 20, 0, 0, 1)} {
		if err := octree.Insert(e); err != nil {
			t.Fatalf("Failed to insert entity %d: %v", e.ID, err)
		}
	}

	results := octree.QuerySphere(core.Vector3D{}, 8)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results within sphere, got %d", len(results))
	}
}

func TestOctreeConvexQuery(t *testing.T) {
	octree := NewOctree(core.AABB3D{
		Min: core.Vector3D{X: -100, Y: -100, Z: -100},
		Max: core.Vector3D{X: 100, Y: 100, Z: 100},
	})

	// Enough entries to force splits
	var id uint64
	for x := -90.0; x <= 90; x += 20 {
		for y := -90.0; y <= 90; y += 20 {
			id++
			if err := octree.Insert(box(id, x, y, 0, 2)); err != nil {
				t.Fatalf("Failed to insert entity %d: %v", id, err)
			}
		}
	}

	// Half-space x <= 0 and y <= 0 with outward normals
	planes := []core.Plane{
		core.NewPlane(core.Vector3D{X: 1}, core.Vector3D{}),
		core.NewPlane(core.Vector3D{Y: 1}, core.Vector3D{}),
	}

	results := octree.QueryConvex(planes)
	if len(results) != 25 {
		t.Fatalf("Expected 25 entities in the lower-left quadrant, got %d", len(results))
	}
	for _, e := range results {
		if e.Bounds.Min.X > 0 || e.Bounds.Min.Y > 0 {
			t.Fatalf("Entity %d outside the convex volume: %+v", e.ID, e.Bounds)
		}
	}
}

func TestOctreeUpdate(t *testing.T) {
	octree := NewOctree(core.AABB3D{
		Min: core.Vector3D{X: -50, Y: -50, Z: -50},
		Max: core.Vector3D{X: 50, Y: 50, Z: 50},
	})

	if err := octree.Insert(box(1, 0, 0, 0, 1)); err != nil {
		t.Fatalf("Failed to insert entity: %v", err)
	}
	if err := octree.Update(box(1, 30, 30, 30, 1)); err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}

	if got := len(octree.QuerySphere(core.Vector3D{}, 5)); got != 0 {
		t.Fatalf("Expected old position to be empty, got %d", got)
	}
	if got := len(octree.QuerySphere(core.Vector3D{X: 30, Y: 30, Z: 30}, 5)); got != 1 {
		t.Fatalf("Expected entity at new position, got %d", got)
	}
}
