package spatial

import (
	"testing"

	"sightline/internal/core"
)

func wallEntry(id uint64, a, b core.Vector2D) *core.Entity {
	return &core.Entity{ID: id, Bounds: core.Polygon2D{a, b}.Bounds()}
}

func TestQuadTreeBasicOperations(t *testing.T) {
	bounds := core.AABB{
		Min: core.Vector2D{X: -50, Y: -50},
		Max: core.Vector2D{X: 50, Y: 50},
	}
	qt := NewQuadTree(bounds)

	entity := &core.Entity{
		ID:     1,
		Bounds: core.AABB{Min: core.Vector2D{X: 9, Y: 9}, Max: core.Vector2D{X: 11, Y: 11}},
	}
	if err := qt.Insert(entity); err != nil {
		t.Fatalf("Failed to insert entity: %v", err)
	}
	if err := qt.Insert(entity); err == nil {
		t.Fatalf("Expected duplicate insert to fail")
	}

	queryBounds := core.AABB{
		Min: core.Vector2D{X: 5, Y: 5},
		Max: core.Vector2D{X: 15, Y: 15},
	}
	results := qt.Query(queryBounds)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].ID != entity.ID {
		t.Fatalf("Expected entity ID %d, got %d", entity.ID, results[0].ID)
	}

	if err := qt.Remove(entity.ID); err != nil {
		t.Fatalf("Failed to remove entity: %v", err)
	}
	if results = qt.Query(queryBounds); len(results) != 0 {
		t.Fatalf("Expected 0 results after removal, got %d", len(results))
	}
}

func TestQuadTreeZeroWidthWall(t *testing.T) {
	qt := NewQuadTree(core.AABB{Min: core.Vector2D{X: 0, Y: 0}, Max: core.Vector2D{X: 1000, Y: 1000}})

	// Vertical wall: its bounds have no width
	if err := qt.Insert(wallEntry(1, core.Vector2D{X: 500, Y: 0}, core.Vector2D{X: 500, Y: 200})); err != nil {
		t.Fatalf("Failed to insert wall: %v", err)
	}

	results := qt.Query(core.AABB{Min: core.Vector2D{X: 400, Y: 50}, Max: core.Vector2D{X: 600, Y: 60}})
	if len(results) != 1 {
		t.Fatalf("Expected the zero-width wall to be found, got %d results", len(results))
	}
}

func TestQuadTreeOverflow(t *testing.T) {
	qt := NewQuadTree(core.AABB{Min: core.Vector2D{X: 0, Y: 0}, Max: core.Vector2D{X: 100, Y: 100}})

	// Runs off the scene edge
	if err := qt.Insert(wallEntry(7, core.Vector2D{X: 50, Y: 50}, core.Vector2D{X: 500, Y: 50})); err != nil {
		t.Fatalf("Failed to insert wall: %v", err)
	}

	if got := len(qt.Query(core.AABB{Min: core.Vector2D{X: 300, Y: 0}, Max: core.Vector2D{X: 400, Y: 100}})); got != 1 {
		t.Fatalf("Expected overflow entry in results, got %d", got)
	}
	if err := qt.Remove(7); err != nil {
		t.Fatalf("Failed to remove overflow entry: %v", err)
	}
	if qt.Len() != 0 {
		t.Fatalf("Expected empty tree, got %d entries", qt.Len())
	}
}

func TestQuadTreeSplitAndUpdate(t *testing.T) {
	qt := NewQuadTree(core.AABB{Min: core.Vector2D{X: 0, Y: 0}, Max: core.Vector2D{X: 1000, Y: 1000}})

	for i := 0; i < 50; i++ {
		x := float64(i * 20)
		e := &core.Entity{ID: uint64(i + 1), Bounds: core.AABB{Min: core.Vector2D{X: x, Y: x}, Max: core.Vector2D{X: x + 5, Y: x + 5}}}
		if err := qt.Insert(e); err != nil {
			t.Fatalf("Failed to insert entity %d: %v", e.ID, err)
		}
	}

	moved := &core.Entity{ID: 1, Bounds: core.AABB{Min: core.Vector2D{X: 900, Y: 100}, Max: core.Vector2D{X: 905, Y: 105}}}
	if err := qt.Update(moved); err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}

	if got := len(qt.Query(core.AABB{Min: core.Vector2D{X: 0, Y: 0}, Max: core.Vector2D{X: 10, Y: 10}})); got != 0 {
		t.Fatalf("Expected old position to be empty, got %d", got)
	}
	if got := len(qt.Query(core.AABB{Min: core.Vector2D{X: 890, Y: 90}, Max: core.Vector2D{X: 910, Y: 110}})); got != 1 {
		t.Fatalf("Expected moved entity at new position, got %d", got)
	}
	if qt.Len() != 50 {
		t.Fatalf("Expected 50 entries, got %d", qt.Len())
	}
}
