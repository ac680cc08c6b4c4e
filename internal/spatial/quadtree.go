package spatial

import (
	"fmt"

	"sightline/internal/core"
)

const (
	// MaxEntitiesPerNode defines when to split a quadtree node
	MaxEntitiesPerNode = 10
	// MaxDepth defines maximum depth of the quadtree
	MaxDepth = 8
)

// QuadTree indexes planar footprints of scene obstacles.
// Entries that extend past the tree bounds are kept in an overflow set and
// checked on every query, so walls running off the edge of a scene are
// never lost.
type QuadTree struct {
	bounds   core.AABB
	entities map[uint64]*core.Entity
	overflow map[uint64]*core.Entity
	root     *quadNode
}

var _ core.SpatialIndex = (*QuadTree)(nil)

// quadNode represents a node in the quadtree
type quadNode struct {
	bounds   core.AABB
	entities map[uint64]*core.Entity
	children [4]*quadNode // NW, NE, SW, SE
	depth    int
}

// NewQuadTree creates a new quadtree with the given bounds
func NewQuadTree(bounds core.AABB) *QuadTree {
	return &QuadTree{
		bounds:   bounds,
		entities: make(map[uint64]*core.Entity),
		overflow: make(map[uint64]*core.Entity),
		root:     newQuadNode(bounds, 0),
	}
}

func newQuadNode(bounds core.AABB, depth int) *quadNode {
	return &quadNode{
		bounds:   bounds,
		entities: make(map[uint64]*core.Entity),
		depth:    depth,
	}
}

// Insert adds an entity to the quadtree
func (qt *QuadTree) Insert(entity *core.Entity) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, exists := qt.entities[entity.ID]; exists {
		return fmt.Errorf("entity with id %d already indexed", entity.ID)
	}

	qt.entities[entity.ID] = entity
	if !contains(qt.bounds, entity.Bounds) {
		qt.overflow[entity.ID] = entity
		return nil
	}
	qt.root.insert(entity)
	return nil
}

// Remove removes an entity from the quadtree
func (qt *QuadTree) Remove(id uint64) error {
	entity, exists := qt.entities[id]
	if !exists {
		return fmt.Errorf("entity with id %d not found", id)
	}

	delete(qt.entities, id)
	if _, over := qt.overflow[id]; over {
		delete(qt.overflow, id)
		return nil
	}
	qt.root.remove(entity)
	return nil
}

// Update re-indexes an entity whose bounds changed
func (qt *QuadTree) Update(entity *core.Entity) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, exists := qt.entities[entity.ID]; exists {
		if err := qt.Remove(entity.ID); err != nil {
			return err
		}
	}
	return qt.Insert(entity)
}

// Query returns all entities whose bounds touch the given bounds.
// Zero-width bounds (an axis-aligned wall) are matched inclusively.
func (qt *QuadTree) Query(bounds core.AABB) []*core.Entity {
	var results []*core.Entity
	qt.root.query(bounds, &results)
	for _, entity := range qt.overflow {
		if bounds.Intersects(entity.Bounds) {
			results = append(results, entity)
		}
	}
	return results
}

// Len returns the number of indexed entities
func (qt *QuadTree) Len() int {
	return len(qt.entities)
}

// Clear removes all entities from the quadtree
func (qt *QuadTree) Clear() {
	qt.entities = make(map[uint64]*core.Entity)
	qt.overflow = make(map[uint64]*core.Entity)
	qt.root = newQuadNode(qt.bounds, 0)
}

// insert adds an entity to this node or its children
func (qn *quadNode) insert(entity *core.Entity) {
	if qn.children[0] != nil {
		if childIndex := qn.getChildIndex(entity.Bounds); childIndex != -1 {
			qn.children[childIndex].insert(entity)
			return
		}
	}

	qn.entities[entity.ID] = entity

	if len(qn.entities) > MaxEntitiesPerNode && qn.depth < MaxDepth && qn.children[0] == nil {
		qn.split()
	}
}

// remove removes an entity from this node or its children
func (qn *quadNode) remove(entity *core.Entity) bool {
	if _, ok := qn.entities[entity.ID]; ok {
		delete(qn.entities, entity.ID)
		return true
	}
	if qn.children[0] == nil {
		return false
	}
	if childIndex := qn.getChildIndex(entity.Bounds); childIndex != -1 {
		return qn.children[childIndex].remove(entity)
	}
	return false
}

// query collects entities touching bounds from this subtree
func (qn *quadNode) query(bounds core.AABB, results *[]*core.Entity) {
	for _, entity := range qn.entities {
		if bounds.Intersects(entity.Bounds) {
			*results = append(*results, entity)
		}
	}

	if qn.children[0] == nil {
		return
	}
	for _, child := range qn.children {
		if bounds.Intersects(child.bounds) {
			child.query(bounds, results)
		}
	}
}

// split divides this node into four children and pushes down what fits
func (qn *quadNode) split() {
	midX := (qn.bounds.Min.X + qn.bounds.Max.X) / 2
	midY := (qn.bounds.Min.Y + qn.bounds.Max.Y) / 2

	childBounds := [4]core.AABB{
		{Min: core.Vector2D{X: qn.bounds.Min.X, Y: midY}, Max: core.Vector2D{X: midX, Y: qn.bounds.Max.Y}}, // NW
		{Min: core.Vector2D{X: midX, Y: midY}, Max: qn.bounds.Max},                                         // NE
		{Min: qn.bounds.Min, Max: core.Vector2D{X: midX, Y: midY}},                                         // SW
		{Min: core.Vector2D{X: midX, Y: qn.bounds.Min.Y}, Max: core.Vector2D{X: qn.bounds.Max.X, Y: midY}}, // SE
	}

	for i := range qn.children {
		qn.children[i] = newQuadNode(childBounds[i], qn.depth+1)
	}

	for id, entity := range qn.entities {
		if childIndex := qn.getChildIndex(entity.Bounds); childIndex != -1 {
			qn.children[childIndex].insert(entity)
			delete(qn.entities, id)
		}
	}
}

// getChildIndex returns which child quadrant fully contains the bounds
func (qn *quadNode) getChildIndex(bounds core.AABB) int {
	if qn.children[0] == nil {
		return -1
	}
	for i, child := range qn.children {
		if contains(child.bounds, bounds) {
			return i
		}
	}
	return -1
}

func contains(container, bounds core.AABB) bool {
	return bounds.Min.X >= container.Min.X && bounds.Max.X <= container.Max.X &&
		bounds.Min.Y >= container.Min.Y && bounds.Max.Y <= container.Max.Y
}

