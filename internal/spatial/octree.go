package spatial

import (
	"fmt"
	"math"

	"sightline/internal/core"
)

const (
	// MaxEntitiesPerOctNode defines when to split an octree node
	MaxEntitiesPerOctNode = 8
	// MaxOctreeDepth defines maximum depth of the octree
	MaxOctreeDepth = 10
)

// Octree indexes volumetric bodies by their 3D bounds.
// Based on "Real-Time Collision Detection" by Christer Ericson.
type Octree struct {
	bounds   core.AABB3D
	entities map[uint64]*core.Entity3D
	overflow map[uint64]*core.Entity3D
	root     *octNode
}

// octNode represents a node in the octree
type octNode struct {
	bounds   core.AABB3D
	entities map[uint64]*core.Entity3D
	children [8]*octNode // Octants: [NWU, NEU, SWU, SEU, NWD, NED, SWD, SED]
	depth    int
}

// NewOctree creates a new octree with the given bounds
func NewOctree(bounds core.AABB3D) *Octree {
	return &Octree{
		bounds:   bounds,
		entities: make(map[uint64]*core.Entity3D),
		overflow: make(map[uint64]*core.Entity3D),
		root:     newOctNode(bounds, 0),
	}
}

func newOctNode(bounds core.AABB3D, depth int) *octNode {
	return &octNode{
		bounds:   bounds,
		entities: make(map[uint64]*core.Entity3D),
		depth:    depth,
	}
}

// Insert adds an entity to the octree
func (ot *Octree) Insert(entity *core.Entity3D) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, exists := ot.entities[entity.ID]; exists {
		return fmt.Errorf("entity with id %d already indexed", entity.ID)
	}

	ot.entities[entity.ID] = entity
	if !ot.bounds.ContainsBox(entity.Bounds) {
		ot.overflow[entity.ID] = entity
		return nil
	}
	ot.root.insert(entity)
	return nil
}

// Remove removes an entity from the octree
func (ot *Octree) Remove(id uint64) error {
	entity, exists := ot.entities[id]
	if !exists {
		return fmt.Errorf("entity with id %d not found", id)
	}

	delete(ot.entities, id)
	if _, over := ot.overflow[id]; over {
		delete(ot.overflow, id)
		return nil
	}
	ot.root.remove(entity)
	return nil
}

// Update re-indexes an entity whose bounds changed
func (ot *Octree) Update(entity *core.Entity3D) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, exists := ot.entities[entity.ID]; exists {
		if err := ot.Remove(entity.ID); err != nil {
			return err
		}
	}
	return ot.Insert(entity)
}

// Query returns all entities whose bounds touch the given bounds
func (ot *Octree) Query(bounds core.AABB3D) []*core.Entity3D {
	var results []*core.Entity3D
	ot.root.query(bounds, &results)
	for _, entity := range ot.overflow {
		if bounds.Intersects(entity.Bounds) {
			results = append(results, entity)
		}
	}
	return results
}

// QuerySphere returns all entities whose bounds touch the given sphere
func (ot *Octree) QuerySphere(center core.Vector3D, radius float64) []*core.Entity3D {
	bounds := core.AABB3D{
		Min: core.Vector3D{X: center.X - radius, Y: center.Y - radius, Z: center.Z - radius},
		Max: core.Vector3D{X: center.X + radius, Y: center.Y + radius, Z: center.Z + radius},
	}

	var results []*core.Entity3D
	for _, entity := range ot.Query(bounds) {
		if sphereIntersectsAABB(center, radius, entity.Bounds) {
			results = append(results, entity)
		}
	}
	return results
}

// QueryConvex returns all entities whose bounds may touch the convex volume
// described by planes with outward normals. The test is conservative: a box
// is rejected only when it lies entirely outside one plane.
func (ot *Octree) QueryConvex(planes []core.Plane) []*core.Entity3D {
	var results []*core.Entity3D
	ot.root.queryConvex(planes, &results)
	for _, entity := range ot.overflow {
		if !outsideAny(planes, entity.Bounds) {
			results = append(results, entity)
		}
	}
	return results
}

// Len returns the number of indexed entities
func (ot *Octree) Len() int {
	return len(ot.entities)
}

// Clear removes all entities from the octree
func (ot *Octree) Clear() {
	ot.entities = make(map[uint64]*core.Entity3D)
	ot.overflow = make(map[uint64]*core.Entity3D)
	ot.root = newOctNode(ot.bounds, 0)
}

func (on *octNode) insert(entity *core.Entity3D) {
	if on.children[0] != nil {
		if childIndex := on.getChildIndex(entity.Bounds); childIndex != -1 {
			on.children[childIndex].insert(entity)
			return
		}
	}

	on.entities[entity.ID] = entity

	if len(on.entities) > MaxEntitiesPerOctNode && on.depth < MaxOctreeDepth && on.children[0] == nil {
		on.split()
	}
}

func (on *octNode) remove(entity *core.Entity3D) bool {
	if _, ok := on.entities[entity.ID]; ok {
		delete(on.entities, entity.ID)
		return true
	}
	if on.children[0] == nil {
		return false
	}
	if childIndex := on.getChildIndex(entity.Bounds); childIndex != -1 {
		return on.children[childIndex].remove(entity)
	}
	return false
}

func (on *octNode) query(bounds core.AABB3D, results *[]*core.Entity3D) {
	for _, entity := range on.entities {
		if bounds.Intersects(entity.Bounds) {
			*results = append(*results, entity)
		}
	}

	if on.children[0] == nil {
		return
	}
	for _, child := range on.children {
		if bounds.Intersects(child.bounds) {
			child.query(bounds, results)
		}
	}
}

func (on *octNode) queryConvex(planes []core.Plane, results *[]*core.Entity3D) {
	if outsideAny(planes, on.bounds) {
		return
	}

	for _, entity := range on.entities {
		if !outsideAny(planes, entity.Bounds) {
			*results = append(*results, entity)
		}
	}

	if on.children[0] == nil {
		return
	}
	for _, child := range on.children {
		child.queryConvex(planes, results)
	}
}

// split divides this node into eight children
func (on *octNode) split() {
	b := on.bounds
	mid := b.Center()

	childBounds := [8]core.AABB3D{
		// Upper octants (Z > mid.Z)
		{Min: core.Vector3D{X: b.Min.X, Y: mid.Y, Z: mid.Z}, Max: core.Vector3D{X: mid.X, Y: b.Max.Y, Z: b.Max.Z}}, // NWU
		{Min: mid, Max: b.Max}, // NEU
		{Min: core.Vector3D{X: b.Min.X, Y: b.Min.Y, Z: mid.Z}, Max: core.Vector3D{X: mid.X, Y: mid.Y, Z: b.Max.Z}}, // SWU
		{Min: core.Vector3D{X: mid.X, Y: b.Min.Y, Z: mid.Z}, Max: core.Vector3D{X: b.Max.X, Y: mid.Y, Z: b.Max.Z}}, // SEU

		// Lower octants (Z < mid.Z)
		{Min: core.Vector3D{X: b.Min.X, Y: mid.Y, Z: b.Min.Z}, Max: core.Vector3D{X: mid.X, Y: b.Max.Y, Z: mid.Z}}, // NWD
		{Min: core.Vector3D{X: mid.X, Y: mid.Y, Z: b.Min.Z}, Max: core.Vector3D{X: b.Max.X, Y: b.Max.Y, Z: mid.Z}}, // NED
		{Min: b.Min, Max: mid}, // SWD
		{Min: core.Vector3D{X: mid.X, Y: b.Min.Y, Z: b.Min.Z}, Max: core.Vector3D{X: b.Max.X, Y: mid.Y, Z: mid.Z}}, // SED
	}

	for i := range on.children {
		on.children[i] = newOctNode(childBounds[i], on.depth+1)
	}

	for id, entity := range on.entities {
		if childIndex := on.getChildIndex(entity.Bounds); childIndex != -1 {
			on.children[childIndex].insert(entity)
			delete(on.entities, id)
		}
	}
}

func (on *octNode) getChildIndex(bounds core.AABB3D) int {
	if on.children[0] == nil {
		return -1
	}
	for i, child := range on.children {
		if child.bounds.ContainsBox(bounds) {
			return i
		}
	}
	return -1
}

// outsideAny reports whether the box lies entirely on the outer side of
// one of the planes
func outsideAny(planes []core.Plane, bounds core.AABB3D) bool {
	for _, plane := range planes {
		// Negative vertex: the corner furthest against the plane normal
		nv := bounds.Max
		if plane.Normal.X >= 0 {
			nv.X = bounds.Min.X
		}
		if plane.Normal.Y >= 0 {
			nv.Y = bounds.Min.Y
		}
		if plane.Normal.Z >= 0 {
			nv.Z = bounds.Min.Z
		}
		if plane.SignedDistance(nv) > core.Epsilon {
			return true
		}
	}
	return false
}

func sphereIntersectsAABB(center core.Vector3D, radius float64, aabb core.AABB3D) bool {
	closest := core.Vector3D{
		X: math.Max(aabb.Min.X, math.Min(center.X, aabb.Max.X)),
		Y: math.Max(aabb.Min.Y, math.Min(center.Y, aabb.Max.Y)),
		Z: math.Max(aabb.Min.Z, math.Min(center.Z, aabb.Max.Z)),
	}
	return center.DistanceSquaredTo(closest) <= radius*radius
}
