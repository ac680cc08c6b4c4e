package scene

import (
	"fmt"
	"image"
	"math"
	"reflect"
	"sync"
	"sync/atomic"

	"sightline/internal/core"
	"sightline/internal/spatial"
)

// Manager holds the obstacles of one scene and answers range queries.
// Walls, tiles and regions live in a quadtree; tokens live in an octree.
// The manager stores copies, so callers change obstacles through the
// Update methods, and every change advances the tracker.
type Manager struct {
	mu           sync.RWMutex
	bounds       core.AABB
	background   float64
	gridSize     float64
	nextEntityID uint64

	planar  *spatial.QuadTree
	volumes *spatial.Octree
	tracker *Tracker

	walls   map[uint64]*Wall
	tiles   map[uint64]*Tile
	tokens  map[uint64]*Token
	regions map[uint64]*Region
}

// ManagerConfig configures a scene
type ManagerConfig struct {
	Bounds              core.AABB
	GridSize            float64
	BackgroundElevation float64
	// MinZ/MaxZ bound the octree; bodies outside still work, only slower
	MinZ, MaxZ float64
}

// NewManager creates a new scene manager
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.GridSize <= 0 {
		cfg.GridSize = 100
	}
	if cfg.MaxZ <= cfg.MinZ {
		cfg.MinZ, cfg.MaxZ = -1e4, 1e4
	}
	return &Manager{
		bounds:     cfg.Bounds,
		background: cfg.BackgroundElevation,
		gridSize:   cfg.GridSize,
		planar:     spatial.NewQuadTree(cfg.Bounds),
		volumes:    spatial.NewOctree(cfg.Bounds.To3D(cfg.MinZ, cfg.MaxZ)),
		tracker:    NewTracker(),
		walls:      make(map[uint64]*Wall),
		tiles:      make(map[uint64]*Tile),
		tokens:     make(map[uint64]*Token),
		regions:    make(map[uint64]*Region),
	}
}

// Tracker returns the mutation counters of this scene
func (m *Manager) Tracker() *Tracker { return m.tracker }

// GridSize returns the reference grid cell size
func (m *Manager) GridSize() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gridSize
}

// BackgroundElevation returns the elevation of the scene floor plane
func (m *Manager) BackgroundElevation() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.background
}

// SetBackgroundElevation moves the scene floor plane
func (m *Manager) SetBackgroundElevation(z float64) {
	m.mu.Lock()
	m.background = z
	m.mu.Unlock()
	m.tracker.Bump(KindTile, AttrElevation)
}

// GetBounds returns the scene boundaries
func (m *Manager) GetBounds() core.AABB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

// assignID picks an id for a new obstacle; ids are unique across kinds
func (m *Manager) assignID(id uint64) (uint64, error) {
	if id == 0 {
		return atomic.AddUint64(&m.nextEntityID, 1), nil
	}
	if m.exists(id) {
		return 0, fmt.Errorf("obstacle with ID %d already exists", id)
	}
	for {
		cur := atomic.LoadUint64(&m.nextEntityID)
		if id <= cur || atomic.CompareAndSwapUint64(&m.nextEntityID, cur, id) {
			return id, nil
		}
	}
}

func (m *Manager) exists(id uint64) bool {
	_, w := m.walls[id]
	_, t := m.tiles[id]
	_, k := m.tokens[id]
	_, r := m.regions[id]
	return w || t || k || r
}

// AddWall adds a wall to the scene
func (m *Manager) AddWall(w *Wall) error {
	if w == nil {
		return fmt.Errorf("wall cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.assignID(w.ID)
	if err != nil {
		return err
	}
	w.ID = id
	stored := *w
	if err := m.planar.Insert(planarEntry(&stored)); err != nil {
		return fmt.Errorf("failed to add wall to spatial index: %w", err)
	}
	m.walls[id] = &stored
	m.tracker.Bump(KindWall, AttrCreate)
	return nil
}

// UpdateWall replaces a wall, recording which attributes changed
func (m *Manager) UpdateWall(w *Wall) error {
	if w == nil {
		return fmt.Errorf("wall cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.walls[w.ID]
	if !ok {
		return fmt.Errorf("wall %d: %w", w.ID, ErrNotFound)
	}
	var attrs []Attribute
	if existing.A != w.A || existing.B != w.B {
		attrs = append(attrs, AttrPosition)
	}
	if existing.BottomZ != w.BottomZ || existing.TopZ != w.TopZ {
		attrs = append(attrs, AttrElevation)
	}
	if existing.Senses != w.Senses || existing.Direction != w.Direction || existing.ProximityDistance != w.ProximityDistance {
		attrs = append(attrs, AttrRestriction)
	}
	if existing.Door != w.Door {
		attrs = append(attrs, AttrDoor)
	}
	stored := *w
	if err := m.planar.Update(planarEntry(&stored)); err != nil {
		return fmt.Errorf("failed to update wall in spatial index: %w", err)
	}
	m.walls[w.ID] = &stored
	if len(attrs) > 0 {
		m.tracker.Bump(KindWall, attrs...)
	}
	return nil
}

// AddTile adds a tile to the scene
func (m *Manager) AddTile(t *Tile) error {
	if t == nil {
		return fmt.Errorf("tile cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.assignID(t.ID)
	if err != nil {
		return err
	}
	t.ID = id
	stored := *t
	if err := m.planar.Insert(planarEntry(&stored)); err != nil {
		return fmt.Errorf("failed to add tile to spatial index: %w", err)
	}
	m.tiles[id] = &stored
	m.tracker.Bump(KindTile, AttrCreate)
	return nil
}

// UpdateTile replaces a tile
func (m *Manager) UpdateTile(t *Tile) error {
	if t == nil {
		return fmt.Errorf("tile cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tiles[t.ID]
	if !ok {
		return fmt.Errorf("tile %d: %w", t.ID, ErrNotFound)
	}
	var attrs []Attribute
	if existing.Rect != t.Rect {
		attrs = append(attrs, AttrPosition)
	}
	if existing.Elevation != t.Elevation {
		attrs = append(attrs, AttrElevation)
	}
	if !sameMask(existing.Mask, t.Mask) || existing.AlphaThreshold != t.AlphaThreshold {
		attrs = append(attrs, AttrMask)
	}
	if existing.Senses != t.Senses {
		attrs = append(attrs, AttrRestriction)
	}
	stored := *t
	if err := m.planar.Update(planarEntry(&stored)); err != nil {
		return fmt.Errorf("failed to update tile in spatial index: %w", err)
	}
	m.tiles[t.ID] = &stored
	if len(attrs) > 0 {
		m.tracker.Bump(KindTile, attrs...)
	}
	return nil
}

// AddRegion adds a region to the scene
func (m *Manager) AddRegion(r *Region) error {
	if r == nil {
		return fmt.Errorf("region cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.assignID(r.ID)
	if err != nil {
		return err
	}
	r.ID = id
	stored := *r
	if err := m.planar.Insert(planarEntry(&stored)); err != nil {
		return fmt.Errorf("failed to add region to spatial index: %w", err)
	}
	m.regions[id] = &stored
	m.tracker.Bump(KindRegion, AttrCreate)
	return nil
}

// AddToken adds a token to the scene
func (m *Manager) AddToken(t *Token) error {
	if t == nil {
		return fmt.Errorf("token cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.assignID(t.ID)
	if err != nil {
		return err
	}
	t.ID = id
	stored := *t
	if err := m.volumes.Insert(volumeEntry(&stored)); err != nil {
		return fmt.Errorf("failed to add token to spatial index: %w", err)
	}
	m.tokens[id] = &stored
	m.tracker.Bump(KindToken, AttrCreate)
	m.tracker.BumpToken(id)
	return nil
}

// UpdateToken replaces a token
func (m *Manager) UpdateToken(t *Token) error {
	if t == nil {
		return fmt.Errorf("token cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tokens[t.ID]
	if !ok {
		return fmt.Errorf("token %d: %w", t.ID, ErrNotFound)
	}
	var attrs []Attribute
	if !samePolygon(existing.Footprint, t.Footprint) {
		attrs = append(attrs, AttrPosition)
	}
	if existing.BottomZ != t.BottomZ || existing.TopZ != t.TopZ {
		attrs = append(attrs, AttrElevation)
	}
	if existing.Dead != t.Dead || existing.Prone != t.Prone {
		attrs = append(attrs, AttrState)
	}
	if existing.Facing != t.Facing || existing.ConeOfVision != t.ConeOfVision {
		attrs = append(attrs, AttrVision)
	}
	stored := *t
	if err := m.volumes.Update(volumeEntry(&stored)); err != nil {
		return fmt.Errorf("failed to update token in spatial index: %w", err)
	}
	m.tokens[t.ID] = &stored
	if len(attrs) > 0 {
		m.tracker.Bump(KindToken, attrs...)
		m.tracker.BumpToken(t.ID)
	}
	return nil
}

// Remove deletes any obstacle by id
func (m *Manager) Remove(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[id]; ok {
		if err := m.volumes.Remove(id); err != nil {
			return fmt.Errorf("failed to remove token from spatial index: %w", err)
		}
		delete(m.tokens, id)
		m.tracker.Bump(KindToken, AttrDelete)
		m.tracker.BumpToken(id)
		return nil
	}

	var kind Kind
	switch {
	case m.walls[id] != nil:
		kind = KindWall
	case m.tiles[id] != nil:
		kind = KindTile
	case m.regions[id] != nil:
		kind = KindRegion
	default:
		return fmt.Errorf("obstacle %d: %w", id, ErrNotFound)
	}
	if err := m.planar.Remove(id); err != nil {
		return fmt.Errorf("failed to remove obstacle from spatial index: %w", err)
	}
	switch kind {
	case KindWall:
		delete(m.walls, id)
	case KindTile:
		delete(m.tiles, id)
	case KindRegion:
		delete(m.regions, id)
	}
	m.tracker.Bump(kind, AttrDelete)
	return nil
}

// Token returns a token by id
func (m *Manager) Token(id uint64) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("token %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// Wall returns a wall by id
func (m *Manager) Wall(id uint64) (*Wall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.walls[id]
	if !ok {
		return nil, fmt.Errorf("wall %d: %w", id, ErrNotFound)
	}
	return w, nil
}

// Tokens returns every token
func (m *Manager) Tokens() []*Token {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Token, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, t)
	}
	return out
}

// TokensWithin returns the tokens whose bounds touch the sphere
func (m *Manager) TokensWithin(center core.Vector3D, radius float64) []*Token {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Token
	for _, e := range m.volumes.QuerySphere(center, radius) {
		out = append(out, e.Data.(*Token))
	}
	return out
}

// Count returns the number of obstacles of one kind
func (m *Manager) Count(kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch kind {
	case KindWall:
		return len(m.walls)
	case KindTile:
		return len(m.tiles)
	case KindToken:
		return len(m.tokens)
	case KindRegion:
		return len(m.regions)
	default:
		return 0
	}
}

// QueryObstacles returns obstacles of one kind whose bounds touch bounds
func (m *Manager) QueryObstacles(kind Kind, bounds core.AABB3D) []Obstacle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Obstacle
	if kind == KindToken {
		for _, e := range m.volumes.Query(bounds) {
			out = append(out, e.Data.(Obstacle))
		}
		return out
	}

	for _, e := range m.planar.Query(bounds.Planar()) {
		ob := e.Data.(Obstacle)
		if ob.Kind() != kind {
			continue
		}
		b := ob.Bounds()
		if b.Max.Z < bounds.Min.Z || b.Min.Z > bounds.Max.Z {
			continue
		}
		out = append(out, ob)
	}
	return out
}

// QueryVolume culls tokens against a convex volume using the octree
func (m *Manager) QueryVolume(kind Kind, planes []core.Plane, bounds core.AABB3D) []Obstacle {
	if kind != KindToken {
		return m.QueryObstacles(kind, bounds)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Obstacle
	for _, e := range m.volumes.QueryConvex(planes) {
		if bounds.Intersects(e.Bounds) {
			out = append(out, e.Data.(Obstacle))
		}
	}
	return out
}

// Clear removes all obstacles from the scene
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, kind := range []Kind{KindWall, KindTile, KindToken, KindRegion} {
		m.tracker.Bump(kind, AttrDelete)
	}
	for id := range m.tokens {
		m.tracker.BumpToken(id)
	}
	m.planar.Clear()
	m.volumes.Clear()
	m.walls = make(map[uint64]*Wall)
	m.tiles = make(map[uint64]*Tile)
	m.tokens = make(map[uint64]*Token)
	m.regions = make(map[uint64]*Region)
}

func planarEntry(ob Obstacle) *core.Entity {
	return &core.Entity{ID: ob.ObstacleID(), Bounds: ob.Bounds().Planar(), Data: ob}
}

func volumeEntry(t *Token) *core.Entity3D {
	return &core.Entity3D{ID: t.ID, Bounds: t.Bounds(), Data: t}
}

// sameMask compares masks by identity. Masks of a non-comparable type are
// always treated as changed.
func sameMask(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func samePolygon(a, b core.Polygon2D) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > core.Epsilon || math.Abs(a[i].Y-b[i].Y) > core.Epsilon {
			return false
		}
	}
	return true
}
