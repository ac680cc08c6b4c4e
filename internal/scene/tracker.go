package scene

import "sync"

// Attribute names a tracked obstacle property
type Attribute string

const (
	AttrCreate      Attribute = "create"
	AttrDelete      Attribute = "delete"
	AttrPosition    Attribute = "position"
	AttrElevation   Attribute = "elevation"
	AttrRestriction Attribute = "restriction"
	AttrDoor        Attribute = "door"
	AttrShape       Attribute = "shape"
	AttrMask        Attribute = "mask"
	AttrState       Attribute = "state"
	AttrVision      Attribute = "vision"
)

// Tracker counts scene mutations. The scene increments it; caches read it
// to decide whether a stored value is still valid.
type Tracker struct {
	mu     sync.RWMutex
	kinds  map[Kind]map[Attribute]uint64
	tokens map[uint64]uint64
	total  uint64
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		kinds:  make(map[Kind]map[Attribute]uint64),
		tokens: make(map[uint64]uint64),
	}
}

// Bump records a scene-wide mutation of one attribute of an obstacle kind
func (t *Tracker) Bump(kind Kind, attrs ...Attribute) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.kinds[kind]
	if !ok {
		m = make(map[Attribute]uint64)
		t.kinds[kind] = m
	}
	for _, a := range attrs {
		m[a]++
	}
}

// BumpToken records a mutation of a single token
func (t *Tracker) BumpToken(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tokens[id]++
	t.total++
}

// Counter returns the count for one kind and attribute
func (t *Tracker) Counter(kind Kind, attr Attribute) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.kinds[kind][attr]
}

// Stamp sums every attribute counter of the given kinds
func (t *Tracker) Stamp(kinds ...Kind) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var sum uint64
	for _, k := range kinds {
		for _, v := range t.kinds[k] {
			sum += v
		}
	}
	return sum
}

// TokenStamp returns the mutation count of one token
func (t *Tracker) TokenStamp(id uint64) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.tokens[id]
}

// TokensTotal returns the mutation count summed over all tokens
func (t *Tracker) TokensTotal() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.total
}
