// Package occlusion discovers the obstacles inside a frustum, sorts them by
// how they block, and answers whether a ray between two points is occluded.
package occlusion

import (
	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/frustum"
	"sightline/internal/scene"
)

// TokenBlocking selects which body states block
type TokenBlocking struct {
	Dead  bool `json:"dead" mapstructure:"dead"`
	Live  bool `json:"live" mapstructure:"live"`
	Prone bool `json:"prone" mapstructure:"prone"`
}

// Blocking selects which obstacle categories block
type Blocking struct {
	Walls   bool          `json:"walls" mapstructure:"walls"`
	Tiles   bool          `json:"tiles" mapstructure:"tiles"`
	Regions bool          `json:"regions" mapstructure:"regions"`
	Tokens  TokenBlocking `json:"tokens" mapstructure:"tokens"`
}

// DefaultBlocking blocks with everything except dead bodies
func DefaultBlocking() Blocking {
	return Blocking{
		Walls:   true,
		Tiles:   true,
		Regions: true,
		Tokens:  TokenBlocking{Live: true, Prone: true},
	}
}

// DefaultProneHeight is the fraction of full height a prone body keeps
const DefaultProneHeight = 0.33

// Config drives discovery and classification
type Config struct {
	Channel     scene.Channel
	Blocking    Blocking
	ProneHeight float64
}

// Test holds the obstacles found inside one frustum, split by category.
// A Test is reused across calculations by calling Initialize again.
type Test struct {
	log     zerolog.Logger
	channel scene.Channel

	opaque    []*scene.Wall
	terrain   []*scene.Wall
	proximity []*scene.Wall
	tiles     []*scene.Tile
	tokens    []*scene.Token
	regions   []*scene.Region
	// regions restricted as limited count toward terrain
	terrainRegions []*scene.Region
}

// New returns an empty test
func New(log zerolog.Logger) *Test {
	return &Test{log: log}
}

// Initialize discovers and classifies every obstacle in the frustum. The
// viewer and target are never treated as obstacles.
func (t *Test) Initialize(f *frustum.Frustum, src scene.Source, cfg Config, viewerID, targetID uint64) {
	t.reset()
	t.channel = cfg.Channel

	if cfg.Blocking.Walls {
		for _, w := range f.FindWalls(src, t.log) {
			t.addWall(w)
		}
	}
	if cfg.Blocking.Tiles {
		for _, tile := range f.FindTiles(src, t.log) {
			if tile.Senses.For(cfg.Channel) != scene.RestrictNone {
				t.tiles = append(t.tiles, tile)
			}
		}
	}
	if cfg.Blocking.Regions {
		for _, r := range f.FindRegions(src, t.log) {
			switch r.Senses.For(cfg.Channel) {
			case scene.RestrictNone:
			case scene.RestrictLimited:
				t.terrainRegions = append(t.terrainRegions, r)
			default:
				t.regions = append(t.regions, r)
			}
		}
	}
	if cfg.Blocking.Tokens != (TokenBlocking{}) {
		for _, tok := range f.FindTokens(src, t.log) {
			if tok.ID == viewerID || tok.ID == targetID {
				continue
			}
			if b, ok := blockingBody(tok, cfg); ok {
				t.tokens = append(t.tokens, b)
			}
		}
	}

	t.log.Trace().
		Int("opaque", len(t.opaque)).
		Int("terrain", len(t.terrain)+len(t.terrainRegions)).
		Int("proximity", len(t.proximity)).
		Int("tiles", len(t.tiles)).
		Int("tokens", len(t.tokens)).
		Int("regions", len(t.regions)).
		Msg("occlusion test initialized")
}

func (t *Test) addWall(w *scene.Wall) {
	if w.IsOpen() {
		return
	}
	switch w.Senses.For(t.channel) {
	case scene.RestrictNone:
	case scene.RestrictLimited:
		t.terrain = append(t.terrain, w)
	case scene.RestrictProximity, scene.RestrictReverseProximity:
		t.proximity = append(t.proximity, w)
	default:
		t.opaque = append(t.opaque, w)
	}
}

// blockingBody returns the body as it blocks under cfg, if it blocks at all
func blockingBody(tok *scene.Token, cfg Config) (*scene.Token, bool) {
	switch {
	case tok.Dead:
		return tok, cfg.Blocking.Tokens.Dead
	case tok.Prone:
		if !cfg.Blocking.Tokens.Prone {
			return nil, false
		}
		h := cfg.ProneHeight
		if h <= 0 {
			h = DefaultProneHeight
		}
		return tok.WithTopZ(tok.BottomZ + tok.Height()*h), true
	default:
		return tok, cfg.Blocking.Tokens.Live
	}
}

func (t *Test) reset() {
	t.opaque = t.opaque[:0]
	t.terrain = t.terrain[:0]
	t.proximity = t.proximity[:0]
	t.tiles = t.tiles[:0]
	t.tokens = t.tokens[:0]
	t.regions = t.regions[:0]
	t.terrainRegions = t.terrainRegions[:0]
}

// HasMaskedTiles reports whether an alpha-masked tile was discovered
func (t *Test) HasMaskedTiles() bool {
	for _, tile := range t.tiles {
		if tile.HasMask() {
			return true
		}
	}
	return false
}

// Empty reports whether nothing inside the frustum can block
func (t *Test) Empty() bool {
	return len(t.opaque)+len(t.terrain)+len(t.proximity)+len(t.tiles)+
		len(t.tokens)+len(t.regions)+len(t.terrainRegions) == 0
}

// RayIsOccluded reports whether the segment from origin to origin+dir is
// blocked by any discovered obstacle
func (t *Test) RayIsOccluded(origin, dir core.Vector3D) bool {
	end := origin.Add(dir)
	return t.opaqueBlocks(origin, end) ||
		t.terrainBlocks(origin, end) ||
		t.proximityBlocks(origin, end) ||
		t.tilesBlock(origin, end) ||
		t.tokensBlock(origin, end) ||
		t.regionsBlock(origin, end)
}

func (t *Test) opaqueBlocks(p, q core.Vector3D) bool {
	for _, w := range t.opaque {
		if w.Blocks(t.channel, p, q) {
			return true
		}
	}
	return false
}

// terrainBlocks needs two limited crossings along the ray
func (t *Test) terrainBlocks(p, q core.Vector3D) bool {
	if len(t.terrain)+len(t.terrainRegions) < 2 {
		return false
	}
	count := 0
	for _, w := range t.terrain {
		if w.Blocks(t.channel, p, q) {
			if count++; count >= 2 {
				return true
			}
		}
	}
	for _, r := range t.terrainRegions {
		if r.Crosses(p, q) {
			if count++; count >= 2 {
				return true
			}
		}
	}
	return false
}

func (t *Test) proximityBlocks(p, q core.Vector3D) bool {
	for _, w := range t.proximity {
		if w.Blocks(t.channel, p, q) {
			return true
		}
	}
	return false
}

func (t *Test) tilesBlock(p, q core.Vector3D) bool {
	for _, tile := range t.tiles {
		if tile.Blocks(t.channel, p, q) {
			return true
		}
	}
	return false
}

func (t *Test) tokensBlock(p, q core.Vector3D) bool {
	for _, tok := range t.tokens {
		if segmentHitsBox(p, q, tok.Bounds()) && tok.Blocks(p, q) {
			return true
		}
	}
	return false
}

func (t *Test) regionsBlock(p, q core.Vector3D) bool {
	for _, r := range t.regions {
		if segmentHitsBox(p, q, r.Bounds()) && r.Crosses(p, q) {
			return true
		}
	}
	return false
}

// Walls returns the discovered walls by category
func (t *Test) Walls() (opaque, terrain, proximity []*scene.Wall) {
	return t.opaque, t.terrain, t.proximity
}

// Tiles returns the discovered blocking tiles
func (t *Test) Tiles() []*scene.Tile { return t.tiles }

// Tokens returns the discovered blocking bodies, prone ones already lowered
func (t *Test) Tokens() []*scene.Token { return t.tokens }

// Regions returns the discovered zones by category
func (t *Test) Regions() (opaque, terrain []*scene.Region) {
	return t.regions, t.terrainRegions
}
