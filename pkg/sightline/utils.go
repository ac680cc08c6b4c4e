package sightline

import (
	"math"

	"github.com/rs/zerolog"

	"sightline/internal/calc"
	"sightline/internal/config"
	"sightline/internal/core"
	"sightline/internal/scene"
	"sightline/internal/sceneio"
)

// Vector utility functions

// NewVector2D creates a new 2D vector
func NewVector2D(x, y float64) core.Vector2D {
	return core.Vector2D{X: x, Y: y}
}

// NewVector3D creates a new 3D vector
func NewVector3D(x, y, z float64) core.Vector3D {
	return core.Vector3D{X: x, Y: y, Z: z}
}

// Degrees converts degrees to the radians facings and cones use
func Degrees(deg float64) float64 {
	return deg * math.Pi / 180
}

// AABB utility functions

// NewAABB creates a new axis-aligned bounding box
func NewAABB(minX, minY, maxX, maxY float64) core.AABB {
	return core.AABB{
		Min: core.Vector2D{X: minX, Y: minY},
		Max: core.Vector2D{X: maxX, Y: maxY},
	}
}

// AABBFromCenterSize creates an AABB from center point and size
func AABBFromCenterSize(center core.Vector2D, width, height float64) core.AABB {
	halfWidth := width / 2
	halfHeight := height / 2
	return core.AABB{
		Min: core.Vector2D{X: center.X - halfWidth, Y: center.Y - halfHeight},
		Max: core.Vector2D{X: center.X + halfWidth, Y: center.Y + halfHeight},
	}
}

// Obstacle utility functions

// NewToken creates a square body standing on bottom with the given height
func NewToken(center core.Vector2D, size, bottom, height float64) *scene.Token {
	return scene.NewSquareToken(center, size, bottom, bottom+height)
}

// NewViewer creates a square body looking toward facing with a limited cone,
// both in degrees
func NewViewer(center core.Vector2D, size, bottom, height, facing, cone float64) *scene.Token {
	t := NewToken(center, size, bottom, height)
	t.Facing = Degrees(facing)
	t.ConeOfVision = Degrees(cone)
	return t
}

// NewWall creates a full-height wall between two points
func NewWall(a, b core.Vector2D) *scene.Wall {
	return scene.NewWall(a, b)
}

// NewLowWall creates a wall spanning bottom to top
func NewLowWall(a, b core.Vector2D, bottom, top float64) *scene.Wall {
	w := scene.NewWall(a, b)
	w.BottomZ, w.TopZ = bottom, top
	return w
}

// NewTile creates an unmasked tile at elevation
func NewTile(bounds core.AABB, elevation float64) *scene.Tile {
	return &scene.Tile{Rect: bounds, Elevation: elevation}
}

// NewRegion creates a prism region that blocks sight
func NewRegion(shape core.Polygon2D, bottom, top float64) *scene.Region {
	return &scene.Region{Shape: shape.EnsureCCW(), BottomZ: bottom, TopZ: top}
}

// Loading

// ConfigFromSettings builds an engine configuration from loaded settings
func ConfigFromSettings(s *config.Settings, log zerolog.Logger) *Config {
	cfg := DefaultConfig()
	cfg.Algorithm = calc.ParseAlgorithm(s.Algorithm, log)
	cfg.LOS = s.LOSConfig(log)
	cfg.Cache = s.Cache
	cfg.Logger = log
	return cfg
}

// LoadScene reads a scene document and wraps it in an engine. Token keys
// from the document map to scene IDs through the returned scene.
func LoadScene(path string, config *Config) (*Engine, *sceneio.Scene, error) {
	if config == nil {
		config = DefaultConfig()
	}
	s, err := sceneio.Load(path, config.Logger)
	if err != nil {
		return nil, nil, err
	}
	return NewEngineForScene(s.Manager, config), s, nil
}

// IDOf returns the scene ID of the token stored under key
func IDOf(s *sceneio.Scene, key string) (uint64, error) {
	t, err := s.Token(key)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}
