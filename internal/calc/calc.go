// Package calc turns a viewpoint, a target and the obstacles between them
// into a percent-visible result. Points, Geometric and Raster measure the
// same quantity by sampling, polygon clipping and rasterization; Hybrid
// picks between the last two per call.
package calc

import (
	"strings"

	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/occlusion"
	"sightline/internal/raster"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Algorithm names a calculation strategy
type Algorithm string

const (
	AlgorithmPoints    Algorithm = "points"
	AlgorithmGeometric Algorithm = "geometric"
	AlgorithmRaster    Algorithm = "raster"
	AlgorithmHybrid    Algorithm = "hybrid"
)

// ParseAlgorithm maps a key to an algorithm. Unknown keys fall back to
// points with a warning.
func ParseAlgorithm(s string, log zerolog.Logger) Algorithm {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case AlgorithmPoints, AlgorithmGeometric, AlgorithmRaster, AlgorithmHybrid:
		return a
	default:
		log.Warn().Str("algorithm", s).Msg("unknown algorithm, using points")
		return AlgorithmPoints
	}
}

// LightingTest selects whether only lit parts of the target count
type LightingTest uint8

const (
	LightingOff LightingTest = iota
	LightingLitOnly
)

// ParseLightingTest maps "off" and "lit" to a lighting mode
func ParseLightingTest(s string) (LightingTest, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return LightingOff, true
	case "lit", "lit-only", "litonly":
		return LightingLitOnly, true
	default:
		return LightingOff, false
	}
}

// LitShape returns the lit planar area around a target. Implemented by the
// host's lighting model.
type LitShape interface {
	LitPolygon(target *scene.Token) core.Polygon2D
}

// RasterConfig sizes the off-screen buffer
type RasterConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultRasterSize is the buffer edge used when none is configured
const DefaultRasterSize = 256

// Config is shared by every strategy
type Config struct {
	Channel  scene.Channel      `json:"channel"`
	Blocking occlusion.Blocking `json:"blocking"`
	// LargeTarget caps the denominator at one grid cell for bodies larger
	// than a cell
	LargeTarget bool `json:"largeTarget"`
	// GridSize overrides the scene grid when positive
	GridSize float64 `json:"gridSize"`
	// Radius limits visibility distance; 0 is unlimited
	Radius       float64      `json:"radius"`
	LightingTest LightingTest `json:"lightingTest"`
	LitShape     LitShape     `json:"-"`
	// TargetPoints is the lattice the points strategy samples
	TargetPoints    scene.PointSelection `json:"targetPoints"`
	TargetInset     float64              `json:"targetInset"`
	ProneHeight     float64              `json:"proneHeight"`
	ConstrainTarget bool                 `json:"constrainTarget"`
	Raster          RasterConfig         `json:"raster"`
}

// DefaultConfig blocks sight with walls, tiles, regions and live bodies
func DefaultConfig() Config {
	return Config{
		Channel:      scene.ChannelSight,
		Blocking:     occlusion.DefaultBlocking(),
		TargetPoints: scene.PointSelection{Planar: scene.PlanarCenter | scene.PlanarCorners, Depth: scene.DepthMid},
		ProneHeight:  occlusion.DefaultProneHeight,
		Raster:       RasterConfig{Width: DefaultRasterSize, Height: DefaultRasterSize},
	}
}

// Occlusion returns the obstacle classification settings
func (c Config) Occlusion() occlusion.Config {
	return occlusion.Config{Channel: c.Channel, Blocking: c.Blocking, ProneHeight: c.ProneHeight}
}

func (c Config) rasterSize() (int, int) {
	w, h := c.Raster.Width, c.Raster.Height
	if w <= 0 {
		w = DefaultRasterSize
	}
	if h <= 0 {
		h = DefaultRasterSize
	}
	return w, h
}

// Request names the pair being measured. A nil Viewpoint is the viewer's
// eye; a nil TargetLocation leaves the target where it stands.
type Request struct {
	Viewer         *scene.Token
	Target         *scene.Token
	Viewpoint      *core.Vector3D
	TargetLocation *core.Vector3D
}

// Eye returns the default viewpoint of a body: its center at the top
func Eye(t *scene.Token) core.Vector3D {
	return t.Center().To3D(t.TopZ)
}

// Normalize resolves the viewpoint and returns the target moved so that
// its volumetric center sits on TargetLocation
func (r Request) Normalize() (core.Vector3D, *scene.Token) {
	var vp core.Vector3D
	switch {
	case r.Viewpoint != nil:
		vp = *r.Viewpoint
	case r.Viewer != nil:
		vp = Eye(r.Viewer)
	}

	target := r.Target
	if r.TargetLocation != nil && target != nil {
		delta := r.TargetLocation.Sub(target.Center3D())
		if delta.LengthSquared() > core.Epsilon {
			moved := target.WithFootprint(target.Footprint.Translate(delta.To2D()))
			moved.BottomZ += delta.Z
			moved.TopZ += delta.Z
			target = moved
		}
	}
	return vp, target
}

// Calculator measures how much of a target a viewpoint sees. A calculator
// reuses its frustum and occlusion buffers and serves one goroutine.
type Calculator interface {
	Algorithm() Algorithm
	Calculate(req Request, cfg Config) result.Result
}

// New builds the calculator for an algorithm. pool is only used by the
// raster-backed strategies and may be nil otherwise.
func New(alg Algorithm, src scene.Source, pool *raster.Pool, log zerolog.Logger) Calculator {
	switch alg {
	case AlgorithmGeometric:
		return NewGeometric(src, log)
	case AlgorithmRaster:
		return NewRaster(src, pool, log)
	case AlgorithmHybrid:
		return NewHybrid(src, pool, log)
	default:
		return NewPoints(src, log)
	}
}
