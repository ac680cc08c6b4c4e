// Package sightline is the entry point for hosts: one Engine owns a scene,
// the calculators and a line-of-sight evaluator per viewer.
package sightline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"sightline/internal/calc"
	"sightline/internal/core"
	"sightline/internal/los"
	"sightline/internal/raster"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Engine answers visibility questions about one scene. Calculations are
// serialized; scene edits may come from any goroutine.
type Engine struct {
	mu      sync.Mutex
	scene   *scene.Manager
	pool    *raster.Pool
	calcs   map[calc.Algorithm]calc.Calculator
	viewers map[uint64]lineOfSight
	config  *Config
	log     zerolog.Logger
}

// lineOfSight is satisfied by both the plain and the cached evaluator
type lineOfSight interface {
	Calculate(target *scene.Token) result.Result
	SetViewer(t *scene.Token)
	SetConfig(cfg los.Config)
}

// Config holds configuration for the engine
type Config struct {
	SceneBounds         core.AABB
	GridSize            float64
	BackgroundElevation float64
	Algorithm           calc.Algorithm
	LOS                 los.Config
	// Cache keeps results per viewer until the scene changes
	Cache bool
	// Device creates raster devices; nil uses the software rasterizer
	Device raster.Factory
	Logger zerolog.Logger
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		SceneBounds: core.AABB{
			Min: core.Vector2D{X: -10000, Y: -10000},
			Max: core.Vector2D{X: 10000, Y: 10000},
		},
		GridSize:  100,
		Algorithm: calc.AlgorithmPoints,
		LOS:       los.DefaultConfig(),
		Cache:     true,
		Logger:    zerolog.Nop(),
	}
}

// NewEngine creates an engine with an empty scene
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	m := scene.NewManager(scene.ManagerConfig{
		Bounds:              config.SceneBounds,
		GridSize:            config.GridSize,
		BackgroundElevation: config.BackgroundElevation,
	})
	return NewEngineForScene(m, config)
}

// NewEngineForScene creates an engine over an existing scene, such as one
// loaded from a document. SceneBounds, GridSize and BackgroundElevation in
// config are ignored.
func NewEngineForScene(m *scene.Manager, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Algorithm == "" {
		config.Algorithm = calc.AlgorithmPoints
	}
	return &Engine{
		scene:   m,
		pool:    raster.NewPool(config.Device),
		calcs:   make(map[calc.Algorithm]calc.Calculator),
		viewers: make(map[uint64]lineOfSight),
		config:  config,
		log:     config.Logger,
	}
}

// Close releases the raster devices
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool.Close()
}

// Scene returns the underlying scene manager
func (e *Engine) Scene() *scene.Manager { return e.scene }

// Obstacle management

// AddToken adds a body to the scene and sets its ID
func (e *Engine) AddToken(t *scene.Token) error {
	return e.scene.AddToken(t)
}

// UpdateToken replaces a body, e.g. after it moved
func (e *Engine) UpdateToken(t *scene.Token) error {
	return e.scene.UpdateToken(t)
}

// AddWall adds a wall to the scene
func (e *Engine) AddWall(w *scene.Wall) error {
	return e.scene.AddWall(w)
}

// UpdateWall replaces a wall, e.g. after its door opened
func (e *Engine) UpdateWall(w *scene.Wall) error {
	return e.scene.UpdateWall(w)
}

// AddTile adds a tile to the scene
func (e *Engine) AddTile(t *scene.Tile) error {
	return e.scene.AddTile(t)
}

// UpdateTile replaces a tile
func (e *Engine) UpdateTile(t *scene.Tile) error {
	return e.scene.UpdateTile(t)
}

// AddRegion adds a region to the scene
func (e *Engine) AddRegion(r *scene.Region) error {
	return e.scene.AddRegion(r)
}

// Remove deletes any obstacle by ID. A removed body stops being a viewer.
func (e *Engine) Remove(id uint64) error {
	if err := e.scene.Remove(id); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.viewers, id)
	e.mu.Unlock()
	return nil
}

// GetToken retrieves a body by ID
func (e *Engine) GetToken(id uint64) (*scene.Token, error) {
	return e.scene.Token(id)
}

// Visibility

// Calculator returns the shared calculator for an algorithm
func (e *Engine) Calculator(alg calc.Algorithm) calc.Calculator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calculator(alg)
}

func (e *Engine) calculator(alg calc.Algorithm) calc.Calculator {
	c, ok := e.calcs[alg]
	if !ok {
		c = calc.New(alg, e.scene, e.pool, e.log)
		e.calcs[alg] = c
	}
	return c
}

// Calculate returns the combined result of viewer looking at target
func (e *Engine) Calculate(viewerID, targetID uint64) (result.Result, error) {
	viewer, target, err := e.pair(viewerID, targetID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.lineOfSight(viewer)
	return l.Calculate(target), nil
}

// PercentVisible returns the visible fraction of target as seen by viewer
func (e *Engine) PercentVisible(viewerID, targetID uint64) (float64, error) {
	res, err := e.Calculate(viewerID, targetID)
	if err != nil {
		return 0, err
	}
	return res.PercentVisible(), nil
}

// HasLOS reports whether viewer sees at least the configured threshold of
// target
func (e *Engine) HasLOS(viewerID, targetID uint64) (bool, error) {
	p, err := e.PercentVisible(viewerID, targetID)
	if err != nil {
		return false, err
	}
	return los.HasLOS(p, e.losConfig().Threshold), nil
}

// CalculateWith measures one pair with a specific algorithm from the
// viewer's default eye, bypassing the per-viewer evaluator
func (e *Engine) CalculateWith(alg calc.Algorithm, viewerID, targetID uint64) (result.Result, error) {
	viewer, target, err := e.pair(viewerID, targetID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calculator(alg).Calculate(calc.Request{Viewer: viewer, Target: target}, e.config.LOS.Calc), nil
}

// VisibleTargets lists the bodies viewer sees some part of that also reach
// the threshold, by ID
func (e *Engine) VisibleTargets(viewerID uint64) ([]uint64, error) {
	viewer, err := e.scene.Token(viewerID)
	if err != nil {
		return nil, err
	}
	cfg := e.losConfig()

	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.lineOfSight(viewer)

	candidates := e.scene.Tokens()
	if cfg.Calc.Radius > 0 {
		// every eye lies inside the viewer's box
		b := viewer.Bounds()
		reach := cfg.Calc.Radius + b.Max.Sub(b.Min).Length()/2
		candidates = e.scene.TokensWithin(b.Center(), reach)
	}

	var out []uint64
	for _, t := range candidates {
		if t.ID == viewerID {
			continue
		}
		if p := l.Calculate(t).PercentVisible(); p > 0 && los.HasLOS(p, cfg.Threshold) {
			out = append(out, t.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SetAlgorithm switches the strategy used by Calculate and HasLOS
func (e *Engine) SetAlgorithm(alg calc.Algorithm) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if alg == e.config.Algorithm {
		return
	}
	e.config.Algorithm = alg
	clear(e.viewers)
	e.log.Debug().Str("algorithm", string(alg)).Msg("algorithm switched")
}

// SetLOSConfig replaces the line-of-sight configuration for every viewer
func (e *Engine) SetLOSConfig(cfg los.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.LOS = cfg
	for _, l := range e.viewers {
		l.SetConfig(cfg)
	}
}

func (e *Engine) losConfig() los.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config.LOS
}

func (e *Engine) pair(viewerID, targetID uint64) (*scene.Token, *scene.Token, error) {
	viewer, err := e.scene.Token(viewerID)
	if err != nil {
		return nil, nil, fmt.Errorf("viewer: %w", err)
	}
	target, err := e.scene.Token(targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("target: %w", err)
	}
	return viewer, target, nil
}

// lineOfSight returns the evaluator for viewer, creating it on first use.
// Callers hold e.mu.
func (e *Engine) lineOfSight(viewer *scene.Token) lineOfSight {
	l, ok := e.viewers[viewer.ID]
	if !ok {
		plain := los.New(viewer, e.scene, e.calculator(e.config.Algorithm), e.config.LOS, e.log)
		if e.config.Cache {
			l = los.NewCached(plain, e.scene.Tracker())
		} else {
			l = plain
		}
		e.viewers[viewer.ID] = l
	}
	l.SetViewer(viewer)
	return l
}

// Performance and Debugging

// GetConfig returns the current engine configuration
func (e *Engine) GetConfig() *Config {
	return e.config
}

// GetStats returns scene and evaluator counts
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	viewers := len(e.viewers)
	alg := e.config.Algorithm
	e.mu.Unlock()

	return Stats{
		WallCount:     e.scene.Count(scene.KindWall),
		TileCount:     e.scene.Count(scene.KindTile),
		RegionCount:   e.scene.Count(scene.KindRegion),
		TokenCount:    e.scene.Count(scene.KindToken),
		ViewerCount:   viewers,
		RasterDevices: e.pool.Created(),
		Algorithm:     alg,
		SceneBounds:   e.scene.GetBounds(),
	}
}

// Stats represents engine statistics
type Stats struct {
	WallCount     int
	TileCount     int
	RegionCount   int
	TokenCount    int
	ViewerCount   int
	RasterDevices int
	Algorithm     calc.Algorithm
	SceneBounds   core.AABB
}
