package calc

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/core"
	"sightline/internal/raster"
	"sightline/internal/result"
	"sightline/internal/scene"
)

var eye = core.Vector3D{X: 0, Y: 0, Z: 50}

func newScene() *scene.Manager {
	return scene.NewManager(scene.ManagerConfig{
		Bounds:   core.AABB{Min: core.Vector2D{X: -2000, Y: -2000}, Max: core.Vector2D{X: 2000, Y: 2000}},
		GridSize: 100,
	})
}

func target() *scene.Token {
	return scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 0, 100)
}

func request(tgt *scene.Token) Request {
	vp := eye
	return Request{Target: tgt, Viewpoint: &vp}
}

func pointsConfig() Config {
	cfg := DefaultConfig()
	sel, err := scene.ParsePointSelection("center,corners/mid", scene.DepthMid)
	if err != nil {
		panic(err)
	}
	cfg.TargetPoints = sel
	return cfg
}

func calculators(src scene.Source) []Calculator {
	return []Calculator{
		NewPoints(src, zerolog.Nop()),
		NewGeometric(src, zerolog.Nop()),
		NewRaster(src, nil, zerolog.Nop()),
		NewHybrid(src, nil, zerolog.Nop()),
	}
}

// halfWallScene puts a wall ending on the sight line in front of the target
func halfWallScene(t *testing.T) *scene.Manager {
	t.Helper()
	m := newScene()
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 500, Y: 0}, core.Vector2D{X: 500, Y: 200})))
	return m
}

func TestParseAlgorithm(t *testing.T) {
	assert.Equal(t, AlgorithmGeometric, ParseAlgorithm(" Geometric ", zerolog.Nop()))
	assert.Equal(t, AlgorithmHybrid, ParseAlgorithm("hybrid", zerolog.Nop()))
	assert.Equal(t, AlgorithmPoints, ParseAlgorithm("webgl", zerolog.Nop()))

	m := newScene()
	for _, alg := range []Algorithm{AlgorithmPoints, AlgorithmGeometric, AlgorithmRaster, AlgorithmHybrid} {
		assert.Equal(t, alg, New(alg, m, nil, zerolog.Nop()).Algorithm())
	}
}

func TestRequestNormalize(t *testing.T) {
	viewer := scene.NewSquareToken(core.Vector2D{X: 10, Y: 20}, 50, 0, 60)
	tgt := target()

	vp, got := Request{Viewer: viewer, Target: tgt}.Normalize()
	assert.True(t, vp.AlmostEqual(core.Vector3D{X: 10, Y: 20, Z: 60}), "eye at %v", vp)
	assert.Same(t, tgt, got)

	loc := core.Vector3D{X: 300, Y: 100, Z: 150}
	_, moved := Request{Viewer: viewer, Target: tgt, TargetLocation: &loc}.Normalize()
	assert.True(t, moved.Center3D().AlmostEqual(loc))
	assert.Equal(t, 100.0, moved.BottomZ)
	assert.True(t, tgt.Center().AlmostEqual(core.Vector2D{X: 1000, Y: 0}), "original target untouched")
}

func TestUnobstructedIsFullyVisible(t *testing.T) {
	m := newScene()
	for _, c := range calculators(m) {
		res := c.Calculate(request(target()), pointsConfig())
		assert.InDelta(t, 1.0, res.PercentVisible(), 1e-9, c.Algorithm())
	}
}

func TestBlockingWallHidesTarget(t *testing.T) {
	m := newScene()
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 500, Y: -300}, core.Vector2D{X: 500, Y: 300})))
	for _, c := range calculators(m) {
		res := c.Calculate(request(target()), pointsConfig())
		assert.InDelta(t, 0.0, res.PercentVisible(), 1e-9, c.Algorithm())
	}
}

func TestHalfCoveredTarget(t *testing.T) {
	m := halfWallScene(t)
	cfg := pointsConfig()

	pts := NewPoints(m, zerolog.Nop()).Calculate(request(target()), cfg)
	assert.InDelta(t, 0.6, pts.PercentVisible(), 1e-9)

	geo := NewGeometric(m, zerolog.Nop()).Calculate(request(target()), cfg)
	assert.InDelta(t, 0.5, geo.PercentVisible(), 1e-3)

	ras := NewRaster(m, nil, zerolog.Nop()).Calculate(request(target()), cfg)
	assert.InDelta(t, 0.5, ras.PercentVisible(), 0.02)

	hyb := NewHybrid(m, nil, zerolog.Nop()).Calculate(request(target()), cfg)
	assert.InDelta(t, geo.PercentVisible(), hyb.PercentVisible(), 1e-9, "no masked tiles, so geometric")
}

type countingSource struct {
	*scene.Manager
	queries int
}

func (c *countingSource) QueryObstacles(kind scene.Kind, b core.AABB3D) []scene.Obstacle {
	c.queries++
	return c.Manager.QueryObstacles(kind, b)
}

func (c *countingSource) QueryVolume(kind scene.Kind, planes []core.Plane, b core.AABB3D) []scene.Obstacle {
	c.queries++
	return c.Manager.QueryVolume(kind, planes, b)
}

func TestRadiusSkipsDiscovery(t *testing.T) {
	src := &countingSource{Manager: halfWallScene(t)}
	cfg := pointsConfig()
	cfg.Radius = 500

	for _, c := range calculators(src) {
		res := c.Calculate(request(target()), cfg)
		assert.Equal(t, result.FullyNotVisible, res.State(), c.Algorithm())
	}
	assert.Zero(t, src.queries)

	cfg.Radius = 5000
	NewPoints(src, zerolog.Nop()).Calculate(request(target()), cfg)
	assert.NotZero(t, src.queries)
}

func TestViewerAndConeOfVision(t *testing.T) {
	m := newScene()
	viewer := scene.NewSquareToken(core.Vector2D{}, 50, 0, 50)
	require.NoError(t, m.AddToken(viewer))
	tgt := target()
	require.NoError(t, m.AddToken(tgt))

	req := Request{Viewer: viewer, Target: tgt}
	for _, c := range calculators(m) {
		assert.InDelta(t, 1.0, c.Calculate(req, pointsConfig()).PercentVisible(), 1e-9, c.Algorithm())
	}

	away := *viewer
	away.Facing = math.Pi
	away.ConeOfVision = math.Pi / 2
	res := NewPoints(m, zerolog.Nop()).Calculate(Request{Viewer: &away, Target: tgt}, pointsConfig())
	assert.Zero(t, res.PercentVisible())
}

func TestTargetLocation(t *testing.T) {
	m := newScene()
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 500, Y: 100}, core.Vector2D{X: 500, Y: 600})))

	tgt := target()
	assert.InDelta(t, 1.0, NewGeometric(m, zerolog.Nop()).Calculate(request(tgt), pointsConfig()).PercentVisible(), 1e-6)

	behind := core.Vector3D{X: 1000, Y: 700, Z: 50}
	req := request(tgt)
	req.TargetLocation = &behind
	for _, c := range calculators(m) {
		assert.InDelta(t, 0.0, c.Calculate(req, pointsConfig()).PercentVisible(), 1e-9, c.Algorithm())
	}
}

func TestLargeTargetUsesOneCell(t *testing.T) {
	m := newScene()
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 500, Y: 0}, core.Vector2D{X: 500, Y: 400})))
	big := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 300, 0, 100)

	cfg := pointsConfig()
	assert.InDelta(t, 0.6, NewPoints(m, zerolog.Nop()).Calculate(request(big), cfg).PercentVisible(), 1e-9)
	assert.InDelta(t, 0.5, NewGeometric(m, zerolog.Nop()).Calculate(request(big), cfg).PercentVisible(), 1e-3)

	cfg.LargeTarget = true
	for _, c := range calculators(m) {
		assert.InDelta(t, 1.0, c.Calculate(request(big), cfg).PercentVisible(), 1e-9, c.Algorithm())
	}
}

type litHalf struct{ poly core.Polygon2D }

func (l litHalf) LitPolygon(*scene.Token) core.Polygon2D { return l.poly }

func TestLightingTest(t *testing.T) {
	m := halfWallScene(t)
	cfg := pointsConfig()
	cfg.LightingTest = LightingLitOnly
	cfg.LitShape = litHalf{poly: core.Rect(core.AABB{
		Min: core.Vector2D{X: 900, Y: -100},
		Max: core.Vector2D{X: 1100, Y: 0},
	})}

	assert.InDelta(t, 1.0, NewPoints(m, zerolog.Nop()).Calculate(request(target()), cfg).PercentVisible(), 1e-9)
	assert.InDelta(t, 1.0, NewGeometric(m, zerolog.Nop()).Calculate(request(target()), cfg).PercentVisible(), 1e-3)

	cfg.LitShape = litHalf{poly: core.Rect(core.AABB{
		Min: core.Vector2D{X: -100, Y: -100},
		Max: core.Vector2D{X: 0, Y: 0},
	})}
	res := NewGeometric(m, zerolog.Nop()).Calculate(request(target()), cfg)
	assert.Equal(t, result.FullyNotVisible, res.State())
}

func TestAddingObstaclesNeverIncreasesVisibility(t *testing.T) {
	m := halfWallScene(t)
	cfg := pointsConfig()
	calcs := calculators(m)

	before := make([]float64, len(calcs))
	for i, c := range calcs {
		before[i] = c.Calculate(request(target()), cfg).PercentVisible()
		again := c.Calculate(request(target()), cfg).PercentVisible()
		assert.Equal(t, before[i], again, "%s is idempotent", c.Algorithm())
	}

	blocker := scene.NewSquareToken(core.Vector2D{X: 700, Y: -30}, 40, 0, 80)
	require.NoError(t, m.AddToken(blocker))
	for i, c := range calcs {
		after := c.Calculate(request(target()), cfg).PercentVisible()
		assert.LessOrEqual(t, after, before[i]+1e-9, c.Algorithm())
	}
}

func TestStrategiesAgree(t *testing.T) {
	m := newScene()
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 600, Y: -20}, core.Vector2D{X: 600, Y: 300})))
	require.NoError(t, m.AddToken(scene.NewSquareToken(core.Vector2D{X: 700, Y: -40}, 20, 0, 200)))

	cfg := pointsConfig()
	geo := NewGeometric(m, zerolog.Nop()).Calculate(request(target()), cfg).PercentVisible()
	ras := NewRaster(m, nil, zerolog.Nop()).Calculate(request(target()), cfg).PercentVisible()
	assert.InDelta(t, geo, ras, 0.03)
	assert.Greater(t, geo, 0.0)
	assert.Less(t, geo, 1.0)
}

func TestTerrainNeedsTwoLayers(t *testing.T) {
	m := newScene()
	first := scene.NewWall(core.Vector2D{X: 400, Y: -300}, core.Vector2D{X: 400, Y: 300})
	first.Senses.Sight = scene.RestrictLimited
	require.NoError(t, m.AddWall(first))

	calcs := []Calculator{NewGeometric(m, zerolog.Nop()), NewRaster(m, nil, zerolog.Nop())}
	for _, c := range calcs {
		assert.InDelta(t, 1.0, c.Calculate(request(target()), pointsConfig()).PercentVisible(), 1e-9, c.Algorithm())
	}

	second := scene.NewWall(core.Vector2D{X: 600, Y: -300}, core.Vector2D{X: 600, Y: 300})
	second.Senses.Sight = scene.RestrictLimited
	require.NoError(t, m.AddWall(second))
	for _, c := range calcs {
		assert.InDelta(t, 0.0, c.Calculate(request(target()), pointsConfig()).PercentVisible(), 1e-9, c.Algorithm())
	}
}

func TestHybridRasterizesMaskedTiles(t *testing.T) {
	m := newScene()
	mask := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	mask.Set(0, 0, color.NRGBA{A: 255})
	mask.Set(0, 1, color.NRGBA{A: 255})
	require.NoError(t, m.AddTile(&scene.Tile{
		Rect:      core.AABB{Min: core.Vector2D{X: 300, Y: -200}, Max: core.Vector2D{X: 900, Y: 200}},
		Elevation: 70,
		Mask:      mask,
	}))

	cfg := pointsConfig()
	ras := NewRaster(m, nil, zerolog.Nop()).Calculate(request(target()), cfg).PercentVisible()
	hyb := NewHybrid(m, nil, zerolog.Nop()).Calculate(request(target()), cfg).PercentVisible()
	assert.Equal(t, ras, hyb)
	assert.Less(t, ras, 1.0)
}

func TestDeviceFailureIsNotVisible(t *testing.T) {
	pool := raster.NewPool(func(int, int) (raster.Device, error) { return nil, errors.New("no gpu") })
	res := NewRaster(newScene(), pool, zerolog.Nop()).Calculate(request(target()), pointsConfig())
	assert.Equal(t, result.FullyNotVisible, res.State())
	assert.True(t, result.IsFailed(res))
}

func TestDegenerateTarget(t *testing.T) {
	flat := &scene.Token{Footprint: core.Polygon2D{{X: 1, Y: 1}, {X: 2, Y: 2}}, TopZ: 10}
	for _, c := range calculators(newScene()) {
		assert.Equal(t, result.FullyNotVisible, c.Calculate(request(flat), pointsConfig()).State(), c.Algorithm())
	}
}

func TestParseLightingTest(t *testing.T) {
	for in, want := range map[string]LightingTest{"": LightingOff, "OFF": LightingOff, "lit": LightingLitOnly, " lit-only ": LightingLitOnly} {
		got, ok := ParseLightingTest(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseLightingTest("moonlight")
	assert.False(t, ok)
	assert.NotPanics(t, RecordNoObstacles)
}
