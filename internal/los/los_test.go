package los

import (
	"bytes"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/calc"
	"sightline/internal/core"
	"sightline/internal/result"
	"sightline/internal/scene"
)

type fakeCalc struct {
	calls int
	eyes  []core.Vector3D
	fn    func(eye core.Vector3D) result.Result
}

func (f *fakeCalc) Algorithm() calc.Algorithm { return calc.AlgorithmPoints }

func (f *fakeCalc) Calculate(req calc.Request, _ calc.Config) result.Result {
	f.calls++
	f.eyes = append(f.eyes, *req.Viewpoint)
	return f.fn(*req.Viewpoint)
}

func constant(r result.Result) func(core.Vector3D) result.Result {
	return func(core.Vector3D) result.Result { return r }
}

func newScene() *scene.Manager {
	return scene.NewManager(scene.ManagerConfig{
		Bounds:   core.AABB{Min: core.Vector2D{X: -2000, Y: -2000}, Max: core.Vector2D{X: 2000, Y: 2000}},
		GridSize: 100,
	})
}

// sceneWithPair adds a viewer at the origin, a target 1000 units ahead and
// a wall in between so the simple test never decides
func sceneWithPair(t *testing.T) (*scene.Manager, *scene.Token, *scene.Token) {
	t.Helper()
	m := newScene()
	viewer := scene.NewSquareToken(core.Vector2D{}, 50, 0, 50)
	target := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 0, 100)
	require.NoError(t, m.AddToken(viewer))
	require.NoError(t, m.AddToken(target))
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 800, Y: -300}, core.Vector2D{X: 800, Y: 300})))
	return m, viewer, target
}

func selection(t *testing.T, s string) scene.PointSelection {
	t.Helper()
	sel, err := scene.ParsePointSelection(s, scene.DepthTop)
	require.NoError(t, err)
	return sel
}

func TestHasLOS(t *testing.T) {
	assert.True(t, HasLOS(0.5, 0.5))
	assert.True(t, HasLOS(0.5-1e-9, 0.5))
	assert.True(t, HasLOS(0.7, 0.5))
	assert.False(t, HasLOS(0.49, 0.5))
	assert.True(t, HasLOS(0, 0))
}

func TestOverlapIsVisible(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	fake := &fakeCalc{fn: constant(result.NotVisible())}
	l := New(viewer, m, fake, DefaultConfig(), zerolog.Nop())

	inside := scene.NewSquareToken(core.Vector2D{X: 10, Y: 0}, 50, 20, 80)
	assert.Equal(t, 1.0, l.PercentVisible(inside))
	assert.Zero(t, fake.calls)

	assert.Equal(t, 0.0, l.PercentVisible(target))
	assert.Equal(t, 1, fake.calls)
}

func TestOutsideConeIsNotVisible(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	viewer.Facing = math.Pi
	viewer.ConeOfVision = math.Pi / 2

	fake := &fakeCalc{fn: constant(result.Visible())}
	l := New(viewer, m, fake, DefaultConfig(), zerolog.Nop())
	assert.Equal(t, 0.0, l.PercentVisible(target))
	assert.Zero(t, fake.calls)

	// A cone grazing one corner of the target is enough to measure
	viewer.Facing = math.Atan2(50, 950)
	viewer.ConeOfVision = 0.01
	assert.Equal(t, 1.0, l.PercentVisible(target))
	assert.Equal(t, 1, fake.calls)
}

func TestOneEyeSeesEverything(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	cfg := DefaultConfig()
	cfg.ViewerPoints = selection(t, "facing-corner,mid-corner/top,bottom")
	cfg.Threshold = 0.5

	fake := &fakeCalc{fn: func(eye core.Vector3D) result.Result {
		if eye.Y > 0 && eye.Z == 0 {
			return result.Visible()
		}
		return result.NewArea(100, 0)
	}}
	l := New(viewer, m, fake, cfg, zerolog.Nop())

	assert.Equal(t, 1.0, l.PercentVisible(target))
	assert.LessOrEqual(t, fake.calls, 4)
	assert.Len(t, l.Viewpoints(), 4)
	last := fake.eyes[len(fake.eyes)-1]
	assert.Greater(t, last.Y, 0.0)
	assert.Zero(t, last.Z)
}

func TestEyesCombineWhenNoneReachesThreshold(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	cfg := DefaultConfig()
	cfg.ViewerPoints = selection(t, "facing-corner/top")
	cfg.Threshold = 0.9

	fake := &fakeCalc{fn: func(eye core.Vector3D) result.Result {
		if eye.Y > 0 {
			return result.NewPoints([]bool{true, false, false, false})
		}
		return result.NewPoints([]bool{false, true, false, false})
	}}
	l := New(viewer, m, fake, cfg, zerolog.Nop())
	assert.InDelta(t, 0.5, l.PercentVisible(target), 1e-9)
	assert.Equal(t, 2, fake.calls)

	cfg.Threshold = 0.2
	l.SetConfig(cfg)
	assert.InDelta(t, 0.25, l.PercentVisible(target), 1e-9)
	assert.True(t, l.HasLOS(target))
}

func TestSelfOccludedEyesSkipped(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	cfg := DefaultConfig()
	cfg.ViewerPoints = selection(t, "corners/top")

	fake := &fakeCalc{fn: constant(result.NewArea(10, 5))}
	l := New(viewer, m, fake, cfg, zerolog.Nop())
	l.Calculate(target)

	require.Len(t, l.Viewpoints(), 2)
	for _, vp := range l.Viewpoints() {
		assert.InDelta(t, 25.0, vp.Position.X, 1e-9)
		assert.InDelta(t, 50.0, vp.Position.Z, 1e-9)
		assert.NotNil(t, vp.Last())
	}
}

func TestViewpointSimpleTest(t *testing.T) {
	m := newScene()
	target := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 0, 100)
	fake := &fakeCalc{fn: constant(result.NotVisible())}
	vp := NewViewpoint(nil, core.Vector3D{Z: 50}, m, fake, zerolog.Nop())
	cfg := calc.DefaultConfig()

	assert.Equal(t, result.FullyVisible, vp.Calculate(target, cfg).State())
	assert.Zero(t, fake.calls)
	assert.Equal(t, result.FullyVisible, vp.Last().State())

	cfg.Radius = 500
	assert.Nil(t, vp.SimpleVisibilityTest(target, cfg))
	vp.Calculate(target, cfg)
	assert.Equal(t, 1, fake.calls)

	// center in range, far corners out of range
	cfg.Radius = 1020
	assert.Nil(t, vp.SimpleVisibilityTest(target, cfg))
	cfg.Radius = 1100
	assert.Equal(t, result.FullyVisible, vp.SimpleVisibilityTest(target, cfg).State())

	m.SetBackgroundElevation(200)
	floating := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 300, 400)
	assert.Equal(t, result.FullyNotVisible, vp.SimpleVisibilityTest(floating, calc.DefaultConfig()).State())
}

func TestViewerLOSWithPoints(t *testing.T) {
	m := newScene()
	viewer := scene.NewSquareToken(core.Vector2D{}, 50, 0, 50)
	target := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 0, 100)
	require.NoError(t, m.AddToken(viewer))
	require.NoError(t, m.AddToken(target))
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 500, Y: 0}, core.Vector2D{X: 500, Y: 200})))

	cfg := DefaultConfig()
	cfg.Calc.TargetPoints = selection(t, "center,corners/mid")
	l := New(viewer, m, calc.NewPoints(m, zerolog.Nop()), cfg, zerolog.Nop())
	assert.InDelta(t, 0.6, l.PercentVisible(target), 1e-9)
	assert.True(t, l.HasLOS(target))
}

func TestCacheReuseAndInvalidation(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	other := scene.NewSquareToken(core.Vector2D{X: -500, Y: 500}, 50, 0, 50)
	require.NoError(t, m.AddToken(other))

	fake := &fakeCalc{fn: constant(result.NewArea(10, 5))}
	c := NewCached(New(viewer, m, fake, DefaultConfig(), zerolog.Nop()), m.Tracker())

	assert.Equal(t, 0.5, c.PercentVisible(target))
	assert.Equal(t, 0.5, c.PercentVisible(target))
	assert.Equal(t, 1, fake.calls, "second call served from cache")
	assert.Equal(t, 1, c.Len())

	// target moved
	moved := target.WithFootprint(target.Footprint.Translate(core.Vector2D{Y: 10}))
	require.NoError(t, m.UpdateToken(moved))
	c.Calculate(moved)
	assert.Equal(t, 2, fake.calls)
	c.Calculate(moved)
	assert.Equal(t, 2, fake.calls)

	// another body changed
	otherMoved := other.WithFootprint(other.Footprint.Translate(core.Vector2D{X: 10}))
	require.NoError(t, m.UpdateToken(otherMoved))
	c.Calculate(moved)
	assert.Equal(t, 3, fake.calls)

	// obstacles changed
	require.NoError(t, m.AddWall(scene.NewWall(core.Vector2D{X: 700, Y: -300}, core.Vector2D{X: 700, Y: 300})))
	c.Calculate(moved)
	assert.Equal(t, 4, fake.calls)

	// viewer changed
	turned := *viewer
	turned.Facing = 0.1
	require.NoError(t, m.UpdateToken(&turned))
	c.SetViewer(&turned)
	c.Calculate(moved)
	assert.Equal(t, 5, fake.calls)

	// configuration changed
	cfg := c.Config()
	cfg.Threshold = 0.4
	c.SetConfig(cfg)
	assert.True(t, c.HasLOS(moved))
	assert.Equal(t, 6, fake.calls)
	c.Calculate(moved)
	assert.Equal(t, 6, fake.calls)
}

func TestCacheSkipsFailuresAndDetachedTargets(t *testing.T) {
	m, viewer, target := sceneWithPair(t)
	fake := &fakeCalc{fn: constant(result.Failed())}
	c := NewCached(New(viewer, m, fake, DefaultConfig(), zerolog.Nop()), m.Tracker())

	assert.Equal(t, 0.0, c.PercentVisible(target))
	assert.Zero(t, c.Len())
	c.Calculate(target)
	assert.Equal(t, 2, fake.calls)

	fake.fn = constant(result.NewArea(4, 1))
	detached := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 100}, 100, 0, 100)
	assert.Equal(t, 0.25, c.PercentVisible(detached))
	assert.Zero(t, c.Len())
}

type litArea struct{ poly core.Polygon2D }

func (l litArea) LitPolygon(*scene.Token) core.Polygon2D { return l.poly }

func TestCacheDropsEntriesOnNewLitShape(t *testing.T) {
	m := newScene()
	viewer := scene.NewSquareToken(core.Vector2D{}, 50, 0, 50)
	target := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 0, 100)
	require.NoError(t, m.AddToken(viewer))
	require.NoError(t, m.AddToken(target))

	cfg := DefaultConfig()
	cfg.Calc.LightingTest = calc.LightingLitOnly
	cfg.Calc.LitShape = litArea{poly: target.Footprint}
	c := NewCached(New(viewer, m, calc.NewGeometric(m, zerolog.Nop()), cfg, zerolog.Nop()), m.Tracker())

	assert.InDelta(t, 1.0, c.PercentVisible(target), 1e-3)
	assert.Equal(t, 1, c.Len())

	cfg.Calc.LitShape = litArea{poly: core.Rect(core.AABB{
		Min: core.Vector2D{X: -1500, Y: -1500},
		Max: core.Vector2D{X: -1400, Y: -1400},
	})}
	c.SetConfig(cfg)
	assert.Zero(t, c.Len())
	assert.Equal(t, 0.0, c.PercentVisible(target))

	fresh := New(viewer, m, calc.NewGeometric(m, zerolog.Nop()), cfg, zerolog.Nop())
	assert.Equal(t, fresh.PercentVisible(target), c.PercentVisible(target))
}

func TestEyeLoggerIsSampled(t *testing.T) {
	m := newScene()
	viewer := scene.NewSquareToken(core.Vector2D{}, 50, 0, 50)
	target := scene.NewSquareToken(core.Vector2D{X: 1000, Y: 0}, 100, 0, 100)
	require.NoError(t, m.AddToken(viewer))
	require.NoError(t, m.AddToken(target))

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.TraceLevel)
	fake := &fakeCalc{fn: constant(result.NotVisible())}
	l := New(viewer, m, fake, DefaultConfig(), log)

	assert.Equal(t, 1.0, l.PercentVisible(target))
	assert.Zero(t, fake.calls)
	assert.Contains(t, buf.String(), "no obstacles between eye and target")
	assert.Contains(t, buf.String(), `"sampled":true`)
}
