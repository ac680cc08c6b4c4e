package frustum

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/core"
	"sightline/internal/scene"
)

func square(cx, cy, size float64) core.Polygon2D {
	h := size / 2
	return core.Rect(core.AABB{
		Min: core.Vector2D{X: cx - h, Y: cy - h},
		Max: core.Vector2D{X: cx + h, Y: cy + h},
	})
}

func TestBuildSymmetricBase(t *testing.T) {
	f := Build(core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100), 0, 100)

	// Base sits on the line through the target center
	assert.InDelta(t, 1000, f.Left.X, 1e-9)
	assert.InDelta(t, 1000, f.Right.X, 1e-9)
	assert.InDelta(t, -f.Right.Y, f.Left.Y, 1e-9)
	assert.Greater(t, f.Left.Y, 50.0)

	// Clockwise (viewpoint, left, right)
	assert.Less(t, core.Orientation(f.Viewpoint.To2D(), f.Left, f.Right), 0.0)

	assert.Equal(t, 0.0, f.MinZ)
	assert.Equal(t, 100.0, f.MaxZ)
}

func TestBoundsContainFaces(t *testing.T) {
	cases := []struct {
		name string
		vp   core.Vector3D
		fp   core.Polygon2D
	}{
		{"ahead", core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100)},
		{"above", core.Vector3D{X: 200, Y: 300, Z: 500}, square(0, 0, 50)},
		{"triangle", core.Vector3D{X: -100, Y: 40, Z: 0}, core.Polygon2D{{X: 0, Y: 0}, {X: 60, Y: 10}, {X: 20, Y: 80}}},
		{"inside", core.Vector3D{X: 0, Y: 0, Z: 10}, square(0, 0, 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Build(tc.vp, tc.fp, 0, 20)
			b := f.Bounds()
			for _, face := range f.Faces() {
				for _, v := range face {
					assert.True(t, b.Contains(v), "face vertex %+v outside %+v", v, b)
				}
			}
			assert.GreaterOrEqual(t, f.MaxZ-f.MinZ, MinElevationSpan)
		})
	}
}

func TestOutwardNormals(t *testing.T) {
	f := Build(core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100), 0, 100)
	interior := core.Vector3D{X: 500, Y: 0, Z: 50}
	for i, plane := range f.Planes() {
		assert.Less(t, plane.SignedDistance(interior), 0.0, "plane %d", i)
	}
	assert.True(t, f.ContainsPoint(interior))
	assert.False(t, f.ContainsPoint(core.Vector3D{X: 500, Y: 200, Z: 50}))
	assert.False(t, f.ContainsPoint(core.Vector3D{X: -10, Y: 0, Z: 50}))
	assert.False(t, f.ContainsPoint(core.Vector3D{X: 1200, Y: 0, Z: 50}))
}

func TestOverlapTests(t *testing.T) {
	f := Build(core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100), 0, 100)

	assert.True(t, f.OverlapsSegment(core.Vector3D{X: 500, Y: -500, Z: 50}, core.Vector3D{X: 500, Y: 500, Z: 50}))
	assert.False(t, f.OverlapsSegment(core.Vector3D{X: 500, Y: 100, Z: 50}, core.Vector3D{X: 500, Y: 500, Z: 50}))

	assert.True(t, f.OverlapsAABB(core.AABB3D{Min: core.Vector3D{X: 400, Y: -5, Z: 40}, Max: core.Vector3D{X: 410, Y: 5, Z: 60}}))
	assert.False(t, f.OverlapsAABB(core.AABB3D{Min: core.Vector3D{X: 400, Y: 300, Z: 40}, Max: core.Vector3D{X: 410, Y: 310, Z: 60}}))

	assert.True(t, f.OverlapsSphere(core.Vector3D{X: 500, Y: 40, Z: 50}, 20))
	assert.False(t, f.OverlapsSphere(core.Vector3D{X: 500, Y: 200, Z: 50}, 20))

	// Large quad that swallows the frustum cross-section: only frustum edges hit it
	quad := core.Polygon3D{{X: 500, Y: -1000, Z: -1000}, {X: 500, Y: 1000, Z: -1000}, {X: 500, Y: 1000, Z: 1000}, {X: 500, Y: -1000, Z: 1000}}
	assert.True(t, f.OverlapsPolygon(quad))
}

func newScene() *scene.Manager {
	return scene.NewManager(scene.ManagerConfig{
		Bounds: core.AABB{Min: core.Vector2D{X: -3000, Y: -3000}, Max: core.Vector2D{X: 3000, Y: 3000}},
	})
}

func TestFindObstacles(t *testing.T) {
	m := newScene()
	inside := scene.NewWall(core.Vector2D{X: 500, Y: 0}, core.Vector2D{X: 500, Y: 200})
	outside := scene.NewWall(core.Vector2D{X: 500, Y: 300}, core.Vector2D{X: 500, Y: 400})
	behind := scene.NewWall(core.Vector2D{X: -500, Y: -100}, core.Vector2D{X: -500, Y: 100})
	// A->B runs north at x=600; the viewpoint is on its left, so a
	// right-only wall ignores it
	oneWay := scene.NewWall(core.Vector2D{X: 600, Y: -100}, core.Vector2D{X: 600, Y: 100})
	oneWay.Direction = scene.DirectionRight
	for _, w := range []*scene.Wall{inside, outside, behind, oneWay} {
		require.NoError(t, m.AddWall(w))
	}

	tileIn := &scene.Tile{Rect: core.AABB{Min: core.Vector2D{X: 300, Y: -50}, Max: core.Vector2D{X: 400, Y: 50}}, Elevation: 45}
	tileHigh := &scene.Tile{Rect: core.AABB{Min: core.Vector2D{X: 300, Y: -50}, Max: core.Vector2D{X: 400, Y: 50}}, Elevation: 500}
	require.NoError(t, m.AddTile(tileIn))
	require.NoError(t, m.AddTile(tileHigh))

	body := scene.NewSquareToken(core.Vector2D{X: 700, Y: 0}, 50, 0, 100)
	far := scene.NewSquareToken(core.Vector2D{X: 700, Y: 900}, 50, 0, 100)
	require.NoError(t, m.AddToken(body))
	require.NoError(t, m.AddToken(far))

	zone := &scene.Region{Shape: square(200, 0, 100), BottomZ: 0, TopZ: 100}
	require.NoError(t, m.AddRegion(zone))

	f := Build(core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100), 0, 100)
	log := zerolog.Nop()

	walls := f.FindWalls(m, log)
	require.Len(t, walls, 1)
	assert.Equal(t, inside.ID, walls[0].ID)

	tiles := f.FindTiles(m, log)
	require.Len(t, tiles, 1)
	assert.Equal(t, tileIn.ID, tiles[0].ID)

	tokens := f.FindTokens(m, log)
	require.Len(t, tokens, 1)
	assert.Equal(t, body.ID, tokens[0].ID)

	regions := f.FindRegions(m, log)
	require.Len(t, regions, 1)
}

func TestFindSkipsMissingGeometry(t *testing.T) {
	m := newScene()
	broken := &scene.Token{Footprint: core.Polygon2D{{X: 500, Y: 0}, {X: 501, Y: 0}}, BottomZ: 0, TopZ: 100}
	require.NoError(t, m.AddToken(broken))

	f := Build(core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100), 0, 100)
	assert.Empty(t, f.FindTokens(m, zerolog.Nop()))
}

func TestRebuildInPlace(t *testing.T) {
	f := Build(core.Vector3D{X: 0, Y: 0, Z: 50}, square(1000, 0, 100), 0, 100)
	f.Rebuild(core.Vector3D{X: 0, Y: 0, Z: 50}, square(0, 1000, 100), 0, 100)
	assert.InDelta(t, 1000, f.Left.Y, 1e-9)
	assert.InDelta(t, 1000, f.Right.Y, 1e-9)
	assert.False(t, math.IsNaN(f.Bounds().Max.X))
	assert.True(t, f.ContainsPoint(core.Vector3D{X: 0, Y: 500, Z: 50}))
}
