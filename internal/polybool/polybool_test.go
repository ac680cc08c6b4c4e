package polybool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/core"
)

func rect(x0, y0, x1, y1 float64) core.Polygon2D {
	return core.Rect(core.AABB{Min: core.Vector2D{X: x0, Y: y0}, Max: core.Vector2D{X: x1, Y: y1}})
}

func TestAreaOps(t *testing.T) {
	a := Polygon(rect(0, 0, 10, 10))
	b := Polygon(rect(5, 0, 15, 10))
	assert.InDelta(t, 100, a.Area(), 1e-9)

	u, err := a.Union(b)
	require.NoError(t, err)
	assert.InDelta(t, 150, u.Area(), 1e-9)

	i, err := a.Intersect(b)
	require.NoError(t, err)
	assert.InDelta(t, 50, i.Area(), 1e-9)

	d, err := a.Difference(b)
	require.NoError(t, err)
	assert.InDelta(t, 50, d.Area(), 1e-9)
}

func TestEmptyShapes(t *testing.T) {
	var empty Shape
	assert.True(t, empty.Empty())
	assert.Zero(t, empty.Area())

	degenerate := Polygon(core.Polygon2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.True(t, degenerate.Empty())

	a := Polygon(rect(0, 0, 10, 10))
	u, err := empty.Union(a)
	require.NoError(t, err)
	assert.InDelta(t, 100, u.Area(), 1e-9)

	i, err := a.Intersect(empty)
	require.NoError(t, err)
	assert.True(t, i.Empty())

	disjoint, err := a.Intersect(Polygon(rect(20, 20, 30, 30)))
	require.NoError(t, err)
	assert.True(t, disjoint.Empty())
}

func TestUnionAllRings(t *testing.T) {
	s, err := UnionAll([]Shape{
		Polygon(rect(0, 0, 1, 1)),
		{},
		Polygon(rect(5, 5, 6, 6)),
	})
	require.NoError(t, err)
	assert.InDelta(t, 2, s.Area(), 1e-9)
	assert.Len(t, s.Rings(), 2)

	// clockwise input is accepted
	cw := core.Polygon2D{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}}
	assert.InDelta(t, 16, Polygon(cw).Area(), 1e-9)
	assert.Len(t, Polygon(cw).Rings()[0], 4)
}

func TestSelfIntersectingRingIsEmpty(t *testing.T) {
	// the closing edge crosses the first edge, leaving a net area of 10
	crossed := core.Polygon2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 3, Y: -5}}
	require.InDelta(t, 10, crossed.Area(), 1e-9)

	s := Polygon(crossed)
	assert.True(t, s.Empty())
	assert.Zero(t, s.Area())

	u, err := s.Union(Polygon(rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.InDelta(t, 1, u.Area(), 1e-9)
}
