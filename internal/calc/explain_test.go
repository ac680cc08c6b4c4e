package calc

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/core"
	"sightline/internal/result"
)

func ringsArea(rings []core.Polygon2D) float64 {
	var a float64
	for _, r := range rings {
		a += r.Area()
	}
	return a
}

func TestExplainHalfCovered(t *testing.T) {
	g := NewGeometric(halfWallScene(t), zerolog.Nop())
	b := g.Explain(request(target()), DefaultConfig())

	require.NotEmpty(t, b.Target)
	require.NotEmpty(t, b.Blocked)
	require.NotEmpty(t, b.Visible)
	assert.InDelta(t, 0.5, b.Result.PercentVisible(), 1e-3)
	assert.InDelta(t, 0.5, ringsArea(b.Visible)/ringsArea(b.Target), 1e-3)
}

func TestExplainUnobstructedAndShortcut(t *testing.T) {
	g := NewGeometric(newScene(), zerolog.Nop())

	b := g.Explain(request(target()), DefaultConfig())
	require.NotEmpty(t, b.Target)
	assert.Empty(t, b.Blocked)
	assert.InDelta(t, ringsArea(b.Target), ringsArea(b.Visible), 1e-6)
	assert.Equal(t, 1.0, b.Result.PercentVisible())

	cfg := DefaultConfig()
	cfg.Radius = 10
	b = g.Explain(request(target()), cfg)
	assert.Empty(t, b.Target)
	assert.Equal(t, result.FullyNotVisible, b.Result.State())
}
