package debugplot

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/calc"
	"sightline/internal/core"
	"sightline/internal/result"
)

func square(x0, y0, x1, y1 float64) core.Polygon2D {
	return core.Rect(core.AABB{Min: core.Vector2D{X: x0, Y: y0}, Max: core.Vector2D{X: x1, Y: y1}})
}

func breakdown() calc.Breakdown {
	return calc.Breakdown{
		Target:  []core.Polygon2D{square(0, 0, 100, 100)},
		Blocked: []core.Polygon2D{square(50, -20, 150, 120)},
		Visible: []core.Polygon2D{square(0, 0, 50, 100)},
		Result:  result.NewArea(10000, 5000),
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(breakdown(), "half wall", &buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 100)
}

func TestSave(t *testing.T) {
	file := filepath.Join(t.TempDir(), "breakdown.png")
	require.NoError(t, Save(breakdown(), "half wall", file))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestNewWithoutRings(t *testing.T) {
	p, err := New(calc.Breakdown{Result: result.NotVisible()}, "radius")
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "radius")
}
