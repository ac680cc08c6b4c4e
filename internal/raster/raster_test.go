package raster

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad(x0, y0, x1, y1, w float32) ([]Vertex, []uint16) {
	return []Vertex{
			{X: x0, Y: y0, W: w, U: 0, V: 0},
			{X: x1, Y: y0, W: w, U: 1, V: 0},
			{X: x1, Y: y1, W: w, U: 1, V: 1},
			{X: x0, Y: y1, W: w, U: 0, V: 1},
		},
		[]uint16{0, 1, 2, 0, 2, 3}
}

func count(t *testing.T, dev Device) int {
	t.Helper()
	w, h := dev.Size()
	pix := make([]byte, 4*w*h)
	require.NoError(t, dev.ReadPixels(pix))
	return CountTarget(pix)
}

func TestSoftwareFillsExactCoverage(t *testing.T) {
	dev, err := NewSoftware(64, 64)
	require.NoError(t, err)

	v, idx := quad(8, 8, 40, 24, 10)
	require.NoError(t, dev.DrawTriangles(v, idx, &DrawOptions{Color: TargetColor, DepthWrite: true}))
	assert.Equal(t, 32*16, count(t, dev))

	dev.Clear()
	assert.Zero(t, count(t, dev))
}

func TestDepthTest(t *testing.T) {
	dev, err := NewSoftware(32, 32)
	require.NoError(t, err)

	target, idx := quad(0, 0, 32, 32, 100)
	require.NoError(t, dev.DrawTriangles(target, idx, &DrawOptions{Color: TargetColor, DepthWrite: true}))

	behind, _ := quad(0, 0, 16, 32, 200)
	require.NoError(t, dev.DrawTriangles(behind, idx, &DrawOptions{Color: OccluderColor, DepthTest: true}))
	assert.Equal(t, 32*32, count(t, dev))

	front, _ := quad(0, 0, 16, 32, 50)
	require.NoError(t, dev.DrawTriangles(front, idx, &DrawOptions{Color: OccluderColor, DepthTest: true}))
	assert.Equal(t, 16*32, count(t, dev))
}

func TestTerrainNeedsTwoLayers(t *testing.T) {
	dev, err := NewSoftware(32, 32)
	require.NoError(t, err)

	target, idx := quad(0, 0, 32, 32, 100)
	require.NoError(t, dev.DrawTriangles(target, idx, &DrawOptions{Color: TargetColor, DepthWrite: true}))

	terrain := &DrawOptions{Color: TerrainColor, Blend: BlendAdd, DepthTest: true}
	left, _ := quad(0, 0, 20, 32, 50)
	right, _ := quad(12, 0, 32, 32, 60)
	require.NoError(t, dev.DrawTriangles(left, idx, terrain))
	assert.Equal(t, 32*32, count(t, dev), "one layer leaves the target visible")

	require.NoError(t, dev.DrawTriangles(right, idx, terrain))
	assert.Equal(t, 32*32-8*32, count(t, dev), "only the overlap is blocked")
}

func TestAlphaMask(t *testing.T) {
	dev, err := NewSoftware(32, 32)
	require.NoError(t, err)

	target, idx := quad(0, 0, 32, 32, 100)
	require.NoError(t, dev.DrawTriangles(target, idx, &DrawOptions{Color: TargetColor, DepthWrite: true}))

	mask := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	mask.Set(0, 0, color.NRGBA{A: 255})
	tile, _ := quad(0, 0, 32, 32, 50)
	require.NoError(t, dev.DrawTriangles(tile, idx, &DrawOptions{
		Color:          OccluderColor,
		DepthTest:      true,
		Mask:           mask,
		AlphaThreshold: 0.75,
	}))
	assert.Equal(t, 16*32, count(t, dev))
}

func TestDeviceErrors(t *testing.T) {
	_, err := NewSoftware(0, 10)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	dev, err := NewSoftware(4, 4)
	require.NoError(t, err)
	assert.Error(t, dev.DrawTriangles(nil, []uint16{0, 1}, nil))
	assert.Error(t, dev.DrawTriangles([]Vertex{{}}, []uint16{0, 1, 2}, nil))
	assert.Error(t, dev.ReadPixels(make([]byte, 3)))

	dev.Dispose()
	assert.ErrorIs(t, dev.ReadPixels(make([]byte, 64)), ErrDeviceUnavailable)
}

func TestPoolReuse(t *testing.T) {
	p := NewPool(SoftwareFactory)
	a, err := p.Acquire(16, 16)
	require.NoError(t, err)
	p.Release(a)

	b, err := p.Acquire(32, 8)
	require.NoError(t, err)
	w, h := b.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 8, h)
	assert.Equal(t, 1, p.Created())
	p.Release(b)

	p.Close()
	_, err = p.Acquire(16, 16)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestPoolFactoryFailure(t *testing.T) {
	p := NewPool(func(int, int) (Device, error) { return nil, errors.New("no gpu") })
	_, err := p.Acquire(16, 16)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestQueueBackToFront(t *testing.T) {
	rec := &recorder{}
	var q DrawQueue
	for _, d := range []float64{3, 10, 1, 7} {
		q.Enqueue(&DrawItem{Indices: []uint16{}, Depth: d, Options: DrawOptions{AlphaThreshold: d}})
	}
	require.NoError(t, q.Flush(rec))
	assert.Equal(t, []float64{10, 7, 3, 1}, rec.order)
	assert.Zero(t, q.Len())
}

type recorder struct {
	Software
	order []float64
}

func (r *recorder) DrawTriangles(_ []Vertex, _ []uint16, opts *DrawOptions) error {
	r.order = append(r.order, opts.AlphaThreshold)
	return nil
}
