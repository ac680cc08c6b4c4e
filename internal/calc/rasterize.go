package calc

import (
	"fmt"

	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/projection"
	"sightline/internal/raster"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Raster draws the target in a marker color, paints occluders over it and
// counts the marker pixels that survive
type Raster struct {
	base
	pool *raster.Pool
	pix  []byte
}

// NewRaster creates a rasterizing calculator. A nil pool renders on the
// software device.
func NewRaster(src scene.Source, pool *raster.Pool, log zerolog.Logger) *Raster {
	if pool == nil {
		pool = raster.NewPool(nil)
	}
	return &Raster{base: newBase(AlgorithmRaster, src, log), pool: pool}
}

func (r *Raster) Calculate(req Request, cfg Config) result.Result {
	return r.calculate(req, cfg, r)
}

func (r *Raster) measure(j *job) result.Result {
	w, h := j.cfg.rasterSize()
	dev, err := r.pool.Acquire(w, h)
	if err != nil {
		r.log.Error().Err(err).Msg("acquiring render device")
		return r.shortcut(reasonDevice, result.Failed())
	}
	defer r.pool.Release(dev)

	res, err := r.render(dev, j, w, h)
	if err != nil {
		r.log.Error().Err(err).Uint64("target", j.target.ID).Msg("rendering visibility")
		return r.shortcut(reasonDevice, result.Failed())
	}
	return res
}

func (r *Raster) render(dev raster.Device, j *job, w, h int) (result.Result, error) {
	cam := cameraFor(j.target, j.vp)

	pre, err := r.drawTarget(dev, cam, j.target, j.vp, w, h)
	if err != nil {
		return nil, err
	}
	if pre == 0 {
		return r.shortcut(reasonEmpty, result.NotVisible()), nil
	}

	var opaque raster.Mesh
	for _, rg := range opaqueRings(j, false) {
		opaque.AddPolygon(cam.ProjectVertices(rg), w, h)
	}
	if err := opaque.Draw(dev, &raster.DrawOptions{Color: raster.OccluderColor, DepthTest: true}); err != nil {
		return nil, fmt.Errorf("draw occluders: %w", err)
	}

	var queue raster.DrawQueue
	for _, mt := range maskedTiles(j) {
		var m raster.Mesh
		m.AddPolygon(cam.ProjectVertices(mt.face), w, h)
		if m.Empty() {
			continue
		}
		queue.Enqueue(&raster.DrawItem{
			Vertices: m.Vertices,
			Indices:  m.Indices,
			Depth:    nearestDepth(cam, []ring{mt.face}),
			Options: raster.DrawOptions{
				Color:          raster.OccluderColor,
				DepthTest:      true,
				Mask:           mt.tile.Mask,
				AlphaThreshold: mt.tile.Threshold(),
			},
		})
	}
	for _, layer := range terrainLayers(j) {
		var m raster.Mesh
		for _, rg := range layer {
			m.AddPolygon(cam.ProjectVertices(rg), w, h)
		}
		if m.Empty() {
			continue
		}
		queue.Enqueue(&raster.DrawItem{
			Vertices: m.Vertices,
			Indices:  m.Indices,
			Depth:    nearestDepth(cam, layer),
			Options: raster.DrawOptions{
				Color:     raster.TerrainColor,
				Blend:     raster.BlendAdd,
				DepthTest: true,
			},
		})
	}
	if err := queue.Flush(dev); err != nil {
		return nil, fmt.Errorf("draw layered occluders: %w", err)
	}

	post, err := r.count(dev, w, h)
	if err != nil {
		return nil, err
	}

	denom := pre
	if j.large() {
		dev.Clear()
		cell, err := r.drawTarget(dev, cam, referenceCell(j.target, j.grid), j.vp, w, h)
		if err != nil {
			return nil, err
		}
		if cell > 0 {
			denom = min(pre, cell)
		}
	}

	r.log.Trace().
		Uint64("target", j.target.ID).
		Int("pre", pre).
		Int("post", post).
		Int("denominator", denom).
		Msg("pixels counted")
	return result.NewArea(float64(denom), float64(post)), nil
}

// drawTarget renders the target's front faces and returns the pixel count
func (r *Raster) drawTarget(dev raster.Device, cam *projection.Camera, t *scene.Token, vp core.Vector3D, w, h int) (int, error) {
	var m raster.Mesh
	for _, rg := range targetRings(t, vp) {
		m.AddPolygon(cam.ProjectVertices(rg), w, h)
	}
	if err := m.Draw(dev, &raster.DrawOptions{Color: raster.TargetColor, DepthWrite: true}); err != nil {
		return 0, fmt.Errorf("draw target: %w", err)
	}
	return r.count(dev, w, h)
}

func (r *Raster) count(dev raster.Device, w, h int) (int, error) {
	if n := 4 * w * h; cap(r.pix) < n {
		r.pix = make([]byte, n)
	} else {
		r.pix = r.pix[:n]
	}
	if err := dev.ReadPixels(r.pix); err != nil {
		return 0, fmt.Errorf("read pixels: %w", err)
	}
	return raster.CountTarget(r.pix), nil
}
