package calc

import (
	"github.com/rs/zerolog"

	"sightline/internal/raster"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Hybrid measures with polygon clipping and switches to rasterization when
// an alpha-masked tile is in view
type Hybrid struct {
	base
	geometric *Geometric
	raster    *Raster
}

// NewHybrid creates a hybrid calculator. Discovery runs once; the chosen
// strategy measures the prepared job.
func NewHybrid(src scene.Source, pool *raster.Pool, log zerolog.Logger) *Hybrid {
	return &Hybrid{
		base:      newBase(AlgorithmHybrid, src, log),
		geometric: NewGeometric(src, log),
		raster:    NewRaster(src, pool, log),
	}
}

func (h *Hybrid) Calculate(req Request, cfg Config) result.Result {
	return h.calculate(req, cfg, h)
}

func (h *Hybrid) measure(j *job) result.Result {
	if j.test.HasMaskedTiles() {
		h.log.Trace().Uint64("target", j.target.ID).Msg("masked tile in view, rasterizing")
		return h.raster.measure(j)
	}
	return h.geometric.measure(j)
}
