package calc

import (
	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/frustum"
	"sightline/internal/occlusion"
	"sightline/internal/polybool"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// job is one prepared calculation: pre-tests passed, frustum built and
// obstacles discovered
type job struct {
	viewer  *scene.Token
	target  *scene.Token
	vp      core.Vector3D
	cfg     Config
	grid    float64
	frustum *frustum.Frustum
	test    *occlusion.Test
}

func (j *job) large() bool {
	return j.cfg.LargeTarget && isLarge(j.target, j.grid)
}

// measurer is the strategy-specific half of a calculation
type measurer interface {
	measure(j *job) result.Result
}

// base carries the state every strategy shares. The frustum and occlusion
// test are rebuilt in place on every call.
type base struct {
	alg     Algorithm
	src     scene.Source
	log     zerolog.Logger
	frustum *frustum.Frustum
	test    *occlusion.Test
	metrics instruments
}

func newBase(alg Algorithm, src scene.Source, log zerolog.Logger) base {
	log = log.With().Str("algorithm", string(alg)).Logger()
	return base{
		alg:     alg,
		src:     src,
		log:     log,
		frustum: &frustum.Frustum{},
		test:    occlusion.New(log),
		metrics: newInstruments(log),
	}
}

func (b *base) Algorithm() Algorithm { return b.alg }

// calculate runs the shared pipeline and hands prepared jobs to m
func (b *base) calculate(req Request, cfg Config, m measurer) result.Result {
	j, res := b.prepare(req, cfg)
	if res == nil {
		res = m.measure(j)
	}
	b.metrics.calculated(b.alg, res)
	return res
}

// prepare runs the pre-tests. A non-nil result ends the calculation.
func (b *base) prepare(req Request, cfg Config) (*job, result.Result) {
	vp, target := req.Normalize()
	if target == nil || len(target.Footprint) < 3 || target.Footprint.Area() < core.Epsilon {
		b.log.Warn().Msg("target has no footprint")
		return nil, b.shortcut(reasonNoTarget, result.NotVisible())
	}

	if cfg.Radius > 0 && vp.DistanceSquaredTo(target.Center3D()) > cfg.Radius*cfg.Radius {
		return nil, b.shortcut(reasonRadius, result.NotVisible())
	}

	if target.ContainsPoint(vp) {
		return nil, b.shortcut(reasonInside, result.Visible())
	}

	if cfg.ConstrainTarget {
		var walls []*scene.Wall
		for _, ob := range b.src.QueryObstacles(scene.KindWall, target.Bounds()) {
			if w, ok := ob.(*scene.Wall); ok {
				walls = append(walls, w)
			}
		}
		target = target.WithFootprint(scene.ConstrainFootprint(target, walls, cfg.Channel))
	}

	if cfg.LightingTest == LightingLitOnly && cfg.LitShape != nil {
		lit, ok := b.litFootprint(target, cfg.LitShape)
		if !ok {
			return nil, b.shortcut(reasonUnlit, result.NotVisible())
		}
		target = lit
	}

	grid := cfg.GridSize
	if grid <= 0 {
		grid = b.src.GridSize()
	}

	var viewerID, targetID uint64
	if req.Viewer != nil {
		viewerID = req.Viewer.ID
	}
	targetID = target.ID

	b.frustum.Rebuild(vp, target.Footprint, target.BottomZ, target.TopZ)
	b.test.Initialize(b.frustum, b.src, cfg.Occlusion(), viewerID, targetID)

	return &job{
		viewer:  req.Viewer,
		target:  target,
		vp:      vp,
		cfg:     cfg,
		grid:    grid,
		frustum: b.frustum,
		test:    b.test,
	}, nil
}

// litFootprint clips the target to the lit area. ok is false when nothing
// of the footprint is lit.
func (b *base) litFootprint(target *scene.Token, ls LitShape) (*scene.Token, bool) {
	lit := polybool.Polygon(ls.LitPolygon(target))
	if lit.Empty() {
		return nil, false
	}
	inter, err := polybool.Polygon(target.Footprint).Intersect(lit)
	if err != nil {
		b.log.Warn().Err(err).Uint64("target", target.ID).Msg("lighting test failed, measuring the whole target")
		return target, true
	}
	ring := largestRing(inter.Rings())
	if len(ring) < 3 {
		return nil, false
	}
	return target.WithFootprint(ring), true
}

func (b *base) shortcut(reason string, res result.Result) result.Result {
	b.metrics.shortcut(reason)
	return res
}
