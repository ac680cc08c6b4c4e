package calc

import (
	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Points samples a lattice of target points and casts one ray to each
type Points struct {
	base
}

// NewPoints creates a point-sampling calculator
func NewPoints(src scene.Source, log zerolog.Logger) *Points {
	return &Points{base: newBase(AlgorithmPoints, src, log)}
}

func (p *Points) Calculate(req Request, cfg Config) result.Result {
	return p.calculate(req, cfg, p)
}

func (p *Points) measure(j *job) result.Result {
	sel := j.cfg.TargetPoints
	if sel.Planar == 0 {
		sel = scene.CenterOnly
	}
	facing := j.vp.To2D().Sub(j.target.Center()).Normalize()

	shapes := []*scene.Token{j.target}
	if j.large() {
		if cs := cells(j.target, j.grid); len(cs) > 0 {
			shapes = cs
		}
	}

	groups := make([][]bool, 0, len(shapes))
	for _, shape := range shapes {
		pts := shape.SelectPoints(sel, facing, j.cfg.TargetInset)
		group := make([]bool, len(pts))
		for i, pt := range pts {
			group[i] = p.unobscured(j, pt)
		}
		groups = append(groups, group)
	}

	res := result.NewPoints(groups...)
	p.log.Trace().Uint64("target", j.target.ID).Str("points", res.String()).Msg("points measured")
	return res
}

// unobscured reports whether pt is in range, in the viewer's cone and not
// occluded
func (p *Points) unobscured(j *job, pt core.Vector3D) bool {
	if j.cfg.Radius > 0 && j.vp.DistanceSquaredTo(pt) > j.cfg.Radius*j.cfg.Radius {
		return false
	}
	if j.viewer != nil && !j.viewer.InCone(j.vp.To2D(), pt.To2D()) {
		return false
	}
	return !j.test.RayIsOccluded(j.vp, pt.Sub(j.vp))
}
