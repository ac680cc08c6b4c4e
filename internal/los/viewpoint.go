package los

import (
	"github.com/rs/zerolog"

	"sightline/internal/calc"
	"sightline/internal/core"
	"sightline/internal/frustum"
	"sightline/internal/occlusion"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Viewpoint is one eye of a viewer. It remembers the last result it
// produced.
type Viewpoint struct {
	Position core.Vector3D

	viewer  *scene.Token
	src     scene.Source
	calc    calc.Calculator
	log     zerolog.Logger
	frustum *frustum.Frustum
	test    *occlusion.Test
	last    result.Result
}

// NewViewpoint creates an eye at pos for viewer. viewer may be nil for a
// free-standing eye.
func NewViewpoint(viewer *scene.Token, pos core.Vector3D, src scene.Source, c calc.Calculator, log zerolog.Logger) *Viewpoint {
	return &Viewpoint{
		Position: pos,
		viewer:   viewer,
		src:      src,
		calc:     c,
		log:      log,
		frustum:  &frustum.Frustum{},
		test:     occlusion.New(log),
	}
}

// Last returns the most recent result, or nil
func (v *Viewpoint) Last() result.Result { return v.last }

// Calculate answers from the simple test when it decides, and from the
// calculator otherwise
func (v *Viewpoint) Calculate(target *scene.Token, cfg calc.Config) result.Result {
	res := v.SimpleVisibilityTest(target, cfg)
	if res == nil {
		pos := v.Position
		res = v.calc.Calculate(calc.Request{Viewer: v.viewer, Target: target, Viewpoint: &pos}, cfg)
	}
	v.last = res
	return res
}

// SimpleVisibilityTest decides the easy cases without measuring. It returns
// NotVisible when the background plane lies between the eye and the whole
// target, Visible when every corner of the target is in range and in the
// cone with nothing in between, and nil otherwise.
func (v *Viewpoint) SimpleVisibilityTest(target *scene.Token, cfg calc.Config) result.Result {
	if target == nil {
		return result.NotVisible()
	}

	bg := v.src.BackgroundElevation()
	eye := v.Position
	if (eye.Z > bg && target.TopZ < bg) || (eye.Z < bg && target.BottomZ > bg) {
		return result.NotVisible()
	}

	if cfg.Radius > 0 {
		r2 := cfg.Radius * cfg.Radius
		for _, c := range target.Corners() {
			if eye.DistanceSquaredTo(c.To3D(target.BottomZ)) > r2 || eye.DistanceSquaredTo(c.To3D(target.TopZ)) > r2 {
				return nil
			}
		}
	}
	if v.viewer != nil && !v.viewer.UnlimitedVision() {
		for _, c := range target.Corners() {
			if !v.viewer.InCone(eye.To2D(), c) {
				return nil
			}
		}
	}
	if cfg.LightingTest == calc.LightingLitOnly && cfg.LitShape != nil {
		return nil
	}

	var viewerID uint64
	if v.viewer != nil {
		viewerID = v.viewer.ID
	}
	v.frustum.Rebuild(eye, target.Footprint, target.BottomZ, target.TopZ)
	v.test.Initialize(v.frustum, v.src, cfg.Occlusion(), viewerID, target.ID)
	if v.test.Empty() {
		calc.RecordNoObstacles()
		v.log.Trace().Uint64("target", target.ID).Msg("no obstacles between eye and target")
		return result.Visible()
	}
	return nil
}
