// Package los combines the eyes of a viewer into one line-of-sight answer
// for a target, with an optional cache keyed on scene mutation counters.
package los

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"sightline/internal/calc"
	"sightline/internal/core"
	"sightline/internal/logging"
	"sightline/internal/polybool"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// ThresholdEpsilon is the tolerance HasLOS allows below the threshold
const ThresholdEpsilon = 1e-8

// DefaultViewerPoints is a single eye at the top of the viewer's center
var DefaultViewerPoints = scene.PointSelection{Planar: scene.PlanarCenter, Depth: scene.DepthTop}

// Config drives a ViewerLOS
type Config struct {
	Calc         calc.Config          `json:"calc"`
	ViewerPoints scene.PointSelection `json:"viewerPoints"`
	ViewerInset  float64              `json:"viewerInset"`
	// Threshold is the percent a target must reach to count as seen
	Threshold float64 `json:"threshold"`
}

// DefaultConfig uses one eye and counts any visible part as seen
func DefaultConfig() Config {
	return Config{
		Calc:         calc.DefaultConfig(),
		ViewerPoints: DefaultViewerPoints,
	}
}

// HasLOS reports whether percent reaches threshold
func HasLOS(percent, threshold float64) bool {
	return percent > threshold || math.Abs(percent-threshold) <= ThresholdEpsilon
}

// ViewerLOS measures how much of a target one viewer sees through any of
// its eyes
type ViewerLOS struct {
	viewer     *scene.Token
	src        scene.Source
	calc       calc.Calculator
	cfg        Config
	log        zerolog.Logger
	eyeLog     zerolog.Logger
	viewpoints []*Viewpoint
	active     []*Viewpoint
}

// New creates the line-of-sight evaluator for viewer
func New(viewer *scene.Token, src scene.Source, c calc.Calculator, cfg Config, log zerolog.Logger) *ViewerLOS {
	l := log.With().Uint64("viewer", viewer.ID).Logger()
	return &ViewerLOS{
		viewer: viewer,
		src:    src,
		calc:   c,
		cfg:    cfg,
		log:    l,
		eyeLog: logging.Sampled(l, 20, time.Second, 100),
	}
}

func (l *ViewerLOS) Viewer() *scene.Token { return l.viewer }

// SetViewer replaces the viewer, for example after it moved
func (l *ViewerLOS) SetViewer(t *scene.Token) { l.viewer = t }

func (l *ViewerLOS) Config() Config { return l.cfg }

func (l *ViewerLOS) SetConfig(cfg Config) { l.cfg = cfg }

// Algorithm returns the calculator's strategy
func (l *ViewerLOS) Algorithm() calc.Algorithm { return l.calc.Algorithm() }

// Viewpoints returns the eyes used by the last calculation
func (l *ViewerLOS) Viewpoints() []*Viewpoint { return l.active }

// PercentVisible returns the visible fraction of target
func (l *ViewerLOS) PercentVisible(target *scene.Token) float64 {
	return l.Calculate(target).PercentVisible()
}

// HasLOS reports whether target reaches the configured threshold
func (l *ViewerLOS) HasLOS(target *scene.Token) bool {
	return HasLOS(l.PercentVisible(target), l.cfg.Threshold)
}

// Calculate returns the combined result over every eye
func (l *ViewerLOS) Calculate(target *scene.Token) result.Result {
	res, _ := l.calculate(target)
	return res
}

// calculate also reports whether any eye failed
func (l *ViewerLOS) calculate(target *scene.Token) (result.Result, bool) {
	if target == nil {
		return result.NotVisible(), false
	}
	if l.overlaps(target) {
		return result.Visible(), false
	}
	if l.outsideCone(target) {
		return result.NotVisible(), false
	}

	var (
		results []result.Result
		best    result.Result
		failed  bool
	)
	for _, vp := range l.build(target) {
		res := vp.Calculate(target, l.cfg.Calc)
		if result.IsFailed(res) {
			failed = true
		}
		if res.PercentVisible() >= 1 {
			return res, failed
		}
		results = append(results, res)
		if best == nil || res.PercentVisible() > best.PercentVisible() {
			best = res
		}
	}
	if best == nil {
		return result.NotVisible(), failed
	}
	if HasLOS(best.PercentVisible(), l.cfg.Threshold) {
		return best, failed
	}

	combined := results[0]
	for _, r := range results[1:] {
		combined = combined.BlendMax(r)
	}
	l.log.Trace().
		Uint64("target", target.ID).
		Int("viewpoints", len(results)).
		Float64("percent", combined.PercentVisible()).
		Msg("eyes combined")
	return combined, failed
}

// build places the eyes for this target. Eyes farther from the target than
// the viewer's center are hidden by the viewer itself and skipped.
func (l *ViewerLOS) build(target *scene.Token) []*Viewpoint {
	sel := l.cfg.ViewerPoints
	if sel.Planar == 0 {
		sel = DefaultViewerPoints
	}
	center := l.viewer.Center()
	tc := target.Center()
	facing := tc.Sub(center).Normalize()
	limit := center.DistanceTo(tc) + core.Epsilon

	l.active = l.active[:0]
	for _, p := range l.viewer.SelectPoints(sel, facing, l.cfg.ViewerInset) {
		if p.To2D().DistanceTo(tc) > limit {
			continue
		}
		l.active = append(l.active, l.viewpoint(len(l.active), p))
	}
	if len(l.active) == 0 {
		eye := center.To3D(l.viewer.TopZ)
		l.active = append(l.active, l.viewpoint(0, eye))
	}
	return l.active
}

// viewpoint reuses the i-th eye, creating it when needed
func (l *ViewerLOS) viewpoint(i int, pos core.Vector3D) *Viewpoint {
	if i == len(l.viewpoints) {
		l.viewpoints = append(l.viewpoints, NewViewpoint(l.viewer, pos, l.src, l.calc, l.eyeLog))
	}
	vp := l.viewpoints[i]
	vp.Position = pos
	vp.viewer = l.viewer
	return vp
}

// overlaps reports whether viewer and target share volume
func (l *ViewerLOS) overlaps(target *scene.Token) bool {
	v := l.viewer
	if v.BottomZ >= target.TopZ || target.BottomZ >= v.TopZ {
		return false
	}
	if !v.Footprint.Bounds().Intersects(target.Footprint.Bounds()) {
		return false
	}
	inter, err := polybool.Polygon(v.Footprint).Intersect(polybool.Polygon(target.Footprint))
	if err != nil {
		l.log.Warn().Err(err).Uint64("target", target.ID).Msg("testing viewer overlap")
		return false
	}
	return !inter.Empty()
}

// outsideCone reports whether no part of the target footprint falls inside
// the viewer's vision cone
func (l *ViewerLOS) outsideCone(target *scene.Token) bool {
	v := l.viewer
	if v.UnlimitedVision() {
		return false
	}
	origin := v.Center()
	b := target.Footprint.Bounds()
	reach := 2 * (origin.DistanceTo(target.Center()) + math.Hypot(b.Width(), b.Height()) + 1)

	half := v.ConeOfVision / 2
	steps := int(math.Ceil(v.ConeOfVision/(math.Pi/8))) + 1
	wedge := core.Polygon2D{origin}
	for i := 0; i < steps; i++ {
		a := v.Facing - half + v.ConeOfVision*float64(i)/float64(steps-1)
		wedge = append(wedge, origin.Add(core.FromAngle(a).Scale(reach)))
	}

	inter, err := polybool.Polygon(wedge).Intersect(polybool.Polygon(target.Footprint))
	if err != nil {
		l.log.Warn().Err(err).Uint64("target", target.ID).Msg("testing vision cone")
		return false
	}
	return inter.Empty()
}
