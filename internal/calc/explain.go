package calc

import (
	"sightline/internal/core"
	"sightline/internal/polybool"
	"sightline/internal/result"
)

// Breakdown is the screen-space picture behind a geometric measurement.
// Rings are exterior outlines; holes are not reported.
type Breakdown struct {
	Target  []core.Polygon2D
	Blocked []core.Polygon2D
	Visible []core.Polygon2D
	Result  result.Result
}

// Explain measures like Calculate and also returns the projected outlines.
// Calculations decided before projection carry only the result.
func (g *Geometric) Explain(req Request, cfg Config) Breakdown {
	j, res := g.prepare(req, cfg)
	if res != nil {
		return Breakdown{Result: res}
	}

	cam := cameraFor(j.target, j.vp)
	target := g.silhouette(cam, targetRings(j.target, j.vp))
	var blocked polybool.Shape
	if !j.test.Empty() {
		blocked = g.union(g.silhouette(cam, opaqueRings(j, true)), g.terrainOverlap(cam, terrainLayers(j)))
	}
	visible, err := target.Difference(blocked)
	if err != nil {
		g.log.Warn().Err(err).Msg("subtracting blockers for breakdown")
		visible = target
	}

	return Breakdown{
		Target:  target.Rings(),
		Blocked: blocked.Rings(),
		Visible: visible.Rings(),
		Result:  g.measure(j),
	}
}
