package calc

import (
	"math"

	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/polybool"
	"sightline/internal/projection"
	"sightline/internal/result"
	"sightline/internal/scene"
)

// Geometric projects the target and its occluders onto the image plane and
// measures the uncovered area with polygon boolean operations
type Geometric struct {
	base
}

// NewGeometric creates a polygon-clipping calculator
func NewGeometric(src scene.Source, log zerolog.Logger) *Geometric {
	return &Geometric{base: newBase(AlgorithmGeometric, src, log)}
}

func (g *Geometric) Calculate(req Request, cfg Config) result.Result {
	return g.calculate(req, cfg, g)
}

func (g *Geometric) measure(j *job) result.Result {
	cam := cameraFor(j.target, j.vp)

	target := g.silhouette(cam, targetRings(j.target, j.vp))
	if target.Empty() {
		return g.shortcut(reasonEmpty, result.NotVisible())
	}
	total := target.Area()

	denom := total
	if j.large() {
		ref := g.silhouette(cam, targetRings(referenceCell(j.target, j.grid), j.vp))
		if !ref.Empty() {
			denom = math.Min(total, ref.Area())
		}
	}

	if j.test.Empty() {
		return result.NewArea(denom, total)
	}

	blocked := g.silhouette(cam, opaqueRings(j, true))
	blocked = g.union(blocked, g.terrainOverlap(cam, terrainLayers(j)))

	hidden, err := target.Intersect(blocked)
	if err != nil {
		g.log.Warn().Err(err).Uint64("target", j.target.ID).Msg("clipping target silhouette")
		return result.NewArea(denom, total)
	}

	res := result.NewArea(denom, total-hidden.Area())
	g.log.Trace().
		Uint64("target", j.target.ID).
		Float64("total", total).
		Float64("hidden", hidden.Area()).
		Msg("silhouette measured")
	return res
}

// silhouette projects rings and merges them into one shape
func (g *Geometric) silhouette(cam *projection.Camera, rings []ring) polybool.Shape {
	shapes := make([]polybool.Shape, 0, len(rings))
	for _, r := range rings {
		pts := cam.ProjectVertices(r)
		if pts == nil {
			continue
		}
		poly := make(core.Polygon2D, len(pts))
		for i, p := range pts {
			poly[i] = p.Screen()
		}
		if s := polybool.Polygon(poly); !s.Empty() {
			shapes = append(shapes, s)
		}
	}
	out, err := polybool.UnionAll(shapes)
	if err != nil {
		// fall back to merging one by one, skipping faces that fail
		out = polybool.Shape{}
		for _, s := range shapes {
			out = g.union(out, s)
		}
	}
	return out
}

func (g *Geometric) union(a, b polybool.Shape) polybool.Shape {
	out, err := a.Union(b)
	if err != nil {
		g.log.Warn().Err(err).Msg("merging occluder silhouettes")
		return a
	}
	return out
}

// terrainOverlap returns where at least two terrain layers overlap
func (g *Geometric) terrainOverlap(cam *projection.Camera, layers [][]ring) polybool.Shape {
	if len(layers) < 2 {
		return polybool.Shape{}
	}
	shapes := make([]polybool.Shape, len(layers))
	for i, l := range layers {
		shapes[i] = g.silhouette(cam, l)
	}

	var overlap polybool.Shape
	for i := 0; i < len(shapes); i++ {
		for k := i + 1; k < len(shapes); k++ {
			both, err := shapes[i].Intersect(shapes[k])
			if err != nil {
				g.log.Warn().Err(err).Msg("intersecting terrain silhouettes")
				continue
			}
			overlap = g.union(overlap, both)
		}
	}
	return overlap
}
