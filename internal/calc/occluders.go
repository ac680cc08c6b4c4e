package calc

import (
	"math"

	"sightline/internal/core"
	"sightline/internal/projection"
	"sightline/internal/scene"
)

// ring is one convex face ready for projection
type ring = []projection.Vertex

// cameraFor aims a camera at the target's bounding sphere
func cameraFor(target *scene.Token, vp core.Vector3D) *projection.Camera {
	b := target.Bounds()
	center := b.Center()
	return projection.NewCamera(vp, center, b.Max.Sub(center).Length())
}

// targetRings returns the faces of a body turned toward the viewpoint
func targetRings(t *scene.Token, vp core.Vector3D) []ring {
	faces, err := t.Faces()
	if err != nil {
		return nil
	}
	var out []ring
	for _, f := range frontFaces(faces, vp) {
		out = append(out, projection.Vertices(f))
	}
	return out
}

// clipFar drops what lies beyond the far plane of the frustum
func clipFar(j *job, faces []core.Polygon3D) []ring {
	far := j.frustum.FarPlane()
	var out []ring
	for _, f := range faces {
		if r := projection.ClipPlane(projection.Vertices(f), far); len(r) >= 3 {
			out = append(out, r)
		}
	}
	return out
}

// wallQuad clamps a wall to the frustum's elevation range
func wallQuad(j *job, w *scene.Wall) []core.Polygon3D {
	q, err := w.Quad(j.frustum.MinZ, j.frustum.MaxZ)
	if err != nil || q == nil {
		return nil
	}
	return []core.Polygon3D{q}
}

// proximityOpaque resolves a proximity wall for the whole viewpoint using
// its closest distance to the wall
func proximityOpaque(w *scene.Wall, vp core.Vector3D, ch scene.Channel) bool {
	d := core.DistanceToSegment(vp.To2D(), w.A, w.B)
	switch w.Senses.For(ch) {
	case scene.RestrictProximity:
		return d >= w.ProximityDistance
	case scene.RestrictReverseProximity:
		return d < w.ProximityDistance
	default:
		return true
	}
}

// opaqueRings collects every fully blocking face. Masked tiles are included
// only when withMasked is set.
func opaqueRings(j *job, withMasked bool) []ring {
	var faces []core.Polygon3D
	opaque, _, proximity := j.test.Walls()
	for _, w := range opaque {
		faces = append(faces, wallQuad(j, w)...)
	}
	for _, w := range proximity {
		if proximityOpaque(w, j.vp, j.cfg.Channel) {
			faces = append(faces, wallQuad(j, w)...)
		}
	}
	for _, t := range j.test.Tiles() {
		if t.HasMask() && !withMasked {
			continue
		}
		if fs, err := t.Faces(); err == nil {
			faces = append(faces, fs...)
		}
	}
	for _, tok := range j.test.Tokens() {
		if fs, err := tok.Faces(); err == nil {
			faces = append(faces, frontFaces(fs, j.vp)...)
		}
	}
	regions, _ := j.test.Regions()
	for _, r := range regions {
		if fs, err := r.Faces(); err == nil {
			faces = append(faces, frontFaces(fs, j.vp)...)
		}
	}
	return clipFar(j, faces)
}

// terrainLayers returns one layer per limited obstacle. A ray is blocked
// where two layers overlap.
func terrainLayers(j *job) [][]ring {
	var out [][]ring
	_, walls, _ := j.test.Walls()
	for _, w := range walls {
		if rs := clipFar(j, wallQuad(j, w)); len(rs) > 0 {
			out = append(out, rs)
		}
	}
	_, regions := j.test.Regions()
	for _, r := range regions {
		fs, err := r.Faces()
		if err != nil {
			continue
		}
		if rs := clipFar(j, frontFaces(fs, j.vp)); len(rs) > 0 {
			out = append(out, rs)
		}
	}
	return out
}

// maskedTile is an alpha-masked tile face with texture coordinates
type maskedTile struct {
	tile *scene.Tile
	face ring
}

func maskedTiles(j *job) []maskedTile {
	far := j.frustum.FarPlane()
	var out []maskedTile
	for _, t := range j.test.Tiles() {
		if !t.HasMask() {
			continue
		}
		fs, err := t.Faces()
		if err != nil {
			continue
		}
		verts := make(ring, len(fs[0]))
		for i, p := range fs[0] {
			u, v := t.UV(p.To2D())
			verts[i] = projection.Vertex{P: p, U: u, V: v}
		}
		if r := projection.ClipPlane(verts, far); len(r) >= 3 {
			out = append(out, maskedTile{tile: t, face: r})
		}
	}
	return out
}

// nearestDepth returns the smallest camera depth over a set of rings
func nearestDepth(cam *projection.Camera, rings []ring) float64 {
	d := math.Inf(1)
	for _, r := range rings {
		for _, v := range r {
			d = math.Min(d, cam.Depth(v.P))
		}
	}
	return d
}
