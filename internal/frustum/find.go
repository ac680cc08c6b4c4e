package frustum

import (
	"errors"

	"github.com/rs/zerolog"

	"sightline/internal/core"
	"sightline/internal/scene"
)

// FindWalls returns walls touching the frustum. Directional walls facing
// away from the viewpoint are dropped before any geometric test.
func (f *Frustum) FindWalls(src scene.Source, log zerolog.Logger) []*scene.Wall {
	var out []*scene.Wall
	for _, ob := range src.QueryObstacles(scene.KindWall, f.bounds) {
		w, ok := ob.(*scene.Wall)
		if !ok || w.FacesAway(f.Viewpoint.To2D()) {
			continue
		}
		quad, err := w.Quad(f.MinZ, f.MaxZ)
		if err != nil {
			warnMissing(log, ob, err)
			continue
		}
		if quad != nil && f.OverlapsPolygon(quad) {
			out = append(out, w)
		}
	}
	return out
}

// FindTiles returns tiles touching the frustum
func (f *Frustum) FindTiles(src scene.Source, log zerolog.Logger) []*scene.Tile {
	var out []*scene.Tile
	for _, ob := range src.QueryObstacles(scene.KindTile, f.bounds) {
		t, ok := ob.(*scene.Tile)
		if !ok {
			continue
		}
		if f.overlapsFaces(ob, nil, log) {
			out = append(out, t)
		}
	}
	return out
}

// FindTokens returns tokens touching the frustum. Sources that can cull
// against the frustum planes are asked to do so.
func (f *Frustum) FindTokens(src scene.Source, log zerolog.Logger) []*scene.Token {
	var candidates []scene.Obstacle
	if vq, ok := src.(scene.VolumeQuerier); ok {
		candidates = vq.QueryVolume(scene.KindToken, f.Planes(), f.bounds)
	} else {
		candidates = src.QueryObstacles(scene.KindToken, f.bounds)
	}

	var out []*scene.Token
	for _, ob := range candidates {
		t, ok := ob.(*scene.Token)
		if !ok {
			continue
		}
		if f.overlapsFaces(ob, t.ContainsPoint, log) {
			out = append(out, t)
		}
	}
	return out
}

// FindRegions returns regions touching the frustum
func (f *Frustum) FindRegions(src scene.Source, log zerolog.Logger) []*scene.Region {
	var out []*scene.Region
	for _, ob := range src.QueryObstacles(scene.KindRegion, f.bounds) {
		r, ok := ob.(*scene.Region)
		if !ok {
			continue
		}
		contains := func(p core.Vector3D) bool {
			return p.Z >= r.BottomZ && p.Z <= r.TopZ && r.Shape.Contains(p.To2D())
		}
		if f.overlapsFaces(ob, contains, log) {
			out = append(out, r)
		}
	}
	return out
}

func (f *Frustum) overlapsFaces(ob scene.Obstacle, contains func(core.Vector3D) bool, log zerolog.Logger) bool {
	if !f.OverlapsAABB(ob.Bounds()) {
		return false
	}
	faces, err := ob.Faces()
	if err != nil {
		warnMissing(log, ob, err)
		return false
	}
	return f.OverlapsPrism(faces, contains)
}

func warnMissing(log zerolog.Logger, ob scene.Obstacle, err error) {
	ev := log.Warn()
	if !errors.Is(err, scene.ErrNoGeometry) {
		ev = log.Error()
	}
	ev.Err(err).
		Uint64("obstacle", ob.ObstacleID()).
		Str("kind", ob.Kind().String()).
		Msg("excluding obstacle without geometry")
}
