package scene

import (
	"fmt"
	"image"

	"sightline/internal/core"
)

// DefaultAlphaThreshold is used when a tile leaves its threshold unset
const DefaultAlphaThreshold = 0.75

// Tile is a horizontal panel at a fixed elevation. When Mask is set, only
// texels whose alpha reaches the threshold block.
type Tile struct {
	ID             uint64
	Rect           core.AABB
	Elevation      float64
	Mask           image.Image
	AlphaThreshold float64
	Senses         Senses
}

func (t *Tile) ObstacleID() uint64 { return t.ID }

func (t *Tile) Kind() Kind { return KindTile }

func (t *Tile) Bounds() core.AABB3D {
	return t.Rect.To3D(t.Elevation, t.Elevation)
}

func (t *Tile) Faces() ([]core.Polygon3D, error) {
	if t.Rect.Width() <= 0 || t.Rect.Height() <= 0 {
		return nil, fmt.Errorf("tile %d: %w", t.ID, ErrNoGeometry)
	}
	return []core.Polygon3D{core.Rect(t.Rect).At(t.Elevation)}, nil
}

// HasMask reports whether the tile is alpha-masked
func (t *Tile) HasMask() bool {
	return t.Mask != nil
}

// Threshold returns the effective alpha threshold in [0, 1]
func (t *Tile) Threshold() float64 {
	if t.AlphaThreshold <= 0 {
		return DefaultAlphaThreshold
	}
	return core.Clamp(t.AlphaThreshold, 0, 1)
}

// UV maps a planar point to normalized texture coordinates
func (t *Tile) UV(p core.Vector2D) (u, v float64) {
	u = (p.X - t.Rect.Min.X) / t.Rect.Width()
	v = (p.Y - t.Rect.Min.Y) / t.Rect.Height()
	return u, v
}

// AlphaAt samples the mask at normalized texture coordinates
func (t *Tile) AlphaAt(u, v float64) float64 {
	return core.SampleAlpha(t.Mask, u, v)
}

// Blocks reports whether segment p-q crosses an opaque part of the tile
func (t *Tile) Blocks(ch Channel, p, q core.Vector3D) bool {
	if t.Senses.For(ch) == RestrictNone {
		return false
	}
	dz := q.Z - p.Z
	if dz == 0 {
		return false
	}
	s := (t.Elevation - p.Z) / dz
	if s <= 0 || s >= 1 {
		return false
	}
	hit := p.Lerp(q, s).To2D()
	if !t.Rect.Contains(hit) {
		return false
	}
	if t.Mask == nil {
		return true
	}
	return t.AlphaAt(t.UV(hit)) >= t.Threshold()
}
