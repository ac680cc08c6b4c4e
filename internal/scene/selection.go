package scene

import (
	"fmt"
	"strings"

	"sightline/internal/core"
)

// PlanarClass selects footprint points, as bit flags
type PlanarClass uint16

const (
	PlanarCenter PlanarClass = 1 << iota
	PlanarFacingCorners
	PlanarMidCorners
	PlanarBackCorners
	PlanarFacingSides
	PlanarMidSides
	PlanarBackSides

	PlanarCorners = PlanarFacingCorners | PlanarMidCorners | PlanarBackCorners
	PlanarSides   = PlanarFacingSides | PlanarMidSides | PlanarBackSides
)

// DepthClass selects elevations, as bit flags
type DepthClass uint8

const (
	DepthTop DepthClass = 1 << iota
	DepthMid
	DepthBottom
)

// PointSelection describes which points of a body are sampled
type PointSelection struct {
	Planar PlanarClass
	Depth  DepthClass
}

// CenterOnly is the fallback selection
var CenterOnly = PointSelection{Planar: PlanarCenter, Depth: DepthMid}

var planarNames = map[string]PlanarClass{
	"center":        PlanarCenter,
	"corners":       PlanarCorners,
	"facing-corner": PlanarFacingCorners,
	"mid-corner":    PlanarMidCorners,
	"back-corner":   PlanarBackCorners,
	"sides":         PlanarSides,
	"facing-side":   PlanarFacingSides,
	"mid-side":      PlanarMidSides,
	"back-side":     PlanarBackSides,
}

var depthNames = map[string]DepthClass{
	"top":    DepthTop,
	"mid":    DepthMid,
	"bottom": DepthBottom,
}

// ParsePointSelection reads "planar[,planar...][/depth[,depth...]]", for
// example "center,corners/top,bottom". A missing depth part selects def.
// Malformed input returns CenterOnly with an error.
func ParsePointSelection(s string, def DepthClass) (PointSelection, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return CenterOnly, fmt.Errorf("empty point selection")
	}

	planarPart, depthPart, hasDepth := strings.Cut(s, "/")
	var sel PointSelection
	for _, name := range strings.Split(planarPart, ",") {
		class, ok := planarNames[strings.TrimSpace(name)]
		if !ok {
			return CenterOnly, fmt.Errorf("unknown planar class %q", name)
		}
		sel.Planar |= class
	}

	sel.Depth = def
	if hasDepth {
		sel.Depth = 0
		for _, name := range strings.Split(depthPart, ",") {
			class, ok := depthNames[strings.TrimSpace(name)]
			if !ok {
				return CenterOnly, fmt.Errorf("unknown depth class %q", name)
			}
			sel.Depth |= class
		}
	}
	if sel.Depth == 0 {
		sel.Depth = DepthMid
	}
	return sel, nil
}

// String renders the selection in the parseable form
func (s PointSelection) String() string {
	var planar, depth []string
	for _, name := range []string{"center", "facing-corner", "mid-corner", "back-corner", "facing-side", "mid-side", "back-side"} {
		if s.Planar&planarNames[name] != 0 {
			planar = append(planar, name)
		}
	}
	for _, name := range []string{"top", "mid", "bottom"} {
		if s.Depth&depthNames[name] != 0 {
			depth = append(depth, name)
		}
	}
	return strings.Join(planar, ",") + "/" + strings.Join(depth, ",")
}

// facingClass buckets a direction relative to a facing vector
func facingClass(offset, facing core.Vector2D) int {
	d := offset.Normalize().Dot(facing)
	switch {
	case d > 0.1:
		return 1
	case d < -0.1:
		return -1
	default:
		return 0
	}
}

// PlanarPoints returns the selected footprint points. Corner and side classes
// are judged against the unit direction facing; inset pulls every point
// toward the center by that fraction.
func (t *Token) PlanarPoints(planar PlanarClass, facing core.Vector2D, inset float64) []core.Vector2D {
	center := t.Center()
	var pts []core.Vector2D
	if planar&PlanarCenter != 0 {
		pts = append(pts, center)
	}

	pick := func(candidates []core.Vector2D, front, mid, back PlanarClass) {
		for _, p := range candidates {
			var want PlanarClass
			switch facingClass(p.Sub(center), facing) {
			case 1:
				want = front
			case -1:
				want = back
			default:
				want = mid
			}
			if planar&want != 0 {
				pts = append(pts, p.Add(center.Sub(p).Scale(inset)))
			}
		}
	}
	pick(t.Corners(), PlanarFacingCorners, PlanarMidCorners, PlanarBackCorners)
	pick(t.SideMidpoints(), PlanarFacingSides, PlanarMidSides, PlanarBackSides)
	return pts
}

// SelectPoints returns the selected points crossed with the selected elevations
func (t *Token) SelectPoints(sel PointSelection, facing core.Vector2D, inset float64) []core.Vector3D {
	planar := t.PlanarPoints(sel.Planar, facing, inset)
	var out []core.Vector3D
	for _, d := range []DepthClass{DepthTop, DepthMid, DepthBottom} {
		if sel.Depth&d == 0 {
			continue
		}
		z := t.ElevationFor(d)
		for _, p := range planar {
			out = append(out, p.To3D(z))
		}
	}
	return out
}
