package sceneio

import (
	"math"

	"sightline/internal/core"
)

// Point is a planar coordinate written as [x, y]
type Point [2]float64

func (p Point) vec() core.Vector2D { return core.Vector2D{X: p[0], Y: p[1]} }

// Rect is an axis-aligned rectangle
type Rect struct {
	Min Point `yaml:"min"`
	Max Point `yaml:"max"`
}

func (r Rect) aabb() core.AABB { return core.AABB{Min: r.Min.vec(), Max: r.Max.vec()} }

// Senses names a restriction per channel
type Senses struct {
	Sight string `yaml:"sight,omitempty"`
	Light string `yaml:"light,omitempty"`
	Sound string `yaml:"sound,omitempty"`
	Move  string `yaml:"move,omitempty"`
}

// Wall is a wall segment. Missing bottom or top means unbounded.
type Wall struct {
	A         Point    `yaml:"a"`
	B         Point    `yaml:"b"`
	Bottom    *float64 `yaml:"bottom,omitempty"`
	Top       *float64 `yaml:"top,omitempty"`
	Direction string   `yaml:"direction,omitempty"`
	Door      string   `yaml:"door,omitempty"`
	Senses    Senses   `yaml:"senses,omitempty"`
	Proximity float64  `yaml:"proximity,omitempty"`
}

// Tile is a horizontal panel. Mask rows use '#' for opaque and '.' for
// clear texels; the first row lies at the rectangle's minimum Y.
type Tile struct {
	Rect           Rect     `yaml:"rect"`
	Elevation      float64  `yaml:"elevation"`
	Mask           []string `yaml:"mask,omitempty"`
	MaskFile       string   `yaml:"maskFile,omitempty"`
	AlphaThreshold float64  `yaml:"alphaThreshold,omitempty"`
	Senses         Senses   `yaml:"senses,omitempty"`
}

// Region is a zone prism
type Region struct {
	Shape  []Point `yaml:"shape"`
	Bottom float64 `yaml:"bottom"`
	Top    float64 `yaml:"top"`
	Senses Senses  `yaml:"senses,omitempty"`
}

// Token is a body. Either Footprint or Center and Size place it. Facing and
// Cone are in degrees.
type Token struct {
	Key       string  `yaml:"key,omitempty"`
	Name      string  `yaml:"name,omitempty"`
	Footprint []Point `yaml:"footprint,omitempty"`
	Center    *Point  `yaml:"center,omitempty"`
	Size      float64 `yaml:"size,omitempty"`
	Bottom    float64 `yaml:"bottom"`
	Top       float64 `yaml:"top"`
	Facing    float64 `yaml:"facing,omitempty"`
	Cone      float64 `yaml:"cone,omitempty"`
	Dead      bool    `yaml:"dead,omitempty"`
	Prone     bool    `yaml:"prone,omitempty"`
}

// Document is the file form of a scene
type Document struct {
	Name                string   `yaml:"name,omitempty"`
	Bounds              Rect     `yaml:"bounds"`
	GridSize            float64  `yaml:"gridSize,omitempty"`
	BackgroundElevation float64  `yaml:"backgroundElevation,omitempty"`
	Walls               []Wall   `yaml:"walls,omitempty"`
	Tiles               []Tile   `yaml:"tiles,omitempty"`
	Regions             []Region `yaml:"regions,omitempty"`
	Tokens              []Token  `yaml:"tokens,omitempty"`
}

func ring(points []Point) core.Polygon2D {
	poly := make(core.Polygon2D, len(points))
	for i, p := range points {
		poly[i] = p.vec()
	}
	return poly
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
