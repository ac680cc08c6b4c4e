// Package raster draws projected geometry into an off-screen buffer and
// counts what is left of the target afterwards.
package raster

import (
	"errors"
	"image"
	"image/color"
)

// ErrDeviceUnavailable is returned when no render device can be created or
// a device fails mid-draw
var ErrDeviceUnavailable = errors.New("render device unavailable")

// Vertex is a screen-space vertex
type Vertex struct {
	// X, Y are pixel coordinates with the origin at the top left
	X, Y float32
	// W is the distance in front of the camera, used for depth and
	// perspective-correct texturing
	W float32
	// U, V are normalized mask coordinates
	U, V float32
}

// BlendMode controls how a fragment combines with the buffer
type BlendMode uint8

const (
	// BlendCopy replaces the destination color
	BlendCopy BlendMode = iota
	// BlendAdd adds to the destination color, saturating per channel
	BlendAdd
)

// DrawOptions describes one draw call
type DrawOptions struct {
	Color color.RGBA
	Blend BlendMode
	// DepthTest drops fragments behind what is already drawn
	DepthTest bool
	// DepthWrite records the fragment depth
	DepthWrite bool
	// Mask discards fragments whose alpha is below AlphaThreshold
	Mask           image.Image
	AlphaThreshold float64
}

// Device is an off-screen color+depth target
type Device interface {
	Size() (width, height int)
	Resize(width, height int) error
	Clear()
	DrawTriangles(vertices []Vertex, indices []uint16, opts *DrawOptions) error
	// ReadPixels copies RGBA bytes into dst, which must hold 4*width*height
	ReadPixels(dst []byte) error
	Dispose()
}

// Factory creates a device of the given size
type Factory func(width, height int) (Device, error)

// Marker colors
var (
	TargetColor   = color.RGBA{R: 255, A: 255}
	OccluderColor = color.RGBA{A: 255}
	// TerrainColor is added once per semi-blocking layer
	TerrainColor = color.RGBA{B: 128, A: 255}
)

// IsTarget reports whether a pixel still shows the target: red, not
// covered, and crossed by fewer than two terrain layers
func IsTarget(r, g, b byte) bool {
	return r >= 200 && g < 50 && b < 200
}

// CountTarget counts target pixels in an RGBA buffer
func CountTarget(pix []byte) int {
	n := 0
	for i := 0; i+3 < len(pix); i += 4 {
		if IsTarget(pix[i], pix[i+1], pix[i+2]) {
			n++
		}
	}
	return n
}
