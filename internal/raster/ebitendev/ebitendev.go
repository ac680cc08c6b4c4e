// Package ebitendev implements raster.Device on the GPU through ebiten
// off-screen images.
//
// Ebiten images carry no depth buffer, so DepthTest and DepthWrite are
// ignored: draws land in submission order. Pixels can only be read back
// once the game loop is running; devices must be used from inside
// Update or Draw.
package ebitendev

import (
	"fmt"
	"image"
	"image/color"
	"reflect"

	"github.com/hajimehoshi/ebiten/v2"

	"sightline/internal/raster"
)

// maskShader discards texels below the alpha threshold and paints the rest
// with the vertex color
var maskShader = []byte(`//kage:unit pixels

package main

var Threshold float

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	if imageSrc0At(srcPos).a < Threshold {
		discard()
	}
	return color
}
`)

// Device is an ebiten-backed render target
type Device struct {
	img    *ebiten.Image
	white  *ebiten.Image
	shader *ebiten.Shader
	masks  map[image.Image]*ebiten.Image
	width  int
	height int
}

// New creates a device and compiles its shader
func New(width, height int) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("ebiten device %dx%d: %w", width, height, raster.ErrDeviceUnavailable)
	}
	shader, err := ebiten.NewShader(maskShader)
	if err != nil {
		return nil, fmt.Errorf("compile mask shader: %w: %v", raster.ErrDeviceUnavailable, err)
	}
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)

	return &Device{
		img:    ebiten.NewImage(width, height),
		white:  white,
		shader: shader,
		masks:  make(map[image.Image]*ebiten.Image),
		width:  width,
		height: height,
	}, nil
}

// Factory creates ebiten devices for a raster.Pool
func Factory(width, height int) (raster.Device, error) {
	return New(width, height)
}

func (d *Device) Size() (int, int) { return d.width, d.height }

func (d *Device) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("ebiten device %dx%d: %w", width, height, raster.ErrDeviceUnavailable)
	}
	if d.img != nil {
		d.img.Dispose()
	}
	d.img = ebiten.NewImage(width, height)
	d.width, d.height = width, height
	return nil
}

func (d *Device) Clear() {
	if d.img != nil {
		d.img.Clear()
	}
}

// DrawTriangles draws with a white source for plain fills and with the
// mask shader for alpha-masked fills
func (d *Device) DrawTriangles(vertices []raster.Vertex, indices []uint16, opts *raster.DrawOptions) (err error) {
	if d.img == nil {
		return fmt.Errorf("draw on disposed device: %w", raster.ErrDeviceUnavailable)
	}
	if opts == nil {
		opts = &raster.DrawOptions{Color: raster.OccluderColor}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw triangles: %w: %v", raster.ErrDeviceUnavailable, r)
		}
	}()

	blend := ebiten.BlendCopy
	if opts.Blend == raster.BlendAdd {
		blend = ebiten.BlendLighter
	}

	if opts.Mask == nil {
		verts := d.vertices(vertices, opts.Color, nil)
		d.img.DrawTriangles(verts, indices, d.white, &ebiten.DrawTrianglesOptions{Blend: blend})
		return nil
	}

	mask := d.maskImage(opts.Mask)
	verts := d.vertices(vertices, opts.Color, mask)
	shaderOpts := &ebiten.DrawTrianglesShaderOptions{
		Blend:    blend,
		Uniforms: map[string]any{"Threshold": float32(opts.AlphaThreshold)},
	}
	shaderOpts.Images[0] = mask
	d.img.DrawTrianglesShader(verts, indices, d.shader, shaderOpts)
	return nil
}

// vertices maps normalized UVs onto the mask, or onto the middle of the
// white texel when there is no mask
func (d *Device) vertices(in []raster.Vertex, c color.RGBA, mask *ebiten.Image) []ebiten.Vertex {
	out := make([]ebiten.Vertex, len(in))
	for i, v := range in {
		sx, sy := float32(1.5), float32(1.5)
		if mask != nil {
			b := mask.Bounds()
			sx = float32(b.Min.X) + v.U*float32(b.Dx())
			sy = float32(b.Min.Y) + v.V*float32(b.Dy())
		}
		out[i] = ebiten.Vertex{
			DstX:   v.X,
			DstY:   v.Y,
			SrcX:   sx,
			SrcY:   sy,
			ColorR: float32(c.R) / 0xff,
			ColorG: float32(c.G) / 0xff,
			ColorB: float32(c.B) / 0xff,
			ColorA: float32(c.A) / 0xff,
		}
	}
	return out
}

// maskImage uploads a mask once per image pointer
func (d *Device) maskImage(img image.Image) *ebiten.Image {
	cacheable := reflect.TypeOf(img).Kind() == reflect.Pointer
	if cacheable {
		if m, ok := d.masks[img]; ok {
			return m
		}
	}
	m := ebiten.NewImageFromImage(img)
	if cacheable {
		d.masks[img] = m
	}
	return m
}

// ReadPixels fails with raster.ErrDeviceUnavailable outside the game loop
func (d *Device) ReadPixels(dst []byte) (err error) {
	if d.img == nil {
		return fmt.Errorf("read from disposed device: %w", raster.ErrDeviceUnavailable)
	}
	if len(dst) < 4*d.width*d.height {
		return fmt.Errorf("pixel buffer holds %d bytes, need %d", len(dst), 4*d.width*d.height)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pixels: %w: %v", raster.ErrDeviceUnavailable, r)
		}
	}()
	d.img.ReadPixels(dst[:4*d.width*d.height])
	return nil
}

func (d *Device) Dispose() {
	if d.img != nil {
		d.img.Dispose()
		d.img = nil
	}
	for k, m := range d.masks {
		m.Dispose()
		delete(d.masks, k)
	}
	if d.white != nil {
		d.white.Dispose()
		d.white = nil
	}
	if d.shader != nil {
		d.shader.Dispose()
		d.shader = nil
	}
}
