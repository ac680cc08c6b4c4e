package core

import "image"

// SampleAlpha reads the alpha of img at normalized coordinates, nearest
// texel, clamped to the image. A nil or empty image is opaque.
func SampleAlpha(img image.Image, u, v float64) float64 {
	if img == nil {
		return 1
	}
	b := img.Bounds()
	if b.Empty() {
		return 1
	}
	x := b.Min.X + int(Clamp(u, 0, 0.999999)*float64(b.Dx()))
	y := b.Min.Y + int(Clamp(v, 0, 0.999999)*float64(b.Dy()))
	_, _, _, a := img.At(x, y).RGBA()
	return float64(a) / 0xffff
}
