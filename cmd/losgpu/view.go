package main

import "sightline/internal/core"

// view maps scene coordinates onto the window, Y up
type view struct {
	bounds core.AABB
	scale  float64
	width  float64
	height float64
}

func newView(b core.AABB, width, height int) view {
	sx := float64(width) / b.Width()
	sy := float64(height) / b.Height()
	return view{bounds: b, scale: min(sx, sy), width: float64(width), height: float64(height)}
}

func (v view) toScreen(p core.Vector2D) (float32, float32) {
	x := (p.X - v.bounds.Min.X) * v.scale
	y := v.height - (p.Y-v.bounds.Min.Y)*v.scale
	return float32(x), float32(y)
}
