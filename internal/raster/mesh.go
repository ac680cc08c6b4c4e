package raster

import "sightline/internal/projection"

// Mesh is an indexed triangle list in screen space
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// AddPolygon appends a projected convex polygon as a triangle fan, mapping
// device coordinates onto a width x height buffer
func (m *Mesh) AddPolygon(pts []projection.Point, width, height int) {
	if len(pts) < 3 || len(m.Vertices)+len(pts) > 0xffff {
		return
	}
	base := uint16(len(m.Vertices))
	for _, p := range pts {
		m.Vertices = append(m.Vertices, Vertex{
			X: float32((p.X + 1) / 2 * float64(width)),
			Y: float32((1 - p.Y) / 2 * float64(height)),
			W: float32(p.W),
			U: float32(p.U),
			V: float32(p.V),
		})
	}
	for i := 1; i+1 < len(pts); i++ {
		m.Indices = append(m.Indices, base, base+uint16(i), base+uint16(i+1))
	}
}

// Empty reports whether the mesh has no triangles
func (m *Mesh) Empty() bool {
	return len(m.Indices) == 0
}

// Draw submits the mesh in one call
func (m *Mesh) Draw(dev Device, opts *DrawOptions) error {
	if m.Empty() {
		return nil
	}
	return dev.DrawTriangles(m.Vertices, m.Indices, opts)
}
