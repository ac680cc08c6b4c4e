package raster

import (
	"fmt"
	"math"

	"sightline/internal/core"
)

// Software is a CPU device with a color buffer and a 1/w depth buffer
type Software struct {
	width, height int
	color         []byte
	depth         []float32
	disposed      bool
}

// NewSoftware allocates a software device
func NewSoftware(width, height int) (*Software, error) {
	s := &Software{}
	if err := s.Resize(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

// SoftwareFactory creates software devices for a Pool
func SoftwareFactory(width, height int) (Device, error) {
	return NewSoftware(width, height)
}

func (s *Software) Size() (int, int) { return s.width, s.height }

// Resize reallocates the buffers when the size changes
func (s *Software) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("software device %dx%d: %w", width, height, ErrDeviceUnavailable)
	}
	if width == s.width && height == s.height && !s.disposed {
		s.Clear()
		return nil
	}
	s.width, s.height = width, height
	s.color = make([]byte, 4*width*height)
	s.depth = make([]float32, width*height)
	s.disposed = false
	return nil
}

// Clear resets color to transparent black and depth to infinitely far
func (s *Software) Clear() {
	for i := range s.color {
		s.color[i] = 0
	}
	for i := range s.depth {
		s.depth[i] = 0
	}
}

func (s *Software) Dispose() {
	s.color, s.depth = nil, nil
	s.disposed = true
}

func (s *Software) ReadPixels(dst []byte) error {
	if s.disposed {
		return fmt.Errorf("read from disposed device: %w", ErrDeviceUnavailable)
	}
	if len(dst) < len(s.color) {
		return fmt.Errorf("pixel buffer holds %d bytes, need %d", len(dst), len(s.color))
	}
	copy(dst, s.color)
	return nil
}

// DrawTriangles rasterizes an indexed triangle list
func (s *Software) DrawTriangles(vertices []Vertex, indices []uint16, opts *DrawOptions) error {
	if s.disposed {
		return fmt.Errorf("draw on disposed device: %w", ErrDeviceUnavailable)
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	if opts == nil {
		opts = &DrawOptions{Color: OccluderColor}
	}
	for i := 0; i < len(indices); i += 3 {
		a, b, c := int(indices[i]), int(indices[i+1]), int(indices[i+2])
		if a >= len(vertices) || b >= len(vertices) || c >= len(vertices) {
			return fmt.Errorf("triangle %d references a missing vertex", i/3)
		}
		s.fill(vertices[a], vertices[b], vertices[c], opts)
	}
	return nil
}

func edge(p, q Vertex, x, y float64) float64 {
	return float64(q.X-p.X)*(y-float64(p.Y)) - float64(q.Y-p.Y)*(x-float64(p.X))
}

// owns resolves pixels exactly on an edge so that two triangles sharing it
// never both draw them
func owns(w float64, p, q Vertex) bool {
	if w != 0 {
		return w > 0
	}
	dy, dx := q.Y-p.Y, q.X-p.X
	return dy > 0 || (dy == 0 && dx < 0)
}

func (s *Software) fill(a, b, c Vertex, opts *DrawOptions) {
	if a.W <= 0 || b.W <= 0 || c.W <= 0 {
		return
	}
	area := edge(a, b, float64(c.X), float64(c.Y))
	if math.Abs(area) < 1e-12 {
		return
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}

	minX := clampInt(int(math.Floor(float64(min3(a.X, b.X, c.X)))), 0, s.width-1)
	maxX := clampInt(int(math.Ceil(float64(max3(a.X, b.X, c.X)))), 0, s.width-1)
	minY := clampInt(int(math.Floor(float64(min3(a.Y, b.Y, c.Y)))), 0, s.height-1)
	maxY := clampInt(int(math.Ceil(float64(max3(a.Y, b.Y, c.Y)))), 0, s.height-1)

	iwA, iwB, iwC := 1/float64(a.W), 1/float64(b.W), 1/float64(c.W)

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b, c, px, py)
			w1 := edge(c, a, px, py)
			w2 := edge(a, b, px, py)
			if !owns(w0, b, c) || !owns(w1, c, a) || !owns(w2, a, b) {
				continue
			}
			l0, l1, l2 := w0/area, w1/area, w2/area
			iw := l0*iwA + l1*iwB + l2*iwC

			idx := y*s.width + x
			if opts.DepthTest && float32(iw) <= s.depth[idx] {
				continue
			}
			if opts.Mask != nil {
				u := (l0*float64(a.U)*iwA + l1*float64(b.U)*iwB + l2*float64(c.U)*iwC) / iw
				v := (l0*float64(a.V)*iwA + l1*float64(b.V)*iwB + l2*float64(c.V)*iwC) / iw
				if core.SampleAlpha(opts.Mask, u, v) < opts.AlphaThreshold {
					continue
				}
			}
			if opts.DepthWrite {
				s.depth[idx] = float32(iw)
			}
			s.blend(4*idx, opts)
		}
	}
}

func (s *Software) blend(off int, opts *DrawOptions) {
	px := s.color[off : off+4]
	c := opts.Color
	if opts.Blend == BlendAdd {
		px[0] = addSat(px[0], c.R)
		px[1] = addSat(px[1], c.G)
		px[2] = addSat(px[2], c.B)
		if c.A > px[3] {
			px[3] = c.A
		}
		return
	}
	px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
}

func addSat(a, b byte) byte {
	if s := int(a) + int(b); s < 255 {
		return byte(s)
	}
	return 255
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float32) float32 {
	return min(a, min(b, c))
}

func max3(a, b, c float32) float32 {
	return max(a, max(b, c))
}
