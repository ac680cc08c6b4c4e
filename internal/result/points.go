package result

import "fmt"

// Points is a sampled result. Each group is one independently tested
// subshape of the target; the best group decides the percentage.
type Points struct {
	Groups [][]bool
}

// NewPoints wraps per-group unobscured flags
func NewPoints(groups ...[]bool) *Points {
	return &Points{Groups: groups}
}

// best returns the index of the group with the highest ratio
func (p *Points) best() (int, float64) {
	idx, best := -1, -1.0
	for i, g := range p.Groups {
		if len(g) == 0 {
			continue
		}
		if r := float64(count(g)) / float64(len(g)); r > best {
			idx, best = i, r
		}
	}
	return idx, best
}

func (p *Points) TotalArea() float64 {
	i, _ := p.best()
	if i < 0 {
		return 0
	}
	return float64(len(p.Groups[i]))
}

func (p *Points) VisibleArea() float64 {
	i, _ := p.best()
	if i < 0 {
		return 0
	}
	return float64(count(p.Groups[i]))
}

// PercentVisible is the best group's unobscured fraction
func (p *Points) PercentVisible() float64 {
	i, r := p.best()
	if i < 0 {
		return 0
	}
	return r
}

func (p *Points) State() State { return Measured }

// BlendMax ORs matching samples; a point seen from either eye is seen
func (p *Points) BlendMax(other Result) Result {
	if r, ok := blendFixed(p, other, true); ok {
		return r
	}
	if o, ok := other.(*Points); ok && p.sameShape(o) {
		return p.combine(o, func(a, b bool) bool { return a || b })
	}
	if other.PercentVisible() > p.PercentVisible() {
		return other
	}
	return p
}

// BlendMin ANDs matching samples
func (p *Points) BlendMin(other Result) Result {
	if r, ok := blendFixed(p, other, false); ok {
		return r
	}
	if o, ok := other.(*Points); ok && p.sameShape(o) {
		return p.combine(o, func(a, b bool) bool { return a && b })
	}
	if other.PercentVisible() < p.PercentVisible() {
		return other
	}
	return p
}

func (p *Points) sameShape(o *Points) bool {
	if len(p.Groups) != len(o.Groups) {
		return false
	}
	for i := range p.Groups {
		if len(p.Groups[i]) != len(o.Groups[i]) {
			return false
		}
	}
	return true
}

func (p *Points) combine(o *Points, op func(a, b bool) bool) *Points {
	groups := make([][]bool, len(p.Groups))
	for i, g := range p.Groups {
		out := make([]bool, len(g))
		for j := range g {
			out[j] = op(g[j], o.Groups[i][j])
		}
		groups[i] = out
	}
	return &Points{Groups: groups}
}

func (p *Points) String() string {
	return fmt.Sprintf("points %.0f/%.0f (%.1f%%)", p.VisibleArea(), p.TotalArea(), 100*p.PercentVisible())
}

func count(g []bool) int {
	n := 0
	for _, v := range g {
		if v {
			n++
		}
	}
	return n
}
