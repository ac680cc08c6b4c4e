// Package result holds the percent-visible values produced by the
// calculators and the rules for combining them.
package result

import (
	"fmt"

	"sightline/internal/core"
)

// State separates shortcut answers from measured ones
type State uint8

const (
	Measured State = iota
	FullyVisible
	FullyNotVisible
)

func (s State) String() string {
	switch s {
	case FullyVisible:
		return "fully-visible"
	case FullyNotVisible:
		return "fully-not-visible"
	default:
		return "measured"
	}
}

// Result is a percent-visible value.
//
// BlendMax combines results from several eyes (union); BlendMin screens by
// the worst case (intersection).
type Result interface {
	TotalArea() float64
	VisibleArea() float64
	PercentVisible() float64
	State() State
	BlendMax(other Result) Result
	BlendMin(other Result) Result
}

// Visible is the fully-visible shortcut
func Visible() Result { return Fixed{state: FullyVisible} }

// NotVisible is the fully-not-visible shortcut
func NotVisible() Result { return Fixed{state: FullyNotVisible} }

// Failed is a not-visible answer caused by an unavailable collaborator.
// Caches must not keep it.
func Failed() Result { return Fixed{state: FullyNotVisible, failed: true} }

// IsFailed reports whether r came from Failed
func IsFailed(r Result) bool {
	f, ok := r.(Fixed)
	return ok && f.failed
}

// Fixed is a result decided without measuring
type Fixed struct {
	state  State
	failed bool
}

func (f Fixed) TotalArea() float64 { return 1 }

func (f Fixed) VisibleArea() float64 { return f.PercentVisible() }

func (f Fixed) PercentVisible() float64 {
	if f.state == FullyVisible {
		return 1
	}
	return 0
}

func (f Fixed) State() State { return f.state }

func (f Fixed) BlendMax(other Result) Result {
	r, _ := blendFixed(f, other, true)
	return r
}

func (f Fixed) BlendMin(other Result) Result {
	r, _ := blendFixed(f, other, false)
	return r
}

func (f Fixed) String() string { return f.state.String() }

// blendFixed applies the shortcut rules. ok is false when neither side is a
// shortcut.
func blendFixed(a, b Result, union bool) (Result, bool) {
	if b == nil {
		return a, true
	}
	as, bs := a.State(), b.State()
	switch {
	case union && (as == FullyVisible || bs == FullyVisible):
		return Visible(), true
	case !union && (as == FullyNotVisible || bs == FullyNotVisible):
		return NotVisible(), true
	case as != Measured:
		return b, true
	case bs != Measured:
		return a, true
	}
	return nil, false
}

// Area is a measured visible area against a total area. Geometric and
// raster calculators both produce it.
type Area struct {
	Total   float64
	Visible float64
}

// NewArea clamps visible into [0, total]
func NewArea(total, visible float64) *Area {
	if total < 0 {
		total = 0
	}
	return &Area{Total: total, Visible: core.Clamp(visible, 0, total)}
}

func (a *Area) TotalArea() float64 { return a.Total }

func (a *Area) VisibleArea() float64 { return a.Visible }

// PercentVisible guards the denominator to at least 1
func (a *Area) PercentVisible() float64 {
	total := a.Total
	if total < 1 {
		if a.Visible <= 0 {
			return 0
		}
		total = 1
	}
	return core.Clamp(a.Visible/total, 0, 1)
}

func (a *Area) State() State { return Measured }

// BlendMax keeps the better of the two measurements
func (a *Area) BlendMax(other Result) Result {
	if r, ok := blendFixed(a, other, true); ok {
		return r
	}
	if other.PercentVisible() > a.PercentVisible() {
		return other
	}
	return a
}

// BlendMin keeps the worse of the two measurements
func (a *Area) BlendMin(other Result) Result {
	if r, ok := blendFixed(a, other, false); ok {
		return r
	}
	if other.PercentVisible() < a.PercentVisible() {
		return other
	}
	return a
}

func (a *Area) String() string {
	return fmt.Sprintf("area %.3f/%.3f (%.1f%%)", a.Visible, a.Total, 100*a.PercentVisible())
}
