// Package preset models the damping preset value object of the
// acoustic core: a closed tagged union of four named (d, r) pairs
// selected once per frame, mirroring the teacher's closed Waveform
// enum dispatched once per sample in AudioChannel.
package preset

import "wavefield-sim/internal/simerr"

// Kind is the closed set of damping preset kinds.
type Kind int

const (
	Realistic Kind = iota
	Visualization
	Anechoic
	Custom
)

func (k Kind) String() string {
	switch k {
	case Realistic:
		return "realistic"
	case Visualization:
		return "visualization"
	case Anechoic:
		return "anechoic"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Preset carries the two coefficients governing a sub-step: damping d
// (per-step energy retention of the air, in (0,1]) and wall reflection
// r (in [0,1]). r < 0.1 selects the absorbing boundary branch;
// otherwise the reflective branch is taken.
type Preset struct {
	Kind Kind
	D    float64
	R    float64
}

// AbsorbingBoundary reports whether r selects the absorbing
// (Engquist-Majda) branch rather than the reflective branch.
func (p Preset) AbsorbingBoundary() bool {
	return p.R < 0.1
}

// Named presets per spec.md §8 property 7.
func Named(kind Kind) (Preset, error) {
	switch kind {
	case Realistic:
		return Preset{Kind: Realistic, D: 0.997, R: 0.85}, nil
	case Visualization:
		return Preset{Kind: Visualization, D: 0.9999, R: 0.98}, nil
	case Anechoic:
		return Preset{Kind: Anechoic, D: 0.995, R: 0}, nil
	default:
		return Preset{}, simerr.New(simerr.InvalidArgument, "unknown preset kind for Named; use Custom with explicit d/r")
	}
}

// NewCustom builds a Custom preset from explicit coefficients,
// validating them against the invariants in spec.md §3.
func NewCustom(d, r float64) (Preset, error) {
	if d <= 0 || d > 1 {
		return Preset{}, simerr.New(simerr.InvalidArgument, "damping d must be in (0,1]")
	}
	if r < 0 || r > 1 {
		return Preset{}, simerr.New(simerr.InvalidArgument, "wall reflection r must be in [0,1]")
	}
	return Preset{Kind: Custom, D: d, R: r}, nil
}
