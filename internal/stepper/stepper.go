// Package stepper implements one FDTD sub-step (C4): the 5-point
// Laplacian leapfrog update, reflective/absorbing boundary resolution,
// and listener sampling, over the field's row-major pressure buffers.
//
// The numeric-kernel organization — precomputed coefficients passed
// into a tight, allocation-free loop over a flat buffer — follows the
// teacher's dot-by-dot PPU scanline stepping and the delay-line update
// loops of the pack's vst3go reverb/fdn.go; the wave equation itself
// has no teacher analogue and is implemented directly from spec.md §4.4,
// which is authoritative here.
package stepper

import (
	"math"

	"wavefield-sim/internal/field"
	"wavefield-sim/internal/listener"
)

// Params carries the precomputed per-frame coefficients a sub-step
// needs: K = (c*dt/dx)^2, D = the damping preset's d, TwoD = 2*d, and R
// = the damping preset's wall reflection coefficient.
type Params struct {
	K    float64
	D    float64
	TwoD float64
	R    float64
}

// Absorbing reports whether r selects the absorbing boundary branch.
func (p Params) Absorbing() bool { return p.R < 0.1 }

// Step runs one FDTD sub-step in place: it writes Next from Cur/Prev,
// resolves the boundary into Next, optionally samples the listener
// from Cur (before rotation, per spec.md §4.4), and rotates the field
// triple. l may be nil to skip listening.
func Step(f *field.Field, p Params, l *listener.Listener) {
	interiorSweep(f, p)
	if p.Absorbing() {
		absorbingBoundary(f, p)
	} else {
		reflectiveBoundary(f, p)
	}

	if l != nil {
		cur := f.Cur()
		if f.InBounds(l.X, l.Y) {
			l.Sample(cur[f.Index(l.X, l.Y)])
		}
	}

	f.Rotate()
}

func interiorSweep(f *field.Field, p Params) {
	w, h := f.W, f.H
	cur, prev, next := f.Cur(), f.Prev(), f.Next()
	k, d, t := p.K, p.D, p.TwoD

	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			if f.Obstacle[i] != 0 {
				next[i] = 0
				continue
			}
			lap := cur[i-1] + cur[i+1] + cur[i-w] + cur[i+w] - 4*cur[i]
			next[i] = float32(t*float64(cur[i]) - d*float64(prev[i]) + d*k*float64(lap))
		}
	}
}

// reflectiveBoundary resolves each boundary cell from the already-
// written one-inward neighbor in Next, multiplied by r. This order —
// boundaries resolved after the interior sweep, reading the interior's
// freshly written output — is a documented non-physical amplification
// of whatever the interior wrote, preserved bit-for-bit for
// compatibility per spec.md §9 Open Question (i) rather than replaced
// with a physically derived Robin boundary.
func reflectiveBoundary(f *field.Field, p Params) {
	w, h := f.W, f.H
	next := f.Next()
	r := float32(p.R)

	for x := 0; x < w; x++ {
		top := f.Index(x, 0)
		topIn := f.Index(x, 1)
		next[top] = next[topIn] * r

		bot := f.Index(x, h-1)
		botIn := f.Index(x, h-2)
		next[bot] = next[botIn] * r
	}
	for y := 0; y < h; y++ {
		left := f.Index(0, y)
		leftIn := f.Index(1, y)
		next[left] = next[leftIn] * r

		right := f.Index(w-1, y)
		rightIn := f.Index(w-2, y)
		next[right] = next[rightIn] * r
	}
}

// absorbingBoundary implements the Engquist-Majda one-way ABC: each
// non-corner boundary cell transmits outgoing waves via
// next = cur - a*(cur - cur_inward); corners are zeroed.
func absorbingBoundary(f *field.Field, p Params) {
	w, h := f.W, f.H
	cur, next := f.Cur(), f.Next()
	a := math.Min(1, math.Sqrt(p.K))

	for x := 1; x < w-1; x++ {
		top := f.Index(x, 0)
		topIn := f.Index(x, 1)
		next[top] = cur[top] - float32(a)*(cur[top]-cur[topIn])

		bot := f.Index(x, h-1)
		botIn := f.Index(x, h-2)
		next[bot] = cur[bot] - float32(a)*(cur[bot]-cur[botIn])
	}
	for y := 1; y < h-1; y++ {
		left := f.Index(0, y)
		leftIn := f.Index(1, y)
		next[left] = cur[left] - float32(a)*(cur[left]-cur[leftIn])

		right := f.Index(w-1, y)
		rightIn := f.Index(w-2, y)
		next[right] = cur[right] - float32(a)*(cur[right]-cur[rightIn])
	}

	next[f.Index(0, 0)] = 0
	next[f.Index(w-1, 0)] = 0
	next[f.Index(0, h-1)] = 0
	next[f.Index(w-1, h-1)] = 0
}
