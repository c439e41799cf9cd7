package source

import (
	"math"

	"wavefield-sim/internal/field"
	"wavefield-sim/internal/simerr"
)

// AddImpulse injects a Gaussian pressure profile centered at (x,y) into
// the field's current buffer, skipping obstacle cells, and expands the
// active region by 2r around the impulse. p is in pascals, r in pixels.
func AddImpulse(f *field.Field, x, y int, p float64, r int) error {
	if p <= 0 || p > 1000 {
		return simerr.New(simerr.InvalidArgument, "impulse pressure must be in (0,1000] pascals")
	}
	if r < 1 || r > 50 {
		return simerr.New(simerr.InvalidArgument, "impulse radius must be in [1,50] pixels")
	}

	sigma := 1.25 * float64(r)
	twoSigma2 := 2 * sigma * sigma
	cur := f.Cur()

	minX, maxX := x-r, x+r
	minY, maxY := y-r, y+r
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			if !f.InBounds(px, py) {
				continue
			}
			if f.IsObstacle(px, py) {
				continue
			}
			dx := float64(px - x)
			dy := float64(py - y)
			amp := p * math.Exp(-(dx*dx+dy*dy)/twoSigma2)
			cur[f.Index(px, py)] += float32(amp)
		}
	}

	f.Active.Grow(x, y, 2*r, f.W, f.H)
	return nil
}
