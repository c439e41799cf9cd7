// Package field owns the acoustic pressure grid: the rotating triple
// of pressure buffers, the obstacle mask, and the active-region bounds
// that let the scheduler and stepper skip cells known to be silent.
//
// The three buffers are a fixed-size ownership container permuted by
// index (see Triple), never reallocated between steps — generalizing
// the teacher's flat, bounds-checked register arrays (internal/memory)
// to a row-major float32 pressure grid.
package field

import "wavefield-sim/internal/simerr"

// Triple names the three rotating roles of the pressure buffers.
type Triple int

const (
	Prev Triple = iota
	Cur
	Next
)

// ActiveRegion is the axis-aligned bounding box outside of which the
// field is known to be zero at the start of a frame.
type ActiveRegion struct {
	MinX, MinY, MaxX, MaxY int
	HasActivity            bool
}

// Grow expands the box to include (x,y) plus a margin in every
// direction, clamped to [0,w) x [0,h). Growth is monotonic within a
// frame; Reset is the only way to shrink it.
func (r *ActiveRegion) Grow(x, y, margin, w, h int) {
	minX, minY, maxX, maxY := x-margin, y-margin, x+margin, y+margin
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= w {
		maxX = w - 1
	}
	if maxY >= h {
		maxY = h - 1
	}
	if !r.HasActivity {
		r.MinX, r.MinY, r.MaxX, r.MaxY = minX, minY, maxX, maxY
		r.HasActivity = true
		return
	}
	if minX < r.MinX {
		r.MinX = minX
	}
	if minY < r.MinY {
		r.MinY = minY
	}
	if maxX > r.MaxX {
		r.MaxX = maxX
	}
	if maxY > r.MaxY {
		r.MaxY = maxY
	}
}

// Expand grows every side of the box by n pixels, clamped to the grid.
func (r *ActiveRegion) Expand(n, w, h int) {
	if !r.HasActivity {
		return
	}
	r.MinX -= n
	r.MinY -= n
	r.MaxX += n
	r.MaxY += n
	if r.MinX < 0 {
		r.MinX = 0
	}
	if r.MinY < 0 {
		r.MinY = 0
	}
	if r.MaxX >= w {
		r.MaxX = w - 1
	}
	if r.MaxY >= h {
		r.MaxY = h - 1
	}
}

// Reset clears the active region back to empty. Only an explicit
// field clear may call this; the scheduler never shrinks the box
// mid-session on its own (see DESIGN.md Open Question ii).
func (r *ActiveRegion) Reset() {
	*r = ActiveRegion{}
}

// Field owns the three pressure buffers and the obstacle mask.
type Field struct {
	W, H int

	buffers [3][]float32 // indexed by the rotating Triple roles
	prev    int
	cur     int
	next    int

	Obstacle []uint8

	Active ActiveRegion
}

// New allocates a W*H field. Pressure buffers and the obstacle mask
// are zeroed.
func New(w, h int) *Field {
	f := &Field{
		W: w, H: h,
		prev: 0, cur: 1, next: 2,
		Obstacle: make([]uint8, w*h),
	}
	for i := range f.buffers {
		f.buffers[i] = make([]float32, w*h)
	}
	return f
}

// Prev, Cur, Next return the current role assignment's backing slices.
// Callers must not retain these across Clear or LoadObstaclesFromMask.
func (f *Field) Prev() []float32 { return f.buffers[f.prev] }
func (f *Field) Cur() []float32  { return f.buffers[f.cur] }
func (f *Field) Next() []float32 { return f.buffers[f.next] }

// Rotate permutes the triple so that Cur becomes Prev, Next becomes
// Cur, and the stale Prev becomes the new Next (to be overwritten next
// sub-step). No buffer is reallocated or copied.
func (f *Field) Rotate() {
	f.prev, f.cur, f.next = f.cur, f.next, f.prev
}

func (f *Field) inBounds(x, y int) bool {
	return x >= 0 && x < f.W && y >= 0 && y < f.H
}

func (f *Field) idx(x, y int) int { return y*f.W + x }

// Clear zeroes all three pressure buffers and resets the active
// region. The obstacle mask is untouched.
func (f *Field) Clear() {
	for i := range f.buffers {
		b := f.buffers[i]
		for j := range b {
			b[j] = 0
		}
	}
	f.Active.Reset()
}

func clampRadius(r int) (int, error) {
	if r < 1 || r > 50 {
		return 0, simerr.New(simerr.InvalidArgument, "radius must be in [1,50]")
	}
	return r, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// zeroPressureAt forces a cell to zero pressure in all three buffers,
// the obstacle-rigidity invariant.
func (f *Field) zeroPressureAt(i int) {
	f.buffers[0][i] = 0
	f.buffers[1][i] = 0
	f.buffers[2][i] = 0
}

// AddObstacle marks a filled disc of radius r around (x,y) as rigid,
// silently clamping out-of-bounds coordinates to the grid and
// zeroing pressure at every newly marked cell.
func (f *Field) AddObstacle(x, y, r int) error {
	r, err := clampRadius(r)
	if err != nil {
		return err
	}
	f.paintDisc(x, y, r, 1)
	return nil
}

// RemoveObstacle clears a filled disc of radius r around (x,y).
func (f *Field) RemoveObstacle(x, y, r int) error {
	r, err := clampRadius(r)
	if err != nil {
		return err
	}
	f.paintDisc(x, y, r, 0)
	return nil
}

func (f *Field) paintDisc(x, y, r int, mask uint8) {
	minX := clamp(x-r, 0, f.W-1)
	maxX := clamp(x+r, 0, f.W-1)
	minY := clamp(y-r, 0, f.H-1)
	maxY := clamp(y+r, 0, f.H-1)
	r2 := r * r
	for py := minY; py <= maxY; py++ {
		dy := py - y
		for px := minX; px <= maxX; px++ {
			dx := px - x
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := f.idx(px, py)
			f.Obstacle[i] = mask
			if mask != 0 {
				f.zeroPressureAt(i)
			}
		}
	}
}

// ClearObstacles clears the entire obstacle mask; pressure is left as is.
func (f *Field) ClearObstacles() {
	for i := range f.Obstacle {
		f.Obstacle[i] = 0
	}
}

// LoadObstaclesFromMask atomically replaces the obstacle mask. Any
// non-zero byte marks a rigid cell. Pressure is zeroed wherever the
// new mask is set. The caller-provided mask must match W*H exactly.
func (f *Field) LoadObstaclesFromMask(mask []uint8) error {
	if len(mask) != f.W*f.H {
		return simerr.New(simerr.InvalidArgument, "obstacle mask size mismatch")
	}
	for i, v := range mask {
		if v != 0 {
			f.Obstacle[i] = 1
			f.zeroPressureAt(i)
		} else {
			f.Obstacle[i] = 0
		}
	}
	return nil
}

// IsObstacle reports whether (x,y) is a rigid cell. Out-of-bounds
// coordinates are treated as obstacles (nothing propagates past the edge).
func (f *Field) IsObstacle(x, y int) bool {
	if !f.inBounds(x, y) {
		return true
	}
	return f.Obstacle[f.idx(x, y)] != 0
}

// Index returns the flat row-major index of (x,y); callers must check
// InBounds first.
func (f *Field) Index(x, y int) int { return f.idx(x, y) }

// InBounds reports whether (x,y) lies within the grid.
func (f *Field) InBounds(x, y int) bool { return f.inBounds(x, y) }
