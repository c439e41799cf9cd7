package source

import "wavefield-sim/internal/field"

// Pool is the ordered sequence of continuous sources. Identity across
// frames is by stable slice index until the caller clears or removes a
// source, matching spec.md §4.2's "source pool" identity rule.
type Pool struct {
	sources []*Source
}

// NewPool returns an empty source pool.
func NewPool() *Pool { return &Pool{} }

// Add appends a source and returns its stable index.
func (p *Pool) Add(s *Source) int {
	p.sources = append(p.sources, s)
	return len(p.sources) - 1
}

// Get returns the source at index i, or nil if out of range.
func (p *Pool) Get(i int) *Source {
	if i < 0 || i >= len(p.sources) {
		return nil
	}
	return p.sources[i]
}

// Len returns the number of sources in the pool.
func (p *Pool) Len() int { return len(p.sources) }

// Clear removes every source from the pool.
func (p *Pool) Clear() { p.sources = nil }

// Remove deletes the source at index i, shifting later indices down.
func (p *Pool) Remove(i int) {
	if i < 0 || i >= len(p.sources) {
		return
	}
	p.sources = append(p.sources[:i], p.sources[i+1:]...)
}

// PlayingPositions returns the (x,y) cell of every currently playing
// source, in pool order. The scheduler grows the active region around
// each of these before dispatch, the same way an impulse grows it
// around its own Gaussian footprint — a continuous source injects
// non-zero pressure every sub-step and must not be left outside the
// box.
func (p *Pool) PlayingPositions() [][2]int {
	var out [][2]int
	for _, s := range p.sources {
		if s.Playing {
			out = append(out, [2]int{s.X, s.Y})
		}
	}
	return out
}

// InjectionRecord is one {x,y,pressure} entry produced by sampling a
// playing source for a single sub-step — the per-step source table the
// scheduler pre-computes for the GPU path (spec.md §4.5 step 4) and
// consumes directly on the CPU path (spec.md §4.2 "per-sub-step
// injection").
type InjectionRecord struct {
	X, Y     int
	Pressure float64
}

// SampleStep advances every playing source by dt and returns the
// {x,y,pressure} table for this sub-step, in pool order.
func (p *Pool) SampleStep(dt float64) []InjectionRecord {
	var out []InjectionRecord
	for _, s := range p.sources {
		if !s.Playing {
			continue
		}
		pressure := s.SampleForStep(dt)
		out = append(out, InjectionRecord{X: s.X, Y: s.Y, Pressure: pressure})
	}
	return out
}

// Inject adds each record's pressure to the field's current buffer at
// its cell, single-point and pre-propagation. Injecting into an
// obstacle cell is a no-op.
func Inject(f *field.Field, records []InjectionRecord) {
	cur := f.Cur()
	for _, r := range records {
		if !f.InBounds(r.X, r.Y) {
			continue
		}
		if f.IsObstacle(r.X, r.Y) {
			continue
		}
		cur[f.Index(r.X, r.Y)] += float32(r.Pressure)
	}
}
