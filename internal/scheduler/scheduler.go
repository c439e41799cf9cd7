// Package scheduler implements the frame scheduler (C5): it computes
// the CFL-stable sub-step count and size for a frame, grows the active
// region by a safety margin, and drives either the CPU stepper or the
// GPU backend for N sub-steps.
//
// Generalizes the teacher's internal/clock MasterClock — a component
// that computes "how many sub-units to run this tick" and drives
// registered step functions at a fixed cadence — from fixed-cycle
// CPU/PPU/APU ticking to a CFL-computed, per-frame sub-step count with
// a hard cap.
package scheduler

import (
	"math"

	"wavefield-sim/internal/debug"
	"wavefield-sim/internal/field"
	"wavefield-sim/internal/listener"
	"wavefield-sim/internal/preset"
	"wavefield-sim/internal/simerr"
	"wavefield-sim/internal/source"
	"wavefield-sim/internal/stepper"
)

// MaxSubSteps is the hard upper bound on N per frame (spec.md §4.5).
const MaxSubSteps = 1500

// cflSafety is the fixed CFL safety factor (0.6, below the 2D stability
// bound 1/sqrt(2)).
const cflSafety = 0.6

// GPUBackend is the subset of the GPU backend (C6) the scheduler
// drives. Implemented by internal/gpu.Backend.
type GPUBackend interface {
	// Available reports whether the backend is usable this frame.
	Available() bool
	// RunFrame executes N sub-steps against f using the shared
	// per-step params and per-step source injection tables, in the
	// fill-all/commit-all/wait-once protocol of spec.md §4.6.
	RunFrame(f *field.Field, params stepper.Params, sourceTables [][]source.InjectionRecord, l *listener.Listener) error
}

// FrameScheduler owns the CPU/GPU dispatch decision for one frame.
type FrameScheduler struct {
	C  float64 // wave speed, m/s
	Dx float64 // grid spacing, m

	GPU        GPUBackend
	GPUEnabled bool

	Logger *debug.Logger

	// DecayHook, if non-nil, is called after active-region growth with
	// a chance to shrink the region based on decayed energy. Left nil
	// by default per spec.md §9 Open Question (ii): the scheduler does
	// not change default active-region behavior without a test.
	DecayHook func(*field.ActiveRegion)

	overloaded bool // sticky state for overload transition logging
}

// RunFrame advances the simulation by Δ seconds of simulated time.
func (s *FrameScheduler) RunFrame(f *field.Field, p preset.Preset, pool *source.Pool, l *listener.Listener, delta float64) error {
	if l != nil {
		l.BeginFrame()
	}

	dtMax := cflSafety * s.Dx / s.C
	n := int(math.Ceil(delta / dtMax))
	if n < 1 {
		n = 1
	}

	truncated := n > MaxSubSteps
	if truncated {
		n = MaxSubSteps
	}
	s.reportOverload(truncated)

	dt := delta / float64(n)

	margin := int(math.Ceil(2 * s.C * dt / s.Dx * float64(n)))
	for _, pos := range pool.PlayingPositions() {
		f.Active.Grow(pos[0], pos[1], 0, f.W, f.H)
	}
	f.Active.Expand(margin, f.W, f.H)
	if s.DecayHook != nil {
		s.DecayHook(&f.Active)
	}

	k := math.Pow(s.C*dt/s.Dx, 2)
	params := stepper.Params{K: k, D: p.D, TwoD: 2 * p.D, R: p.R}

	if s.GPUEnabled && s.GPU != nil && s.GPU.Available() {
		tables := make([][]source.InjectionRecord, n)
		for i := 0; i < n; i++ {
			tables[i] = pool.SampleStep(dt)
		}
		if err := s.GPU.RunFrame(f, params, tables, l); err != nil {
			s.GPUEnabled = false
			if s.Logger != nil {
				s.Logger.LogSchedulerf(debug.LogLevelWarning, "GPU backend failed mid-frame, reverting to CPU: %v", err)
			}
			return simerr.Wrap(simerr.BackendFailure, "GPU frame execution failed", err)
		}
		return nil
	}

	for i := 0; i < n; i++ {
		records := pool.SampleStep(dt)
		source.Inject(f, records)
		stepper.Step(f, params, l)
	}
	return nil
}

func (s *FrameScheduler) reportOverload(truncated bool) {
	if truncated == s.overloaded {
		return
	}
	s.overloaded = truncated
	if s.Logger == nil {
		return
	}
	if truncated {
		s.Logger.LogSchedulerf(debug.LogLevelWarning, "overload: sub-step count truncated to MAX_SUBSTEPS=%d", MaxSubSteps)
	} else {
		s.Logger.LogSchedulerf(debug.LogLevelInfo, "overload cleared: sub-step count back within MAX_SUBSTEPS")
	}
}
