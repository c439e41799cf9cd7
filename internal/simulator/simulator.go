// Package simulator wires the field, presets, source pool, listener,
// frame scheduler, GPU backend, and audio bridge into the single
// control surface described in spec.md §6: the commands a host (CLI,
// UI, test harness) issues at frame boundaries.
//
// The wiring mirrors the teacher's Emulator type in
// internal/emulator/emulator.go — one struct owning every subsystem,
// exposing a small set of imperative methods a UI loop calls once per
// tick — generalized from a fixed NES-shaped machine to a resizable
// acoustic grid with a pluggable CPU/GPU execution split.
package simulator

import (
	"wavefield-sim/internal/audio"
	"wavefield-sim/internal/debug"
	"wavefield-sim/internal/field"
	"wavefield-sim/internal/gpu"
	"wavefield-sim/internal/listener"
	"wavefield-sim/internal/preset"
	"wavefield-sim/internal/scheduler"
	"wavefield-sim/internal/simerr"
	"wavefield-sim/internal/source"
)

// defaultWaveSpeed and defaultGridSpacing give a concrete (c, dx) pair
// matching spec.md §4.5's worked example (343 m/s air, 8.6mm spacing).
const (
	defaultWaveSpeed   = 343.0
	defaultGridSpacing = 0.0086
)

// Simulator owns every subsystem and is the sole mutator of the field
// (the single-writer thread contract of spec.md §5).
type Simulator struct {
	Field    *field.Field
	Preset   preset.Preset
	Pool     *source.Pool
	Listener *listener.Listener

	scheduler *scheduler.FrameScheduler
	gpuBack   *gpu.Backend
	bridge    *audio.Bridge
	logger    *debug.Logger

	timeScale float64
}

// New builds a simulator over a w*h grid with the Realistic damping
// preset, a disabled listener at the grid center, and a GPU backend
// that stays uninitialized and disabled until explicitly toggled on.
func New(w, h int, sampleRate uint32, logger *debug.Logger) (*Simulator, error) {
	p, err := preset.Named(preset.Realistic)
	if err != nil {
		return nil, err
	}

	back := gpu.NewBackend(logger)
	sim := &Simulator{
		Field:    field.New(w, h),
		Preset:   p,
		Pool:     source.NewPool(),
		Listener: listener.New(w/2, h/2),
		gpuBack:  back,
		bridge:   audio.NewBridge(sampleRate),
		logger:   logger,
		scheduler: &scheduler.FrameScheduler{
			C: defaultWaveSpeed, Dx: defaultGridSpacing, GPU: back, Logger: logger,
		},
		timeScale: 1.0,
	}
	return sim, nil
}

// RunFrame advances the simulation by delta seconds of simulated time
// and forwards the drained listener vector to the audio bridge.
func (s *Simulator) RunFrame(delta float64) error {
	if err := s.scheduler.RunFrame(s.Field, s.Preset, s.Pool, s.Listener, delta); err != nil {
		return err
	}
	vec := s.Listener.DrainFrame()
	s.bridge.SubmitListenerSamples(vec, delta, s.timeScale)
	return nil
}

// AddImpulse injects a one-shot Gaussian pressure pulse.
func (s *Simulator) AddImpulse(x, y int, pressure float64, radius int) error {
	return source.AddImpulse(s.Field, x, y, pressure, radius)
}

// AddObstacle marks a filled disc of radius r around (x,y) as rigid.
func (s *Simulator) AddObstacle(x, y, r int) error {
	return s.Field.AddObstacle(x, y, r)
}

// RemoveObstacle clears a filled disc of radius r around (x,y).
func (s *Simulator) RemoveObstacle(x, y, r int) error {
	return s.Field.RemoveObstacle(x, y, r)
}

// ClearWaves zeroes the pressure field and active region, leaving
// obstacles and sources untouched.
func (s *Simulator) ClearWaves() { s.Field.Clear() }

// ClearObstacles clears the obstacle mask, leaving pressure untouched.
func (s *Simulator) ClearObstacles() { s.Field.ClearObstacles() }

// LoadObstaclesFromMask replaces the obstacle mask wholesale; mask
// must be W*H bytes, as produced by an external rasterizer.
func (s *Simulator) LoadObstaclesFromMask(mask []uint8) error {
	return s.Field.LoadObstaclesFromMask(mask)
}

// SetListener moves the listener; its enabled state is unchanged.
func (s *Simulator) SetListener(x, y int) { s.Listener.Move(x, y) }

// ToggleListener flips the listener's enabled flag.
func (s *Simulator) ToggleListener() bool { return s.Listener.Toggle() }

// AddAudioSource appends a continuous source to the pool and returns
// its stable index.
func (s *Simulator) AddAudioSource(sample *source.PCMSample, x, y int) int {
	return s.Pool.Add(source.NewSource(sample, x, y))
}

// ToggleAudioSource pauses or resumes the source at index i.
func (s *Simulator) ToggleAudioSource(i int) error {
	src := s.Pool.Get(i)
	if src == nil {
		return simerr.New(simerr.InvalidArgument, "audio source index out of range")
	}
	if src.Playing {
		src.Pause()
	} else {
		src.Resume()
	}
	return nil
}

// ClearAudioSources empties the source pool.
func (s *Simulator) ClearAudioSources() { s.Pool.Clear() }

// SetTimeScale sets the simulated-to-wall-clock time ratio consumed by
// the audio bridge's resampler.
func (s *Simulator) SetTimeScale(scale float64) error {
	if scale <= 0 {
		return simerr.New(simerr.InvalidArgument, "time scale must be positive")
	}
	s.timeScale = scale
	return nil
}

// SetWaveSpeed updates the scheduler's wave speed coefficient c.
func (s *Simulator) SetWaveSpeed(c float64) error {
	if c <= 0 {
		return simerr.New(simerr.InvalidArgument, "wave speed must be positive")
	}
	s.scheduler.C = c
	return nil
}

// SetDamping installs a Custom preset with explicit (d, r).
func (s *Simulator) SetDamping(d, r float64) error {
	p, err := preset.NewCustom(d, r)
	if err != nil {
		return err
	}
	s.Preset = p
	return nil
}

// ApplyPreset installs one of the named damping presets.
func (s *Simulator) ApplyPreset(kind preset.Kind) error {
	p, err := preset.Named(kind)
	if err != nil {
		return err
	}
	s.Preset = p
	return nil
}

// SetVolume sets the audio bridge's linear output gain.
func (s *Simulator) SetVolume(gain float64) { s.bridge.SetGain(gain) }

// ToggleMute flips the audio bridge's mute flag.
func (s *Simulator) ToggleMute() bool { return s.bridge.ToggleMuted() }

// Bridge exposes the audio bridge for device wiring (cmd/simulator).
func (s *Simulator) Bridge() *audio.Bridge { return s.bridge }

// ToggleGPU enables or disables the GPU execution path. Enabling when
// the backend cannot initialize reports resource-unavailable and
// leaves the simulator on the CPU path.
func (s *Simulator) ToggleGPU(enable bool) error {
	if !enable {
		s.scheduler.GPUEnabled = false
		return nil
	}
	if !s.gpuBack.Available() {
		if err := s.gpuBack.Init(s.Field.W, s.Field.H); err != nil {
			return simerr.Wrap(simerr.ResourceUnavailable, "GPU backend unavailable", err)
		}
	}
	s.scheduler.GPUEnabled = true
	return nil
}

// ResizeGrid rebuilds the field (and GPU backend, if initialized) at
// the new dimensions. The listener position is rescaled
// proportionally; obstacles and sources are discarded, per spec.md §6.
func (s *Simulator) ResizeGrid(w, h int) error {
	oldW, oldH := s.Field.W, s.Field.H
	fracX := float64(s.Listener.X) / float64(oldW)
	fracY := float64(s.Listener.Y) / float64(oldH)

	s.Field = field.New(w, h)
	s.Pool.Clear()
	s.Listener.Move(int(fracX*float64(w)), int(fracY*float64(h)))

	if s.gpuBack.Available() {
		s.gpuBack.Shutdown()
		if err := s.gpuBack.Init(w, h); err != nil {
			s.scheduler.GPUEnabled = false
			return simerr.Wrap(simerr.ResourceUnavailable, "GPU backend reinit failed after resize", err)
		}
	}
	return nil
}
