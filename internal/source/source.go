// Package source implements the continuous audio source pool (C2) and
// the one-shot impulse injector (impulse.go). A continuous source is a
// value type with an owning handle to an immutable PCM sample plus
// mutable playback state, generalizing the teacher's fixed
// APU.Channels [4]AudioChannel array into an ordered, appendable pool
// with stable index identity.
package source

import "math"

// referencePressure is the 20 Pa reference used to convert a unit
// [-1,1] sample times a dB gain into pascals (20 Pa ~= 134 dB SPL, the
// audio bridge's amplitude reference per spec.md §4.7).
const referencePressure = 20.0

// PCMSample is an immutable mono sample buffer, normalized to [-1,1].
type PCMSample struct {
	Name       string
	SampleRate uint32
	Data       []float32
}

// Source is one continuous audio source: an immutable sample plus
// mutable playback state.
type Source struct {
	Sample *PCMSample

	X, Y    int
	GainDB  float64
	Loop    bool
	Playing bool

	pos float64 // fractional playback cursor in samples
}

// NewSource creates a playing source at (x,y) at 0 dB gain.
func NewSource(sample *PCMSample, x, y int) *Source {
	return &Source{Sample: sample, X: x, Y: y, Playing: true}
}

// SampleForStep advances the playback cursor by n = max(1,
// round(sampleRate*dt)) underlying samples and returns the average,
// scaled by gain and the reference pressure, as pascals to inject this
// sub-step. Averaging rather than nearest-sample lookup is mandatory:
// at the grid spacings spec.md targets, dt is microseconds, so n is
// usually 1 at 48 kHz sources, but n grows whenever dt lengthens (a
// slower wave speed, a coarser grid) — averaging is what keeps the
// sub-sampled stream free of aliasing into the field.
func (s *Source) SampleForStep(dt float64) float64 {
	if !s.Playing || s.Sample == nil || len(s.Sample.Data) == 0 {
		return 0
	}

	n := int(math.Round(float64(s.Sample.SampleRate) * dt))
	if n < 1 {
		n = 1
	}

	data := s.Sample.Data
	total := 0.0
	counted := 0
	for i := 0; i < n; i++ {
		idx := int(s.pos)
		if idx >= len(data) {
			if s.Loop {
				s.pos -= float64(len(data))
				idx = int(s.pos)
			} else {
				s.Playing = false
				break
			}
		}
		total += float64(data[idx])
		counted++
		s.pos++
	}

	if counted == 0 {
		return 0
	}
	avg := total / float64(counted)
	return avg * math.Pow(10, s.GainDB/20) * referencePressure
}

// Pause stops playback without resetting the cursor.
func (s *Source) Pause() { s.Playing = false }

// Resume continues playback from the current cursor.
func (s *Source) Resume() { s.Playing = true }

// Reset rewinds the playback cursor to the start.
func (s *Source) Reset() { s.pos = 0 }
