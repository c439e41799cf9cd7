package audio

import (
	"math"
	"sync/atomic"
)

// referencePressure is the 20 Pa ≈ 134 dB SPL reference used to map
// raw pressure to a unit-amplitude sample (spec.md §4.7).
const referencePressure = 20.0

// amplitudeCeiling clamps output amplitude below full scale to leave
// headroom against clipping.
const amplitudeCeiling = 0.95

// Bridge owns the ring buffer and the gain/mute controls shared
// between the main (producer) thread and the audio device (consumer)
// thread. Gain and mute are atomics read once per callback; the
// callback takes only the ring buffer's short mutex and allocates only
// when asked for more frames than its scratch buffer holds.
type Bridge struct {
	ring       *RingBuffer
	sampleRate uint32

	gainBits atomic.Uint32 // float32 bits, via math.Float32bits
	muted    atomic.Bool

	carry   float64   // leftover simulated-time offset from the previous frame
	scratch []float32 // reused by Callback; only the audio thread touches it
}

// defaultCallbackFrames sizes the callback scratch buffer up front so
// Callback has no allocation to do on the common path.
const defaultCallbackFrames = 4096

// NewBridge creates a bridge at the given device sample rate with
// unity gain and playback unmuted.
func NewBridge(sampleRate uint32) *Bridge {
	b := &Bridge{ring: NewRingBuffer(), sampleRate: sampleRate, scratch: make([]float32, defaultCallbackFrames)}
	b.SetGain(1.0)
	return b
}

// SetGain sets the linear output gain applied at the callback.
func (b *Bridge) SetGain(gain float64) {
	b.gainBits.Store(math.Float32bits(float32(gain)))
}

// Gain returns the currently active linear gain.
func (b *Bridge) Gain() float64 {
	return float64(math.Float32frombits(b.gainBits.Load()))
}

// SetMuted sets the mute flag.
func (b *Bridge) SetMuted(muted bool) { b.muted.Store(muted) }

// ToggleMuted flips the mute flag and returns the new state.
func (b *Bridge) ToggleMuted() bool {
	for {
		cur := b.muted.Load()
		if b.muted.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// Muted reports the current mute flag.
func (b *Bridge) Muted() bool { return b.muted.Load() }

// Queued reports how many unread pressure samples sit in the ring
// buffer, for diagnostics.
func (b *Bridge) Queued() int { return b.ring.Queued() }

// SubmitListenerSamples consumes one frame's listener vector — N
// samples spaced frameDuration/N simulated seconds apart — and
// resamples it onto the audio device's fixed-rate timeline by linear
// interpolation, per spec.md §4.7. timeScale is the number of
// simulated seconds played per wall-clock second (1.0 is real-time; >1
// is fast-forward, <1 is slow motion, matching the "set time scale"
// control surface entry).
// An empty vec (listener disabled this frame) is a no-op.
func (b *Bridge) SubmitListenerSamples(vec []float64, frameDuration float64, timeScale float64) {
	n := len(vec)
	if n == 0 || frameDuration <= 0 {
		return
	}
	if timeScale <= 0 {
		timeScale = 1
	}

	simDt := frameDuration / float64(n)
	audioPeriodSim := (1.0 / float64(b.sampleRate)) * timeScale

	numOut := 0
	if audioPeriodSim > 0 {
		numOut = int(math.Floor((frameDuration-b.carry)/audioPeriodSim)) + 1
	}
	if numOut < 0 {
		numOut = 0
	}

	out := make([]float32, 0, numOut)
	t := b.carry
	for i := 0; i < numOut; i++ {
		if t >= frameDuration {
			break
		}
		pos := t / simDt
		j := int(math.Floor(pos))
		frac := pos - float64(j)
		if j < 0 {
			j, frac = 0, 0
		}
		var sample float64
		if j >= n-1 {
			sample = vec[n-1]
		} else {
			sample = vec[j]*(1-frac) + vec[j+1]*frac
		}
		out = append(out, float32(sample))
		t += audioPeriodSim
	}
	b.carry = t - frameDuration

	b.ring.Write(out)
}

// Callback fills out with device-format mono samples pulled from the
// ring buffer, applying the pressure-to-amplitude mapping, gain, and
// mute. It allocates only when out is longer than its scratch buffer
// (defaultCallbackFrames unless grown by an earlier call), and it never
// waits for the producer: an empty ring contributes silence.
func (b *Bridge) Callback(out []float32) {
	if cap(b.scratch) < len(out) {
		b.scratch = make([]float32, len(out))
	}
	raw := b.scratch[:len(out)]
	b.ring.Read(raw)

	gain := float32(b.Gain())
	muted := b.muted.Load()

	for i, pressure := range raw {
		if muted {
			out[i] = 0
			continue
		}
		s := pressure / referencePressure * gain
		if s > amplitudeCeiling {
			s = amplitudeCeiling
		} else if s < -amplitudeCeiling {
			s = -amplitudeCeiling
		}
		out[i] = s
	}
}
