package audio

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"wavefield-sim/internal/debug"
)

// deviceTickPeriod is how often the device goroutine pulls a slice
// from the bridge and queues it, mirroring the teacher's per-UI-tick
// QueueAudio call in internal/ui/ui.go but driven by its own ticker
// instead of the render loop, since this package has no window of its
// own to tick against.
const deviceTickPeriod = 10 * time.Millisecond

// Device wires a Bridge to a real SDL2 audio output, following the
// teacher's sdl.OpenAudioDevice/sdl.QueueAudio plumbing (mono float32
// here rather than the teacher's stereo-duplicated int stream) instead
// of a C callback, since go-sdl2's callback form requires cgo export
// machinery the rest of the pack never uses.
type Device struct {
	bridge *Bridge
	logger *debug.Logger

	dev     sdl.AudioDeviceID
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// OpenDevice opens the default SDL2 audio output at sampleRate, mono,
// 32-bit float, and starts playback paused-off. The audio device is
// optional: callers may continue with a nil-valued Device's error
// reported but playback simply absent, matching the teacher's
// "audio is optional, continue without it" fallback.
func OpenDevice(bridge *Bridge, sampleRate uint32, logger *debug.Logger) (*Device, error) {
	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_F32,
		Channels: 1,
		Samples:  uint16(sampleRate / 100), // ~10ms frames
	}
	devID, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	sdl.PauseAudioDevice(devID, false)

	d := &Device{
		bridge: bridge,
		logger: logger,
		dev:    devID,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	d.running = true
	go d.run(sampleRate)
	return d, nil
}

func (d *Device) run(sampleRate uint32) {
	defer close(d.done)

	frames := int(sampleRate / 100)
	out := make([]float32, frames)
	maxQueuedBytes := uint32(frames * 4 * 2) // ~2 ticks worth

	ticker := time.NewTicker(deviceTickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if sdl.GetQueuedAudioSize(d.dev) >= maxQueuedBytes {
				continue
			}
			d.bridge.Callback(out)
			buf := make([]byte, len(out)*4)
			for i, s := range out {
				b := (*[4]byte)(unsafe.Pointer(&s))
				copy(buf[i*4:i*4+4], b[:])
			}
			if err := sdl.QueueAudio(d.dev, buf); err != nil && d.logger != nil {
				d.logger.LogAudiof(debug.LogLevelWarning, "queue audio failed: %v", err)
			}
		}
	}
}

// Close stops the device goroutine and releases the SDL2 device.
func (d *Device) Close() {
	if !d.running {
		return
	}
	d.running = false
	close(d.stop)
	<-d.done
	sdl.CloseAudioDevice(d.dev)
}
