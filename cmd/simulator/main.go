// Command simulator is a headless CLI harness for the acoustic core:
// it loads an optional obstacle mask and an optional WAV source, runs
// a fixed number of frames, and reports summary statistics. It carries
// no window, renderer, or input plumbing — those belong to the
// external UI collaborators spec.md §6 calls out as out of scope.
//
// Structured the way the teacher's cmd/emulator/main.go drives its
// Emulator: flag.Parse, optional logger wiring, load inputs, drive the
// main loop, report.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"wavefield-sim/internal/debug"
	"wavefield-sim/internal/preset"
	"wavefield-sim/internal/simulator"
	"wavefield-sim/internal/source"
)

func main() {
	width := flag.Int("w", 256, "Grid width in cells")
	height := flag.Int("h", 256, "Grid height in cells")
	frames := flag.Int("frames", 120, "Number of 60Hz frames to run")
	maskPath := flag.String("mask", "", "Path to a PNG obstacle mask (dark pixels are rigid)")
	wavPath := flag.String("wav", "", "Path to a WAV file to play as a continuous source")
	impulse := flag.Bool("impulse", true, "Fire a single impulse at the grid center on frame 0")
	presetName := flag.String("preset", "realistic", "Damping preset: realistic, visualization, or anechoic")
	enableGPU := flag.Bool("gpu", false, "Attempt to enable the GPU execution path")
	enableLog := flag.Bool("log", false, "Enable component logging")
	flag.Parse()

	var logger *debug.Logger
	if *enableLog {
		logger = debug.NewLogger(10000)
		logger.SetComponentEnabled(debug.ComponentField, true)
		logger.SetComponentEnabled(debug.ComponentSource, true)
		logger.SetComponentEnabled(debug.ComponentListener, true)
		logger.SetComponentEnabled(debug.ComponentStepper, true)
		logger.SetComponentEnabled(debug.ComponentScheduler, true)
		logger.SetComponentEnabled(debug.ComponentGPU, true)
		logger.SetComponentEnabled(debug.ComponentAudio, true)
		logger.SetComponentEnabled(debug.ComponentSystem, true)
	}

	sim, err := simulator.New(*width, *height, 48000, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating simulator: %v\n", err)
		os.Exit(1)
	}

	if kind, ok := parsePresetName(*presetName); ok {
		if err := sim.ApplyPreset(kind); err != nil {
			fmt.Fprintf(os.Stderr, "error applying preset: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "unknown preset %q\n", *presetName)
		os.Exit(1)
	}

	if *maskPath != "" {
		mask, err := loadObstacleMask(*maskPath, *width, *height)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading obstacle mask: %v\n", err)
			os.Exit(1)
		}
		if err := sim.LoadObstaclesFromMask(mask); err != nil {
			fmt.Fprintf(os.Stderr, "error applying obstacle mask: %v\n", err)
			os.Exit(1)
		}
	}

	if *wavPath != "" {
		sample, err := loadPCMSample(*wavPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading wav file: %v\n", err)
			os.Exit(1)
		}
		sim.AddAudioSource(sample, *width/3, *height/2)
	}

	if *enableGPU {
		if err := sim.ToggleGPU(true); err != nil {
			fmt.Printf("GPU unavailable, staying on CPU: %v\n", err)
		}
	}

	sim.ToggleListener()

	if *impulse {
		if err := sim.AddImpulse(*width/2, *height/2, 500, 8); err != nil {
			fmt.Fprintf(os.Stderr, "error firing impulse: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Wavefield Simulator")
	fmt.Println("===================")
	fmt.Printf("Grid: %dx%d  Preset: %s  GPU: %v\n", *width, *height, *presetName, *enableGPU)

	const frameDelta = 1.0 / 60.0
	for i := 0; i < *frames; i++ {
		if err := sim.RunFrame(frameDelta); err != nil {
			fmt.Fprintf(os.Stderr, "frame %d error: %v\n", i, err)
			os.Exit(1)
		}
	}

	region := sim.Field.Active
	fmt.Printf("Frames run: %d\n", *frames)
	fmt.Printf("Active region: [%d,%d]-[%d,%d] (active=%v)\n", region.MinX, region.MinY, region.MaxX, region.MaxY, region.HasActivity)
	fmt.Printf("Audio samples queued: %d\n", sim.Bridge().Queued())
}

func parsePresetName(name string) (preset.Kind, bool) {
	switch name {
	case "realistic":
		return preset.Realistic, true
	case "visualization":
		return preset.Visualization, true
	case "anechoic":
		return preset.Anechoic, true
	default:
		return 0, false
	}
}

// loadObstacleMask decodes a PNG and returns a W*H byte mask: any pixel
// whose combined RGB value is below a mid threshold is rigid, mirroring
// the external SVG-rasterizer contract of spec.md §6 (a boolean
// obstacle grid produced outside the core).
func loadObstacleMask(path string, w, h int) ([]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	mask := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/h
		for x := 0; x < w; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/w
			r, g, b, _ := img.At(sx, sy).RGBA()
			lum := (r + g + b) / 3
			if lum < 0x8000 {
				mask[y*w+x] = 1
			}
		}
	}
	return mask, nil
}

// loadPCMSample decodes a WAV file into a mono, normalized [-1,1]
// immutable PCM sample, mirroring the external audio-decoder contract
// of spec.md §6.
func loadPCMSample(path string) (*source.PCMSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	data := monoFloat32(buf)
	return &source.PCMSample{
		Name:       path,
		SampleRate: uint32(dec.SampleRate),
		Data:       data,
	}, nil
}

// floatDivisor mirrors the per-bit-depth normalization divisors used
// throughout the pack's go-audio decoders (emer-auditory/sound.Wave's
// GetFloatAtIdx), defaulting to 16-bit when the source depth is unset.
func floatDivisor(bitDepth int) float32 {
	switch bitDepth {
	case 32:
		return 0x7FFFFFFF
	case 24:
		return 0x7FFFFF
	case 8:
		return 0x7F
	default:
		return 0x7FFF
	}
}

func monoFloat32(buf *goaudio.IntBuffer) []float32 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	divisor := floatDivisor(buf.SourceBitDepth)
	nFrames := buf.NumFrames()
	out := make([]float32, nFrames)

	for i := 0; i < nFrames; i++ {
		sum := float32(0)
		for c := 0; c < channels; c++ {
			idx := i*channels + c
			if idx >= len(buf.Data) {
				break
			}
			sum += float32(buf.Data[idx]) / divisor
		}
		out[i] = sum / float32(channels)
	}
	return out
}
