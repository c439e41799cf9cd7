package source

import (
	"math"
	"testing"
)

func TestSampleForStepAveragesAndScales(t *testing.T) {
	sample := &PCMSample{Name: "test", SampleRate: 8, Data: []float32{1, 1, -1, -1, 1, 1, -1, -1}}
	s := NewSource(sample, 0, 0)

	// sampleRate=8, dt=0.25s -> n = round(8*0.25) = 2 samples averaged.
	got := s.SampleForStep(0.25)
	want := ((1.0 + 1.0) / 2.0) * referencePressure
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SampleForStep = %v, want %v", got, want)
	}

	// Cursor should have advanced by 2.
	got2 := s.SampleForStep(0.25)
	want2 := ((-1.0 + -1.0) / 2.0) * referencePressure
	if math.Abs(got2-want2) > 1e-9 {
		t.Errorf("second SampleForStep = %v, want %v", got2, want2)
	}
}

func TestSampleForStepAppliesGainDB(t *testing.T) {
	sample := &PCMSample{Name: "test", SampleRate: 4, Data: []float32{1, 1, 1, 1}}
	s := NewSource(sample, 0, 0)
	s.GainDB = -6

	got := s.SampleForStep(0.25) // n=1
	want := 1.0 * math.Pow(10, -6.0/20.0) * referencePressure
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SampleForStep = %v, want %v", got, want)
	}
}

func TestSampleForStepStopsAtEndWhenNotLooping(t *testing.T) {
	sample := &PCMSample{Name: "test", SampleRate: 4, Data: []float32{1, 1}}
	s := NewSource(sample, 0, 0)

	s.SampleForStep(1.0) // n=4, runs off the end of a 2-sample buffer
	if s.Playing {
		t.Error("expected Playing=false after running past the end without loop")
	}
	if got := s.SampleForStep(1.0); got != 0 {
		t.Errorf("SampleForStep after stop = %v, want 0", got)
	}
}

func TestSampleForStepWrapsWhenLooping(t *testing.T) {
	sample := &PCMSample{Name: "test", SampleRate: 4, Data: []float32{1, 1}}
	s := NewSource(sample, 0, 0)
	s.Loop = true

	s.SampleForStep(1.0) // n=4, plays the 2-sample buffer twice, wrapping once
	if !s.Playing {
		t.Error("expected Playing=true to persist across a loop wrap")
	}
}

func TestSampleForStepReturnsZeroWhenPausedOrEmpty(t *testing.T) {
	s := NewSource(&PCMSample{SampleRate: 4, Data: []float32{1}}, 0, 0)
	s.Pause()
	if got := s.SampleForStep(0.25); got != 0 {
		t.Errorf("paused source returned %v, want 0", got)
	}

	empty := NewSource(&PCMSample{SampleRate: 4}, 0, 0)
	if got := empty.SampleForStep(0.25); got != 0 {
		t.Errorf("empty-data source returned %v, want 0", got)
	}
}

func TestResetRewindsCursor(t *testing.T) {
	sample := &PCMSample{SampleRate: 4, Data: []float32{1, 0, 0, 0}}
	s := NewSource(sample, 0, 0)
	s.SampleForStep(0.25)
	s.Reset()
	got := s.SampleForStep(0.25)
	want := 1.0 * referencePressure
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("after Reset, SampleForStep = %v, want %v", got, want)
	}
}
