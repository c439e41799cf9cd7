package scheduler

import (
	"testing"

	"wavefield-sim/internal/field"
	"wavefield-sim/internal/listener"
	"wavefield-sim/internal/preset"
	"wavefield-sim/internal/source"
)

func TestRunFrameRespectsCFLSafetyFactor(t *testing.T) {
	f := field.New(40, 40)
	p, _ := preset.Named(preset.Realistic)
	pool := source.NewPool()
	l := listener.New(20, 20)
	l.Toggle()

	s := &FrameScheduler{C: 343, Dx: 0.0086}
	const delta = 1.0 / 60.0
	if err := s.RunFrame(f, p, pool, l, delta); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}

	// c*dt/dx must never exceed the fixed safety factor (spec.md §4.5
	// step 2). The enabled listener records one sample per sub-step, so
	// its length is the N the scheduler chose and dt = delta/N.
	dt := delta / float64(len(l.DrainFrame()))
	if c := s.C * dt / s.Dx; c > cflSafety+1e-12 {
		t.Errorf("c*dt/dx = %v, want <= %v", c, cflSafety)
	}
}

func TestRunFrameGrowsActiveRegionAroundASource(t *testing.T) {
	f := field.New(100, 100)
	p, _ := preset.Named(preset.Realistic)
	pool := source.NewPool()
	sample := &source.PCMSample{SampleRate: 48000, Data: make([]float32, 48000)}
	for i := range sample.Data {
		sample.Data[i] = 1
	}
	pool.Add(source.NewSource(sample, 50, 50))
	l := listener.New(50, 50)

	s := &FrameScheduler{C: 343, Dx: 0.0086}
	if err := s.RunFrame(f, p, pool, l, 1.0/60.0); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}

	if !f.Active.HasActivity {
		t.Fatal("expected the active region to grow after a frame with a playing source")
	}
	if f.Active.MinX > 50 || f.Active.MaxX < 50 || f.Active.MinY > 50 || f.Active.MaxY < 50 {
		t.Errorf("active region %+v does not contain the source cell", f.Active)
	}
}

func TestRunFrameTruncatesAtMaxSubSteps(t *testing.T) {
	f := field.New(10, 10)
	p, _ := preset.Named(preset.Realistic)
	pool := source.NewPool()
	l := listener.New(5, 5)
	l.Toggle()

	// A huge delta forces N far past MaxSubSteps; RunFrame must not hang
	// or panic, and the listener vector length must equal the truncated N.
	s := &FrameScheduler{C: 343, Dx: 0.0086}
	if err := s.RunFrame(f, p, pool, l, 10.0); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if got := len(l.DrainFrame()); got != MaxSubSteps {
		t.Errorf("listener vector length = %d, want the truncated MaxSubSteps=%d", got, MaxSubSteps)
	}
}

func TestRunFrameListenerCardinalityMatchesSubStepCount(t *testing.T) {
	f := field.New(10, 10)
	p, _ := preset.Named(preset.Realistic)
	pool := source.NewPool()

	disabled := listener.New(5, 5)
	s := &FrameScheduler{C: 343, Dx: 0.0086}
	if err := s.RunFrame(f, p, pool, disabled, 1.0/60.0); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if got := len(disabled.DrainFrame()); got != 0 {
		t.Errorf("disabled listener vector length = %d, want 0", got)
	}

	enabled := listener.New(5, 5)
	enabled.Toggle()
	if err := s.RunFrame(f, p, pool, enabled, 1.0/60.0); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	dtMax := cflSafety * s.Dx / s.C
	wantN := 1
	for float64(wantN)*dtMax < 1.0/60.0 {
		wantN++
	}
	if got := len(enabled.DrainFrame()); got != wantN {
		t.Errorf("enabled listener vector length = %d, want %d", got, wantN)
	}
}
