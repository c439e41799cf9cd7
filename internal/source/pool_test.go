package source

import (
	"testing"

	"wavefield-sim/internal/field"
)

func TestPoolAddGetRemoveClear(t *testing.T) {
	p := NewPool()
	sample := &PCMSample{SampleRate: 4, Data: []float32{1, 1, 1, 1}}

	i0 := p.Add(NewSource(sample, 1, 1))
	i1 := p.Add(NewSource(sample, 2, 2))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("unexpected indices: %d, %d", i0, i1)
	}
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}

	p.Remove(0)
	if p.Len() != 1 {
		t.Fatalf("Len() after Remove = %d, want 1", p.Len())
	}
	if p.Get(0).X != 2 {
		t.Errorf("remaining source X = %d, want 2", p.Get(0).X)
	}

	p.Clear()
	if p.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", p.Len())
	}
	if p.Get(0) != nil {
		t.Error("Get on an empty pool should return nil")
	}
}

func TestSampleStepSkipsPausedSources(t *testing.T) {
	p := NewPool()
	sample := &PCMSample{SampleRate: 4, Data: []float32{1, 1, 1, 1}}
	playing := NewSource(sample, 5, 5)
	paused := NewSource(sample, 9, 9)
	paused.Pause()
	p.Add(playing)
	p.Add(paused)

	records := p.SampleStep(0.25)
	if len(records) != 1 {
		t.Fatalf("expected 1 injection record from the playing source, got %d", len(records))
	}
	if records[0].X != 5 || records[0].Y != 5 {
		t.Errorf("unexpected injection record: %+v", records[0])
	}
}

func TestInjectAddsPressureAndSkipsObstaclesAndOutOfBounds(t *testing.T) {
	f := field.New(10, 10)
	f.AddObstacle(3, 3, 1)
	f.Cur()[f.Index(5, 5)] = 1

	records := []InjectionRecord{
		{X: 5, Y: 5, Pressure: 2},
		{X: 3, Y: 3, Pressure: 100}, // obstacle, must be skipped
		{X: -1, Y: 0, Pressure: 100}, // out of bounds, must be skipped
	}
	Inject(f, records)

	if f.Cur()[f.Index(5, 5)] != 3 {
		t.Errorf("cur[5,5] = %v, want 3 (1 existing + 2 injected)", f.Cur()[f.Index(5, 5)])
	}
	if f.Cur()[f.Index(3, 3)] != 0 {
		t.Error("injection into an obstacle cell must be a no-op")
	}
}
