package stepper

import (
	"math"
	"testing"

	"wavefield-sim/internal/field"
	"wavefield-sim/internal/listener"
)

func energy(buf []float32) float64 {
	var sum float64
	for _, v := range buf {
		sum += float64(v) * float64(v)
	}
	return sum
}

func seedBump(f *field.Field, amp float32) {
	cx, cy := f.W/2, f.H/2
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			x, y := cx+dx, cy+dy
			if !f.InBounds(x, y) {
				continue
			}
			r2 := dx*dx + dy*dy
			v := amp * float32(math.Exp(-float64(r2)/8))
			f.Cur()[f.Index(x, y)] = v
			f.Prev()[f.Index(x, y)] = v
		}
	}
}

func TestObstacleRigidityHoldsAcrossSteps(t *testing.T) {
	f := field.New(30, 30)
	seedBump(f, 5)
	f.AddObstacle(15, 15, 4)

	p := Params{K: 0.2, D: 0.997, TwoD: 2 * 0.997, R: 0.85}
	for step := 0; step < 50; step++ {
		Step(f, p, nil)
		for i, obstacle := range f.Obstacle {
			if obstacle == 0 {
				continue
			}
			if f.Cur()[i] != 0 || f.Prev()[i] != 0 {
				t.Fatalf("step %d: obstacle cell %d has non-zero pressure (cur=%v prev=%v)", step, i, f.Cur()[i], f.Prev()[i])
			}
		}
	}
}

func TestEnergyIsNonIncreasingWithDamping(t *testing.T) {
	f := field.New(30, 30)
	seedBump(f, 5)

	p := Params{K: 0.2, D: 0.997, TwoD: 2 * 0.997, R: 0.85}

	prevEnergy := energy(f.Cur())
	decreasedAtLeastOnce := false
	for step := 0; step < 2000; step++ {
		Step(f, p, nil)
		e := energy(f.Cur())
		if e > prevEnergy*(1+1e-6) {
			t.Fatalf("step %d: energy grew from %v to %v", step, prevEnergy, e)
		}
		if e < prevEnergy {
			decreasedAtLeastOnce = true
		}
		prevEnergy = e
	}
	if !decreasedAtLeastOnce {
		t.Error("expected strictly decreasing energy at some point with d < 1")
	}
}

func TestAbsorbingBranchSelectedWhenRBelowPointOne(t *testing.T) {
	p := Params{R: 0.05}
	if !p.Absorbing() {
		t.Error("expected Absorbing() true for r=0.05")
	}
	p.R = 0.5
	if p.Absorbing() {
		t.Error("expected Absorbing() false for r=0.5")
	}
}

func TestAbsorbingBoundaryZeroesCorners(t *testing.T) {
	f := field.New(10, 10)
	seedBump(f, 5)
	p := Params{K: 0.2, D: 0.995, TwoD: 2 * 0.995, R: 0}

	Step(f, p, nil)

	corners := []int{f.Index(0, 0), f.Index(9, 0), f.Index(0, 9), f.Index(9, 9)}
	for _, i := range corners {
		if f.Cur()[i] != 0 {
			t.Errorf("corner %d = %v, want 0 under the absorbing boundary", i, f.Cur()[i])
		}
	}
}

func TestListenerSampledBeforeRotation(t *testing.T) {
	f := field.New(10, 10)
	seedBump(f, 5)
	p := Params{K: 0.2, D: 0.997, TwoD: 2 * 0.997, R: 0.85}

	lx, ly := f.W/2, f.H/2
	preStepCur := f.Cur()[f.Index(lx, ly)]

	l := listener.New(lx, ly)
	l.Toggle()
	l.BeginFrame()

	Step(f, p, l)

	samples := l.DrainFrame()
	if len(samples) != 1 {
		t.Fatalf("expected exactly one listener sample, got %d", len(samples))
	}
	if float32(samples[0]) != preStepCur {
		t.Errorf("listener sample = %v, want the pre-step Cur value %v", samples[0], preStepCur)
	}
}
