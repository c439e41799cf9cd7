package source

import (
	"testing"

	"wavefield-sim/internal/field"
)

func TestAddImpulseRejectsOutOfRangeValues(t *testing.T) {
	f := field.New(20, 20)
	if err := AddImpulse(f, 10, 10, 0, 2); err == nil {
		t.Error("expected error for pressure 0")
	}
	if err := AddImpulse(f, 10, 10, 1001, 2); err == nil {
		t.Error("expected error for pressure > 1000")
	}
	if err := AddImpulse(f, 10, 10, 5, 0); err == nil {
		t.Error("expected error for radius 0")
	}
	if err := AddImpulse(f, 10, 10, 5, 51); err == nil {
		t.Error("expected error for radius > 50")
	}
}

func TestAddImpulseIsRadiallySymmetricOnAnEmptyGrid(t *testing.T) {
	f := field.New(41, 41)
	if err := AddImpulse(f, 20, 20, 10, 5); err != nil {
		t.Fatalf("AddImpulse: %v", err)
	}

	cur := f.Cur()
	center := f.Index(20, 20)
	for r := 1; r <= 5; r++ {
		a := cur[f.Index(20+r, 20)]
		b := cur[f.Index(20-r, 20)]
		c := cur[f.Index(20, 20+r)]
		d := cur[f.Index(20, 20-r)]
		if a != b || a != c || a != d {
			t.Errorf("impulse not radially symmetric at radius %d: %v %v %v %v", r, a, b, c, d)
		}
	}
	if cur[center] <= cur[f.Index(25, 20)] {
		t.Error("expected the peak pressure at the impulse center")
	}
}

func TestAddImpulseSkipsObstacleCellsAndGrowsActiveRegion(t *testing.T) {
	f := field.New(20, 20)
	f.Obstacle[f.Index(10, 10)] = 1

	if err := AddImpulse(f, 10, 10, 5, 3); err != nil {
		t.Fatalf("AddImpulse: %v", err)
	}
	if f.Cur()[f.Index(10, 10)] != 0 {
		t.Error("impulse must not deposit pressure on an obstacle cell")
	}
	if !f.Active.HasActivity {
		t.Fatal("expected active region to grow after an impulse")
	}
}
