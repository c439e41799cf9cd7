package field

import "testing"

func TestAddObstacleZeroesPressureInAllThreeBuffers(t *testing.T) {
	f := New(20, 20)
	for i := range f.Prev() {
		f.Prev()[i] = 1
		f.Cur()[i] = 1
		f.Next()[i] = 1
	}

	if err := f.AddObstacle(10, 10, 3); err != nil {
		t.Fatalf("AddObstacle: %v", err)
	}

	for i, v := range f.Obstacle {
		if v == 0 {
			continue
		}
		if f.Prev()[i] != 0 || f.Cur()[i] != 0 || f.Next()[i] != 0 {
			t.Fatalf("cell %d marked obstacle but pressure not zeroed: prev=%v cur=%v next=%v", i, f.Prev()[i], f.Cur()[i], f.Next()[i])
		}
	}
}

func TestAddObstacleRejectsOutOfRangeRadius(t *testing.T) {
	f := New(10, 10)
	if err := f.AddObstacle(5, 5, 0); err == nil {
		t.Error("expected error for radius 0")
	}
	if err := f.AddObstacle(5, 5, 51); err == nil {
		t.Error("expected error for radius 51")
	}
}

func TestLoadObstaclesFromMaskRejectsSizeMismatch(t *testing.T) {
	f := New(10, 10)
	if err := f.LoadObstaclesFromMask(make([]uint8, 5)); err == nil {
		t.Error("expected error for mismatched mask size")
	}
}

func TestLoadObstaclesFromMaskZeroesPressureAtSetCells(t *testing.T) {
	f := New(4, 4)
	cur := f.Cur()
	for i := range cur {
		cur[i] = 2.5
	}
	mask := make([]uint8, 16)
	mask[5] = 1
	if err := f.LoadObstaclesFromMask(mask); err != nil {
		t.Fatalf("LoadObstaclesFromMask: %v", err)
	}
	if f.Cur()[5] != 0 {
		t.Errorf("cur[5] = %v, want 0 after masking", f.Cur()[5])
	}
	if f.Cur()[6] != 2.5 {
		t.Errorf("cur[6] = %v, want untouched 2.5", f.Cur()[6])
	}
}

func TestRotatePermutesWithoutReallocation(t *testing.T) {
	f := New(4, 4)
	prevBacking := f.Prev()
	curBacking := f.Cur()
	nextBacking := f.Next()

	curBacking[0] = 9

	f.Rotate()

	if &f.Prev()[0] != &curBacking[0] {
		t.Error("after Rotate, Prev should be the old Cur's backing array")
	}
	if f.Prev()[0] != 9 {
		t.Errorf("Prev()[0] = %v, want 9 (rotated from old Cur)", f.Prev()[0])
	}
	if &f.Next()[0] != &prevBacking[0] {
		t.Error("after Rotate, Next should be the old Prev's backing array")
	}
	if &f.Cur()[0] != &nextBacking[0] {
		t.Error("after Rotate, Cur should be the old Next's backing array")
	}
}

func TestActiveRegionGrowAndExpand(t *testing.T) {
	var r ActiveRegion
	r.Grow(50, 50, 5, 100, 100)
	if !r.HasActivity {
		t.Fatal("expected HasActivity after first Grow")
	}
	if r.MinX != 45 || r.MaxX != 55 || r.MinY != 45 || r.MaxY != 55 {
		t.Fatalf("unexpected bounds after Grow: %+v", r)
	}

	r.Grow(10, 10, 2, 100, 100)
	if r.MinX != 8 || r.MinY != 8 {
		t.Fatalf("Grow should extend the box to include the new point: %+v", r)
	}
	if r.MaxX != 55 || r.MaxY != 55 {
		t.Fatalf("Grow should not shrink the existing box: %+v", r)
	}

	r.Expand(3, 100, 100)
	if r.MinX != 5 || r.MaxX != 58 {
		t.Fatalf("unexpected bounds after Expand: %+v", r)
	}

	r.Reset()
	if r.HasActivity {
		t.Error("expected HasActivity false after Reset")
	}
}

func TestActiveRegionClampsToGrid(t *testing.T) {
	var r ActiveRegion
	r.Grow(0, 0, 10, 20, 20)
	if r.MinX != 0 || r.MinY != 0 {
		t.Fatalf("expected clamp to 0, got %+v", r)
	}
	r.Expand(1000, 20, 20)
	if r.MaxX != 19 || r.MaxY != 19 {
		t.Fatalf("expected clamp to grid-1, got %+v", r)
	}
}

func TestIsObstacleTreatsOutOfBoundsAsObstacle(t *testing.T) {
	f := New(10, 10)
	if !f.IsObstacle(-1, 0) {
		t.Error("out-of-bounds cell should report as obstacle")
	}
	if f.IsObstacle(5, 5) {
		t.Error("fresh interior cell should not be an obstacle")
	}
}

func TestClearZeroesBuffersAndResetsActiveRegionButKeepsObstacles(t *testing.T) {
	f := New(10, 10)
	f.AddObstacle(3, 3, 1)
	f.Cur()[0] = 1
	f.Active.Grow(3, 3, 1, f.W, f.H)

	f.Clear()

	for i, v := range f.Cur() {
		if v != 0 {
			t.Fatalf("Cur()[%d] = %v, want 0 after Clear", i, v)
		}
	}
	if f.Active.HasActivity {
		t.Error("expected active region reset after Clear")
	}
	if !f.IsObstacle(3, 3) {
		t.Error("Clear must not remove obstacles")
	}
}
