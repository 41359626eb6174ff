package waveplot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderWritesPNG(t *testing.T) {
	samples := make([]bool, 100)
	for i := range samples {
		samples[i] = (i/10)%2 == 1
	}
	path := filepath.Join(t.TempDir(), "wave.png")

	if err := Render(samples, 4e6, path); err != nil {
		t.Fatalf("Render: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("rendered file is empty")
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.png")
	if err := Render(nil, 4e6, path); err == nil {
		t.Error("empty samples accepted")
	}
	if err := Render([]bool{true}, 0, path); err == nil {
		t.Error("zero sample rate accepted")
	}
}

func TestStepPointsTransitions(t *testing.T) {
	pts := stepPoints([]bool{false, false, true, true}, 1)
	// start, two points at the transition, final point
	if len(pts) != 4 {
		t.Fatalf("got %d points, want 4: %v", len(pts), pts)
	}
	if pts[1].X != 2 || pts[1].Y != 0 || pts[2].X != 2 || pts[2].Y != 1 {
		t.Errorf("transition points = %v", pts[1:3])
	}
}
