package maskbuf

import (
	"image"
	"testing"
)

func TestStrokePaintsDisc(t *testing.T) {
	b := New(100, 100)

	b.Stroke(50, 50, 10)

	if !b.Painted(50, 50) {
		t.Error("center not painted")
	}
	if !b.Painted(50, 59) {
		t.Error("point inside radius not painted")
	}
	if b.Painted(50, 65) {
		t.Error("point outside radius painted")
	}
	if b.Painted(80, 20) {
		t.Error("unrelated pixel painted")
	}
}

func TestStrokeClipsAtEdges(t *testing.T) {
	b := New(20, 20)

	// Must not panic or wrap.
	b.Stroke(0, 0, 8)
	b.Stroke(19, 19, 8)
	b.Stroke(-5, 10, 8)

	if !b.Painted(0, 0) || !b.Painted(19, 19) {
		t.Error("corner strokes missing")
	}
}

func TestStrokeLineLeavesNoGaps(t *testing.T) {
	b := New(200, 50)

	b.StrokeLine(10, 25, 180, 25, 3)

	for x := 10; x <= 180; x++ {
		if !b.Painted(x, 25) {
			t.Fatalf("gap at x=%d", x)
		}
	}
}

func TestClearAndEmpty(t *testing.T) {
	b := New(40, 40)

	if !b.Empty() {
		t.Fatal("fresh buffer not empty")
	}

	b.Stroke(20, 20, 5)
	if b.Empty() {
		t.Fatal("painted buffer reports empty")
	}

	b.Clear()
	if !b.Empty() {
		t.Fatal("cleared buffer not empty")
	}
}

func TestEncodeLoadRoundTrip(t *testing.T) {
	b := New(64, 64)
	b.Stroke(32, 32, 8)

	data, err := b.EncodePNG()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	restored := New(64, 64)
	if err := restored.LoadPNG(data); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !restored.Painted(32, 32) {
		t.Error("center lost in round trip")
	}
	if restored.Painted(5, 5) {
		t.Error("background gained coverage")
	}
}

func TestLoadRescalesForeignResolution(t *testing.T) {
	// A mask saved at half resolution must cover the equivalent region
	// after rehydration.
	small := New(32, 32)
	small.Stroke(16, 16, 6)
	data, err := small.EncodePNG()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	full := New(64, 64)
	if err := full.LoadPNG(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !full.Painted(32, 32) {
		t.Error("scaled mask missing center coverage")
	}
}

func TestLoadPNGRejectsGarbage(t *testing.T) {
	b := New(10, 10)
	if err := b.LoadPNG([]byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
	if !b.Empty() {
		t.Error("failed load must not leave partial content")
	}
}

func TestResizeKeepsRelativeCoverage(t *testing.T) {
	b := New(1200, 700)
	b.Stroke(600, 350, 20)

	b.Resize(600, 350)
	if w, h := b.Size(); w != 600 || h != 350 {
		t.Fatalf("size = %dx%d", w, h)
	}
	if !b.Painted(300, 175) {
		t.Error("coverage not rescaled to the new center")
	}

	// Growing past the old height opens paintable area there.
	b.Resize(600, 900)
	b.Stroke(300, 850, 10)
	if !b.Painted(300, 850) {
		t.Error("stroke beyond the previous height was clipped")
	}
}

func TestImageBounds(t *testing.T) {
	b := New(120, 80)
	if got := b.Image().Bounds(); got != image.Rect(0, 0, 120, 80) {
		t.Errorf("bounds = %v", got)
	}
}
