package editor

import (
	"context"
	"sync"
	"testing"

	"mockup/internal/models"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	last  []byte
	mask  models.Mask
}

func (f *fakeUploader) UploadMask(_ context.Context, data []byte) (models.Mask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = data
	if f.mask.ID == "" {
		f.mask = models.Mask{ID: "mask_1", Path: "/assets/masks/mask_1.png"}
	}
	return f.mask, nil
}

func newTestMask(t *testing.T) (*MaskController, *models.Template, *fakeUploader, *fakeSaver) {
	t.Helper()
	tpl := &models.Template{ID: "tpl_1", Masks: []models.Mask{{ID: "old", Path: "/assets/masks/old.png"}}}
	up := &fakeUploader{}
	saver := &fakeSaver{}
	mc := NewMaskController(tpl, nil, 1200, 700, up, saver, testLogger())
	mc.SetDrawing(true)
	return mc, tpl, up, saver
}

func TestPointerPaintingScalesToBuffer(t *testing.T) {
	mc, _, _, _ := newTestMask(t)
	mc.SetBrushSize(20)

	// Canvas rendered at 600px wide for a 1200px buffer: scale 2x.
	mc.PointerDown(100, 50, 600)
	mc.PointerUp()

	if !mc.Painted(200, 100) {
		t.Error("stroke center missing at scaled buffer position")
	}
	if mc.Painted(100, 50) {
		t.Error("stroke landed at display coordinates instead of buffer coordinates")
	}
}

func TestResizeFollowsNaturalSize(t *testing.T) {
	mc, _, _, _ := newTestMask(t)

	// The controller starts at placeholder dimensions; the real image
	// turns out taller. Strokes near the bottom must land, not clip.
	mc.Resize(1000, 1000)

	mc.PointerDown(450, 800, 900) // scale 1000/900 puts this at (500, 889)
	mc.PointerUp()

	if !mc.Painted(500, 889) {
		t.Error("stroke below the placeholder height was clipped")
	}
}

func TestResizeRescalesExistingStrokes(t *testing.T) {
	mc, _, _, _ := newTestMask(t)
	mc.SetBrushSize(40)

	mc.PointerDown(600, 350, 1200) // buffer center at scale 1
	mc.PointerUp()

	mc.Resize(600, 350)
	if !mc.Painted(300, 175) {
		t.Error("existing coverage lost on resize")
	}
	if mc.Empty() {
		t.Error("resize emptied the buffer")
	}
}

func TestPointerIgnoredOutsideDrawingMode(t *testing.T) {
	mc, _, _, _ := newTestMask(t)
	mc.SetDrawing(false)

	mc.PointerDown(100, 100, 1200)
	mc.PointerMove(120, 120, 1200)
	if !mc.Empty() {
		t.Error("strokes painted while drawing mode off")
	}
}

func TestStrokeRequiresPointerDown(t *testing.T) {
	mc, _, _, _ := newTestMask(t)

	mc.PointerMove(100, 100, 1200)
	if !mc.Empty() {
		t.Error("move without down must not paint")
	}

	mc.PointerDown(100, 100, 1200)
	mc.PointerUp()
	mc.PointerMove(300, 300, 1200)
	if mc.Painted(300, 300) {
		t.Error("move after up must not paint")
	}
}

func TestClearAloneDoesNotTouchServer(t *testing.T) {
	mc, tpl, up, saver := newTestMask(t)

	mc.PointerDown(50, 50, 1200)
	mc.PointerUp()
	mc.Clear()

	if !mc.Empty() {
		t.Error("clear left content behind")
	}
	if up.calls != 0 || saver.callCount() != 0 {
		t.Error("clear must not issue network calls")
	}
	if len(tpl.Masks) != 1 {
		t.Error("clear must not touch the persisted mask list")
	}
}

func TestClearThenSavePersistsEmptyList(t *testing.T) {
	mc, tpl, up, saver := newTestMask(t)

	mc.Clear()
	if err := mc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if up.calls != 0 {
		t.Error("empty buffer must not be uploaded")
	}
	if saver.callCount() != 1 {
		t.Errorf("save calls = %d, want 1", saver.callCount())
	}
	if len(tpl.Masks) != 0 {
		t.Errorf("masks = %v, want empty list", tpl.Masks)
	}
}

func TestSaveUploadsAndReplacesMaskList(t *testing.T) {
	mc, tpl, up, saver := newTestMask(t)

	mc.PointerDown(50, 50, 1200)
	mc.PointerUp()

	if err := mc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if up.calls != 1 {
		t.Fatalf("upload calls = %d, want 1", up.calls)
	}
	if len(up.last) == 0 {
		t.Error("uploaded mask payload is empty")
	}
	if len(tpl.Masks) != 1 || tpl.Masks[0].ID != "mask_1" {
		t.Errorf("masks = %+v, want single new entry", tpl.Masks)
	}
	if saver.callCount() != 1 {
		t.Errorf("template save calls = %d, want 1", saver.callCount())
	}
}

func TestRemoveSavedClearsBufferAndList(t *testing.T) {
	mc, tpl, _, saver := newTestMask(t)

	mc.PointerDown(50, 50, 1200)
	mc.PointerUp()

	if err := mc.RemoveSaved(context.Background()); err != nil {
		t.Fatalf("remove saved: %v", err)
	}
	if !mc.Empty() {
		t.Error("buffer should be cleared")
	}
	if len(tpl.Masks) != 0 {
		t.Error("persisted list should be empty")
	}
	if saver.callCount() != 1 {
		t.Error("remove saved must save immediately")
	}
}

func TestRehydrateFailureIsSticky(t *testing.T) {
	mc, _, _, _ := newTestMask(t)

	if err := mc.RehydratePNG([]byte("junk")); err == nil {
		t.Fatal("expected decode error")
	}
	if mc.LoadError() == nil {
		t.Error("load error should be exposed")
	}

	// The editor keeps working.
	mc.PointerDown(10, 10, 1200)
	mc.PointerUp()
	if mc.Empty() {
		t.Error("editor unusable after failed rehydrate")
	}
}
