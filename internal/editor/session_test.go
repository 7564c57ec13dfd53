package editor

import (
	"context"
	"sync"
	"testing"

	"mockup/internal/models"
)

type fakeAPI struct {
	fakeSaver
	fakeUploader
}

func TestSessionClosedDropsSaves(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(models.Template{ID: "tpl_1"}, api, testLogger())

	if _, err := s.Variables.Add(context.Background(), models.VariableText); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.Close()
	s.Close() // idempotent

	if _, err := s.Variables.Add(context.Background(), models.VariableText); err == nil {
		t.Fatal("expected save through a closed session to fail")
	}
	if api.fakeSaver.callCount() != 1 {
		t.Errorf("saver calls = %d, want 1 (closed session must not reach the API)", api.fakeSaver.callCount())
	}
}

func TestSessionStepsDerivation(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(models.Template{ID: "tpl_1"}, api, testLogger())
	defer s.Close()

	steps := s.Steps(models.JobPending)
	if steps.Uploaded || steps.Mapped || steps.Previewed || steps.Run {
		t.Errorf("fresh session steps = %+v", steps)
	}
	if !steps.Placed {
		t.Error("placed must always be reachable")
	}

	s.SetCSV("rows.csv", []string{"company", "city"})
	s.Mapping.Set("var_1", "company")
	s.SetPreviews([]models.PreviewItem{{Row: 0, ImageBase64: "zzz"}})

	steps = s.Steps(models.JobDone)
	want := Steps{Uploaded: true, Mapped: true, Placed: true, Previewed: true, Run: true}
	if steps != want {
		t.Errorf("steps = %+v, want %+v", steps, want)
	}
}

func TestSessionImageLoadedUpdatesScaleOnly(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(models.Template{ID: "tpl_1"}, api, testLogger())
	defer s.Close()

	v, err := s.Variables.Add(context.Background(), models.VariableText)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	s.ImageLoaded(1800, 1050)

	// Canonical geometry is untouched by the scale change.
	got, _ := s.Variables.Get(v.ID)
	if got.X != 50 || got.W != 200 {
		t.Errorf("canonical geometry rewritten: %+v", got)
	}
	if s.Transform().Scale() != 0.5 {
		t.Errorf("scale = %v, want 0.5", s.Transform().Scale())
	}
}

func TestSessionImageLoadedResizesMaskBuffer(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(models.Template{ID: "tpl_1"}, api, testLogger())
	defer s.Close()

	// A taller image than the placeholder: strokes below the placeholder
	// height must land instead of clipping at its edge.
	s.ImageLoaded(1000, 1000)
	s.Mask.SetDrawing(true)
	s.Mask.PointerDown(450, 800, 900) // scale 1000/900 puts this at (500, 889)
	s.Mask.PointerUp()

	if !s.Mask.Painted(500, 889) {
		t.Error("mask buffer kept placeholder size after the image loaded")
	}
}

func TestConcurrentVariableAndMaskEdits(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(models.Template{ID: "tpl_1"}, api, testLogger())
	defer s.Close()

	s.Mask.SetDrawing(true)
	s.Mask.PointerDown(50, 50, 1200)
	s.Mask.PointerUp()

	// Both controllers write the one shared template; run them against
	// each other so the race detector can catch unguarded access.
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _ = s.Variables.Add(context.Background(), models.VariableText)
				_ = s.Mask.Save(context.Background())
				_ = s.Template()
			}
		}()
	}
	wg.Wait()

	tpl := s.Template()
	if len(tpl.Masks) != 1 {
		t.Fatalf("masks = %d, want 1", len(tpl.Masks))
	}
	if len(tpl.Variables) == 0 {
		t.Fatal("variables lost under concurrent edits")
	}
}
