package editor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"mockup/internal/models"
	"mockup/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
}

// fakeSaver echoes the template back, optionally through hooks.
type fakeSaver struct {
	mu    sync.Mutex
	calls int
	last  models.Template
	err   error
	hook  func(t models.Template) (models.Template, error)
}

func (f *fakeSaver) SaveTemplate(_ context.Context, t models.Template) (models.Template, error) {
	f.mu.Lock()
	f.calls++
	f.last = t
	hook := f.hook
	err := f.err
	f.mu.Unlock()

	if hook != nil {
		return hook(t)
	}
	if err != nil {
		return models.Template{}, err
	}
	return t, nil
}

func (f *fakeSaver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestStore(t *testing.T) (*VariableStore, *MappingStore, *models.Template, *fakeSaver) {
	t.Helper()
	tpl := &models.Template{ID: "tpl_1", Name: "demo"}
	mapping := NewMappingStore()
	saver := &fakeSaver{}
	return NewVariableStore(tpl, nil, mapping, saver, testLogger()), mapping, tpl, saver
}

func TestAddUsesDefaultGeometry(t *testing.T) {
	store, _, tpl, saver := newTestStore(t)

	v, err := store.Add(context.Background(), models.VariableText)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if v.X != 50 || v.Y != 50 || v.W != 200 || v.H != 80 {
		t.Errorf("geometry = (%d,%d,%d,%d), want (50,50,200,80)", v.X, v.Y, v.W, v.H)
	}
	if v.ID == "" {
		t.Error("expected a generated id")
	}
	if v.Style.Size != 32 {
		t.Errorf("default style size = %d", v.Style.Size)
	}
	if len(tpl.Variables) != 1 {
		t.Errorf("template has %d variables", len(tpl.Variables))
	}
	if saver.callCount() != 1 {
		t.Errorf("save calls = %d, want 1", saver.callCount())
	}
}

func TestUpdateWithoutCommitSkipsSave(t *testing.T) {
	store, _, _, saver := newTestStore(t)
	v, _ := store.Add(context.Background(), models.VariableText)
	before := saver.callCount()

	x := 120
	if err := store.Update(context.Background(), v.ID, VariableChange{X: &x}, false); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := store.Get(v.ID)
	if got.X != 120 {
		t.Errorf("x = %d, want live local update", got.X)
	}
	if saver.callCount() != before {
		t.Error("uncommitted update must not hit the saver")
	}

	if err := store.Update(context.Background(), v.ID, VariableChange{X: &x}, true); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if saver.callCount() != before+1 {
		t.Error("committed update must persist")
	}
}

func TestRemoveDeletesMappingAtomically(t *testing.T) {
	store, mapping, _, _ := newTestStore(t)
	v, _ := store.Add(context.Background(), models.VariableText)
	mapping.Set(v.ID, "company")

	if err := store.Remove(context.Background(), v.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok := mapping.Get(v.ID); ok {
		t.Error("mapping entry survived variable removal")
	}
	if _, ok := store.Get(v.ID); ok {
		t.Error("variable survived removal")
	}
}

func TestSaveErrorKeepsLocalState(t *testing.T) {
	store, _, _, saver := newTestStore(t)
	v, _ := store.Add(context.Background(), models.VariableText)

	saver.err = errors.New("boom")
	x := 300
	err := store.Update(context.Background(), v.ID, VariableChange{X: &x}, true)
	if err == nil {
		t.Fatal("expected save error to surface")
	}

	got, _ := store.Get(v.ID)
	if got.X != 300 {
		t.Errorf("optimistic local state rolled back: x = %d", got.X)
	}
}

func TestStaleSaveResponseDiscarded(t *testing.T) {
	store, _, _, saver := newTestStore(t)
	v, _ := store.Add(context.Background(), models.VariableText)

	// First commit's response is held until after a second commit has
	// been issued and applied; when it finally lands it must be
	// discarded.
	release := make(chan struct{})
	firstSent := make(chan struct{})
	var once sync.Once

	saver.hook = func(tpl models.Template) (models.Template, error) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(firstSent)
			<-release
		}
		return tpl, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		x := 10
		_ = store.Update(context.Background(), v.ID, VariableChange{X: &x}, true)
	}()

	<-firstSent

	x := 999
	if err := store.Update(context.Background(), v.ID, VariableChange{X: &x}, true); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	close(release)
	<-done

	got, _ := store.Get(v.ID)
	if got.X != 999 {
		t.Errorf("stale response overwrote newer state: x = %d, want 999", got.X)
	}
}

func TestUpdateUnknownVariable(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	x := 5
	if err := store.Update(context.Background(), "nope", VariableChange{X: &x}, true); err != models.ErrVariableNotFound {
		t.Errorf("err = %v, want ErrVariableNotFound", err)
	}
}

func TestRenameChangesLabel(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	v, _ := store.Add(context.Background(), models.VariableImage)

	if err := store.Rename(context.Background(), v.ID, "Logo"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, _ := store.Get(v.ID)
	if got.Label != "Logo" {
		t.Errorf("label = %q", got.Label)
	}
	if got.Fit != models.FitCover {
		t.Errorf("image default fit = %q, want cover", got.Fit)
	}
}
