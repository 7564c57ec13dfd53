package editor

import (
	"context"
	"sync"

	"mockup/internal/geometry"
	"mockup/internal/models"
	"mockup/internal/pkg/errors"
	"mockup/internal/pkg/logger"
)

// API is the slice of the service the editor session needs.
type API interface {
	Saver
	MaskUploader
}

// Session is the explicit editing context for one operator and one
// active template: constructed once when the editor opens, torn down
// with Close. It replaces any ambient/global state; components receive
// it by reference. After Close, results from still-running requests are
// dropped instead of mutating a dead session.
type Session struct {
	mu  sync.Mutex
	log *logger.Logger
	api API

	// tplMu is the single lock for tpl. Variables and Mask both mutate
	// the template, so they share this lock rather than carrying their
	// own.
	tplMu     sync.Mutex
	tpl       models.Template
	transform geometry.Transform

	Variables *VariableStore
	Mapping   *MappingStore
	Mask      *MaskController

	csvName  string
	headers  []string
	previews []models.PreviewItem

	closed bool
}

// NewSession opens an editing session on the given template.
func NewSession(tpl models.Template, api API, log *logger.Logger) *Session {
	s := &Session{
		log:       log.WithComponent("session"),
		api:       api,
		tpl:       tpl.Clone(),
		transform: geometry.New(geometry.MaxDisplayWidth),
	}
	s.Mapping = NewMappingStore()
	s.Variables = NewVariableStore(&s.tpl, &s.tplMu, s.Mapping, sessionSaver{s}, log)

	w, h := s.transform.NaturalSize()
	s.Mask = NewMaskController(&s.tpl, &s.tplMu, w, h, api, sessionSaver{s}, log)
	return s
}

// sessionSaver routes saves through the session so responses for a
// closed session are dropped.
type sessionSaver struct{ s *Session }

func (ss sessionSaver) SaveTemplate(ctx context.Context, t models.Template) (models.Template, error) {
	if ss.s.isClosed() {
		return models.Template{}, errors.New(errors.CodeFailedPrecond, "session closed")
	}
	saved, err := ss.s.api.SaveTemplate(ctx, t)
	if err != nil {
		return models.Template{}, err
	}
	if ss.s.isClosed() {
		// The editor is gone; do not let the response mutate state.
		return models.Template{}, errors.New(errors.CodeFailedPrecond, "session closed")
	}
	return saved, nil
}

// Close tears the session down. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.log.Debug("session closed", "template_id", s.tpl.ID)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Template returns a copy of the active template.
func (s *Session) Template() models.Template {
	s.tplMu.Lock()
	defer s.tplMu.Unlock()
	return s.tpl.Clone()
}

// Transform returns the current coordinate transform.
func (s *Session) Transform() geometry.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

// ImageLoaded records the base image's natural size once known.
// Geometry entered beforehand is already canonical; only the rendering
// scale changes. The mask buffer follows the real size so strokes land
// on the full image instead of being clipped at the placeholder edge.
func (s *Session) ImageLoaded(w, h int) {
	s.mu.Lock()
	s.transform.SetNaturalSize(w, h)
	s.mu.Unlock()

	s.Mask.Resize(w, h)
}

// SetCSV records the inspected CSV source.
func (s *Session) SetCSV(name string, headers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csvName = name
	s.headers = append([]string(nil), headers...)
}

// Headers returns the inspected CSV headers.
func (s *Session) Headers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.headers...)
}

// SetPreviews replaces the preview set wholesale.
func (s *Session) SetPreviews(items []models.PreviewItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.previews = append([]models.PreviewItem(nil), items...)
}

// Previews returns the current preview set.
func (s *Session) Previews() []models.PreviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PreviewItem(nil), s.previews...)
}

// Steps derives the workflow completion flags.
func (s *Session) Steps(jobStatus models.JobStatus) Steps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DeriveSteps(WorkflowState{
		CSVPresent:   s.csvName != "",
		Headers:      s.headers,
		MappingCount: s.Mapping.Len(),
		PreviewCount: len(s.previews),
		JobStatus:    jobStatus,
	})
}
