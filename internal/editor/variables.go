package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mockup/internal/models"
	"mockup/internal/pkg/logger"
)

// Saver persists the whole template. Saves replace the template
// wholesale; there is no partial-field update protocol.
type Saver interface {
	SaveTemplate(ctx context.Context, t models.Template) (models.Template, error)
}

// VariableStore owns the variables of the active template. Mutations
// are optimistic: local state changes first, then a snapshot is saved.
// Each save carries a sequence number and a response is applied only
// when it belongs to the latest issued save, so a slow response from an
// earlier commit can never clobber a newer one.
type VariableStore struct {
	mu      *sync.Mutex // guards tpl; the session shares it across controllers
	tpl     *models.Template
	mapping *MappingStore
	save    Saver
	log     *logger.Logger

	issued  uint64 // sequence of the newest save sent
	applied uint64 // sequence of the newest response applied
}

func NewVariableStore(tpl *models.Template, mu *sync.Mutex, mapping *MappingStore, save Saver, log *logger.Logger) *VariableStore {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &VariableStore{
		mu:      mu,
		tpl:     tpl,
		mapping: mapping,
		save:    save,
		log:     log.WithComponent("variables"),
	}
}

// newVariableID derives an id from the clock, unique within a session.
func newVariableID() string {
	return fmt.Sprintf("var_%d", time.Now().UnixNano())
}

// Add places a new variable with default geometry and persists.
func (s *VariableStore) Add(ctx context.Context, typ models.VariableType) (models.Variable, error) {
	s.mu.Lock()
	v := models.NewVariable(newVariableID(), typ)
	s.tpl.Variables = append(s.tpl.Variables, v)
	s.mu.Unlock()
	return v, s.persist(ctx)
}

// VariableChange is a partial update; nil fields are left alone.
type VariableChange struct {
	X, Y, W, H   *int
	Fit          *string
	Label        *string
	DefaultValue *string
	Transform    *string
	Style        *StylePatch
}

// StylePatch is a partial style update.
type StylePatch struct {
	Size   *int
	Weight *string
	Color  *string
	Align  *string
	Valign *string
}

// Update applies a partial change. With commit=false only local state
// moves (live drag feedback); commit=true also persists the template.
func (s *VariableStore) Update(ctx context.Context, id string, ch VariableChange, commit bool) error {
	s.mu.Lock()
	i := s.tpl.FindVariable(id)
	if i < 0 {
		s.mu.Unlock()
		return models.ErrVariableNotFound
	}
	applyChange(&s.tpl.Variables[i], ch)
	s.mu.Unlock()

	if !commit {
		return nil
	}
	return s.persist(ctx)
}

func applyChange(v *models.Variable, ch VariableChange) {
	if ch.X != nil {
		v.X = *ch.X
	}
	if ch.Y != nil {
		v.Y = *ch.Y
	}
	if ch.W != nil {
		v.W = *ch.W
	}
	if ch.H != nil {
		v.H = *ch.H
	}
	if ch.Fit != nil {
		v.Fit = *ch.Fit
	}
	if ch.Label != nil {
		v.Label = *ch.Label
	}
	if ch.DefaultValue != nil {
		v.DefaultValue = *ch.DefaultValue
	}
	if ch.Transform != nil {
		v.Transform = *ch.Transform
	}
	if p := ch.Style; p != nil {
		if p.Size != nil {
			v.Style.Size = *p.Size
		}
		if p.Weight != nil {
			v.Style.Weight = *p.Weight
		}
		if p.Color != nil {
			v.Style.Color = *p.Color
		}
		if p.Align != nil {
			v.Style.Align = *p.Align
		}
		if p.Valign != nil {
			v.Style.Valign = *p.Valign
		}
		v.Style = v.Style.Normalized()
	}
}

// Rename changes the variable's label and persists.
func (s *VariableStore) Rename(ctx context.Context, id, label string) error {
	return s.Update(ctx, id, VariableChange{Label: &label}, true)
}

// Remove deletes the variable and its mapping entry in the same logical
// step, then persists. The mapping entry goes even if the save fails:
// the variable is already gone locally.
func (s *VariableStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.tpl.FindVariable(id)
	if i < 0 {
		s.mu.Unlock()
		return models.ErrVariableNotFound
	}
	s.tpl.Variables = append(s.tpl.Variables[:i], s.tpl.Variables[i+1:]...)
	s.mu.Unlock()

	s.mapping.Delete(id)
	return s.persist(ctx)
}

// Variables returns a copy of the current list.
func (s *VariableStore) Variables() []models.Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Variable(nil), s.tpl.Variables...)
}

// Get returns the named variable.
func (s *VariableStore) Get(id string) (models.Variable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.tpl.FindVariable(id); i >= 0 {
		return s.tpl.Variables[i], true
	}
	return models.Variable{}, false
}

// persist saves a snapshot of the template. The save runs outside the
// lock, so later commits are not held up by a slow response. A save
// error is reported but does not roll back local state.
func (s *VariableStore) persist(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	snapshot := s.tpl.Clone()
	s.mu.Unlock()

	saved, err := s.save.SaveTemplate(ctx, snapshot)
	if err != nil {
		s.log.Warn("template save failed, local state kept",
			"template_id", snapshot.ID,
			"seq", seq,
			"error", err.Error(),
		)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.issued || seq <= s.applied {
		s.log.Debug("discarding stale save response", "seq", seq, "issued", s.issued)
		return nil
	}
	s.applied = seq

	// The server copy is authoritative for the ids it retained.
	*s.tpl = saved
	s.mapping.Prune(s.tpl.VariableIDs())
	return nil
}
