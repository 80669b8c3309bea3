package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
)

// Session is the tag state of one note-editing dialog. Typed tags live only
// in the session until Submit promotes the unregistered ones.
type Session struct {
	engine *Engine

	mu     sync.Mutex
	active []models.Tag
}

// NewSession starts a dialog session seeded with the note's current tags.
func (e *Engine) NewSession(initial []models.Tag) *Session {
	active := models.CloneTags(initial)
	if active == nil {
		active = []models.Tag{}
	}
	return &Session{engine: e, active: active}
}

// Add puts the typed name into the active set. A name matching a registry
// tag reuses that tag and its color; otherwise a fresh random color is used.
func (s *Session) Add(name string) (models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tag{}, fmt.Errorf("%w: empty tag name", apperr.ErrInvalidPayload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := models.FindTag(s.active, name); ok {
		return t, nil
	}
	tag, _ := ResolveTyped(name, s.engine.store.Tags(), s.engine.newColor)
	if err := tag.Validate(); err != nil {
		return models.Tag{}, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	s.active = append(s.active, tag)
	return tag, nil
}

// Remove drops name from the active set.
func (s *Session) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.active {
		if models.SameTagName(t.Name, name) {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the dialog's current tags.
func (s *Session) Active() []models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneTags(s.active)
}

// Suggested returns registry tags not yet active, recomputed on every call.
func (s *Session) Suggested() []models.Tag {
	return Suggested(s.engine.store.Tags(), s.Active())
}

// Submit registers every active tag missing from the registry and returns
// the final tag set for the note.
func (s *Session) Submit(ctx context.Context) ([]models.Tag, error) {
	active := s.Active()
	var errs []error
	for _, t := range Promotable(active, s.engine.store.Tags()) {
		if _, err := s.engine.CreateTag(ctx, t); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
			errs = append(errs, err)
		}
	}
	return active, errors.Join(errs...)
}
