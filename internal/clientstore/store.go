package clientstore

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
)

// Listener is notified with a copy of the state after every accepted action.
type Listener func(action Action, state State)

// Store owns the state. Mutation happens only through Dispatch; reads return
// deep copies so no caller holds a reference into the live state.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// New creates a store holding Initial().
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:     Initial(),
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Dispatch validates a and applies it. A malformed payload is logged and
// rejected with apperr.ErrInvalidPayload; the state is left untouched.
func (s *Store) Dispatch(a Action) error {
	if a == nil {
		s.logger.Error("store: nil action rejected")
		return fmt.Errorf("%w: nil action", apperr.ErrInvalidPayload)
	}
	if err := a.Validate(); err != nil {
		s.logger.Error("store: action rejected",
			slog.String("action", a.ActionName()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", apperr.ErrInvalidPayload, a.ActionName(), err)
	}

	s.mu.Lock()
	if sv, ok := a.(stateValidator); ok {
		if err := sv.ValidateAgainst(s.state); err != nil {
			s.mu.Unlock()
			s.logger.Error("store: action rejected",
				slog.String("action", a.ActionName()),
				slog.String("error", err.Error()))
			return fmt.Errorf("%w: %s: %v", apperr.ErrInvalidPayload, a.ActionName(), err)
		}
	}
	s.state = Reduce(s.state, a)
	snapshot := s.state.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(a, snapshot)
	}
	return nil
}

// Subscribe registers l and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// State returns a copy of the whole state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Notes returns a copy of the note list.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneNotes(s.state.Notes)
}

// Note returns the note with id.
func (s *Store) Note(id string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.noteIndex(id); i >= 0 {
		return s.state.Notes[i].Clone(), true
	}
	return models.Note{}, false
}

// Tags returns the registry ordered by name (the user tag set).
func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneTags(s.state.Tags)
}

// ActiveNote returns the currently selected note.
func (s *Store) ActiveNote() (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.ActiveNoteID == "" {
		return models.Note{}, false
	}
	if i := s.state.noteIndex(s.state.ActiveNoteID); i >= 0 {
		return s.state.Notes[i].Clone(), true
	}
	return models.Note{}, false
}

// AIStatus returns the current AI status.
func (s *Store) AIStatus() models.AIStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AIStatus
}

// AIMode returns the selected generation mode.
func (s *Store) AIMode() models.GenerationMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AIMode
}

// Sandbox returns a copy of the sandbox slice.
func (s *Store) Sandbox() Sandbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().Sandbox
}

// ContentSaveStatus returns the debounced save status.
func (s *Store) ContentSaveStatus() models.SaveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ContentSave
}

// LastDeletedTag returns the pending deleted-tag signal.
func (s *Store) LastDeletedTag() (models.Tag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.LastDeletedTag == nil {
		return models.Tag{}, false
	}
	return *s.state.LastDeletedTag, true
}
