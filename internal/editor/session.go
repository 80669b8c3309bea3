// Package editor holds the live content of the note being edited and
// persists it after a quiet period.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/debounce"
	"github.com/starford/noteflow/internal/models"
)

// DefaultSaveDelay is the quiet period before live content is saved.
const DefaultSaveDelay = 5 * time.Second

// NoteEditor writes note patches with optimistic rollback.
type NoteEditor interface {
	EditNote(ctx context.Context, id string, patch models.NotePatch) error
}

// Session owns the live content of one note at a time. Saves are skipped
// while an AI generation is in progress and resume once it returns to idle.
type Session struct {
	ctx       context.Context
	store     *clientstore.Store
	notes     NoteEditor
	debouncer *debounce.Keyed
	delay     time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	noteID    string
	content   string
	persisted string

	unsubscribe func()
}

// New creates a session. Debounced saves run under ctx.
func New(ctx context.Context, store *clientstore.Store, notes NoteEditor, debouncer *debounce.Keyed, delay time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	s := &Session{
		ctx:       ctx,
		store:     store,
		notes:     notes,
		debouncer: debouncer,
		delay:     delay,
		logger:    logger,
	}
	s.unsubscribe = store.Subscribe(s.onAction)
	return s
}

func saveKey(id string) string { return "save:" + id }

// Load switches the session to note. A pending save for the previous note
// is written first.
func (s *Session) Load(note models.Note) {
	s.mu.Lock()
	prev := s.noteID
	s.mu.Unlock()
	if prev != "" && prev != note.ID {
		s.debouncer.Flush(saveKey(prev))
	}

	s.mu.Lock()
	s.noteID = note.ID
	s.content = note.Content
	s.persisted = note.Content
	s.mu.Unlock()
	s.setStatus(models.SaveIdle)
}

// NoteID returns the id of the loaded note.
func (s *Session) NoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noteID
}

// Content returns the live content.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Dirty reports whether the live content differs from the last save.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content != s.persisted
}

// SetContent replaces the live content and reschedules the save.
func (s *Session) SetContent(content string) {
	s.mu.Lock()
	s.content = content
	s.mu.Unlock()
	s.schedule()
}

func (s *Session) schedule() {
	s.mu.Lock()
	id, dirty := s.noteID, s.content != s.persisted
	s.mu.Unlock()
	if id == "" {
		return
	}
	if !dirty {
		s.debouncer.Cancel(saveKey(id))
		return
	}
	if s.store.AIStatus() != models.AIIdle {
		return
	}
	s.debouncer.Schedule(saveKey(id), s.delay, func() {
		_ = s.save(s.ctx, id)
	})
}

func (s *Session) save(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.noteID != id || s.content == s.persisted {
		s.mu.Unlock()
		return nil
	}
	content := s.content
	s.mu.Unlock()

	s.setStatus(models.SaveSaving)
	if err := s.notes.EditNote(ctx, id, models.NotePatch{Content: &content}); err != nil {
		s.logger.Warn("editor: save failed", slog.String("note_id", id), slog.String("error", err.Error()))
		s.setStatus(models.SaveError)
		return err
	}

	s.mu.Lock()
	if s.noteID == id {
		s.persisted = content
	}
	s.mu.Unlock()
	s.setStatus(models.SaveSaved)
	return nil
}

// Flush writes unsaved content now, skipping the quiet period.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	id := s.noteID
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	s.debouncer.Cancel(saveKey(id))
	return s.save(ctx, id)
}

// ApplyTransfer consumes the sandbox transfer signal, making the transferred
// text the live content. It reports whether a transfer was pending.
func (s *Session) ApplyTransfer() bool {
	sb := s.store.Sandbox()
	if !sb.TransferActive {
		return false
	}
	s.SetContent(sb.TransferContent)
	if err := s.store.Dispatch(clientstore.SetTransfer{Active: false}); err != nil {
		s.logger.Error("editor: clear transfer", slog.String("error", err.Error()))
	}
	return true
}

// Unload discards the live content of noteID without saving it.
func (s *Session) Unload(noteID string) {
	s.mu.Lock()
	if s.noteID != noteID {
		s.mu.Unlock()
		return
	}
	s.noteID, s.content, s.persisted = "", "", ""
	s.mu.Unlock()
	s.debouncer.Cancel(saveKey(noteID))
	s.setStatus(models.SaveIdle)
}

// Close drops the pending save and stops following the store.
func (s *Session) Close() {
	s.unsubscribe()
	s.mu.Lock()
	id := s.noteID
	s.mu.Unlock()
	if id != "" {
		s.debouncer.Cancel(saveKey(id))
	}
}

func (s *Session) onAction(a clientstore.Action, st clientstore.State) {
	switch a := a.(type) {
	case clientstore.SetAIStatus:
		if a.Status == models.AIIdle {
			s.schedule()
		}
	case clientstore.SetNotes:
		// Follow pushed content while there are no local edits.
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.noteID == "" || s.content != s.persisted {
			return
		}
		for _, n := range st.Notes {
			if n.ID == s.noteID {
				s.content = n.Content
				s.persisted = n.Content
				return
			}
		}
	}
}

func (s *Session) setStatus(status models.SaveStatus) {
	if err := s.store.Dispatch(clientstore.SetContentSaveStatus{Status: status}); err != nil {
		s.logger.Error("editor: set save status", slog.String("error", err.Error()))
	}
}
