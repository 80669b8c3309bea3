// Package notes manages the note lifecycle: optimistic local updates,
// remote confirmation and whole-list rollback on failure.
package notes

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/remote"
)

// TempIDPrefix marks client-side placeholder ids.
const TempIDPrefix = "tmp-"

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for note dates.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides placeholder id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// Manager orchestrates create, edit and delete of notes.
type Manager struct {
	store  *clientstore.Store
	remote remote.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewManager creates a lifecycle manager writing through rs.
func NewManager(store *clientstore.Store, rs remote.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:  store,
		remote: rs,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return TempIDPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateNote adds a note optimistically, persists it, and swaps the
// placeholder id for the server id on success. On failure the note list is
// restored to its state before the call.
func (m *Manager) CreateNote(ctx context.Context, title string, tags []models.Tag) (models.Note, error) {
	user := m.remote.Identity()
	if user == "" {
		return models.Note{}, apperr.ErrNotAuthenticated
	}
	if tags == nil {
		tags = []models.Tag{}
	}

	snapshot := m.store.Notes()
	note := models.Note{
		ID:                m.newID(),
		Title:             title,
		Date:              m.now(),
		Tags:              models.CloneTags(tags),
		UserID:            user,
		TransientCreating: true,
	}
	if err := m.store.Dispatch(clientstore.AddNoteOptimistic{Note: note}); err != nil {
		return models.Note{}, err
	}

	id, err := m.remote.CreateNote(ctx, note)
	if err != nil {
		m.revert(snapshot, "create", note.ID, err)
		return models.Note{}, apperr.RemoteWrite(err)
	}

	if err := m.store.Dispatch(clientstore.ReconcileCreatedNote{TempID: note.ID, ID: id}); err != nil {
		return models.Note{}, err
	}
	m.logger.Debug("note created", slog.String("note_id", id), slog.String("temp_id", note.ID))

	note.ID = id
	note.TransientCreating = false
	return note, nil
}

// EditNote applies patch locally, then remotely. The note date is bumped to
// now unless the patch carries one.
func (m *Manager) EditNote(ctx context.Context, id string, patch models.NotePatch) error {
	if m.remote.Identity() == "" {
		return apperr.ErrNotAuthenticated
	}
	if patch.Date == nil {
		now := m.now()
		patch.Date = &now
	}

	snapshot := m.store.Notes()
	if err := m.store.Dispatch(clientstore.EditNoteOptimistic{ID: id, Patch: patch}); err != nil {
		return err
	}

	if err := m.remote.EditNote(ctx, id, patch); err != nil {
		m.revert(snapshot, "edit", id, err)
		return apperr.RemoteWrite(err)
	}
	return nil
}

// DeleteNote removes a note locally, then remotely.
func (m *Manager) DeleteNote(ctx context.Context, id string) error {
	if m.remote.Identity() == "" {
		return apperr.ErrNotAuthenticated
	}

	snapshot := m.store.Notes()
	if err := m.store.Dispatch(clientstore.MarkNoteDeleting{ID: id}); err != nil {
		return err
	}
	if err := m.store.Dispatch(clientstore.RemoveNoteOptimistic{ID: id}); err != nil {
		return err
	}

	if err := m.remote.DeleteNote(ctx, id); err != nil {
		m.revert(snapshot, "delete", id, err)
		return apperr.RemoteWrite(err)
	}
	return nil
}

// SelectNote makes id the active note. An empty id clears the selection.
func (m *Manager) SelectNote(id string) error {
	if id != "" {
		if _, ok := m.store.Note(id); !ok {
			return apperr.ErrNotFound
		}
	}
	return m.store.Dispatch(clientstore.SetActiveNote{ID: id})
}

func (m *Manager) revert(snapshot []models.Note, op, id string, cause error) {
	m.logger.Warn("note write failed, reverting",
		slog.String("op", op),
		slog.String("note_id", id),
		slog.String("error", cause.Error()))
	if err := m.store.Dispatch(clientstore.SetNotes{Notes: snapshot}); err != nil {
		m.logger.Error("revert failed", slog.String("note_id", id), slog.String("error", err.Error()))
	}
}
