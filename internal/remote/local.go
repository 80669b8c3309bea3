package remote

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/sse"
)

// Local implements Store against an in-process docstore and its change feed.
type Local struct {
	db     *docstore.DB
	broker *sse.Broker
	caller string
	logger *slog.Logger
}

// NewLocal binds an adapter to caller. An empty caller is allowed; every
// write then fails with ErrNotAuthenticated.
func NewLocal(db *docstore.DB, broker *sse.Broker, caller string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{db: db, broker: broker, caller: caller, logger: logger}
}

var _ Store = (*Local)(nil)

// Identity returns the caller bound to this adapter.
func (l *Local) Identity() string { return l.caller }

func (l *Local) checkReader(userID string) error {
	if l.caller == "" {
		return apperr.ErrNotAuthenticated
	}
	if userID != l.caller {
		return apperr.ErrUnauthorized
	}
	return nil
}

// SubscribeNotes streams the full note list of userID.
func (l *Local) SubscribeNotes(ctx context.Context, userID string) (*Subscription[[]models.Note], error) {
	if err := l.checkReader(userID); err != nil {
		return nil, err
	}
	return subscribe(ctx, l.broker, docstore.NotesTopic(userID), l.logger, func(ctx context.Context) ([]models.Note, error) {
		return l.db.ListNotes(ctx, userID)
	})
}

// SubscribeUserTags streams the tag registry of userID.
func (l *Local) SubscribeUserTags(ctx context.Context, userID string) (*Subscription[[]models.Tag], error) {
	if err := l.checkReader(userID); err != nil {
		return nil, err
	}
	return subscribe(ctx, l.broker, docstore.TagsTopic(userID), l.logger, func(ctx context.Context) ([]models.Tag, error) {
		return l.db.ListTags(ctx, userID)
	})
}

// SubscribeNote streams a single note; nil is delivered once it is gone.
func (l *Local) SubscribeNote(ctx context.Context, noteID string) (*Subscription[*models.Note], error) {
	if l.caller == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	return subscribe(ctx, l.broker, docstore.NoteTopic(noteID), l.logger, func(ctx context.Context) (*models.Note, error) {
		n, err := l.db.GetNote(ctx, noteID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if n.UserID != l.caller {
			return nil, apperr.ErrUnauthorized
		}
		return n, nil
	})
}

// ListNotes returns the current notes of userID.
func (l *Local) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	if err := l.checkReader(userID); err != nil {
		return nil, err
	}
	return l.db.ListNotes(ctx, userID)
}

// GetNote returns a note owned by the caller.
func (l *Local) GetNote(ctx context.Context, noteID string) (*models.Note, error) {
	if l.caller == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	n, err := l.db.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.UserID != l.caller {
		return nil, apperr.ErrUnauthorized
	}
	return n, nil
}

// ListTags returns the tag registry of userID.
func (l *Local) ListTags(ctx context.Context, userID string) ([]models.Tag, error) {
	if err := l.checkReader(userID); err != nil {
		return nil, err
	}
	return l.db.ListTags(ctx, userID)
}

// CreateNote stores note and returns the server-assigned id.
func (l *Local) CreateNote(ctx context.Context, note models.Note) (string, error) {
	note.TransientCreating = false
	note.TransientDeleting = false
	return l.db.CreateNote(ctx, l.caller, note)
}

// EditNote patches the note with the given id.
func (l *Local) EditNote(ctx context.Context, id string, patch models.NotePatch) error {
	return l.db.UpdateNote(ctx, l.caller, id, patch)
}

// DeleteNote removes the note with the given id.
func (l *Local) DeleteNote(ctx context.Context, id string) error {
	return l.db.DeleteNote(ctx, l.caller, id)
}

// CreateTag adds tag to the caller's registry.
func (l *Local) CreateTag(ctx context.Context, tag models.Tag) error {
	return l.db.CreateTag(ctx, l.caller, l.caller, tag)
}

// DeleteTag removes tag from the caller's registry.
func (l *Local) DeleteTag(ctx context.Context, tag models.Tag) error {
	return l.db.DeleteTag(ctx, l.caller, l.caller, tag)
}

// EditTagColor updates the color of a registry tag.
func (l *Local) EditTagColor(ctx context.Context, tag models.Tag) error {
	return l.db.EditTagColor(ctx, l.caller, l.caller, tag)
}
