// Package remote is the adapter between client-side state and the document
// store: live subscriptions plus owner-bound create/update/delete primitives.
package remote

import (
	"context"

	"github.com/starford/noteflow/internal/models"
)

// Store is the remote document store as seen by one authenticated caller.
type Store interface {
	// Identity returns the caller bound to this adapter.
	Identity() string

	SubscribeNotes(ctx context.Context, userID string) (*Subscription[[]models.Note], error)
	SubscribeUserTags(ctx context.Context, userID string) (*Subscription[[]models.Tag], error)
	SubscribeNote(ctx context.Context, noteID string) (*Subscription[*models.Note], error)

	ListNotes(ctx context.Context, userID string) ([]models.Note, error)
	GetNote(ctx context.Context, noteID string) (*models.Note, error)
	ListTags(ctx context.Context, userID string) ([]models.Tag, error)

	CreateNote(ctx context.Context, note models.Note) (string, error)
	EditNote(ctx context.Context, id string, patch models.NotePatch) error
	DeleteNote(ctx context.Context, id string) error

	CreateTag(ctx context.Context, tag models.Tag) error
	DeleteTag(ctx context.Context, tag models.Tag) error
	EditTagColor(ctx context.Context, tag models.Tag) error
}
