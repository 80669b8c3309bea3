package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/sse"
)

// ListTags returns the tag registry of userID. A user without a registry
// document has no tags.
func (db *DB) ListTags(ctx context.Context, userID string) ([]models.Tag, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, `SELECT tags FROM tag_registries WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Tag{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: list tags: %w", err)
	}
	var tags []models.Tag
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("docstore: decode tags: %w", err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// CreateTag appends tag to the registry of userID.
func (db *DB) CreateTag(ctx context.Context, caller, userID string, tag models.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	return db.mutateRegistry(ctx, caller, userID, true, func(tags []models.Tag) ([]models.Tag, error) {
		if _, ok := models.FindTag(tags, tag.Name); ok {
			return nil, apperr.ErrAlreadyExists
		}
		return append(tags, tag), nil
	})
}

// DeleteTag removes the tag named tag.Name from the registry of userID.
func (db *DB) DeleteTag(ctx context.Context, caller, userID string, tag models.Tag) error {
	return db.mutateRegistry(ctx, caller, userID, false, func(tags []models.Tag) ([]models.Tag, error) {
		out := tags[:0]
		found := false
		for _, t := range tags {
			if models.SameTagName(t.Name, tag.Name) {
				found = true
				continue
			}
			out = append(out, t)
		}
		if !found {
			return nil, apperr.ErrNotFound
		}
		return out, nil
	})
}

// EditTagColor sets the color of the registry tag named tag.Name.
func (db *DB) EditTagColor(ctx context.Context, caller, userID string, tag models.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	return db.mutateRegistry(ctx, caller, userID, false, func(tags []models.Tag) ([]models.Tag, error) {
		for i, t := range tags {
			if models.SameTagName(t.Name, tag.Name) {
				tags[i].Color = tag.Color
				return tags, nil
			}
		}
		return nil, apperr.ErrNotFound
	})
}

// mutateRegistry runs fn over the registry of userID inside a transaction.
// When create is false a missing registry document is ErrNotFound.
func (db *DB) mutateRegistry(ctx context.Context, caller, userID string, create bool, fn func([]models.Tag) ([]models.Tag, error)) error {
	if caller == "" {
		return apperr.ErrNotAuthenticated
	}
	if caller != userID {
		return apperr.ErrUnauthorized
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT tags FROM tag_registries WHERE user_id = ?`, userID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !create {
			return apperr.ErrNotFound
		}
		raw = "[]"
	case err != nil:
		return fmt.Errorf("docstore: load registry: %w", err)
	}

	var tags []models.Tag
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return fmt.Errorf("docstore: decode registry: %w", err)
	}
	tags, err = fn(tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tag_registries (user_id, tags) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET tags = excluded.tags`,
		userID, encodeTags(tags))
	if err != nil {
		return fmt.Errorf("docstore: save registry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}

	db.publish(sse.Event{Topic: TagsTopic(userID), Type: "tags.updated", Data: map[string]string{"userId": userID}})
	return nil
}
