package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (models.Note, error) {
	var (
		n        models.Note
		date     string
		tagsJSON string
	)
	if err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &date, &tagsJSON); err != nil {
		return models.Note{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return models.Note{}, fmt.Errorf("docstore: parse date of %s: %w", n.ID, err)
	}
	n.Date = t
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		return models.Note{}, fmt.Errorf("docstore: decode tags of %s: %w", n.ID, err)
	}
	if n.Tags == nil {
		n.Tags = []models.Tag{}
	}
	return n, nil
}

func encodeTags(tags []models.Tag) string {
	if tags == nil {
		tags = []models.Tag{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// ListNotes returns every note owned by userID, newest first.
func (db *DB) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, title, content, date, tags
		FROM notes WHERE user_id = ?
		ORDER BY date DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("docstore: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetNote returns a single note by id.
func (db *DB) GetNote(ctx context.Context, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, title, content, date, tags
		FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote stores n under a server-assigned id and returns the id.
// caller must equal n.UserID.
func (db *DB) CreateNote(ctx context.Context, caller string, n models.Note) (string, error) {
	if caller == "" {
		return "", apperr.ErrNotAuthenticated
	}
	if n.UserID != caller {
		return "", apperr.ErrUnauthorized
	}
	for _, t := range n.Tags {
		if err := t.Validate(); err != nil {
			return "", fmt.Errorf("%w: tag %q: %v", apperr.ErrInvalidPayload, t.Name, err)
		}
	}
	if n.Date.IsZero() {
		n.Date = time.Now()
	}

	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, date, tags)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, n.UserID, n.Title, n.Content, n.Date.UTC().Format(time.RFC3339Nano), encodeTags(n.Tags))
	if err != nil {
		return "", fmt.Errorf("docstore: insert note: %w", err)
	}

	db.publishNote("created", n.UserID, id)
	return id, nil
}

// UpdateNote applies patch to the note with the given id.
func (db *DB) UpdateNote(ctx context.Context, caller, id string, patch models.NotePatch) error {
	if caller == "" {
		return apperr.ErrNotAuthenticated
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	n, err := scanNote(tx.QueryRowContext(ctx, `
		SELECT id, user_id, title, content, date, tags
		FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return err
	}
	if n.UserID != caller {
		return apperr.ErrUnauthorized
	}

	n = patch.Apply(n)
	_, err = tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, date = ?, tags = ?
		WHERE id = ?`,
		n.Title, n.Content, n.Date.UTC().Format(time.RFC3339Nano), encodeTags(n.Tags), id)
	if err != nil {
		return fmt.Errorf("docstore: update note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}

	db.publishNote("updated", n.UserID, id)
	return nil
}

// DeleteNote removes the note with the given id.
func (db *DB) DeleteNote(ctx context.Context, caller, id string) error {
	if caller == "" {
		return apperr.ErrNotAuthenticated
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM notes WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("docstore: lookup note: %w", err)
	}
	if owner != caller {
		return apperr.ErrUnauthorized
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("docstore: delete note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}

	db.publishNote("deleted", owner, id)
	return nil
}
