package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/noteflow/internal/apperr"
)

// ImportRecord links an inbox file to the note created from it.
type ImportRecord struct {
	Path     string
	NoteID   string
	Checksum string
}

// GetImport returns the record for path, or ErrNotFound.
func (db *DB) GetImport(ctx context.Context, userID, path string) (ImportRecord, error) {
	rec := ImportRecord{Path: path}
	err := db.conn.QueryRowContext(ctx,
		`SELECT note_id, checksum FROM imports WHERE user_id = ? AND path = ?`,
		userID, path).Scan(&rec.NoteID, &rec.Checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRecord{}, apperr.ErrNotFound
	}
	if err != nil {
		return ImportRecord{}, fmt.Errorf("docstore: get import: %w", err)
	}
	return rec, nil
}

// PutImport inserts or replaces the record for rec.Path.
func (db *DB) PutImport(ctx context.Context, userID string, rec ImportRecord) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO imports (user_id, path, note_id, checksum) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, path) DO UPDATE SET note_id = excluded.note_id, checksum = excluded.checksum`,
		userID, rec.Path, rec.NoteID, rec.Checksum)
	if err != nil {
		return fmt.Errorf("docstore: put import: %w", err)
	}
	return nil
}
