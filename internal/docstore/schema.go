// Package docstore is the SQLite-backed document database holding every
// user's notes and tag registry. Writes are checked against the document
// owner and announced on the change feed.
package docstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/noteflow/internal/sse"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title   TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	date    TEXT NOT NULL,
	tags    TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);

CREATE TABLE IF NOT EXISTS tag_registries (
	user_id TEXT PRIMARY KEY,
	tags    TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS imports (
	user_id  TEXT NOT NULL,
	path     TEXT NOT NULL,
	note_id  TEXT NOT NULL,
	checksum TEXT NOT NULL,
	PRIMARY KEY (user_id, path)
);
`

// Publisher receives change events after each committed write.
type Publisher interface {
	Publish(sse.Event)
}

// DB wraps a sql.DB with document operations.
type DB struct {
	conn *sql.DB
	pub  Publisher
}

// Open opens (or creates) the SQLite database and applies the schema.
// pub may be nil when no change feed is needed.
func Open(dsn string, pub Publisher) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("docstore: open db: %w", err)
	}
	// Serialise writers; read-modify-write transactions rely on it.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: apply schema: %w", err)
	}
	return &DB{conn: conn, pub: pub}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Topics used on the change feed.
func NotesTopic(userID string) string { return "notes:" + userID }
func TagsTopic(userID string) string  { return "tags:" + userID }
func NoteTopic(noteID string) string  { return "note:" + noteID }

func (db *DB) publish(ev sse.Event) {
	if db.pub != nil {
		db.pub.Publish(ev)
	}
}

func (db *DB) publishNote(kind, userID, noteID string) {
	data := map[string]string{"id": noteID}
	db.publish(sse.Event{Topic: NotesTopic(userID), Type: "note." + kind, Data: data})
	db.publish(sse.Event{Topic: NoteTopic(noteID), Type: "note." + kind, Data: data})
}
