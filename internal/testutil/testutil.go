// Package testutil provides shared test helpers for document stores,
// remote adapters and scratch directories.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/remote"
	"github.com/starford/noteflow/internal/sse"
	"github.com/starford/noteflow/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite document store and its change broker,
// both cleaned up with the test.
func TestDB(t *testing.T) (*docstore.DB, *sse.Broker) {
	t.Helper()
	dbFile, err := os.CreateTemp("", "noteflow-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	broker := sse.NewBroker(64)
	t.Cleanup(broker.Close)

	db, err := docstore.Open(dbFile.Name(), broker)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, broker
}

// TestRemote returns a remote adapter bound to user over a fresh store.
func TestRemote(t *testing.T, user string) *Remote {
	t.Helper()
	db, broker := TestDB(t)
	return &Remote{
		Store: remote.NewLocal(db, broker, user, Logger()),
		DB:    db,
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// TestDir creates a temporary directory with a storage.FS rooted at it.
func TestDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Remote wraps a real adapter with per-operation failure injection and
// call counting.
type Remote struct {
	remote.Store
	DB *docstore.DB

	mu       sync.Mutex
	fail     map[string]error
	calls    map[string]int
	identity *string
}

// FailOn makes op return err until cleared with a nil err.
func (r *Remote) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, op)
		return
	}
	r.fail[op] = err
}

// Calls reports how many times op was invoked.
func (r *Remote) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// SetIdentity overrides the reported identity. An empty string simulates a
// signed-out user.
func (r *Remote) SetIdentity(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity = &id
}

func (r *Remote) Identity() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identity != nil {
		return *r.identity
	}
	return r.Store.Identity()
}

func (r *Remote) check(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.fail[op]
}

func (r *Remote) CreateNote(ctx context.Context, note models.Note) (string, error) {
	if err := r.check("CreateNote"); err != nil {
		return "", err
	}
	return r.Store.CreateNote(ctx, note)
}

func (r *Remote) EditNote(ctx context.Context, id string, patch models.NotePatch) error {
	if err := r.check("EditNote"); err != nil {
		return err
	}
	return r.Store.EditNote(ctx, id, patch)
}

func (r *Remote) DeleteNote(ctx context.Context, id string) error {
	if err := r.check("DeleteNote"); err != nil {
		return err
	}
	return r.Store.DeleteNote(ctx, id)
}

func (r *Remote) CreateTag(ctx context.Context, tag models.Tag) error {
	if err := r.check("CreateTag"); err != nil {
		return err
	}
	return r.Store.CreateTag(ctx, tag)
}

func (r *Remote) DeleteTag(ctx context.Context, tag models.Tag) error {
	if err := r.check("DeleteTag"); err != nil {
		return err
	}
	return r.Store.DeleteTag(ctx, tag)
}

func (r *Remote) EditTagColor(ctx context.Context, tag models.Tag) error {
	if err := r.check("EditTagColor"); err != nil {
		return err
	}
	return r.Store.EditTagColor(ctx, tag)
}
