package docstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/sse"
)

type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Publish(ev sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Topic
	}
	return out
}

func testDB(t *testing.T) (*DB, *recorder) {
	t.Helper()
	f, err := os.CreateTemp("", "noteflow-docstore-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	rec := &recorder{}
	db, err := Open(f.Name(), rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, rec
}

func TestCreateAndGetNote(t *testing.T) {
	db, rec := testDB(t)
	ctx := context.Background()

	id, err := db.CreateNote(ctx, "u1", models.Note{
		UserID:  "u1",
		Title:   "Hello",
		Content: "# Hello",
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:    []models.Tag{{Name: "go", Color: "00aaff"}},
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	n, err := db.GetNote(ctx, id)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Hello" || n.UserID != "u1" {
		t.Errorf("note = %+v", n)
	}
	if len(n.Tags) != 1 || n.Tags[0].Color != "00aaff" {
		t.Errorf("tags = %+v", n.Tags)
	}
	if !n.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", n.Date)
	}

	topics := rec.topics()
	if len(topics) != 2 || topics[0] != NotesTopic("u1") || topics[1] != NoteTopic(id) {
		t.Errorf("published topics = %v", topics)
	}
}

func TestCreateNoteOwnership(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateNote(ctx, "", models.Note{UserID: "u1"}); !errors.Is(err, apperr.ErrNotAuthenticated) {
		t.Errorf("empty caller err = %v", err)
	}
	if _, err := db.CreateNote(ctx, "u2", models.Note{UserID: "u1"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign caller err = %v", err)
	}
}

func TestCreateNoteRejectsBadTagColor(t *testing.T) {
	db, _ := testDB(t)
	_, err := db.CreateNote(context.Background(), "u1", models.Note{
		UserID: "u1",
		Tags:   []models.Tag{{Name: "x", Color: "blue"}},
	})
	if !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Errorf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestUpdateNote(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	id, _ := db.CreateNote(ctx, "u1", models.Note{UserID: "u1", Title: "a", Content: "x"})

	title := "b"
	if err := db.UpdateNote(ctx, "u1", id, models.NotePatch{Title: &title}); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	n, _ := db.GetNote(ctx, id)
	if n.Title != "b" || n.Content != "x" {
		t.Errorf("note after patch = %+v", n)
	}

	if err := db.UpdateNote(ctx, "u2", id, models.NotePatch{Title: &title}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign update err = %v", err)
	}
	if err := db.UpdateNote(ctx, "u1", "missing", models.NotePatch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing update err = %v", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	id, _ := db.CreateNote(ctx, "u1", models.Note{UserID: "u1"})

	if err := db.DeleteNote(ctx, "u2", id); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign delete err = %v", err)
	}
	if err := db.DeleteNote(ctx, "u1", id); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	if err := db.DeleteNote(ctx, "u1", id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListNotesScopedToUser(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	_, _ = db.CreateNote(ctx, "u1", models.Note{UserID: "u1", Title: "old", Date: time.Now().Add(-time.Hour)})
	_, _ = db.CreateNote(ctx, "u1", models.Note{UserID: "u1", Title: "new", Date: time.Now()})
	_, _ = db.CreateNote(ctx, "u2", models.Note{UserID: "u2", Title: "other"})

	notes, err := db.ListNotes(ctx, "u1")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].Title != "new" {
		t.Errorf("first = %q, want newest first", notes[0].Title)
	}
}

func TestTagRegistry(t *testing.T) {
	db, rec := testDB(t)
	ctx := context.Background()

	tags, err := db.ListTags(ctx, "u1")
	if err != nil || len(tags) != 0 {
		t.Fatalf("empty registry = %v, %v", tags, err)
	}

	if err := db.CreateTag(ctx, "u1", "u1", models.Tag{Name: "Work", Color: "ff0000"}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := db.CreateTag(ctx, "u1", "u1", models.Tag{Name: "work", Color: "00ff00"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := db.EditTagColor(ctx, "u1", "u1", models.Tag{Name: "WORK", Color: "0000ff"}); err != nil {
		t.Fatalf("EditTagColor: %v", err)
	}
	tags, _ = db.ListTags(ctx, "u1")
	if len(tags) != 1 || tags[0].Color != "0000ff" || tags[0].Name != "Work" {
		t.Errorf("registry = %+v", tags)
	}

	if err := db.CreateTag(ctx, "u2", "u1", models.Tag{Name: "x", Color: "000000"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign create err = %v", err)
	}
	if err := db.DeleteTag(ctx, "u1", "u1", models.Tag{Name: "nope"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing delete err = %v", err)
	}
	if err := db.DeleteTag(ctx, "u1", "u1", models.Tag{Name: "work"}); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	tags, _ = db.ListTags(ctx, "u1")
	if len(tags) != 0 {
		t.Errorf("registry after delete = %+v", tags)
	}

	for _, topic := range rec.topics() {
		if topic != TagsTopic("u1") {
			t.Errorf("unexpected topic %q", topic)
		}
	}
}

func TestEditTagColorWithoutRegistry(t *testing.T) {
	db, _ := testDB(t)
	err := db.EditTagColor(context.Background(), "u1", "u1", models.Tag{Name: "x", Color: "000000"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImportRecords(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()

	if _, err := db.GetImport(ctx, "u1", "a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetImport on empty = %v, want ErrNotFound", err)
	}
	if err := db.PutImport(ctx, "u1", ImportRecord{Path: "a.md", NoteID: "n1", Checksum: "c1"}); err != nil {
		t.Fatalf("PutImport: %v", err)
	}
	if err := db.PutImport(ctx, "u1", ImportRecord{Path: "a.md", NoteID: "n1", Checksum: "c2"}); err != nil {
		t.Fatalf("PutImport update: %v", err)
	}
	rec, err := db.GetImport(ctx, "u1", "a.md")
	if err != nil {
		t.Fatalf("GetImport: %v", err)
	}
	if rec.NoteID != "n1" || rec.Checksum != "c2" {
		t.Errorf("rec = %+v", rec)
	}
	if _, err := db.GetImport(ctx, "u2", "a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("records are per user, got %v", err)
	}
}
