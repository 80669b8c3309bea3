// Package inbox imports markdown files dropped into a directory as notes of
// one user. Each file maps to one note; rewriting the file updates it.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/checksum"
	"github.com/starford/noteflow/internal/debounce"
	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/parser"
	"github.com/starford/noteflow/internal/storage"
)

// RejectedDir receives files whose content cannot become a note.
const RejectedDir = "rejected"

// DefaultSettle is how long a file must be quiet before it is imported.
const DefaultSettle = 300 * time.Millisecond

// Target turns parsed documents into notes.
type Target interface {
	ImportNote(ctx context.Context, doc *parser.Document) (string, error)
	UpdateImported(ctx context.Context, noteID string, doc *parser.Document) error
}

// Ledger remembers which note each file became and at which checksum.
type Ledger interface {
	GetImport(ctx context.Context, userID, path string) (docstore.ImportRecord, error)
	PutImport(ctx context.Context, userID string, rec docstore.ImportRecord) error
}

// Inbox watches one directory on behalf of one user.
type Inbox struct {
	dir       *storage.FS
	ledger    Ledger
	target    Target
	user      string
	debouncer *debounce.Keyed
	settle    time.Duration
	logger    *slog.Logger

	mu sync.Mutex
}

// New creates an inbox over dir importing into target as user.
func New(dir *storage.FS, ledger Ledger, target Target, user string, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		dir:       dir,
		ledger:    ledger,
		target:    target,
		user:      user,
		debouncer: debounce.New(),
		settle:    DefaultSettle,
		logger:    logger.With(slog.String("component", "inbox")),
	}
}

// Result describes what Process did with a file.
type Result string

const (
	Created   Result = "created"
	Updated   Result = "updated"
	Unchanged Result = "unchanged"
	Rejected  Result = "rejected"
)

// Sync imports every markdown file that is new or changed since its last
// import.
func (in *Inbox) Sync(ctx context.Context) error {
	files, err := in.dir.List("", ".md")
	if err != nil {
		return err
	}
	for _, f := range files {
		if skipped(f.Path) {
			continue
		}
		if _, err := in.Process(ctx, f.Path); err != nil {
			in.logger.Warn("sync: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Process imports the file at rel (relative to the inbox root).
func (in *Inbox) Process(ctx context.Context, rel string) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	rel = filepath.ToSlash(rel)
	data, err := in.dir.Read(rel)
	if err != nil {
		return "", err
	}
	sum := checksum.Sum(data)

	rec, err := in.ledger.GetImport(ctx, in.user, rel)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		rec = docstore.ImportRecord{Path: rel}
	case err != nil:
		return "", err
	case rec.Checksum == sum:
		return Unchanged, nil
	}

	doc, err := parser.Parse(data)
	if err != nil {
		return in.reject(rel, err)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(path.Base(rel), ".md")
	}

	result := Updated
	if rec.NoteID != "" {
		err = in.target.UpdateImported(ctx, rec.NoteID, doc)
		if errors.Is(err, apperr.ErrNotFound) {
			// The note was deleted since the last import; start over.
			rec.NoteID = ""
		}
	}
	if rec.NoteID == "" {
		result = Created
		rec.NoteID, err = in.target.ImportNote(ctx, doc)
	}
	if errors.Is(err, apperr.ErrInvalidPayload) {
		return in.reject(rel, err)
	}
	if err != nil {
		return "", fmt.Errorf("inbox: import %s: %w", rel, err)
	}

	rec.Checksum = sum
	if err := in.ledger.PutImport(ctx, in.user, rec); err != nil {
		return "", err
	}
	in.logger.Info("file imported",
		slog.String("path", rel),
		slog.String("note_id", rec.NoteID),
		slog.String("result", string(result)))
	return result, nil
}

func (in *Inbox) reject(rel string, cause error) (Result, error) {
	dest := path.Join(RejectedDir, rel)
	if err := in.dir.Move(rel, dest); err != nil {
		return "", fmt.Errorf("inbox: reject %s: %w", rel, err)
	}
	in.logger.Warn("file rejected", slog.String("path", rel), slog.String("error", cause.Error()))
	return Rejected, nil
}

func skipped(rel string) bool {
	rel = filepath.ToSlash(rel)
	return rel == RejectedDir || strings.HasPrefix(rel, RejectedDir+"/")
}

// Watch imports files as they are written until ctx is cancelled. Each file
// is processed once it has been quiet for the settle period.
func (in *Inbox) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	defer in.debouncer.Stop()

	root := in.dir.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	in.logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || skipped(rel) || strings.HasPrefix(filepath.Base(rel), ".") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := in.dir.Stat(rel); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						in.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
					// Files may have landed before the watch was added.
					if syncErr := in.Sync(ctx); syncErr != nil {
						in.logger.Warn("watcher: sync failed", slog.String("error", syncErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(rel, ".md") {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				in.debouncer.Schedule(rel, in.settle, func() {
					if _, err := in.Process(ctx, rel); err != nil {
						in.logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
					}
				})
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				in.debouncer.Cancel(rel)
				in.logger.Debug("watcher: file gone, note kept", slog.String("path", rel))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and its subdirectories, skipping hidden and
// rejected directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == RejectedDir) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
