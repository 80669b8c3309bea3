// Package workspace composes the per-user client state: one store, the note
// lifecycle manager, the tag engine, the editor session and the AI
// controller, kept current by live subscriptions to the remote store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/noteflow/internal/ai"
	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/assist"
	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/debounce"
	"github.com/starford/noteflow/internal/editor"
	"github.com/starford/noteflow/internal/export"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/notes"
	"github.com/starford/noteflow/internal/parser"
	"github.com/starford/noteflow/internal/remote"
	"github.com/starford/noteflow/internal/tags"
)

// Timing holds the quiet periods of the debounced behaviours.
type Timing struct {
	ContentSaveDelay time.Duration
	TagColorDelay    time.Duration
	FinishedReset    time.Duration
	// ReadyTimeout bounds how long Open waits for the first snapshots.
	ReadyTimeout time.Duration
}

// DefaultTiming returns the production delays.
func DefaultTiming() Timing {
	return Timing{
		ContentSaveDelay: editor.DefaultSaveDelay,
		TagColorDelay:    tags.DefaultColorDelay,
		FinishedReset:    assist.DefaultFinishedReset,
		ReadyTimeout:     5 * time.Second,
	}
}

// Workspace is the client state of one user.
type Workspace struct {
	User string

	Store  *clientstore.Store
	Remote remote.Store
	Notes  *notes.Manager
	Tags   *tags.Engine
	Editor *editor.Session
	Assist *assist.Controller

	exporter  *export.Exporter
	debouncer *debounce.Keyed
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []func()

	closeOnce sync.Once
}

// Open builds a workspace for the identity bound to rs and starts the note
// and tag subscriptions. It returns once both have delivered a snapshot.
// Background work runs under ctx until Close.
func Open(ctx context.Context, rs remote.Store, gen ai.Generator, exporter *export.Exporter, timing Timing, logger *slog.Logger) (*Workspace, error) {
	user := rs.Identity()
	if user == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("user_id", user))

	ctx, cancel := context.WithCancel(ctx)
	store := clientstore.New(logger)
	deb := debounce.New()
	mgr := notes.NewManager(store, rs, logger)
	ed := editor.New(ctx, store, mgr, deb, timing.ContentSaveDelay, logger)

	w := &Workspace{
		User:      user,
		Store:     store,
		Remote:    rs,
		Notes:     mgr,
		Tags:      tags.NewEngine(ctx, store, rs, mgr, deb, timing.TagColorDelay, logger),
		Editor:    ed,
		Assist:    assist.New(store, gen, ed, timing.FinishedReset, logger),
		exporter:  exporter,
		debouncer: deb,
		logger:    logger,
		cancel:    cancel,
	}

	notesReady, tagsReady := make(chan struct{}), make(chan struct{})
	if err := w.pumpNotes(ctx, notesReady); err != nil {
		w.Close(context.Background())
		return nil, err
	}
	if err := w.pumpTags(ctx, tagsReady); err != nil {
		w.Close(context.Background())
		return nil, err
	}

	wait := timing.ReadyTimeout
	if wait <= 0 {
		wait = DefaultTiming().ReadyTimeout
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for _, ready := range []chan struct{}{notesReady, tagsReady} {
		select {
		case <-ready:
		case <-timer.C:
			logger.Warn("workspace: initial snapshot timed out")
			return w, nil
		case <-ctx.Done():
			w.Close(context.Background())
			return nil, ctx.Err()
		}
	}
	logger.Info("workspace opened",
		slog.Int("notes", len(store.Notes())),
		slog.Int("tags", len(store.Tags())))
	return w, nil
}

func (w *Workspace) pumpNotes(ctx context.Context, ready chan struct{}) error {
	sub, err := w.Remote.SubscribeNotes(ctx, w.User)
	if err != nil {
		return fmt.Errorf("workspace: subscribe notes: %w", err)
	}
	w.subs = append(w.subs, sub.Unsubscribe)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		first := true
		for list := range sub.C {
			w.dispatch(clientstore.SetNotes{Notes: list})
			if first {
				w.dispatch(clientstore.SetLoadingNotes{Loading: false})
				close(ready)
				first = false
			}
		}
	}()
	return nil
}

func (w *Workspace) pumpTags(ctx context.Context, ready chan struct{}) error {
	sub, err := w.Remote.SubscribeUserTags(ctx, w.User)
	if err != nil {
		return fmt.Errorf("workspace: subscribe tags: %w", err)
	}
	w.subs = append(w.subs, sub.Unsubscribe)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		first := true
		for list := range sub.C {
			w.dispatch(clientstore.SetTags{Tags: list})
			if first {
				w.dispatch(clientstore.SetLoadingTags{Loading: false})
				close(ready)
				first = false
			}
		}
	}()
	return nil
}

func (w *Workspace) dispatch(a clientstore.Action) {
	if err := w.Store.Dispatch(a); err != nil {
		w.logger.Error("workspace: push rejected",
			slog.String("action", a.ActionName()),
			slog.String("error", err.Error()))
	}
}

// Close flushes the pending content save, stops the subscriptions and
// cancels every debounced write.
func (w *Workspace) Close(ctx context.Context) error {
	var err error
	w.closeOnce.Do(func() {
		if w.Editor.Dirty() {
			err = w.Editor.Flush(ctx)
		}
		w.Editor.Close()
		w.Assist.Close()
		w.debouncer.Stop()
		for _, unsubscribe := range w.subs {
			unsubscribe()
		}
		w.cancel()
		w.wg.Wait()
	})
	return err
}

// ListNotes returns the reconciled, ordered note view.
func (w *Workspace) ListNotes(ctx context.Context, opts models.SortOptions) ([]models.Note, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	return w.Tags.Reconcile(ctx, opts), nil
}

// Note returns a note from the store with registry colors projected.
func (w *Workspace) Note(id string) (models.Note, error) {
	n, ok := w.Store.Note(id)
	if !ok {
		return models.Note{}, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	return tags.ColorMatch([]models.Note{n}, w.Store.Tags())[0], nil
}

// resolveTags turns typed names into tags the way the tag dialog does,
// registering the ones the registry lacks.
func (w *Workspace) resolveTags(ctx context.Context, initial []models.Tag, names []string) ([]models.Tag, error) {
	session := w.Tags.NewSession(initial)
	for _, name := range names {
		if _, err := session.Add(name); err != nil {
			return nil, err
		}
	}
	return session.Submit(ctx)
}

// CreateNote creates a note tagged with names and selects it.
func (w *Workspace) CreateNote(ctx context.Context, title string, names []string) (models.Note, error) {
	tagList, err := w.resolveTags(ctx, nil, names)
	if err != nil {
		return models.Note{}, err
	}
	n, err := w.Notes.CreateNote(ctx, title, tagList)
	if err != nil {
		return models.Note{}, err
	}
	w.Editor.Load(n)
	return n, nil
}

// Update describes an edit from the note form. Nil fields are unchanged;
// a non-nil Tags replaces the note's tag set.
type Update struct {
	Title   *string
	Content *string
	Tags    []string
}

// UpdateNote applies u to note id.
func (w *Workspace) UpdateNote(ctx context.Context, id string, u Update) (models.Note, error) {
	current, ok := w.Store.Note(id)
	if !ok {
		return models.Note{}, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	patch := models.NotePatch{Title: u.Title, Content: u.Content}
	if u.Tags != nil {
		tagList, err := w.resolveTags(ctx, nil, u.Tags)
		if err != nil {
			return models.Note{}, err
		}
		patch.Tags = tagList
	}
	if patch.Empty() {
		return current, nil
	}
	if err := w.Notes.EditNote(ctx, id, patch); err != nil {
		return models.Note{}, err
	}
	if u.Content != nil && w.Editor.NoteID() == id {
		updated, _ := w.Store.Note(id)
		w.Editor.Load(updated)
	}
	return w.Note(id)
}

// DeleteNote deletes note id. The editor drops it if it was loaded.
func (w *Workspace) DeleteNote(ctx context.Context, id string) error {
	w.Editor.Unload(id)
	return w.Notes.DeleteNote(ctx, id)
}

// OpenNote selects note id and loads it into the editor.
func (w *Workspace) OpenNote(id string) (models.Note, error) {
	if err := w.Notes.SelectNote(id); err != nil {
		return models.Note{}, err
	}
	n, _ := w.Store.Note(id)
	if w.Editor.NoteID() != id {
		w.Editor.Load(n)
	}
	return n, nil
}

// SetDraft replaces the live content of note id. The save follows after
// the quiet period.
func (w *Workspace) SetDraft(id, content string) error {
	if _, err := w.OpenNote(id); err != nil {
		return err
	}
	w.Editor.SetContent(content)
	return nil
}

// FlushDraft writes the pending content of note id now.
func (w *Workspace) FlushDraft(ctx context.Context, id string) error {
	if w.Editor.NoteID() != id {
		return fmt.Errorf("note %s is not open: %w", id, apperr.ErrNotFound)
	}
	return w.Editor.Flush(ctx)
}

// SuggestedTags returns registry tags not yet on note id.
func (w *Workspace) SuggestedTags(id string) ([]models.Tag, error) {
	n, ok := w.Store.Note(id)
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	return w.Tags.NewSession(n.Tags).Suggested(), nil
}

// Export renders note id in format f and returns the bytes with the
// sanitized download name.
func (w *Workspace) Export(id string, f export.Format) ([]byte, string, error) {
	n, err := w.Note(id)
	if err != nil {
		return nil, "", err
	}
	data, err := export.Render(n, f)
	if err != nil {
		return nil, "", err
	}
	return data, export.Filename(n.Title, f), nil
}

// SaveExport writes note id into the export directory.
func (w *Workspace) SaveExport(id string, f export.Format) (string, error) {
	if w.exporter == nil {
		return "", errors.New("workspace: no export directory configured")
	}
	n, err := w.Note(id)
	if err != nil {
		return "", err
	}
	return w.exporter.Save(n, f)
}

// AIState is the snapshot of the AI panel.
type AIState struct {
	Status      models.AIStatus       `json:"status"`
	Mode        models.GenerationMode `json:"mode"`
	Sandbox     clientstore.Sandbox   `json:"sandbox"`
	CanUndo     bool                  `json:"canUndo"`
	CanRedo     bool                  `json:"canRedo"`
	ContentSave models.SaveStatus     `json:"contentSave"`
	ActiveNote  string                `json:"activeNoteId,omitempty"`
}

// AI returns the current AI panel state.
func (w *Workspace) AI() AIState {
	st := w.Store.State()
	return AIState{
		Status:      st.AIStatus,
		Mode:        st.AIMode,
		Sandbox:     st.Sandbox,
		CanUndo:     w.Assist.CanUndo(),
		CanRedo:     w.Assist.CanRedo(),
		ContentSave: st.ContentSave,
		ActiveNote:  st.ActiveNoteID,
	}
}

// Generate runs the selected mode against the open note.
func (w *Workspace) Generate(ctx context.Context, tryAgain bool) (string, error) {
	if w.Editor.NoteID() == "" {
		return "", fmt.Errorf("no note open: %w", apperr.ErrNotFound)
	}
	if tryAgain {
		return w.Assist.TryAgain(ctx)
	}
	return w.Assist.Generate(ctx)
}

// Transfer moves the sandbox entry under the cursor into the open note.
func (w *Workspace) Transfer() (string, error) {
	if w.Editor.NoteID() == "" {
		return "", fmt.Errorf("no note open: %w", apperr.ErrNotFound)
	}
	content, err := w.Assist.Transfer()
	if err != nil {
		return "", err
	}
	w.Editor.ApplyTransfer()
	return content, nil
}

// ImportNote creates a note from an imported document. Frontmatter colors
// are used for tags the registry does not know yet.
func (w *Workspace) ImportNote(ctx context.Context, doc *parser.Document) (string, error) {
	tagList, err := w.importTags(ctx, doc.Tags)
	if err != nil {
		return "", err
	}
	n, err := w.Notes.CreateNote(ctx, doc.Title, tagList)
	if err != nil {
		return "", err
	}
	if err := w.Notes.EditNote(ctx, n.ID, importPatch(doc, n.Date)); err != nil {
		return n.ID, err
	}
	return n.ID, nil
}

// UpdateImported overwrites note id with a changed document.
func (w *Workspace) UpdateImported(ctx context.Context, id string, doc *parser.Document) error {
	current, ok := w.Store.Note(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	tagList, err := w.importTags(ctx, doc.Tags)
	if err != nil {
		return err
	}
	patch := importPatch(doc, current.Date)
	title := doc.Title
	patch.Title = &title
	patch.Tags = tagList
	return w.Notes.EditNote(ctx, id, patch)
}

func importPatch(doc *parser.Document, fallback time.Time) models.NotePatch {
	body := doc.Body
	date := doc.Date
	if date.IsZero() {
		date = fallback
	}
	return models.NotePatch{Content: &body, Date: &date}
}

func (w *Workspace) importTags(ctx context.Context, docTags []models.Tag) ([]models.Tag, error) {
	registry := w.Store.Tags()
	out := make([]models.Tag, 0, len(docTags))
	for _, t := range docTags {
		fresh := tags.RandomColor
		if t.Color != "" {
			color := strings.ToLower(t.Color)
			fresh = func() string { return color }
		}
		tag, existed := tags.ResolveTyped(t.Name, registry, fresh)
		if err := tag.Validate(); err != nil {
			return nil, fmt.Errorf("%w: tag %q: %v", apperr.ErrInvalidPayload, t.Name, err)
		}
		if !existed {
			if _, err := w.Tags.CreateTag(ctx, tag); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
				return nil, err
			}
		}
		out = append(out, tag)
	}
	return out, nil
}
