package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/debounce"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/remote"
)

// DefaultColorDelay is the quiet period before a color edit is written.
const DefaultColorDelay = 500 * time.Millisecond

// NoteEditor writes note patches with optimistic rollback.
type NoteEditor interface {
	EditNote(ctx context.Context, id string, patch models.NotePatch) error
}

// Engine reconciles note-embedded tags against the registry and owns the
// registry mutations.
type Engine struct {
	ctx        context.Context
	store      *clientstore.Store
	remote     remote.Store
	notes      NoteEditor
	debouncer  *debounce.Keyed
	colorDelay time.Duration
	newColor   func() string
	logger     *slog.Logger

	reconcileMu sync.Mutex

	mu sync.Mutex
	// registry entries as they were before a pending color edit burst.
	colorOrig map[string]models.Tag
}

// NewEngine creates an engine. Debounced color writes run under ctx.
func NewEngine(ctx context.Context, store *clientstore.Store, rs remote.Store, notes NoteEditor, debouncer *debounce.Keyed, colorDelay time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if colorDelay <= 0 {
		colorDelay = DefaultColorDelay
	}
	return &Engine{
		ctx:        ctx,
		store:      store,
		remote:     rs,
		notes:      notes,
		debouncer:  debouncer,
		colorDelay: colorDelay,
		newColor:   RandomColor,
		logger:     logger,
		colorOrig:  make(map[string]models.Tag),
	}
}

// Reconcile derives the displayed notes from the store. Notes that still
// carry the last deleted tag are written back without it, then the signal is
// cleared. Write failures are logged; the affected notes are restored by the
// lifecycle manager.
func (e *Engine) Reconcile(ctx context.Context, opts models.SortOptions) []models.Note {
	e.reconcileMu.Lock()
	defer e.reconcileMu.Unlock()

	st := e.store.State()
	view := Derive(st.Notes, st.Tags, st.LastDeletedTag, opts)

	for _, n := range view.Edits {
		date := n.Date
		if err := e.notes.EditNote(ctx, n.ID, models.NotePatch{Tags: n.Tags, Date: &date}); err != nil {
			e.logger.Warn("tags: dangling tag cleanup failed",
				slog.String("note_id", n.ID),
				slog.String("error", err.Error()))
		}
	}
	if st.LastDeletedTag != nil {
		if err := e.store.Dispatch(clientstore.ClearLastDeletedTag{}); err != nil {
			e.logger.Error("tags: clear deleted tag", slog.String("error", err.Error()))
		}
	}
	return view.Notes
}

// CreateTag adds tag to the registry. An empty color gets a random one.
func (e *Engine) CreateTag(ctx context.Context, tag models.Tag) (models.Tag, error) {
	if e.remote.Identity() == "" {
		return models.Tag{}, apperr.ErrNotAuthenticated
	}
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Color == "" {
		tag.Color = e.newColor()
	}
	tag.Color = strings.ToLower(tag.Color)
	if err := tag.Validate(); err != nil {
		return models.Tag{}, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}

	snapshot := e.store.Tags()
	if _, ok := models.FindTag(snapshot, tag.Name); ok {
		return models.Tag{}, fmt.Errorf("tag %q: %w", tag.Name, apperr.ErrAlreadyExists)
	}
	if err := e.store.Dispatch(clientstore.AddTagOptimistic{Tag: tag}); err != nil {
		return models.Tag{}, err
	}
	if err := e.remote.CreateTag(ctx, tag); err != nil {
		e.revert(snapshot, "create", tag.Name, err)
		return models.Tag{}, apperr.RemoteWrite(err)
	}
	return tag, nil
}

// DeleteTag removes the registry tag named name and strips it from every
// note that still embeds it.
func (e *Engine) DeleteTag(ctx context.Context, name string) error {
	if e.remote.Identity() == "" {
		return apperr.ErrNotAuthenticated
	}
	snapshot := e.store.Tags()
	tag, ok := models.FindTag(snapshot, name)
	if !ok {
		return fmt.Errorf("tag %q: %w", name, apperr.ErrNotFound)
	}

	e.debouncer.Cancel(colorKey(tag.Name))
	e.mu.Lock()
	delete(e.colorOrig, models.NormalizeTagName(tag.Name))
	e.mu.Unlock()

	if err := e.store.Dispatch(clientstore.RemoveTagOptimistic{Name: tag.Name}); err != nil {
		return err
	}
	if err := e.remote.DeleteTag(ctx, tag); err != nil {
		e.revert(snapshot, "delete", tag.Name, err)
		return apperr.RemoteWrite(err)
	}
	if err := e.store.Dispatch(clientstore.SetLastDeletedTag{Tag: tag}); err != nil {
		return err
	}
	e.Reconcile(ctx, models.SortOptions{Mode: models.SortByDate, Descending: true})
	return nil
}

// EditTagColor recolors a registry tag. The registry copy changes at once so
// the projected note colors follow; the registry write and the propagation
// into notes run once the tag has been quiet for the color delay.
func (e *Engine) EditTagColor(ctx context.Context, tag models.Tag) error {
	if e.remote.Identity() == "" {
		return apperr.ErrNotAuthenticated
	}
	tag.Color = strings.ToLower(tag.Color)
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	current, ok := models.FindTag(e.store.Tags(), tag.Name)
	if !ok {
		return fmt.Errorf("tag %q: %w", tag.Name, apperr.ErrNotFound)
	}
	tag.Name = current.Name

	key := models.NormalizeTagName(tag.Name)
	e.mu.Lock()
	if _, pending := e.colorOrig[key]; !pending {
		e.colorOrig[key] = current
	}
	e.mu.Unlock()

	if err := e.store.Dispatch(clientstore.EditTagColorOptimistic{Tag: tag}); err != nil {
		return err
	}
	e.debouncer.Schedule(colorKey(tag.Name), e.colorDelay, func() {
		e.commitColor(tag)
	})
	return nil
}

// FlushColor runs a pending color write for name immediately.
func (e *Engine) FlushColor(name string) bool {
	return e.debouncer.Flush(colorKey(name))
}

func (e *Engine) commitColor(tag models.Tag) {
	key := models.NormalizeTagName(tag.Name)
	e.mu.Lock()
	orig, ok := e.colorOrig[key]
	delete(e.colorOrig, key)
	e.mu.Unlock()

	if err := e.remote.EditTagColor(e.ctx, tag); err != nil {
		e.logger.Warn("tags: color write failed, reverting",
			slog.String("tag", tag.Name),
			slog.String("error", err.Error()))
		if ok {
			if err := e.store.Dispatch(clientstore.EditTagColorOptimistic{Tag: orig}); err != nil {
				e.logger.Error("tags: revert color", slog.String("error", err.Error()))
			}
		}
		return
	}
	if err := e.PropagateColor(e.ctx, tag); err != nil {
		e.logger.Warn("tags: color propagation incomplete",
			slog.String("tag", tag.Name),
			slog.String("error", err.Error()))
	}
}

// PropagateColor writes tag's color into every note embedding a differently
// colored tag of the same name. Each affected note is edited with its full
// title, content and tags.
func (e *Engine) PropagateColor(ctx context.Context, tag models.Tag) error {
	var errs []error
	for _, n := range e.store.Notes() {
		if n.TransientCreating {
			continue
		}
		tags := models.CloneTags(n.Tags)
		changed := false
		for i, t := range tags {
			if models.SameTagName(t.Name, tag.Name) && t.Color != tag.Color {
				tags[i].Color = tag.Color
				changed = true
			}
		}
		if !changed {
			continue
		}
		title, content, date := n.Title, n.Content, n.Date
		patch := models.NotePatch{Title: &title, Content: &content, Tags: tags, Date: &date}
		if err := e.notes.EditNote(ctx, n.ID, patch); err != nil {
			errs = append(errs, fmt.Errorf("note %s: %w", n.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) revert(snapshot []models.Tag, op, name string, cause error) {
	e.logger.Warn("tags: registry write failed, reverting",
		slog.String("op", op),
		slog.String("tag", name),
		slog.String("error", cause.Error()))
	if err := e.store.Dispatch(clientstore.SetTags{Tags: snapshot}); err != nil {
		e.logger.Error("tags: revert failed", slog.String("error", err.Error()))
	}
}

func colorKey(name string) string {
	return "tag-color:" + models.NormalizeTagName(name)
}
