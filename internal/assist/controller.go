// Package assist drives AI generation for the active note: the status
// machine, result placement and the sandbox history.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/noteflow/internal/ai"
	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/models"
)

// DefaultFinishedReset is how long the finished status is shown before
// returning to idle.
const DefaultFinishedReset = 1500 * time.Millisecond

// Content is the owner of the live note content.
type Content interface {
	Content() string
	SetContent(content string)
}

// Controller runs generations against the store's current mode and content.
// Overlapping generations are not serialized; the last result to arrive wins.
type Controller struct {
	store      *clientstore.Store
	gen        ai.Generator
	editor     Content
	resetDelay time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	resetTimer *time.Timer
	lastResult string
}

// New creates a controller.
func New(store *clientstore.Store, gen ai.Generator, editor Content, resetDelay time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if resetDelay <= 0 {
		resetDelay = DefaultFinishedReset
	}
	return &Controller{
		store:      store,
		gen:        gen,
		editor:     editor,
		resetDelay: resetDelay,
		logger:     logger,
	}
}

// Generate runs one generation in the current mode.
func (c *Controller) Generate(ctx context.Context) (string, error) {
	return c.generate(ctx, false)
}

// TryAgain regenerates, showing the model its previous output.
func (c *Controller) TryAgain(ctx context.Context) (string, error) {
	return c.generate(ctx, true)
}

func (c *Controller) generate(ctx context.Context, tryAgain bool) (string, error) {
	mode := c.store.AIMode()
	content := c.editor.Content()
	sandbox := c.store.Sandbox()

	previous := ""
	switch {
	case mode.TargetsSandbox():
		previous = sandbox.Content
	case tryAgain:
		c.mu.Lock()
		previous = c.lastResult
		c.mu.Unlock()
	}

	c.stopReset()
	c.setStatus(models.AIGenerating)

	result, err := c.gen.Generate(ctx, ai.BuildPrompt(mode, content, previous, tryAgain))
	if err != nil {
		c.setStatus(models.AIError)
		c.logger.Warn("assist: generation failed", slog.String("mode", string(mode)), slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", apperr.ErrEmptyAIResponse, err)
	}
	if result == "" {
		c.setStatus(models.AIError)
		c.logger.Warn("assist: empty generation", slog.String("mode", string(mode)))
		return "", apperr.ErrEmptyAIResponse
	}

	switch mode {
	case models.ModeSummarizeSandbox, models.ModeStructureSandbox:
		if err := c.store.Dispatch(clientstore.AppendSandboxHistory{Content: result}); err != nil {
			return "", err
		}
		if err := c.store.Dispatch(clientstore.ShowSandbox{Visible: true}); err != nil {
			return "", err
		}
	case models.ModeSummarizeInsertStart:
		c.editor.SetContent(result + "\n\n" + content)
	case models.ModeSummarizeInsertBottom:
		c.editor.SetContent(content + "\n\n" + result)
	default:
		c.editor.SetContent(result)
	}

	c.mu.Lock()
	c.lastResult = result
	c.mu.Unlock()

	c.setStatus(models.AIFinished)
	c.scheduleReset()
	return result, nil
}

func (c *Controller) setStatus(s models.AIStatus) {
	if err := c.store.Dispatch(clientstore.SetAIStatus{Status: s}); err != nil {
		c.logger.Error("assist: set status", slog.String("error", err.Error()))
	}
}

func (c *Controller) scheduleReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = time.AfterFunc(c.resetDelay, func() {
		if c.store.AIStatus() == models.AIFinished {
			c.setStatus(models.AIIdle)
		}
	})
}

func (c *Controller) stopReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

// Status returns the current AI status.
func (c *Controller) Status() models.AIStatus { return c.store.AIStatus() }

// SetMode selects the generation mode.
func (c *Controller) SetMode(mode models.GenerationMode) error {
	return c.store.Dispatch(clientstore.SetAIMode{Mode: mode})
}

// OpenSandbox starts a new sandbox session seeded with content, discarding
// any previous history.
func (c *Controller) OpenSandbox(content string) error {
	return c.store.Dispatch(clientstore.ResetSandbox{Content: content})
}

// CloseSandbox hides the sandbox panel; history is kept.
func (c *Controller) CloseSandbox() error {
	return c.store.Dispatch(clientstore.ShowSandbox{Visible: false})
}

// EditSandbox replaces the history entry under the cursor.
func (c *Controller) EditSandbox(content string) error {
	sb := c.store.Sandbox()
	if len(sb.History) == 0 {
		return c.OpenSandbox(content)
	}
	return c.store.Dispatch(clientstore.SetSandboxHistoryAtIndex{Index: sb.Cursor, Content: content})
}

// CanUndo reports whether the cursor can move back.
func (c *Controller) CanUndo() bool {
	return c.store.Sandbox().Cursor > 0
}

// CanRedo reports whether the cursor can move forward.
func (c *Controller) CanRedo() bool {
	sb := c.store.Sandbox()
	return sb.Cursor < len(sb.History)-1
}

// Undo moves the cursor one entry back. It is a no-op at the first entry.
func (c *Controller) Undo() bool {
	sb := c.store.Sandbox()
	if sb.Cursor <= 0 {
		return false
	}
	return c.store.Dispatch(clientstore.SetSandboxCursor{Index: sb.Cursor - 1}) == nil
}

// Redo moves the cursor one entry forward. It is a no-op at the last entry.
func (c *Controller) Redo() bool {
	sb := c.store.Sandbox()
	if sb.Cursor >= len(sb.History)-1 {
		return false
	}
	return c.store.Dispatch(clientstore.SetSandboxCursor{Index: sb.Cursor + 1}) == nil
}

// Transfer raises the one-shot transfer signal carrying the entry under the
// cursor. The note-editing session applies it.
func (c *Controller) Transfer() (string, error) {
	sb := c.store.Sandbox()
	if len(sb.History) == 0 {
		return "", fmt.Errorf("sandbox is empty: %w", apperr.ErrNotFound)
	}
	content := sb.History[sb.Cursor]
	if err := c.store.Dispatch(clientstore.SetTransfer{Active: true, Content: content}); err != nil {
		return "", err
	}
	return content, nil
}

// Close stops the pending status reset.
func (c *Controller) Close() {
	c.stopReset()
}
