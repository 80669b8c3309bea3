package clientstore

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noteflow/internal/models"
)

// Action is a named, self-validating state transition request.
type Action interface {
	ActionName() string
	Validate() error
}

// stateValidator is implemented by actions whose payload can only be checked
// against the current state.
type stateValidator interface {
	ValidateAgainst(State) error
}

// Notes slice.

type SetNotes struct{ Notes []models.Note }

func (SetNotes) ActionName() string { return "setNotes" }
func (a SetNotes) Validate() error {
	return validation.Validate(a.Notes, validation.NotNil)
}

type AddNoteOptimistic struct{ Note models.Note }

func (AddNoteOptimistic) ActionName() string { return "addNoteOptimistic" }
func (a AddNoteOptimistic) Validate() error  { return a.Note.Validate() }

// ReconcileCreatedNote swaps a placeholder id for the server-assigned one.
type ReconcileCreatedNote struct {
	TempID string
	ID     string
}

func (ReconcileCreatedNote) ActionName() string { return "reconcileCreatedNote" }
func (a ReconcileCreatedNote) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.TempID, validation.Required),
		validation.Field(&a.ID, validation.Required),
	)
}

type EditNoteOptimistic struct {
	ID    string
	Patch models.NotePatch
}

func (EditNoteOptimistic) ActionName() string { return "editNoteOptimistic" }
func (a EditNoteOptimistic) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ID, validation.Required),
		validation.Field(&a.Patch),
	)
}

// MarkNoteDeleting flags a note while its remote delete is in flight.
type MarkNoteDeleting struct{ ID string }

func (MarkNoteDeleting) ActionName() string { return "markNoteDeleting" }
func (a MarkNoteDeleting) Validate() error {
	return validation.Validate(a.ID, validation.Required)
}

type RemoveNoteOptimistic struct{ ID string }

func (RemoveNoteOptimistic) ActionName() string { return "removeNoteOptimistic" }
func (a RemoveNoteOptimistic) Validate() error {
	return validation.Validate(a.ID, validation.Required)
}

type SetActiveNote struct{ ID string }

func (SetActiveNote) ActionName() string { return "setActiveNote" }
func (SetActiveNote) Validate() error    { return nil }

type SetLoadingNotes struct{ Loading bool }

func (SetLoadingNotes) ActionName() string { return "setLoadingNotes" }
func (SetLoadingNotes) Validate() error    { return nil }

// Tag registry slice.

type SetTags struct{ Tags []models.Tag }

func (SetTags) ActionName() string { return "setTags" }
func (a SetTags) Validate() error {
	return validation.Validate(a.Tags, validation.NotNil)
}

type AddTagOptimistic struct{ Tag models.Tag }

func (AddTagOptimistic) ActionName() string { return "addTagOptimistic" }
func (a AddTagOptimistic) Validate() error  { return a.Tag.Validate() }

type RemoveTagOptimistic struct{ Name string }

func (RemoveTagOptimistic) ActionName() string { return "removeTagOptimistic" }
func (a RemoveTagOptimistic) Validate() error {
	return validation.Validate(a.Name, validation.Required)
}

type EditTagColorOptimistic struct{ Tag models.Tag }

func (EditTagColorOptimistic) ActionName() string { return "editTagColorOptimistic" }
func (a EditTagColorOptimistic) Validate() error  { return a.Tag.Validate() }

type SetLoadingTags struct{ Loading bool }

func (SetLoadingTags) ActionName() string { return "setLoadingTags" }
func (SetLoadingTags) Validate() error    { return nil }

// SetLastDeletedTag records the registry tag removed most recently so the
// reconciler can strip it from notes once.
type SetLastDeletedTag struct{ Tag models.Tag }

func (SetLastDeletedTag) ActionName() string { return "setLastDeletedTag" }
func (a SetLastDeletedTag) Validate() error {
	return validation.Validate(a.Tag.Name, validation.Required)
}

type ClearLastDeletedTag struct{}

func (ClearLastDeletedTag) ActionName() string { return "clearLastDeletedTag" }
func (ClearLastDeletedTag) Validate() error    { return nil }

// AI slice.

type SetAIStatus struct{ Status models.AIStatus }

func (SetAIStatus) ActionName() string { return "setAiStatus" }
func (a SetAIStatus) Validate() error {
	return validation.Validate(a.Status, validation.Required,
		validation.In(models.AIIdle, models.AIGenerating, models.AIFinished, models.AIError))
}

type SetAIMode struct{ Mode models.GenerationMode }

func (SetAIMode) ActionName() string { return "setAiMode" }
func (a SetAIMode) Validate() error {
	if !a.Mode.Valid() {
		return fmt.Errorf("unknown generation mode %q", a.Mode)
	}
	return nil
}

type SetContentSaveStatus struct{ Status models.SaveStatus }

func (SetContentSaveStatus) ActionName() string { return "setContentSaveStatus" }
func (a SetContentSaveStatus) Validate() error {
	return validation.Validate(a.Status, validation.Required,
		validation.In(models.SaveIdle, models.SaveSaving, models.SaveSaved, models.SaveError))
}

// Sandbox slice.

type SetSandboxContent struct{ Content string }

func (SetSandboxContent) ActionName() string { return "setSandboxContent" }
func (SetSandboxContent) Validate() error    { return nil }

// AppendSandboxHistory adds an entry and moves the cursor onto it.
type AppendSandboxHistory struct{ Content string }

func (AppendSandboxHistory) ActionName() string { return "appendSandboxHistory" }
func (AppendSandboxHistory) Validate() error    { return nil }

type SetSandboxHistoryAtIndex struct {
	Index   int
	Content string
}

func (SetSandboxHistoryAtIndex) ActionName() string { return "setSandboxHistoryAtIndex" }
func (a SetSandboxHistoryAtIndex) Validate() error {
	return validation.Validate(a.Index, validation.Min(0))
}
func (a SetSandboxHistoryAtIndex) ValidateAgainst(s State) error {
	if a.Index >= len(s.Sandbox.History) {
		return fmt.Errorf("index %d out of range [0,%d)", a.Index, len(s.Sandbox.History))
	}
	return nil
}

type SetSandboxCursor struct{ Index int }

func (SetSandboxCursor) ActionName() string { return "setSandboxCursor" }
func (a SetSandboxCursor) Validate() error {
	return validation.Validate(a.Index, validation.Min(0))
}
func (a SetSandboxCursor) ValidateAgainst(s State) error {
	if a.Index >= len(s.Sandbox.History) {
		return fmt.Errorf("cursor %d out of range [0,%d)", a.Index, len(s.Sandbox.History))
	}
	return nil
}

type ShowSandbox struct{ Visible bool }

func (ShowSandbox) ActionName() string { return "showSandbox" }
func (ShowSandbox) Validate() error    { return nil }

// ResetSandbox starts a new sandbox session seeded with Content.
type ResetSandbox struct{ Content string }

func (ResetSandbox) ActionName() string { return "resetSandbox" }
func (ResetSandbox) Validate() error    { return nil }

type SetTransfer struct {
	Active  bool
	Content string
}

func (SetTransfer) ActionName() string { return "setTransfer" }
func (SetTransfer) Validate() error    { return nil }
