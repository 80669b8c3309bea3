package clientstore

import (
	"github.com/starford/noteflow/internal/models"
)

// Reduce returns the state that results from applying a to s. It never
// mutates s and performs no I/O. Unknown actions leave the state unchanged.
func Reduce(s State, a Action) State {
	next := s.Clone()

	switch a := a.(type) {
	case SetNotes:
		next.Notes = models.CloneNotes(a.Notes)

	case AddNoteOptimistic:
		next.Notes = append([]models.Note{a.Note.Clone()}, next.Notes...)

	case ReconcileCreatedNote:
		if i := next.noteIndex(a.TempID); i >= 0 {
			if next.noteIndex(a.ID) >= 0 {
				// A subscription push already delivered the confirmed note.
				next.Notes = append(next.Notes[:i], next.Notes[i+1:]...)
			} else {
				next.Notes[i].ID = a.ID
				next.Notes[i].TransientCreating = false
			}
		}
		next.ActiveNoteID = a.ID

	case EditNoteOptimistic:
		if i := next.noteIndex(a.ID); i >= 0 {
			next.Notes[i] = a.Patch.Apply(next.Notes[i])
		}

	case MarkNoteDeleting:
		if i := next.noteIndex(a.ID); i >= 0 {
			next.Notes[i].TransientDeleting = true
		}

	case RemoveNoteOptimistic:
		if i := next.noteIndex(a.ID); i >= 0 {
			next.Notes = append(next.Notes[:i], next.Notes[i+1:]...)
		}
		if next.ActiveNoteID == a.ID {
			next.ActiveNoteID = ""
		}

	case SetActiveNote:
		next.ActiveNoteID = a.ID

	case SetLoadingNotes:
		next.LoadingNotes = a.Loading

	case SetTags:
		next.Tags = SortTags(a.Tags)

	case AddTagOptimistic:
		if _, ok := models.FindTag(next.Tags, a.Tag.Name); !ok {
			next.Tags = SortTags(append(next.Tags, a.Tag))
		}

	case RemoveTagOptimistic:
		out := make([]models.Tag, 0, len(next.Tags))
		for _, t := range next.Tags {
			if !models.SameTagName(t.Name, a.Name) {
				out = append(out, t)
			}
		}
		next.Tags = out

	case EditTagColorOptimistic:
		for i, t := range next.Tags {
			if models.SameTagName(t.Name, a.Tag.Name) {
				next.Tags[i].Color = a.Tag.Color
			}
		}

	case SetLoadingTags:
		next.LoadingTags = a.Loading

	case SetLastDeletedTag:
		t := a.Tag
		next.LastDeletedTag = &t

	case ClearLastDeletedTag:
		next.LastDeletedTag = nil

	case SetAIStatus:
		next.AIStatus = a.Status

	case SetAIMode:
		next.AIMode = a.Mode

	case SetContentSaveStatus:
		next.ContentSave = a.Status

	case SetSandboxContent:
		next.Sandbox.Content = a.Content

	case AppendSandboxHistory:
		next.Sandbox.History = append(next.Sandbox.History, a.Content)
		next.Sandbox.Cursor = len(next.Sandbox.History) - 1
		next.Sandbox.Content = a.Content

	case SetSandboxHistoryAtIndex:
		next.Sandbox.History[a.Index] = a.Content
		if next.Sandbox.Cursor == a.Index {
			next.Sandbox.Content = a.Content
		}

	case SetSandboxCursor:
		next.Sandbox.Cursor = a.Index
		next.Sandbox.Content = next.Sandbox.History[a.Index]

	case ShowSandbox:
		next.Sandbox.Visible = a.Visible

	case ResetSandbox:
		next.Sandbox = Sandbox{
			Content: a.Content,
			History: []string{a.Content},
			Cursor:  0,
			Visible: true,
		}

	case SetTransfer:
		next.Sandbox.TransferActive = a.Active
		next.Sandbox.TransferContent = a.Content
	}

	return next
}
