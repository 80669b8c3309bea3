// Package clientstore is the process-wide state container of a workspace.
// State changes only through dispatched actions, each reduced by a pure
// function of the previous state and the action.
package clientstore

import (
	"sort"
	"strings"

	"github.com/starford/noteflow/internal/models"
)

// Sandbox is the history-tracked scratch buffer for AI output.
type Sandbox struct {
	Content string   `json:"content"`
	History []string `json:"history"`
	Cursor  int      `json:"cursor"`
	Visible bool     `json:"visible"`

	// TransferActive is a one-shot signal for the note editor to adopt
	// TransferContent as the live note content.
	TransferActive  bool   `json:"transferActive"`
	TransferContent string `json:"transferContent,omitempty"`
}

// State is the full client state.
type State struct {
	Notes          []models.Note         `json:"notes"`
	Tags           []models.Tag          `json:"tags"`
	ActiveNoteID   string                `json:"activeNoteId,omitempty"`
	AIStatus       models.AIStatus       `json:"aiStatus"`
	AIMode         models.GenerationMode `json:"aiMode"`
	Sandbox        Sandbox               `json:"sandbox"`
	ContentSave    models.SaveStatus     `json:"contentSave"`
	LoadingNotes   bool                  `json:"loadingNotes"`
	LoadingTags    bool                  `json:"loadingTags"`
	LastDeletedTag *models.Tag           `json:"lastDeletedTag,omitempty"`
}

// Initial returns the state of a fresh store.
func Initial() State {
	return State{
		Notes:        []models.Note{},
		Tags:         []models.Tag{},
		AIStatus:     models.AIIdle,
		AIMode:       models.ModeSummarizeReplace,
		ContentSave:  models.SaveIdle,
		LoadingNotes: true,
		LoadingTags:  true,
		Sandbox:      Sandbox{History: []string{}},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Notes = models.CloneNotes(s.Notes)
	s.Tags = models.CloneTags(s.Tags)
	if s.Sandbox.History != nil {
		h := make([]string, len(s.Sandbox.History))
		copy(h, s.Sandbox.History)
		s.Sandbox.History = h
	}
	if s.LastDeletedTag != nil {
		t := *s.LastDeletedTag
		s.LastDeletedTag = &t
	}
	return s
}

// noteIndex returns the position of the note with id, or -1.
func (s State) noteIndex(id string) int {
	for i, n := range s.Notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// SortTags orders tags by name, case-insensitively. The input is not modified.
func SortTags(tags []models.Tag) []models.Tag {
	out := models.CloneTags(tags)
	if out == nil {
		out = []models.Tag{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
