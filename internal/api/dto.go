package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/workspace"
)

var colorRe = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title string   `json:"title" example:"Groceries"`
	Tags  []string `json:"tags,omitempty" example:"home,errands"`
}

// Validate checks the title length.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 256)),
		validation.Field(&r.Tags, validation.Each(validation.Required, validation.Length(1, 64))),
	)
}

// UpdateNoteRequest is the request body for editing a note. Omitted fields
// are left unchanged; a present tags array replaces the note's tags.
type UpdateNoteRequest struct {
	Title   *string   `json:"title,omitempty" example:"Groceries (weekend)"`
	Content *string   `json:"content,omitempty" example:"# Milk"`
	Tags    *[]string `json:"tags,omitempty" example:"home"`
}

// Validate checks the title length.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty.Error("title cannot be blank when set"), validation.Length(0, 256)),
	)
}

func (r UpdateNoteRequest) update() workspace.Update {
	u := workspace.Update{Title: r.Title, Content: r.Content}
	if r.Tags != nil {
		u.Tags = *r.Tags
		if u.Tags == nil {
			u.Tags = []string{}
		}
	}
	return u
}

// DraftRequest carries the live editor content.
type DraftRequest struct {
	Content string `json:"content" example:"# Draft"`
}

// TagRequest is the request body for creating a tag. An empty color picks a
// random one.
type TagRequest struct {
	Name  string `json:"name" example:"work" validate:"required"`
	Color string `json:"color,omitempty" example:"ff8800"`
}

// Validate checks the name and the color format.
func (r TagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Color, validation.Match(colorRe)),
	)
}

// TagColorRequest recolors a tag.
type TagColorRequest struct {
	Color string `json:"color" example:"00aa55" validate:"required"`
}

// Validate checks the color format.
func (r TagColorRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Color, validation.Required, validation.Match(colorRe)),
	)
}

// AIModeRequest selects the generation mode.
type AIModeRequest struct {
	Mode models.GenerationMode `json:"mode" example:"summarize-sandbox" validate:"required"`
}

// Validate checks the mode is known.
func (r AIModeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.Required, validation.By(func(any) error {
			if !r.Mode.Valid() {
				return validation.NewError("validation_mode", "unknown generation mode")
			}
			return nil
		})),
	)
}

// SandboxRequest opens or edits the sandbox.
type SandboxRequest struct {
	Content string `json:"content" example:"## Summary"`
}

// NoteListResponse wraps the reconciled note view.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// TagListResponse wraps a list of tags.
type TagListResponse struct {
	Tags []models.Tag `json:"tags" validate:"required"`
}

// GenerateResponse is returned after a successful generation.
type GenerateResponse struct {
	Result string            `json:"result" example:"A short summary."`
	State  workspace.AIState `json:"state"`
}

// ExportSaveResponse is returned after writing an export to disk.
type ExportSaveResponse struct {
	File string `json:"file" example:"Groceries.pdf" validate:"required"`
}
