package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteflow/internal/export"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/workspace"
)

// Workspaces hands out the workspace of an authenticated user.
type Workspaces interface {
	Get(user string) (*workspace.Workspace, error)
}

// Handler holds API route handlers.
type Handler struct {
	spaces Workspaces
}

// NewHandler creates a new Handler.
func NewHandler(spaces Workspaces) *Handler {
	return &Handler{spaces: spaces}
}

func (h *Handler) space(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.spaces.Get(UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, "open workspace", err)
		return nil, false
	}
	return ws, true
}

// urlParam returns a path parameter, decoding escaped characters.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// sortOptions reads sort, order and tags from the query. The default view
// is newest first.
func sortOptions(q url.Values) models.SortOptions {
	opts := models.SortOptions{Mode: models.SortByDate, Descending: true}
	if s := q.Get("sort"); s != "" {
		opts.Mode = models.SortMode(s)
		opts.Descending = false
	}
	switch q.Get("order") {
	case "desc":
		opts.Descending = true
	case "asc":
		opts.Descending = false
	}
	if tags := q.Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.SelectedTags = append(opts.SelectedTags, t)
			}
		}
	}
	return opts
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the reconciled note view
//	@Tags			notes
//	@Produce		json
//	@Param			sort	query		string	false	"Sort mode"	Enums(date, title, tags)
//	@Param			order	query		string	false	"Direction"	Enums(asc, desc)
//	@Param			tags	query		string	false	"Comma-separated tags for sort=tags"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	notes, err := ws.ListNotes(r.Context(), sortOptions(r.URL.Query()))
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}. The note becomes the active note.
//
//	@Summary		Open a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	id := urlParam(r, "id")
	if _, err := ws.OpenNote(id); err != nil {
		writeError(w, r, "open note", err)
		return
	}
	note, err := ws.Note(id)
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	note.Content = ws.Editor.Content()
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req CreateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create note", err)
		return
	}
	note, err := ws.CreateNote(r.Context(), req.Title, req.Tags)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Edit a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update note", err)
		return
	}
	note, err := ws.UpdateNote(r.Context(), urlParam(r, "id"), req.update())
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	if err := ws.DeleteNote(r.Context(), urlParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutDraft handles PUT /api/notes/{id}/draft. The content is saved after
// the quiet period.
//
//	@Summary		Replace the live content of a note
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	string			true	"Note id"
//	@Param			body	body	DraftRequest	true	"Live content"
//	@Success		202		"Save scheduled"
//	@Security		BearerAuth
//	@Router			/notes/{id}/draft [put]
func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req DraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "put draft", err)
		return
	}
	if err := ws.SetDraft(urlParam(r, "id"), req.Content); err != nil {
		writeError(w, r, "put draft", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"contentSave": ws.Store.ContentSaveStatus()})
}

// FlushDraft handles POST /api/notes/{id}/flush.
//
//	@Summary		Save the live content now
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Security		BearerAuth
//	@Router			/notes/{id}/flush [post]
func (h *Handler) FlushDraft(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	id := urlParam(r, "id")
	if err := ws.FlushDraft(r.Context(), id); err != nil {
		writeError(w, r, "flush draft", err)
		return
	}
	note, err := ws.Note(id)
	if err != nil {
		writeError(w, r, "flush draft", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ExportNote handles GET /api/notes/{id}/export.
//
//	@Summary		Download a note in an export format
//	@Tags			export
//	@Produce		octet-stream
//	@Param			id		path	string	true	"Note id"
//	@Param			format	query	string	false	"Format"	Enums(md, txt, html, docx, pdf)
//	@Success		200
//	@Security		BearerAuth
//	@Router			/notes/{id}/export [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, "export note", err)
		return
	}
	data, name, err := ws.Export(urlParam(r, "id"), f)
	if err != nil {
		writeError(w, r, "export note", err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SaveExport handles POST /api/notes/{id}/export.
//
//	@Summary		Write a note into the export directory
//	@Tags			export
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			format	query		string	false	"Format"	Enums(md, txt, html, docx, pdf)
//	@Success		201		{object}	ExportSaveResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/export [post]
func (h *Handler) SaveExport(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, "save export", err)
		return
	}
	name, err := ws.SaveExport(urlParam(r, "id"), f)
	if err != nil {
		writeError(w, r, "save export", err)
		return
	}
	writeJSON(w, http.StatusCreated, ExportSaveResponse{File: name})
}

// SuggestedTags handles GET /api/notes/{id}/tags/suggested.
//
//	@Summary		Registry tags not on the note
//	@Tags			tags
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/tags/suggested [get]
func (h *Handler) SuggestedTags(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	tags, err := ws.SuggestedTags(urlParam(r, "id"))
	if err != nil {
		writeError(w, r, "suggested tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}
