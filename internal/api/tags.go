package api

import (
	"net/http"
	"strings"

	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/models"
)

// ListTags handles GET /api/tags.
//
//	@Summary		List the tag registry
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: clientstore.SortTags(ws.Store.Tags())})
}

// CreateTag handles POST /api/tags.
//
//	@Summary		Register a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TagRequest	true	"Tag to create"
//	@Success		201		{object}	models.Tag
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req TagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create tag", err)
		return
	}
	tag, err := ws.Tags.CreateTag(r.Context(), models.Tag{
		Name:  req.Name,
		Color: strings.TrimPrefix(req.Color, "#"),
	})
	if err != nil {
		writeError(w, r, "create tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// DeleteTag handles DELETE /api/tags/{name}. Notes carrying the tag lose it.
//
//	@Summary		Delete a tag
//	@Tags			tags
//	@Param			name	path	string	true	"Tag name"
//	@Success		204		"Tag deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{name} [delete]
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	if err := ws.Tags.DeleteTag(r.Context(), urlParam(r, "name")); err != nil {
		writeError(w, r, "delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditTagColor handles PATCH /api/tags/{name}. The registry reflects the
// color at once; the write and the propagation into notes follow after the
// quiet period.
//
//	@Summary		Recolor a tag
//	@Tags			tags
//	@Accept			json
//	@Param			name	path	string			true	"Tag name"
//	@Param			body	body	TagColorRequest	true	"New color"
//	@Success		202		{object}	models.Tag
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{name} [patch]
func (h *Handler) EditTagColor(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req TagColorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "edit tag color", err)
		return
	}
	name := urlParam(r, "name")
	tag := models.Tag{Name: name, Color: strings.TrimPrefix(req.Color, "#")}
	if err := ws.Tags.EditTagColor(r.Context(), tag); err != nil {
		writeError(w, r, "edit tag color", err)
		return
	}
	current, _ := models.FindTag(ws.Store.Tags(), name)
	writeJSON(w, http.StatusAccepted, current)
}
