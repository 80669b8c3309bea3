package api

import (
	"net/http"

	"github.com/starford/noteflow/internal/workspace"
)

// GetAI handles GET /api/ai.
//
//	@Summary		AI panel state
//	@Tags			ai
//	@Produce		json
//	@Success		200	{object}	workspace.AIState
//	@Security		BearerAuth
//	@Router			/ai [get]
func (h *Handler) GetAI(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.AI())
}

// SetAIMode handles PUT /api/ai.
//
//	@Summary		Select the generation mode
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AIModeRequest	true	"Mode"
//	@Success		200		{object}	workspace.AIState
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai [put]
func (h *Handler) SetAIMode(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req AIModeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "set ai mode", err)
		return
	}
	if err := ws.Assist.SetMode(req.Mode); err != nil {
		writeError(w, r, "set ai mode", err)
		return
	}
	writeJSON(w, http.StatusOK, ws.AI())
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, tryAgain bool) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	result, err := ws.Generate(r.Context(), tryAgain)
	if err != nil {
		writeError(w, r, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Result: result, State: ws.AI()})
}

// Generate handles POST /api/ai/generate.
//
//	@Summary		Run the selected mode on the open note
//	@Tags			ai
//	@Produce		json
//	@Success		200	{object}	GenerateResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, false)
}

// TryAgain handles POST /api/ai/try-again.
//
//	@Summary		Regenerate, showing the model its previous answer
//	@Tags			ai
//	@Produce		json
//	@Success		200	{object}	GenerateResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/try-again [post]
func (h *Handler) TryAgain(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, true)
}

// OpenSandbox handles POST /api/ai/sandbox.
//
//	@Summary		Start a sandbox session
//	@Tags			ai
//	@Accept			json
//	@Param			body	body		SandboxRequest	true	"Initial content"
//	@Success		200		{object}	workspace.AIState
//	@Security		BearerAuth
//	@Router			/ai/sandbox [post]
func (h *Handler) OpenSandbox(w http.ResponseWriter, r *http.Request) {
	h.sandboxWrite(w, r, "open sandbox", func(ws *workspace.Workspace, content string) error {
		return ws.Assist.OpenSandbox(content)
	})
}

// EditSandbox handles PUT /api/ai/sandbox.
//
//	@Summary		Edit the sandbox entry under the cursor
//	@Tags			ai
//	@Accept			json
//	@Param			body	body		SandboxRequest	true	"Content"
//	@Success		200		{object}	workspace.AIState
//	@Security		BearerAuth
//	@Router			/ai/sandbox [put]
func (h *Handler) EditSandbox(w http.ResponseWriter, r *http.Request) {
	h.sandboxWrite(w, r, "edit sandbox", func(ws *workspace.Workspace, content string) error {
		return ws.Assist.EditSandbox(content)
	})
}

func (h *Handler) sandboxWrite(w http.ResponseWriter, r *http.Request, op string, fn func(*workspace.Workspace, string) error) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	var req SandboxRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	if err := fn(ws, req.Content); err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.AI())
}

// CloseSandbox handles DELETE /api/ai/sandbox. History is kept.
//
//	@Summary		Hide the sandbox
//	@Tags			ai
//	@Success		200	{object}	workspace.AIState
//	@Security		BearerAuth
//	@Router			/ai/sandbox [delete]
func (h *Handler) CloseSandbox(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	if err := ws.Assist.CloseSandbox(); err != nil {
		writeError(w, r, "close sandbox", err)
		return
	}
	writeJSON(w, http.StatusOK, ws.AI())
}

// Undo handles POST /api/ai/sandbox/undo. At the first entry it is a no-op.
//
//	@Summary		Step back in the sandbox history
//	@Tags			ai
//	@Success		200	{object}	workspace.AIState
//	@Security		BearerAuth
//	@Router			/ai/sandbox/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	ws.Assist.Undo()
	writeJSON(w, http.StatusOK, ws.AI())
}

// Redo handles POST /api/ai/sandbox/redo. At the last entry it is a no-op.
//
//	@Summary		Step forward in the sandbox history
//	@Tags			ai
//	@Success		200	{object}	workspace.AIState
//	@Security		BearerAuth
//	@Router			/ai/sandbox/redo [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	ws.Assist.Redo()
	writeJSON(w, http.StatusOK, ws.AI())
}

// Transfer handles POST /api/ai/sandbox/transfer.
//
//	@Summary		Move the sandbox entry under the cursor into the open note
//	@Tags			ai
//	@Success		200	{object}	workspace.AIState
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/sandbox/transfer [post]
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.space(w, r)
	if !ok {
		return
	}
	if _, err := ws.Transfer(); err != nil {
		writeError(w, r, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, ws.AI())
}
