package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// broker, if non-nil, serves GET /events inside the auth group, streaming
// the caller's note and tag change topics.
func NewRouter(spaces Workspaces, auth Auth, broker *sse.Broker) chi.Router {
	h := NewHandler(spaces)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Patch("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
		r.Put("/draft", h.PutDraft)
		r.Post("/flush", h.FlushDraft)
		r.Get("/export", h.ExportNote)
		r.Post("/export", h.SaveExport)
		r.Get("/tags/suggested", h.SuggestedTags)
	})

	// Tag registry.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Delete("/tags/{name}", h.DeleteTag)
	r.Patch("/tags/{name}", h.EditTagColor)

	// AI generation and sandbox.
	r.Get("/ai", h.GetAI)
	r.Put("/ai", h.SetAIMode)
	r.Post("/ai/generate", h.Generate)
	r.Post("/ai/try-again", h.TryAgain)
	r.Post("/ai/sandbox", h.OpenSandbox)
	r.Put("/ai/sandbox", h.EditSandbox)
	r.Delete("/ai/sandbox", h.CloseSandbox)
	r.Post("/ai/sandbox/undo", h.Undo)
	r.Post("/ai/sandbox/redo", h.Redo)
	r.Post("/ai/sandbox/transfer", h.Transfer)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.Handler(userTopics).ServeHTTP)
	}

	return r
}

func userTopics(r *http.Request) []string {
	user := UserFrom(r.Context())
	if user == "" {
		return nil
	}
	return []string{docstore.NotesTopic(user), docstore.TagsTopic(user)}
}
