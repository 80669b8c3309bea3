package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/noteflow/internal/ai"
	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/testutil"
	"github.com/starford/noteflow/internal/workspace"
)

// testEnv sets up a temp document store, a workspace manager and a router.
// An empty token means disabled mode acting as user "u1"; otherwise the
// token authenticates as "u1".
func testEnv(t *testing.T, token string) (http.Handler, *docstore.DB) {
	t.Helper()
	return testEnvWithAI(t, token, ai.Func(func(context.Context, string) (string, error) {
		return "generated", nil
	}))
}

func testEnvWithAI(t *testing.T, token string, gen ai.Generator) (http.Handler, *docstore.DB) {
	t.Helper()
	db, broker := testutil.TestDB(t)
	timing := workspace.DefaultTiming()
	timing.ContentSaveDelay = time.Hour
	timing.TagColorDelay = time.Hour
	spaces := workspace.NewManager(context.Background(), db, broker, gen, nil, timing, testutil.Logger())
	t.Cleanup(func() { spaces.Close(context.Background()) })

	auth := Auth{DefaultUser: "u1"}
	if token != "" {
		auth = Auth{Enabled: true, Tokens: map[string]string{token: "u1"}}
	}
	return NewRouter(spaces, auth, broker), db
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func createNote(t *testing.T, h http.Handler, title string, tags ...string) models.Note {
	t.Helper()
	w := do(t, h, http.MethodPost, "/notes", CreateNoteRequest{Title: title, Tags: tags})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[models.Note](t, w)
}

func TestCreateAndGetNote(t *testing.T) {
	router, db := testEnv(t, "")

	note := createNote(t, router, "Hello", "greeting")
	if strings.HasPrefix(note.ID, "tmp-") {
		t.Fatalf("id = %q, want server id", note.ID)
	}
	if len(note.Tags) != 1 || note.Tags[0].Name != "greeting" {
		t.Errorf("tags = %+v", note.Tags)
	}

	w := do(t, router, http.MethodGet, "/notes/"+note.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[models.Note](t, w)
	if got.Title != "Hello" {
		t.Errorf("title = %q, want Hello", got.Title)
	}

	stored, err := db.GetNote(context.Background(), note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.UserID != "u1" {
		t.Errorf("owner = %q, want u1", stored.UserID)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/notes/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	body := decode[errResponse](t, w)
	if body.Success {
		t.Error("success = true on error")
	}
}

func TestUpdateNote(t *testing.T) {
	router, _ := testEnv(t, "")
	note := createNote(t, router, "draft", "a")

	w := do(t, router, http.MethodPatch, "/notes/"+note.ID, map[string]any{
		"title":   "final",
		"content": "# Final",
		"tags":    []string{},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[models.Note](t, w)
	if got.Title != "final" || got.Content != "# Final" {
		t.Errorf("got %+v", got)
	}
	if len(got.Tags) != 0 {
		t.Errorf("tags = %+v, want none", got.Tags)
	}

	w = do(t, router, http.MethodPatch, "/notes/"+note.ID, map[string]any{"title": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPatch, "/notes/missing", map[string]any{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	router, db := testEnv(t, "")
	note := createNote(t, router, "temp")

	w := do(t, router, http.MethodDelete, "/notes/"+note.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if _, err := db.GetNote(context.Background(), note.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stored note after delete: %v", err)
	}
	w = do(t, router, http.MethodDelete, "/notes/"+note.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	router, _ := testEnv(t, "")
	createNote(t, router, "beta", "x")
	createNote(t, router, "Alpha", "y")
	createNote(t, router, "gamma", "x", "y")

	w := do(t, router, http.MethodGet, "/notes?sort=title", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[NoteListResponse](t, w)
	if list.Total != 3 {
		t.Fatalf("total = %d, want 3", list.Total)
	}
	if list.Notes[0].Title != "Alpha" || list.Notes[2].Title != "gamma" {
		t.Errorf("order = %s, %s, %s", list.Notes[0].Title, list.Notes[1].Title, list.Notes[2].Title)
	}

	w = do(t, router, http.MethodGet, "/notes?sort=tags&tags=x", nil)
	list = decode[NoteListResponse](t, w)
	if list.Total != 2 {
		t.Errorf("tag filter total = %d, want 2", list.Total)
	}

	w = do(t, router, http.MethodGet, "/notes?sort=size", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown sort = %d, want 400", w.Code)
	}
}

func TestDraftAndFlush(t *testing.T) {
	router, db := testEnv(t, "")
	note := createNote(t, router, "doc")

	w := do(t, router, http.MethodPut, "/notes/"+note.ID+"/draft", DraftRequest{Content: "live"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("draft status = %d", w.Code)
	}
	stored, _ := db.GetNote(context.Background(), note.ID)
	if stored.Content != "" {
		t.Errorf("saved before quiet period: %q", stored.Content)
	}

	w = do(t, router, http.MethodPost, "/notes/"+note.ID+"/flush", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("flush status = %d, body = %s", w.Code, w.Body.String())
	}
	stored, _ = db.GetNote(context.Background(), note.ID)
	if stored.Content != "live" {
		t.Errorf("content = %q, want live", stored.Content)
	}
}

func TestExportNote(t *testing.T) {
	router, _ := testEnv(t, "")
	note := createNote(t, router, `Plan: "Q3"`)
	do(t, router, http.MethodPatch, "/notes/"+note.ID, map[string]any{"content": "# Goals\n\n- ship"})

	w := do(t, router, http.MethodGet, "/notes/"+note.ID+"/export?format=txt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `"Plan Q3.txt"`) {
		t.Errorf("content-disposition = %q", cd)
	}
	if !strings.Contains(w.Body.String(), "- ship") {
		t.Errorf("body = %q", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/notes/"+note.ID+"/export?format=odt", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", w.Code)
	}
}

func TestTagRegistry(t *testing.T) {
	router, db := testEnv(t, "")
	note := createNote(t, router, "tagged", "work")

	w := do(t, router, http.MethodPost, "/tags", TagRequest{Name: "home", Color: "#00FF00"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create tag = %d, body = %s", w.Code, w.Body.String())
	}
	if tag := decode[models.Tag](t, w); tag.Color != "00ff00" {
		t.Errorf("color = %q", tag.Color)
	}
	w = do(t, router, http.MethodPost, "/tags", TagRequest{Name: "HOME"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate tag = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPost, "/tags", TagRequest{Name: "bad", Color: "red"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad color = %d, want 400", w.Code)
	}

	list := decode[TagListResponse](t, do(t, router, http.MethodGet, "/tags", nil))
	if len(list.Tags) != 2 || list.Tags[0].Name != "home" {
		t.Errorf("tags = %+v", list.Tags)
	}

	suggested := decode[TagListResponse](t, do(t, router, http.MethodGet, "/notes/"+note.ID+"/tags/suggested", nil))
	if len(suggested.Tags) != 1 || suggested.Tags[0].Name != "home" {
		t.Errorf("suggested = %+v", suggested.Tags)
	}

	w = do(t, router, http.MethodPatch, "/tags/work", TagColorRequest{Color: "123456"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("recolor = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[models.Note](t, do(t, router, http.MethodGet, "/notes/"+note.ID, nil))
	if got.Tags[0].Color != "123456" {
		t.Errorf("projected color = %q, want 123456", got.Tags[0].Color)
	}

	w = do(t, router, http.MethodDelete, "/tags/work", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete tag = %d, body = %s", w.Code, w.Body.String())
	}
	stored, _ := db.GetNote(context.Background(), note.ID)
	if len(stored.Tags) != 0 {
		t.Errorf("stored tags after delete = %+v", stored.Tags)
	}
	w = do(t, router, http.MethodDelete, "/tags/work", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestAIFlow(t *testing.T) {
	router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/ai/generate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("generate without open note = %d, want 404", w.Code)
	}

	note := createNote(t, router, "long")
	do(t, router, http.MethodPut, "/notes/"+note.ID+"/draft", DraftRequest{Content: "lots of words"})

	w = do(t, router, http.MethodPut, "/ai", AIModeRequest{Mode: "poetry"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPut, "/ai", AIModeRequest{Mode: models.ModeSummarizeSandbox})
	if w.Code != http.StatusOK {
		t.Fatalf("set mode = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/ai/generate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[GenerateResponse](t, w)
	if resp.Result != "generated" || len(resp.State.Sandbox.History) != 1 {
		t.Errorf("generate response = %+v", resp)
	}

	w = do(t, router, http.MethodPut, "/ai/sandbox", SandboxRequest{Content: "edited"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit sandbox = %d", w.Code)
	}
	do(t, router, http.MethodPost, "/ai/sandbox/undo", nil)

	w = do(t, router, http.MethodPost, "/ai/sandbox/transfer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transfer = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[models.Note](t, do(t, router, http.MethodGet, "/notes/"+note.ID, nil))
	if got.Content != "edited" {
		t.Errorf("live content = %q, want edited", got.Content)
	}
}

func TestAIEmptyResponse(t *testing.T) {
	router, _ := testEnvWithAI(t, "", ai.Func(func(context.Context, string) (string, error) {
		return "", nil
	}))
	note := createNote(t, router, "n")
	do(t, router, http.MethodPut, "/notes/"+note.ID+"/draft", DraftRequest{Content: "text"})

	w := do(t, router, http.MethodPost, "/ai/generate", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("empty response = %d, want 502", w.Code)
	}
	state := decode[workspace.AIState](t, do(t, router, http.MethodGet, "/ai", nil))
	if state.Status != models.AIError {
		t.Errorf("status = %q, want error", state.Status)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")
	body, _ := json.Marshal(CreateNoteRequest{Title: "auth"})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")
	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_DisabledWithoutUser(t *testing.T) {
	db, broker := testutil.TestDB(t)
	spaces := workspace.NewManager(context.Background(), db, broker, nil, nil, workspace.DefaultTiming(), testutil.Logger())
	t.Cleanup(func() { spaces.Close(context.Background()) })
	router := NewRouter(spaces, Auth{}, nil)

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no identity = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnv(t, "tok")
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_StreamsOwnTopics(t *testing.T) {
	router, db := testEnv(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = db.CreateNote(context.Background(), "u1", models.Note{UserID: "u1", Title: "mine"})
		_, _ = db.CreateNote(context.Background(), "u2", models.Note{UserID: "u2", Title: "theirs"})
	}()
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	body := w.Body.String()
	if n := strings.Count(body, "event: note.created"); n != 1 {
		t.Errorf("created events = %d, want 1 (own topic only): %q", n, body)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.ErrNotAuthenticated, http.StatusUnauthorized},
		{apperr.ErrUnauthorized, http.StatusForbidden},
		{apperr.ErrNotFound, http.StatusNotFound},
		{apperr.ErrInvalidPayload, http.StatusBadRequest},
		{apperr.ErrAlreadyExists, http.StatusConflict},
		{apperr.ErrEmptyAIResponse, http.StatusBadGateway},
		{apperr.RemoteWrite(errors.New("disk full")), http.StatusInternalServerError},
		{apperr.RemoteWrite(apperr.ErrUnauthorized), http.StatusForbidden},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
