package clientstore

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
)

func quietStore() *Store {
	return New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4})))
}

func note(id, title string, tags ...models.Tag) models.Note {
	return models.Note{ID: id, UserID: "u1", Title: title, Date: time.Unix(0, 0), Tags: tags}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	prev := Initial()
	prev.Notes = []models.Note{note("a", "A", models.Tag{Name: "x", Color: "000000"})}

	title := "changed"
	next := Reduce(prev, EditNoteOptimistic{ID: "a", Patch: models.NotePatch{
		Title: &title,
		Tags:  []models.Tag{{Name: "y", Color: "111111"}},
	}})

	assert.Equal(t, "A", prev.Notes[0].Title)
	assert.Equal(t, "x", prev.Notes[0].Tags[0].Name)
	assert.Equal(t, "changed", next.Notes[0].Title)
	assert.Equal(t, "y", next.Notes[0].Tags[0].Name)
}

func TestOptimisticCreateThenReconcile(t *testing.T) {
	s := quietStore()
	require.NoError(t, s.Dispatch(SetNotes{Notes: []models.Note{note("n1", "old")}}))

	tmp := note("tmp-1", "new")
	tmp.TransientCreating = true
	require.NoError(t, s.Dispatch(AddNoteOptimistic{Note: tmp}))

	notes := s.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "tmp-1", notes[0].ID, "optimistic note is prepended")
	assert.True(t, notes[0].TransientCreating)

	require.NoError(t, s.Dispatch(ReconcileCreatedNote{TempID: "tmp-1", ID: "srv-1"}))
	active, ok := s.ActiveNote()
	require.True(t, ok)
	assert.Equal(t, "srv-1", active.ID)
	assert.False(t, active.TransientCreating)
}

func TestRemoveClearsActiveNote(t *testing.T) {
	s := quietStore()
	require.NoError(t, s.Dispatch(SetNotes{Notes: []models.Note{note("a", "A"), note("b", "B")}}))
	require.NoError(t, s.Dispatch(SetActiveNote{ID: "a"}))
	require.NoError(t, s.Dispatch(MarkNoteDeleting{ID: "a"}))

	n, _ := s.Note("a")
	assert.True(t, n.TransientDeleting)

	require.NoError(t, s.Dispatch(RemoveNoteOptimistic{ID: "a"}))
	assert.Len(t, s.Notes(), 1)
	_, ok := s.ActiveNote()
	assert.False(t, ok)
}

func TestMalformedPayloadRejected(t *testing.T) {
	s := quietStore()
	before := s.State()

	cases := []Action{
		nil,
		SetNotes{},
		AddNoteOptimistic{Note: models.Note{Title: "no id"}},
		EditNoteOptimistic{},
		AddTagOptimistic{Tag: models.Tag{Name: "x", Color: "red"}},
		SetAIStatus{Status: "thinking"},
		SetAIMode{Mode: "translate"},
		SetContentSaveStatus{Status: "done"},
		SetSandboxCursor{Index: -1},
		SetSandboxCursor{Index: 0},
		SetSandboxHistoryAtIndex{Index: 3, Content: "x"},
	}
	for _, a := range cases {
		err := s.Dispatch(a)
		if !errors.Is(err, apperr.ErrInvalidPayload) {
			t.Errorf("Dispatch(%#v) err = %v, want ErrInvalidPayload", a, err)
		}
	}
	assert.Equal(t, before, s.State())
}

func TestTagsKeptSortedCaseInsensitive(t *testing.T) {
	s := quietStore()
	require.NoError(t, s.Dispatch(SetTags{Tags: []models.Tag{
		{Name: "beta", Color: "000000"},
		{Name: "Alpha", Color: "000000"},
	}}))
	require.NoError(t, s.Dispatch(AddTagOptimistic{Tag: models.Tag{Name: "gamma", Color: "000000"}}))
	require.NoError(t, s.Dispatch(AddTagOptimistic{Tag: models.Tag{Name: "ALPHA", Color: "ffffff"}}))

	var names []string
	for _, tg := range s.Tags() {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names)

	require.NoError(t, s.Dispatch(EditTagColorOptimistic{Tag: models.Tag{Name: "BETA", Color: "abcdef"}}))
	require.NoError(t, s.Dispatch(RemoveTagOptimistic{Name: "alpha"}))
	tags := s.Tags()
	require.Len(t, tags, 2)
	assert.Equal(t, "abcdef", tags[0].Color)
}

func TestSandboxHistory(t *testing.T) {
	s := quietStore()
	require.NoError(t, s.Dispatch(ResetSandbox{Content: "v0"}))
	require.NoError(t, s.Dispatch(AppendSandboxHistory{Content: "v1"}))
	require.NoError(t, s.Dispatch(AppendSandboxHistory{Content: "v2"}))

	sb := s.Sandbox()
	assert.Equal(t, []string{"v0", "v1", "v2"}, sb.History)
	assert.Equal(t, 2, sb.Cursor)
	assert.Equal(t, "v2", sb.Content)
	assert.True(t, sb.Visible)

	require.NoError(t, s.Dispatch(SetSandboxCursor{Index: 0}))
	assert.Equal(t, "v0", s.Sandbox().Content)

	require.NoError(t, s.Dispatch(SetSandboxHistoryAtIndex{Index: 0, Content: "edited"}))
	assert.Equal(t, "edited", s.Sandbox().Content)

	require.NoError(t, s.Dispatch(ResetSandbox{Content: "fresh"}))
	assert.Equal(t, []string{"fresh"}, s.Sandbox().History)
}

func TestLastDeletedTagSignal(t *testing.T) {
	s := quietStore()
	require.NoError(t, s.Dispatch(SetLastDeletedTag{Tag: models.Tag{Name: "x"}}))
	tag, ok := s.LastDeletedTag()
	require.True(t, ok)
	assert.Equal(t, "x", tag.Name)

	require.NoError(t, s.Dispatch(ClearLastDeletedTag{}))
	_, ok = s.LastDeletedTag()
	assert.False(t, ok)
}

func TestSubscribeNotifiesUntilRemoved(t *testing.T) {
	s := quietStore()
	var seen []string
	unsubscribe := s.Subscribe(func(a Action, st State) {
		seen = append(seen, a.ActionName())
	})

	require.NoError(t, s.Dispatch(SetLoadingNotes{Loading: false}))
	_ = s.Dispatch(SetAIStatus{Status: "bogus"})
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Dispatch(SetLoadingTags{Loading: false}))

	assert.Equal(t, []string{"setLoadingNotes"}, seen)
}

func TestSelectorsReturnCopies(t *testing.T) {
	s := quietStore()
	require.NoError(t, s.Dispatch(SetNotes{Notes: []models.Note{note("a", "A", models.Tag{Name: "x", Color: "000000"})}}))

	notes := s.Notes()
	notes[0].Title = "mutated"
	notes[0].Tags[0].Color = "ffffff"

	fresh, _ := s.Note("a")
	assert.Equal(t, "A", fresh.Title)
	assert.Equal(t, "000000", fresh.Tags[0].Color)
}

func TestReconcileDropsPlaceholderWhenConfirmedNoteArrived(t *testing.T) {
	s := quietStore()
	tmp := note("tmp-1", "new")
	tmp.TransientCreating = true
	require.NoError(t, s.Dispatch(AddNoteOptimistic{Note: tmp}))
	require.NoError(t, s.Dispatch(AddNoteOptimistic{Note: note("srv-1", "new")}))

	require.NoError(t, s.Dispatch(ReconcileCreatedNote{TempID: "tmp-1", ID: "srv-1"}))
	notes := s.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "srv-1", notes[0].ID)
}
