package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/clientstore"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/testutil"
)

var errBackend = errors.New("backend down")

func setup(t *testing.T) (*Manager, *clientstore.Store, *testutil.Remote) {
	t.Helper()
	rs := testutil.TestRemote(t, "u1")
	store := clientstore.New(testutil.Logger())
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewManager(store, rs, testutil.Logger(), WithClock(clock)), store, rs
}

func TestCreateNoteReconcilesServerID(t *testing.T) {
	m, store, rs := setup(t)
	ctx := context.Background()

	n, err := m.CreateNote(ctx, "Groceries", []models.Tag{{Name: "home", Color: "00ff00"}})
	require.NoError(t, err)
	assert.NotContains(t, n.ID, TempIDPrefix)
	assert.False(t, n.TransientCreating)

	notes := store.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, n.ID, notes[0].ID)
	assert.False(t, notes[0].TransientCreating)

	active, ok := store.ActiveNote()
	require.True(t, ok)
	assert.Equal(t, n.ID, active.ID)

	stored, err := rs.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", stored.Title)
	assert.Equal(t, "u1", stored.UserID)
}

func TestCreateNoteTempIDsAreUnique(t *testing.T) {
	m, _, _ := setup(t)
	a, b := m.newID(), m.newID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, TempIDPrefix)
}

func TestCreateNoteFailureRestoresList(t *testing.T) {
	m, store, rs := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch(clientstore.SetNotes{Notes: []models.Note{
		{ID: "n1", UserID: "u1", Title: "existing"},
	}}))
	before := store.Notes()

	rs.FailOn("CreateNote", errBackend)
	_, err := m.CreateNote(ctx, "doomed", nil)
	require.ErrorIs(t, err, apperr.ErrRemoteWriteFailed)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, before, store.Notes())
}

func TestCreateNoteWithoutIdentityFailsBeforeDispatch(t *testing.T) {
	m, store, rs := setup(t)
	rs.SetIdentity("")

	var dispatched int
	unsubscribe := store.Subscribe(func(clientstore.Action, clientstore.State) { dispatched++ })
	defer unsubscribe()

	_, err := m.CreateNote(context.Background(), "x", nil)
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	assert.Zero(t, dispatched)
	assert.Zero(t, rs.Calls("CreateNote"))
}

func TestEditNoteFailureRestoresList(t *testing.T) {
	m, store, rs := setup(t)
	ctx := context.Background()

	n, err := m.CreateNote(ctx, "draft", nil)
	require.NoError(t, err)
	before := store.Notes()

	rs.FailOn("EditNote", errBackend)
	title := "final"
	err = m.EditNote(ctx, n.ID, models.NotePatch{Title: &title})
	require.ErrorIs(t, err, apperr.ErrRemoteWriteFailed)
	assert.Equal(t, before, store.Notes())
}

func TestEditNoteAppliesPatchAndBumpsDate(t *testing.T) {
	m, store, rs := setup(t)
	ctx := context.Background()

	n, err := m.CreateNote(ctx, "draft", nil)
	require.NoError(t, err)

	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return later }
	content := "# body"
	require.NoError(t, m.EditNote(ctx, n.ID, models.NotePatch{Content: &content}))

	local, ok := store.Note(n.ID)
	require.True(t, ok)
	assert.Equal(t, "# body", local.Content)
	assert.True(t, local.Date.Equal(later))

	stored, err := rs.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "# body", stored.Content)
}

func TestDeleteNote(t *testing.T) {
	m, store, rs := setup(t)
	ctx := context.Background()

	n, err := m.CreateNote(ctx, "temp", nil)
	require.NoError(t, err)

	rs.FailOn("DeleteNote", errBackend)
	require.ErrorIs(t, m.DeleteNote(ctx, n.ID), apperr.ErrRemoteWriteFailed)
	restored, ok := store.Note(n.ID)
	require.True(t, ok, "failed delete restores the note")
	assert.False(t, restored.TransientDeleting)

	rs.FailOn("DeleteNote", nil)
	require.NoError(t, m.DeleteNote(ctx, n.ID))
	_, ok = store.Note(n.ID)
	assert.False(t, ok)
	_, err = rs.GetNote(ctx, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUnauthorizedPropagatesUnwrapped(t *testing.T) {
	m, store, rs := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch(clientstore.SetNotes{Notes: []models.Note{
		{ID: "foreign", UserID: "u2", Title: "not mine"},
	}}))

	rs.FailOn("DeleteNote", apperr.ErrUnauthorized)
	err := m.DeleteNote(ctx, "foreign")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperr.ErrRemoteWriteFailed)
	assert.Len(t, store.Notes(), 1)
}

func TestSelectNote(t *testing.T) {
	m, store, _ := setup(t)
	require.NoError(t, store.Dispatch(clientstore.SetNotes{Notes: []models.Note{{ID: "a", UserID: "u1"}}}))

	require.ErrorIs(t, m.SelectNote("missing"), apperr.ErrNotFound)
	require.NoError(t, m.SelectNote("a"))
	active, ok := store.ActiveNote()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)

	require.NoError(t, m.SelectNote(""))
	_, ok = store.ActiveNote()
	assert.False(t, ok)
}
