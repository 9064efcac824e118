package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notes/internal/model"
	"github.com/roach88/notes/internal/testutil"
)

func TestAddNote_Defaults(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id, err := s.AddNote(ctx, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)

	n, found, err := s.GetByID(ctx, "alice", id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.Principal("alice"), n.Owner)
	assert.Empty(t, n.SharedWith)
}

func TestAddNote_NotIdempotent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustAdd(t, s, "alice", "same")
	mustAdd(t, s, "alice", "same")

	notes, err := s.ListVisible(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestAddNote_InvalidUTF8(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.AddNote(context.Background(), "alice", "\xff")
	assert.ErrorIs(t, err, model.ErrInvalidNote)
}

// SizeAllocator: add a, add b, delete 0, add c lands on id 1 and replaces b.
func TestAddNote_SizeAllocatorCollision(t *testing.T) {
	s, st := newTestService(t)
	ctx := context.Background()

	assert.Equal(t, uint32(0), mustAdd(t, s, "alice", "a"))
	assert.Equal(t, uint32(1), mustAdd(t, s, "alice", "b"))

	msg, err := s.DeleteNote(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, MsgDeleted, msg)

	assert.Equal(t, uint32(1), mustAdd(t, s, "alice", "c"))

	n, found, err := s.GetByID(ctx, "alice", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c", n.Content)

	count, err := st.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddNote_MonotonicAllocatorNeverReuses(t *testing.T) {
	st := testutil.OpenStore(t)
	s := New(st, WithLogger(discardLogger()), WithAllocator(MonotonicAllocator(st)))
	ctx := context.Background()

	assert.Equal(t, uint32(0), mustAdd(t, s, "alice", "a"))
	assert.Equal(t, uint32(1), mustAdd(t, s, "alice", "b"))

	_, err := s.DeleteNote(ctx, "alice", 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), mustAdd(t, s, "alice", "c"))

	b, found, err := s.GetByID(ctx, "alice", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", b.Content)
}

func TestUpdateNote(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "v1")
	_, err := s.ShareNote(ctx, "alice", id, "bob")
	require.NoError(t, err)

	msg, err := s.UpdateNote(ctx, "alice", id, "v2")
	require.NoError(t, err)
	assert.Equal(t, "Note updated successfully", msg)

	n, _, err := s.GetByID(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "v2", n.Content)
	assert.Equal(t, []model.Principal{"bob"}, n.SharedWith)
}

func TestUpdateNote_Failures(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "v1")
	_, err := s.ShareNote(ctx, "alice", id, "bob")
	require.NoError(t, err)

	_, err = s.UpdateNote(ctx, "bob", id, "hijack")
	require.ErrorIs(t, err, ErrPermissionDenied)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "Permission denied: Only the owner can update the note", e.Message)
	assert.Equal(t, model.Principal("bob"), e.Principal)

	_, err = s.UpdateNote(ctx, "alice", 42, "x")
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrCodeNotFound, e.Code)
	assert.Equal(t, "Note not found", e.Message)

	n, _, err := s.GetByID(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "v1", n.Content)
}

func TestDeleteNote_TwiceYieldsNotFound(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "x")

	msg, err := s.DeleteNote(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "Note has been deleted.", msg)

	_, err = s.DeleteNote(ctx, "alice", id)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrCodeNotFound, e.Code)
	assert.Equal(t, "No note found.", e.Message)
}

func TestDeleteNote_NonOwner(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "x")

	_, err := s.DeleteNote(ctx, "bob", id)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrCodePermissionDenied, e.Code)
	assert.Equal(t, "Permission denied: Only the owner can delete the note", e.Message)

	_, found, err := s.GetByID(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDeleteNote_DoesNotRenumber(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustAdd(t, s, "alice", "a")
	mustAdd(t, s, "alice", "b")
	mustAdd(t, s, "alice", "c")

	_, err := s.DeleteNote(ctx, "alice", 1)
	require.NoError(t, err)

	notes, err := s.ListVisible(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, uint32(0), notes[0].ID)
	assert.Equal(t, uint32(2), notes[1].ID)
}

func TestShareNote_TwiceYieldsAlreadyShared(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "x")

	msg, err := s.ShareNote(ctx, "alice", id, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Note shared successfully.", msg)

	_, err = s.ShareNote(ctx, "alice", id, "bob")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrCodeAlreadyShared, e.Code)
	assert.Equal(t, "User already has access to this note.", e.Message)
}

func TestShareNote_KeepsOrder(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "x")
	for _, p := range []model.Principal{"dave", "bob", "carol"} {
		_, err := s.ShareNote(ctx, "alice", id, p)
		require.NoError(t, err)
	}

	n, _, err := s.GetByID(ctx, "carol", id)
	require.NoError(t, err)
	assert.Equal(t, []model.Principal{"dave", "bob", "carol"}, n.SharedWith)
}

func TestShareNote_Failures(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "x")
	_, err := s.ShareNote(ctx, "alice", id, "bob")
	require.NoError(t, err)

	tests := []struct {
		name    string
		caller  model.Principal
		id      uint32
		target  model.Principal
		code    ErrorCode
		message string
	}{
		{"shared reader cannot reshare", "bob", id, "carol", ErrCodePermissionDenied, "Permission denied: Only the owner can share the note."},
		{"stranger", "mallory", id, "mallory", ErrCodePermissionDenied, "Permission denied: Only the owner can share the note."},
		{"missing note", "alice", 77, "bob", ErrCodeNotFound, "Note not found."},
		{"owner as target", "alice", id, "alice", ErrCodeAlreadyShared, "User already has access to this note."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ShareNote(ctx, tt.caller, tt.id, tt.target)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.message, e.Message)
		})
	}

	n, _, err := s.GetByID(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, []model.Principal{"bob"}, n.SharedWith)
}

func TestShareNote_EmptyTarget(t *testing.T) {
	s, _ := newTestService(t)

	id := mustAdd(t, s, "alice", "x")
	_, err := s.ShareNote(context.Background(), "alice", id, "")
	assert.ErrorIs(t, err, ErrInvalidPrincipal)
}

// alice adds, bob cannot see it, alice shares, bob can read but not update.
func TestAliceBobSharingScenario(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id, err := s.AddNote(ctx, "alice", "hi")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)

	_, found, err := s.GetByID(ctx, "bob", 0)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.ShareNote(ctx, "alice", 0, "bob")
	require.NoError(t, err)

	n, found, err := s.GetByID(ctx, "bob", 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.Principal("alice"), n.Owner)
	assert.Equal(t, "hi", n.Content)

	_, err = s.UpdateNote(ctx, "bob", 0, "x")
	assert.True(t, IsPermissionDenied(err))
}
