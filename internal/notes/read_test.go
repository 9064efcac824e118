package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notes/internal/model"
)

func TestListVisible_OwnedAndShared(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	a0 := mustAdd(t, s, "alice", "a0")
	b1 := mustAdd(t, s, "bob", "b1")
	a2 := mustAdd(t, s, "alice", "a2")

	_, err := s.ShareNote(ctx, "bob", b1, "alice")
	require.NoError(t, err)

	notes, err := s.ListVisible(ctx, "alice")
	require.NoError(t, err)

	ids := make([]uint32, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	assert.Equal(t, []uint32{a0, b1, a2}, ids)

	notes, err = s.ListVisible(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "b1", notes[0].Content)
}

func TestListVisible_EmptyIsNotNil(t *testing.T) {
	s, _ := newTestService(t)

	notes, err := s.ListVisible(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestGetByID_ForbiddenLooksLikeMissing(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, s, "alice", "secret")

	n, found, err := s.GetByID(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.Note{ID: id, Content: "secret", Owner: "alice", SharedWith: []model.Principal{}}, n)

	forbidden, found, err := s.GetByID(ctx, "mallory", id)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, model.Note{}, forbidden)

	missing, found, err := s.GetByID(ctx, "mallory", 99)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, forbidden, missing)
}

func TestListByOwner_IgnoresCaller(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustAdd(t, s, "alice", "a0")
	mustAdd(t, s, "bob", "b1")
	mustAdd(t, s, "alice", "a2")

	for _, caller := range []model.Principal{"alice", "bob", "mallory"} {
		notes, err := s.ListByOwner(ctx, caller, "alice")
		require.NoError(t, err)
		require.Len(t, notes, 2, "caller %s", caller)
		assert.Equal(t, "a0", notes[0].Content)
		assert.Equal(t, "a2", notes[1].Content)
	}

	notes, err := s.ListByOwner(ctx, "alice", "nobody")
	require.NoError(t, err)
	assert.Empty(t, notes)
}
