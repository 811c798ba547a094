package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
)

func TestVectorStoreRoundTrip(t *testing.T) {
	s := NewVectorStore()
	ctx := context.Background()

	ids, err := s.StoreChunks(ctx, []models.ChunkData{
		{Content: "a"},
		{ID: "fixed", Content: "b"},
	}, "p1")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "fixed", ids[1])

	got, live := s.Get("fixed")
	require.True(t, live)
	assert.Equal(t, "b", got.Content)
}

func TestVectorStoreDeleteRestore(t *testing.T) {
	s := NewVectorStore()
	ctx := context.Background()
	ids, err := s.StoreChunks(ctx, []models.ChunkData{{Content: "a"}}, "p1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteChunks(ctx, ids))
	_, live := s.Get(ids[0])
	assert.False(t, live)
	listed, err := s.ListIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, s.RestoreChunks(ctx, ids))
	_, live = s.Get(ids[0])
	assert.True(t, live)
}

func TestVectorStoreDeleteUnknown(t *testing.T) {
	s := NewVectorStore()
	err := s.DeleteChunks(context.Background(), []string{"ghost"})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestGraphStoreDeleteRestore(t *testing.T) {
	s := NewGraphStore()
	ctx := context.Background()
	ids, err := s.StoreChunks(ctx, []models.ChunkData{{Content: "n"}}, "p1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteNodes(ctx, ids))
	listed, err := s.ListIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, s.RestoreNodes(ctx, ids))
	listed, err = s.ListIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, ids, listed)
}

func TestListIDsScopedByProject(t *testing.T) {
	s := NewVectorStore()
	ctx := context.Background()
	_, err := s.StoreChunks(ctx, []models.ChunkData{{Content: "a"}}, "p1")
	require.NoError(t, err)
	_, err = s.StoreChunks(ctx, []models.ChunkData{{Content: "b"}}, "p2")
	require.NoError(t, err)

	p1, err := s.ListIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, p1, 1)
}
