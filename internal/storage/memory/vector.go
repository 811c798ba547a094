package memory

import (
	"context"
	"sync"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/util"
)

type vecItem struct {
	data      models.ChunkData
	projectID string
	deleted   bool
}

// VectorStore is an in-memory vector store used by tests and as the default
// backend. Deletes are soft so the compensation path can restore them.
type VectorStore struct {
	mu   sync.RWMutex
	data map[string]*vecItem
}

func NewVectorStore() *VectorStore {
	return &VectorStore{data: make(map[string]*vecItem)}
}

func (s *VectorStore) StoreChunks(
	ctx context.Context,
	items []models.ChunkData,
	projectID string,
) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = util.GenerateID("vec")
		}
		s.data[id] = &vecItem{data: it, projectID: projectID}
		ids[i] = id
	}
	return ids, nil
}

func (s *VectorStore) DeleteChunks(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		it, ok := s.data[id]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "vector_store", "delete_chunks", "chunk %s not found", id)
		}
		it.deleted = true
	}
	return nil
}

func (s *VectorStore) RestoreChunks(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		it, ok := s.data[id]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "vector_store", "restore_chunks", "chunk %s not found", id)
		}
		it.deleted = false
	}
	return nil
}

// ListIDs returns the live (non-deleted) chunk ids for a project.
func (s *VectorStore) ListIDs(ctx context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, it := range s.data {
		if it.projectID == projectID && !it.deleted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Get returns the stored chunk and whether it is live. Test helper.
func (s *VectorStore) Get(id string) (models.ChunkData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.data[id]
	if !ok || it.deleted {
		return models.ChunkData{}, false
	}
	return it.data, true
}
