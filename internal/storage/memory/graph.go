package memory

import (
	"context"
	"sync"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/util"
)

type graphNode struct {
	data      models.ChunkData
	projectID string
	deleted   bool
}

// GraphStore is the in-memory counterpart of VectorStore for graph nodes.
type GraphStore struct {
	mu    sync.RWMutex
	nodes map[string]*graphNode
}

func NewGraphStore() *GraphStore {
	return &GraphStore{nodes: make(map[string]*graphNode)}
}

func (s *GraphStore) StoreChunks(
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
			id = util.GenerateID("node")
		}
		s.nodes[id] = &graphNode{data: it, projectID: projectID}
		ids[i] = id
	}
	return ids, nil
}

func (s *GraphStore) DeleteNodes(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		n, ok := s.nodes[id]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "graph_store", "delete_nodes", "node %s not found", id)
		}
		n.deleted = true
	}
	return nil
}

func (s *GraphStore) RestoreNodes(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		n, ok := s.nodes[id]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "graph_store", "restore_nodes", "node %s not found", id)
		}
		n.deleted = false
	}
	return nil
}

func (s *GraphStore) ListIDs(ctx context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, n := range s.nodes {
		if n.projectID == projectID && !n.deleted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Get returns the stored node and whether it is live. Test helper.
func (s *GraphStore) Get(id string) (models.ChunkData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok || n.deleted {
		return models.ChunkData{}, false
	}
	return n.data, true
}
