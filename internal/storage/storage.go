package storage

import (
	"context"

	"github.com/0x99f/dualsync/internal/models"
)

// VectorStore is the client boundary for the vector similarity store.
// StoreChunks returns the store-side ids for the written items, in input
// order. RestoreChunks is the compensation path undoing a DeleteChunks.
type VectorStore interface {
	StoreChunks(ctx context.Context, items []models.ChunkData, projectID string) ([]string, error)
	DeleteChunks(ctx context.Context, ids []string) error
	RestoreChunks(ctx context.Context, ids []string) error
}

// GraphStore is the client boundary for the graph store. Symmetric to
// VectorStore; node ids play the role of chunk ids.
type GraphStore interface {
	StoreChunks(ctx context.Context, items []models.ChunkData, projectID string) ([]string, error)
	DeleteNodes(ctx context.Context, ids []string) error
	RestoreNodes(ctx context.Context, ids []string) error
}

// Lister is an optional store extension listing the live ids for a project.
// The store-aware consistency scan uses it to compare mappings against actual
// store contents; stores that cannot enumerate simply don't implement it.
type Lister interface {
	ListIDs(ctx context.Context, projectID string) ([]string, error)
}
