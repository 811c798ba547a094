package registry

import (
	"sync"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/util"
)

// Registry is the canonical record of which vector-store id and graph-store id
// correspond to each logical entity. It is pure bookkeeping: it never calls
// the stores, and it is the only component that mutates EntityMapping records.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]*models.EntityMapping
}

func New() *Registry {
	return &Registry{mappings: make(map[string]*models.EntityMapping)}
}

// GenerateEntityID returns a fresh id namespaced by type and project.
func (r *Registry) GenerateEntityID(entityType models.EntityType, projectID string) string {
	return util.GenerateEntityID(string(entityType), projectID)
}

// MappingUpdate carries the fields to merge into a mapping. A nil field is
// left untouched; a pointer to "" clears the id.
type MappingUpdate struct {
	VectorID *string
	GraphID  *string
}

// CreateMapping inserts a new mapping, deriving its sync status. Fails with a
// conflict error if the entity id already exists.
func (r *Registry) CreateMapping(
	entityID string,
	entityType models.EntityType,
	projectID string,
	vectorID, graphID string,
) (models.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[entityID]; ok {
		return models.EntityMapping{}, apperr.Newf(
			apperr.KindConflict, "registry", "create_mapping", "entity %s already exists", entityID)
	}
	m := &models.EntityMapping{
		EntityID:   entityID,
		EntityType: entityType,
		ProjectID:  projectID,
		VectorID:   vectorID,
		GraphID:    graphID,
		LastSynced: time.Now(),
		SyncStatus: models.DeriveSyncStatus(vectorID, graphID),
	}
	r.mappings[entityID] = m
	return *m, nil
}

// UpdateMapping merges the supplied fields, recomputes the sync status, and
// bumps LastSynced. Returns (nil, nil) when the entity is absent: a missing
// mapping is a normal condition for callers reconciling external state, not
// an error.
func (r *Registry) UpdateMapping(entityID string, upd MappingUpdate) (*models.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[entityID]
	if !ok {
		return nil, nil
	}
	if upd.VectorID != nil {
		m.VectorID = *upd.VectorID
	}
	if upd.GraphID != nil {
		m.GraphID = *upd.GraphID
	}
	m.SyncStatus = models.DeriveSyncStatus(m.VectorID, m.GraphID)
	m.LastSynced = time.Now()
	cp := *m
	return &cp, nil
}

// GetMapping returns a copy of the mapping, or false if absent.
func (r *Registry) GetMapping(entityID string) (models.EntityMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[entityID]
	if !ok {
		return models.EntityMapping{}, false
	}
	return *m, true
}

// DeleteMapping removes the mapping, reporting whether it existed.
func (r *Registry) DeleteMapping(entityID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[entityID]; !ok {
		return false
	}
	delete(r.mappings, entityID)
	return true
}

// GetMappingsByProject returns copies of all mappings in a project.
func (r *Registry) GetMappingsByProject(projectID string) []models.EntityMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.EntityMapping
	for _, m := range r.mappings {
		if m.ProjectID == projectID {
			out = append(out, *m)
		}
	}
	return out
}

// GetUnsyncedMappings returns the project's mappings whose status is not
// synced: the candidates for reconciliation.
func (r *Registry) GetUnsyncedMappings(projectID string) []models.EntityMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.EntityMapping
	for _, m := range r.mappings {
		if m.ProjectID == projectID && m.SyncStatus != models.StatusSynced {
			out = append(out, *m)
		}
	}
	return out
}

// GetSyncStats tallies mapping statuses. An empty projectID counts all
// projects.
func (r *Registry) GetSyncStats(projectID string) models.SyncStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats models.SyncStats
	for _, m := range r.mappings {
		if projectID != "" && m.ProjectID != projectID {
			continue
		}
		stats.Total++
		switch m.SyncStatus {
		case models.StatusSynced:
			stats.Synced++
		case models.StatusVectorOnly:
			stats.VectorOnly++
		case models.StatusGraphOnly:
			stats.GraphOnly++
		case models.StatusConflict:
			stats.Conflicts++
		}
	}
	return stats
}
