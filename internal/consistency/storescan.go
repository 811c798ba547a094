package consistency

import (
	"context"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/storage"
)

// CheckStoreConsistency compares registry mappings against actual store
// contents and emits the issue types the pure-mapping scan cannot:
// data_mismatch when one recorded store id is gone from its store, and
// orphaned_entity when every recorded id is gone. Stores must implement the
// Lister extension to participate; a store that cannot enumerate is skipped.
func (c *Checker) CheckStoreConsistency(
	ctx context.Context,
	projectID string,
) (models.ConsistencyReport, error) {
	start := time.Now()

	vecIDs, vecOK, err := listIDs(ctx, c.vector, projectID)
	if err != nil {
		return models.ConsistencyReport{}, err
	}
	graphIDs, graphOK, err := listIDs(ctx, c.graph, projectID)
	if err != nil {
		return models.ConsistencyReport{}, err
	}
	if !vecOK && !graphOK {
		return models.ConsistencyReport{}, apperr.New(
			apperr.KindInvalid, "consistency", "check_store_consistency",
			"neither store supports content enumeration")
	}

	mappings := c.reg.GetMappingsByProject(projectID)
	var found []models.ConsistencyIssue
	for _, m := range mappings {
		vectorLost := vecOK && m.VectorID != "" && !vecIDs[m.VectorID]
		graphLost := graphOK && m.GraphID != "" && !graphIDs[m.GraphID]

		recorded := 0
		lost := 0
		if m.VectorID != "" && vecOK {
			recorded++
			if vectorLost {
				lost++
			}
		}
		if m.GraphID != "" && graphOK {
			recorded++
			if graphLost {
				lost++
			}
		}
		if recorded == 0 || lost == 0 {
			continue
		}
		if lost == recorded {
			if iss, fresh := c.recordIssue(m, models.IssueOrphanedEntity, models.SeverityCritical,
				"no recorded store content exists for this mapping"); fresh {
				found = append(found, iss)
			}
			continue
		}
		if iss, fresh := c.recordIssue(m, models.IssueDataMismatch, models.SeverityHigh,
			"a recorded store id no longer exists in its store"); fresh {
			found = append(found, iss)
		}
	}
	return models.ConsistencyReport{
		ProjectID:     projectID,
		TotalEntities: len(mappings),
		IssuesFound:   len(found),
		Issues:        found,
		CheckedAt:     time.Now(),
		Duration:      time.Since(start),
	}, nil
}

// reconcile rewrites whichever recorded side its store no longer holds,
// reusing the recorded id so the mapping stays valid.
func (c *Checker) reconcile(ctx context.Context, m models.EntityMapping) error {
	if m.VectorID != "" && !storeHas(ctx, c.vector, m.ProjectID, m.VectorID) {
		if _, err := c.vector.StoreChunks(ctx, []models.ChunkData{reconcileChunk(m, m.VectorID)}, m.ProjectID); err != nil {
			return err
		}
	}
	if m.GraphID != "" && !storeHas(ctx, c.graph, m.ProjectID, m.GraphID) {
		if _, err := c.graph.StoreChunks(ctx, []models.ChunkData{reconcileChunk(m, m.GraphID)}, m.ProjectID); err != nil {
			return err
		}
	}
	return nil
}

// listIDs returns the live id set for a project, or ok=false when the store
// cannot enumerate.
func listIDs(ctx context.Context, store any, projectID string) (map[string]bool, bool, error) {
	lister, ok := store.(storage.Lister)
	if !ok {
		return nil, false, nil
	}
	ids, err := lister.ListIDs(ctx, projectID)
	if err != nil {
		return nil, false, apperr.Wrap(err, apperr.KindExecution,
			"consistency", "list_ids", "store enumeration failed")
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, true, nil
}

// storeHas reports whether the store still holds the id. A store that cannot
// enumerate counts as not holding it, which makes reconcile rewrite the side;
// writes are upserts, so that is safe.
func storeHas(ctx context.Context, store any, projectID, id string) bool {
	set, ok, err := listIDs(ctx, store, projectID)
	if err != nil || !ok {
		return false
	}
	return set[id]
}

func reconcileChunk(m models.EntityMapping, id string) models.ChunkData {
	return models.ChunkData{
		ID: id,
		Metadata: map[string]string{
			"entity_id":   m.EntityID,
			"entity_type": string(m.EntityType),
			"repaired":    "true",
		},
	}
}
