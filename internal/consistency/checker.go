package consistency

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/storage"
	"github.com/0x99f/dualsync/internal/util"
)

const repairHistoryLimit = 1000

// Checker audits a project's mappings against the divergence taxonomy and
// repairs what it finds. The registry is treated as ground truth for what was
// intended; the stores, when scanned, show what actually happened.
type Checker struct {
	reg    *registry.Registry
	vector storage.VectorStore
	graph  storage.GraphStore
	log    *slog.Logger

	mu      sync.Mutex
	issues  map[string]*models.ConsistencyIssue
	repairs []models.RepairAction
}

func NewChecker(
	reg *registry.Registry,
	vector storage.VectorStore,
	graph storage.GraphStore,
	log *slog.Logger,
) *Checker {
	return &Checker{
		reg:    reg,
		vector: vector,
		graph:  graph,
		log:    log.With("component", "consistency"),
		issues: make(map[string]*models.ConsistencyIssue),
	}
}

// CheckProjectConsistency classifies every mapping in the project by which
// store ids are missing. A mapping missing both sides yields two issues, one
// per side. This scan reads only the registry; data_mismatch and
// orphaned_entity come from the store-aware scan.
func (c *Checker) CheckProjectConsistency(projectID string) models.ConsistencyReport {
	start := time.Now()
	mappings := c.reg.GetMappingsByProject(projectID)

	var found []models.ConsistencyIssue
	for _, m := range mappings {
		if m.VectorID == "" {
			if iss, fresh := c.recordIssue(m, models.IssueMissingVector, models.SeverityMedium,
				"mapping has no vector-store id"); fresh {
				found = append(found, iss)
			}
		}
		if m.GraphID == "" {
			if iss, fresh := c.recordIssue(m, models.IssueMissingGraph, models.SeverityMedium,
				"mapping has no graph-store id"); fresh {
				found = append(found, iss)
			}
		}
	}
	return models.ConsistencyReport{
		ProjectID:     projectID,
		TotalEntities: len(mappings),
		IssuesFound:   len(found),
		Issues:        found,
		CheckedAt:     time.Now(),
		Duration:      time.Since(start),
	}
}

// RepairIssue repairs one issue with the given strategy. Only "auto" is
// implemented; anything else fails explicitly. Repairing an already-resolved
// issue is a precondition failure and records no repair action.
func (c *Checker) RepairIssue(
	ctx context.Context,
	issueID string,
	strategy string,
) (models.RepairAction, error) {
	c.mu.Lock()
	issue, ok := c.issues[issueID]
	if !ok {
		c.mu.Unlock()
		return models.RepairAction{}, apperr.Newf(
			apperr.KindNotFound, "consistency", "repair_issue", "issue %s not found", issueID)
	}
	if issue.ResolvedAt != nil {
		c.mu.Unlock()
		return models.RepairAction{}, apperr.Newf(
			apperr.KindConflict, "consistency", "repair_issue", "issue %s already resolved", issueID)
	}
	iss := *issue
	c.mu.Unlock()

	if strategy == "" {
		strategy = "auto"
	}
	if strategy != "auto" {
		return models.RepairAction{}, apperr.Newf(
			apperr.KindInvalid, "consistency", "repair_issue",
			"repair strategy %q not implemented", strategy)
	}

	action, err := c.autoRepair(ctx, iss)
	rec := models.RepairAction{
		IssueID:   issueID,
		Success:   err == nil,
		Action:    action,
		Timestamp: time.Now(),
	}
	if err != nil {
		rec.Message = err.Error()
		c.appendRepair(rec)
		return rec, err
	}
	rec.Message = "repaired " + string(iss.Type) + " for entity " + iss.EntityID

	c.mu.Lock()
	if cur, ok := c.issues[issueID]; ok {
		now := time.Now()
		cur.ResolvedAt = &now
	}
	c.mu.Unlock()
	c.appendRepair(rec)
	return rec, nil
}

// autoRepair applies the default strategy for each issue type and returns the
// action label.
func (c *Checker) autoRepair(ctx context.Context, iss models.ConsistencyIssue) (string, error) {
	m, ok := c.reg.GetMapping(iss.EntityID)
	if !ok && iss.Type != models.IssueOrphanedEntity {
		return "", apperr.Newf(apperr.KindNotFound, "consistency", "auto_repair",
			"mapping for entity %s no longer exists", iss.EntityID)
	}

	switch iss.Type {
	case models.IssueMissingVector:
		ids, err := c.vector.StoreChunks(ctx, []models.ChunkData{repairChunk(iss)}, iss.ProjectID)
		if err != nil {
			return "create_vector_data", err
		}
		if _, err := c.reg.UpdateMapping(iss.EntityID, registry.MappingUpdate{VectorID: &ids[0]}); err != nil {
			return "create_vector_data", err
		}
		return "created_vector_data", nil

	case models.IssueMissingGraph:
		ids, err := c.graph.StoreChunks(ctx, []models.ChunkData{repairChunk(iss)}, iss.ProjectID)
		if err != nil {
			return "create_graph_data", err
		}
		if _, err := c.reg.UpdateMapping(iss.EntityID, registry.MappingUpdate{GraphID: &ids[0]}); err != nil {
			return "create_graph_data", err
		}
		return "created_graph_data", nil

	case models.IssueDataMismatch:
		if err := c.reconcile(ctx, m); err != nil {
			return "resolve_data_mismatch", err
		}
		return "resolved_data_mismatch", nil

	case models.IssueOrphanedEntity:
		c.reg.DeleteMapping(iss.EntityID)
		return "removed_orphaned_entity", nil
	}
	return "", apperr.Newf(apperr.KindInvalid, "consistency", "auto_repair",
		"unknown issue type %q", iss.Type)
}

// RepairAllIssues repairs every unresolved issue in the project. Failures are
// logged and reported in their own slot; the loop never aborts.
func (c *Checker) RepairAllIssues(ctx context.Context, projectID string) []models.RepairAction {
	c.mu.Lock()
	var targets []string
	for id, iss := range c.issues {
		if iss.ProjectID == projectID && iss.ResolvedAt == nil {
			targets = append(targets, id)
		}
	}
	c.mu.Unlock()
	sort.Strings(targets)

	results := make([]models.RepairAction, 0, len(targets))
	for _, id := range targets {
		rec, err := c.RepairIssue(ctx, id, "auto")
		if err != nil {
			c.log.Error("repair failed", "project", projectID, "issue", id, "error", err)
			if rec.IssueID == "" {
				rec = models.RepairAction{IssueID: id, Message: err.Error(), Timestamp: time.Now()}
			}
		}
		results = append(results, rec)
	}
	return results
}

// GetIssues filters by project and severity (empty matches all), newest
// detections first.
func (c *Checker) GetIssues(projectID string, severity models.Severity) []models.ConsistencyIssue {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.ConsistencyIssue
	for _, iss := range c.issues {
		if projectID != "" && iss.ProjectID != projectID {
			continue
		}
		if severity != "" && iss.Severity != severity {
			continue
		}
		out = append(out, *iss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out
}

// GetConsistencyStats aggregates issue counts. The resolution rate is 0, not
// NaN, when there are no issues.
func (c *Checker) GetConsistencyStats(projectID string) models.ConsistencyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := models.ConsistencyStats{
		ByType:     make(map[models.IssueType]int),
		BySeverity: make(map[models.Severity]int),
	}
	for _, iss := range c.issues {
		if projectID != "" && iss.ProjectID != projectID {
			continue
		}
		stats.TotalIssues++
		if iss.ResolvedAt != nil {
			stats.ResolvedIssues++
		} else {
			stats.UnresolvedIssues++
		}
		stats.ByType[iss.Type]++
		stats.BySeverity[iss.Severity]++
	}
	if stats.TotalIssues > 0 {
		stats.ResolutionRate = float64(stats.ResolvedIssues) / float64(stats.TotalIssues)
	}
	return stats
}

// ClearResolvedIssues drops resolved issues and returns how many were
// removed.
func (c *Checker) ClearResolvedIssues(projectID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for id, iss := range c.issues {
		if projectID != "" && iss.ProjectID != projectID {
			continue
		}
		if iss.ResolvedAt != nil {
			delete(c.issues, id)
			n++
		}
	}
	return n
}

// GetRepairHistory returns the most recent repair actions, newest last.
// limit <= 0 means the default of 100.
func (c *Checker) GetRepairHistory(limit int) []models.RepairAction {
	if limit <= 0 {
		limit = 100
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.repairs) <= limit {
		return append([]models.RepairAction(nil), c.repairs...)
	}
	return append([]models.RepairAction(nil), c.repairs[len(c.repairs)-limit:]...)
}

// recordIssue creates an issue unless an unresolved one of the same type
// already exists for the entity; rescans must not pile up duplicates.
func (c *Checker) recordIssue(
	m models.EntityMapping,
	typ models.IssueType,
	sev models.Severity,
	desc string,
) (models.ConsistencyIssue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, iss := range c.issues {
		if iss.EntityID == m.EntityID && iss.Type == typ && iss.ResolvedAt == nil {
			return *iss, false
		}
	}
	iss := &models.ConsistencyIssue{
		ID:          util.GenerateID("issue"),
		Type:        typ,
		EntityID:    m.EntityID,
		EntityType:  m.EntityType,
		ProjectID:   m.ProjectID,
		Severity:    sev,
		Description: desc,
		DetectedAt:  time.Now(),
	}
	c.issues[iss.ID] = iss
	return *iss, true
}

func (c *Checker) appendRepair(rec models.RepairAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repairs = append(c.repairs, rec)
	if len(c.repairs) > repairHistoryLimit {
		c.repairs = c.repairs[len(c.repairs)-repairHistoryLimit:]
	}
}

func repairChunk(iss models.ConsistencyIssue) models.ChunkData {
	return models.ChunkData{
		Metadata: map[string]string{
			"entity_id":   iss.EntityID,
			"entity_type": string(iss.EntityType),
			"repaired":    "true",
		},
	}
}
