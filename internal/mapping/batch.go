package mapping

import (
	"context"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/util"
)

// BatchOperation describes one entity operation inside a batch. EntityID is
// required for update and delete; create generates one.
type BatchOperation struct {
	Type       models.OperationType
	EntityType models.EntityType
	EntityID   string
	VectorData *models.ChunkData
	GraphData  *models.ChunkData
}

// CreateBatch registers a batch of operations for later execution.
func (s *Service) CreateBatch(projectID string, operations []BatchOperation) models.SyncBatch {
	batch := &models.SyncBatch{
		ID:        util.GenerateID("batch"),
		ProjectID: projectID,
		Status:    models.BatchPending,
		CreatedAt: time.Now(),
	}
	for _, bo := range operations {
		batch.Operations = append(batch.Operations, models.SyncOperation{
			ID:         util.GenerateID("op"),
			Type:       bo.Type,
			EntityType: bo.EntityType,
			EntityID:   bo.EntityID,
			ProjectID:  projectID,
			VectorData: bo.VectorData,
			GraphData:  bo.GraphData,
			Timestamp:  time.Now(),
			Status:     models.OpPending,
		})
	}
	s.mu.Lock()
	s.batches[batch.ID] = batch
	s.mu.Unlock()
	return *batch
}

// ExecuteBatch runs the batch sequentially with per-item isolation: a failed
// operation is logged and becomes a failed result slot, and execution moves
// on. The batch completes only if every operation succeeded.
func (s *Service) ExecuteBatch(ctx context.Context, batchID string) ([]models.SyncResult, error) {
	s.mu.Lock()
	batch, ok := s.batches[batchID]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.Newf(apperr.KindNotFound, "mapping", "execute_batch",
			"batch %s not found", batchID)
	}
	if batch.Status != models.BatchPending {
		s.mu.Unlock()
		return nil, apperr.Newf(apperr.KindConflict, "mapping", "execute_batch",
			"batch %s already %s", batchID, batch.Status)
	}
	batch.Status = models.BatchExecuting
	ops := append([]models.SyncOperation(nil), batch.Operations...)
	s.mu.Unlock()

	results := make([]models.SyncResult, len(ops))
	allOK := true
	for i, op := range ops {
		res, err := s.executeBatchOperation(ctx, op)
		if err != nil {
			s.log.Error("batch operation failed",
				"batch", batchID, "operation", op.ID, "type", op.Type, "error", err)
			res = models.SyncResult{EntityID: op.EntityID, Error: err.Error()}
		}
		if !res.Success {
			allOK = false
		}
		results[i] = res
	}

	s.mu.Lock()
	if allOK {
		batch.Status = models.BatchCompleted
	} else {
		batch.Status = models.BatchFailed
	}
	batch.Results = results
	s.mu.Unlock()
	return results, nil
}

// GetBatch returns a copy of the batch, or false if unknown.
func (s *Service) GetBatch(batchID string) (models.SyncBatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return models.SyncBatch{}, false
	}
	return *b, true
}

func (s *Service) executeBatchOperation(
	ctx context.Context,
	op models.SyncOperation,
) (models.SyncResult, error) {
	switch op.Type {
	case models.OpCreate:
		return s.CreateEntity(ctx, op.EntityType, op.ProjectID, op.VectorData, op.GraphData)
	case models.OpUpdate:
		return s.UpdateEntity(ctx, op.EntityID, op.VectorData, op.GraphData)
	case models.OpDelete:
		return s.DeleteEntity(ctx, op.EntityID)
	default:
		return models.SyncResult{}, apperr.Newf(apperr.KindInvalid, "mapping", "execute_batch",
			"unknown operation type %q", op.Type)
	}
}
