package mapping

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/txn"
	"github.com/0x99f/dualsync/internal/util"
)

const historyLimit = 1000

// Service is the façade callers use to mutate an entity's dual-store
// representation. It translates entity operations into registry updates and
// coordinator transactions and keeps a bounded operation history.
//
// Single-entity methods return a definitive error after recording the failed
// operation; project/batch methods never do, reporting per-item results
// instead.
type Service struct {
	reg     *registry.Registry
	coord   *txn.Coordinator
	log     *slog.Logger
	workers int

	mu      sync.Mutex
	pending map[string]*models.SyncOperation
	history []models.SyncOperation
	batches map[string]*models.SyncBatch
}

// Option configures a Service.
type Option func(*Service)

// WithSyncWorkers enables bounded parallelism for SyncProject. Anything below
// 2 keeps the default sequential behavior.
func WithSyncWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

func NewService(reg *registry.Registry, coord *txn.Coordinator, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		reg:     reg,
		coord:   coord,
		log:     log.With("component", "mapping"),
		pending: make(map[string]*models.SyncOperation),
		batches: make(map[string]*models.SyncBatch),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateEntity registers a new entity and writes whichever stores have
// supplied data. The mapping is created before the store writes: if the
// transaction fails, the mapping is left behind in conflict state, exactly
// what the consistency checker looks for.
func (s *Service) CreateEntity(
	ctx context.Context,
	entityType models.EntityType,
	projectID string,
	vectorData, graphData *models.ChunkData,
) (models.SyncResult, error) {
	entityID := s.reg.GenerateEntityID(entityType, projectID)
	op := s.beginOperation(models.OpCreate, entityType, entityID, projectID, vectorData, graphData)

	if _, err := s.reg.CreateMapping(entityID, entityType, projectID, "", ""); err != nil {
		return s.failOperation(op, err), err
	}

	var steps []txn.Step
	if vectorData != nil {
		steps = append(steps, txn.Step{
			Type:         txn.StepVector,
			Operation:    txn.Operation{Type: txn.OpStoreChunks, Items: []models.ChunkData{*vectorData}},
			Compensating: &txn.Operation{Type: txn.OpDeleteChunks},
		})
	}
	if graphData != nil {
		steps = append(steps, txn.Step{
			Type:         txn.StepGraph,
			Operation:    txn.Operation{Type: txn.OpStoreChunks, Items: []models.ChunkData{*graphData}},
			Compensating: &txn.Operation{Type: txn.OpDeleteNodes},
		})
	}
	return s.runAndRegister(ctx, op, entityID, steps)
}

// UpdateEntity rewrites the supplied sides of an existing entity, leaving the
// other store's id untouched.
func (s *Service) UpdateEntity(
	ctx context.Context,
	entityID string,
	vectorData, graphData *models.ChunkData,
) (models.SyncResult, error) {
	m, ok := s.reg.GetMapping(entityID)
	if !ok {
		return models.SyncResult{EntityID: entityID}, apperr.Newf(
			apperr.KindNotFound, "mapping", "update_entity", "entity %s not found", entityID)
	}
	op := s.beginOperation(models.OpUpdate, m.EntityType, entityID, m.ProjectID, vectorData, graphData)

	var steps []txn.Step
	if vectorData != nil {
		item := *vectorData
		if item.ID == "" {
			item.ID = m.VectorID
		}
		steps = append(steps, txn.Step{
			Type:         txn.StepVector,
			Operation:    txn.Operation{Type: txn.OpStoreChunks, Items: []models.ChunkData{item}},
			Compensating: &txn.Operation{Type: txn.OpDeleteChunks},
		})
	}
	if graphData != nil {
		item := *graphData
		if item.ID == "" {
			item.ID = m.GraphID
		}
		steps = append(steps, txn.Step{
			Type:         txn.StepGraph,
			Operation:    txn.Operation{Type: txn.OpStoreChunks, Items: []models.ChunkData{item}},
			Compensating: &txn.Operation{Type: txn.OpDeleteNodes},
		})
	}
	return s.runAndRegister(ctx, op, entityID, steps)
}

// DeleteEntity removes the entity from both stores, then drops its mapping.
// The compensating restores undo the soft deletes if a later step fails.
func (s *Service) DeleteEntity(ctx context.Context, entityID string) (models.SyncResult, error) {
	m, ok := s.reg.GetMapping(entityID)
	if !ok {
		return models.SyncResult{EntityID: entityID}, apperr.Newf(
			apperr.KindNotFound, "mapping", "delete_entity", "entity %s not found", entityID)
	}
	op := s.beginOperation(models.OpDelete, m.EntityType, entityID, m.ProjectID, nil, nil)

	var steps []txn.Step
	if m.VectorID != "" {
		steps = append(steps, txn.Step{
			Type:         txn.StepVector,
			Operation:    txn.Operation{Type: txn.OpDeleteChunks, IDs: []string{m.VectorID}},
			Compensating: &txn.Operation{Type: txn.OpRestoreChunks, IDs: []string{m.VectorID}},
		})
	}
	if m.GraphID != "" {
		steps = append(steps, txn.Step{
			Type:         txn.StepGraph,
			Operation:    txn.Operation{Type: txn.OpDeleteNodes, IDs: []string{m.GraphID}},
			Compensating: &txn.Operation{Type: txn.OpRestoreNodes, IDs: []string{m.GraphID}},
		})
	}

	start := time.Now()
	res, err := s.coord.ExecuteTransaction(ctx, m.ProjectID, steps)
	if err != nil {
		return s.failOperation(op, err), err
	}
	if !res.Success {
		execErr := apperr.New(apperr.KindExecution, "mapping", "delete_entity", res.Error)
		return s.failOperation(op, execErr), execErr
	}
	s.reg.DeleteMapping(entityID)
	s.completeOperation(op)
	return models.SyncResult{EntityID: entityID, Success: true, Duration: time.Since(start)}, nil
}

// SyncEntity reconciles a non-synced mapping by writing to whichever store is
// missing; a conflict mapping gets both sides. An already-synced entity is an
// immediate no-op success with zero store calls.
func (s *Service) SyncEntity(ctx context.Context, entityID string) (models.SyncResult, error) {
	m, ok := s.reg.GetMapping(entityID)
	if !ok {
		return models.SyncResult{EntityID: entityID}, apperr.Newf(
			apperr.KindNotFound, "mapping", "sync_entity", "entity %s not found", entityID)
	}
	if m.SyncStatus == models.StatusSynced {
		return models.SyncResult{
			EntityID: entityID,
			Success:  true,
			VectorID: m.VectorID,
			GraphID:  m.GraphID,
		}, nil
	}
	op := s.beginOperation(models.OpUpdate, m.EntityType, entityID, m.ProjectID, nil, nil)

	var steps []txn.Step
	if m.VectorID == "" {
		steps = append(steps, txn.Step{
			Type: txn.StepVector,
			Operation: txn.Operation{
				Type:  txn.OpStoreChunks,
				Items: []models.ChunkData{recoveryChunk(m)},
			},
			Compensating: &txn.Operation{Type: txn.OpDeleteChunks},
		})
	}
	if m.GraphID == "" {
		steps = append(steps, txn.Step{
			Type: txn.StepGraph,
			Operation: txn.Operation{
				Type:  txn.OpStoreChunks,
				Items: []models.ChunkData{recoveryChunk(m)},
			},
			Compensating: &txn.Operation{Type: txn.OpDeleteNodes},
		})
	}
	return s.runAndRegister(ctx, op, entityID, steps)
}

// SyncProject reconciles every unsynced mapping of a project. One entity's
// failure is confined to its own result slot and never aborts the loop.
// Results are in the same order as the unsynced mapping list.
func (s *Service) SyncProject(ctx context.Context, projectID string) []models.SyncResult {
	unsynced := s.reg.GetUnsyncedMappings(projectID)
	results := make([]models.SyncResult, len(unsynced))

	syncOne := func(i int, m models.EntityMapping) {
		res, err := s.SyncEntity(ctx, m.EntityID)
		if err != nil {
			s.log.Error("sync entity failed",
				"project", projectID, "entity", m.EntityID, "error", err)
			results[i] = models.SyncResult{EntityID: m.EntityID, Error: err.Error()}
			return
		}
		results[i] = res
	}

	if s.workers > 1 {
		s.syncParallel(unsynced, syncOne)
	} else {
		for i, m := range unsynced {
			syncOne(i, m)
		}
	}
	return results
}

// GetPendingOperations returns operations that have not reached a terminal
// state yet.
func (s *Service) GetPendingOperations() []models.SyncOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncOperation, 0, len(s.pending))
	for _, op := range s.pending {
		out = append(out, *op)
	}
	return out
}

// GetOperationHistory returns the most recent terminal operations, newest
// last. limit <= 0 means the default of 100.
func (s *Service) GetOperationHistory(limit int) []models.SyncOperation {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) <= limit {
		return append([]models.SyncOperation(nil), s.history...)
	}
	return append([]models.SyncOperation(nil), s.history[len(s.history)-limit:]...)
}

// GetSyncStats delegates to the registry.
func (s *Service) GetSyncStats(projectID string) models.SyncStats {
	return s.reg.GetSyncStats(projectID)
}

// runAndRegister executes the steps and records the produced store ids on the
// mapping. Used by every path that writes chunks.
func (s *Service) runAndRegister(
	ctx context.Context,
	op *models.SyncOperation,
	entityID string,
	steps []txn.Step,
) (models.SyncResult, error) {
	start := time.Now()
	res, err := s.coord.ExecuteTransaction(ctx, op.ProjectID, steps)
	if err != nil {
		return s.failOperation(op, err), err
	}
	if !res.Success {
		execErr := apperr.New(apperr.KindExecution, "mapping", string(op.Type), res.Error)
		return s.failOperation(op, execErr), execErr
	}

	upd := registry.MappingUpdate{}
	if len(res.VectorIDs) > 0 {
		upd.VectorID = &res.VectorIDs[0]
	}
	if len(res.GraphIDs) > 0 {
		upd.GraphID = &res.GraphIDs[0]
	}
	m, err := s.reg.UpdateMapping(entityID, upd)
	if err != nil {
		return s.failOperation(op, err), err
	}
	if m == nil {
		nf := apperr.Newf(apperr.KindNotFound, "mapping", string(op.Type),
			"mapping for %s vanished during sync", entityID)
		return s.failOperation(op, nf), nf
	}

	s.completeOperation(op)
	return models.SyncResult{
		EntityID: entityID,
		Success:  true,
		VectorID: m.VectorID,
		GraphID:  m.GraphID,
		Duration: time.Since(start),
	}, nil
}

func (s *Service) beginOperation(
	typ models.OperationType,
	entityType models.EntityType,
	entityID, projectID string,
	vectorData, graphData *models.ChunkData,
) *models.SyncOperation {
	op := &models.SyncOperation{
		ID:         util.GenerateID("op"),
		Type:       typ,
		EntityType: entityType,
		EntityID:   entityID,
		ProjectID:  projectID,
		VectorData: vectorData,
		GraphData:  graphData,
		Timestamp:  time.Now(),
		Status:     models.OpInProgress,
	}
	s.mu.Lock()
	s.pending[op.ID] = op
	s.mu.Unlock()
	return op
}

func (s *Service) completeOperation(op *models.SyncOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op.Status = models.OpCompleted
	delete(s.pending, op.ID)
	s.appendHistory(*op)
}

// failOperation records the failure and builds the result slot; the caller
// still returns the error itself.
func (s *Service) failOperation(op *models.SyncOperation, err error) models.SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	op.Status = models.OpFailed
	op.Error = err.Error()
	delete(s.pending, op.ID)
	s.appendHistory(*op)
	return models.SyncResult{EntityID: op.EntityID, Error: err.Error()}
}

func (s *Service) appendHistory(op models.SyncOperation) {
	s.history = append(s.history, op)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// recoveryChunk synthesizes a minimal payload for a store side that lost its
// representation. The real content is rebuilt by the next ingestion pass; the
// marker keeps the entity searchable by id until then.
func recoveryChunk(m models.EntityMapping) models.ChunkData {
	return models.ChunkData{
		Metadata: map[string]string{
			"entity_id":   m.EntityID,
			"entity_type": string(m.EntityType),
			"recovered":   "true",
		},
	}
}
