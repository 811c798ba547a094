package txn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/storage"
	"github.com/0x99f/dualsync/internal/util"
)

const historyLimit = 1000

// Coordinator executes ordered dual-store write steps as one logical unit.
// There is no shared commit protocol between the two stores, so failure
// handling is saga-style: on the first failed step, already-executed steps
// are compensated in reverse order, best effort.
type Coordinator struct {
	vector storage.VectorStore
	graph  storage.GraphStore
	reg    *registry.Registry
	log    *slog.Logger

	mu      sync.Mutex
	active  map[string]*Transaction
	history []*Transaction
	session *Transaction
}

func NewCoordinator(
	vector storage.VectorStore,
	graph storage.GraphStore,
	reg *registry.Registry,
	log *slog.Logger,
) *Coordinator {
	return &Coordinator{
		vector: vector,
		graph:  graph,
		reg:    reg,
		log:    log.With("component", "txn"),
		active: make(map[string]*Transaction),
	}
}

// ExecuteTransaction validates all step types upfront, then runs the steps
// strictly in order. On the first failure it stops, compensates executed
// steps in reverse order, and returns Success=false with the step's error.
// The only error return is upfront validation; everything past validation is
// reported through the Result.
func (c *Coordinator) ExecuteTransaction(
	ctx context.Context,
	projectID string,
	steps []Step,
) (Result, error) {
	if err := validateSteps(steps); err != nil {
		return Result{}, err
	}
	tx := c.newTransaction(projectID, steps)
	c.trackActive(tx)
	res := c.run(ctx, tx)
	c.retire(tx)
	return res, nil
}

func (c *Coordinator) newTransaction(projectID string, steps []Step) *Transaction {
	tx := &Transaction{
		ID:        util.GenerateID("tx"),
		ProjectID: projectID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	for i := range steps {
		s := steps[i]
		if s.ID == "" {
			s.ID = util.GenerateID("step")
		}
		tx.Steps = append(tx.Steps, &s)
	}
	return tx
}

// run drives the execute/compensate state machine. Callers must not hold the
// coordinator lock: store calls are the suspension points and can be slow.
func (c *Coordinator) run(ctx context.Context, tx *Transaction) Result {
	start := time.Now()
	c.setStatus(tx, StatusExecuting)

	res := Result{TransactionID: tx.ID}
	for _, step := range tx.Steps {
		if c.cancelled(tx) {
			break
		}
		if err := c.executeStep(ctx, tx, step); err != nil {
			c.log.Error("step failed",
				"transaction", tx.ID, "step", step.ID, "type", step.Type, "error", err)
			c.setError(tx, err.Error())
			c.compensateTransaction(ctx, tx)
			c.finish(tx, StatusFailed)
			res.Error = err.Error()
			res.Duration = time.Since(start)
			return res
		}
		res.ExecutedSteps++
		switch step.Type {
		case StepVector:
			res.VectorIDs = append(res.VectorIDs, step.ResultIDs...)
		case StepGraph:
			res.GraphIDs = append(res.GraphIDs, step.ResultIDs...)
		}
	}
	if c.cancelled(tx) {
		res.Error = tx.Error
		res.Duration = time.Since(start)
		return res
	}
	c.finish(tx, StatusCompleted)
	res.Success = true
	res.Duration = time.Since(start)
	return res
}

// executeStep dispatches on the step type and marks Executed only on success.
func (c *Coordinator) executeStep(ctx context.Context, tx *Transaction, step *Step) error {
	ids, err := c.apply(ctx, tx, step.Type, step.Operation)
	if err != nil {
		return err
	}
	step.ResultIDs = ids
	step.Executed = true
	return nil
}

// apply runs one operation against the matching backend. Unrecognized
// operation types are logged and treated as successful no-ops so that newer
// writers don't break older coordinators.
func (c *Coordinator) apply(
	ctx context.Context,
	tx *Transaction,
	stepType StepType,
	op Operation,
) ([]string, error) {
	switch stepType {
	case StepVector:
		switch op.Type {
		case OpStoreChunks:
			return c.vector.StoreChunks(ctx, op.Items, tx.ProjectID)
		case OpDeleteChunks:
			return nil, c.vector.DeleteChunks(ctx, op.IDs)
		case OpRestoreChunks:
			return nil, c.vector.RestoreChunks(ctx, op.IDs)
		}
	case StepGraph:
		switch op.Type {
		case OpStoreChunks:
			return c.graph.StoreChunks(ctx, op.Items, tx.ProjectID)
		case OpDeleteNodes:
			return nil, c.graph.DeleteNodes(ctx, op.IDs)
		case OpRestoreNodes:
			return nil, c.graph.RestoreNodes(ctx, op.IDs)
		}
	case StepMapping:
		switch op.Type {
		case OpUpdateMapping:
			upd := registry.MappingUpdate{}
			if op.Update != nil {
				upd = *op.Update
			}
			_, err := c.reg.UpdateMapping(op.EntityID, upd)
			return nil, err
		case OpDeleteMapping:
			c.reg.DeleteMapping(op.EntityID)
			return nil, nil
		}
	}
	c.log.Warn("unknown operation type, treating as no-op",
		"transaction", tx.ID, "step_type", stepType, "operation", op.Type)
	return nil, nil
}

// compensateTransaction unwinds executed steps in reverse order. A failing
// compensating operation is logged and skipped; the remaining steps are still
// unwound. The result is best-effort, not guaranteed-consistent.
func (c *Coordinator) compensateTransaction(ctx context.Context, tx *Transaction) {
	c.setStatus(tx, StatusCompensating)
	for i := len(tx.Steps) - 1; i >= 0; i-- {
		step := tx.Steps[i]
		if !step.Executed || step.Compensating == nil {
			continue
		}
		comp := *step.Compensating
		if len(comp.IDs) == 0 && len(step.ResultIDs) > 0 {
			comp.IDs = step.ResultIDs
		}
		if _, err := c.apply(ctx, tx, step.Type, comp); err != nil {
			c.log.Error("compensation failed",
				"transaction", tx.ID, "step", step.ID, "operation", comp.Type, "error", err)
			continue
		}
		step.Compensated = true
	}
}

// CancelTransaction marks a pending or executing transaction failed and drops
// it from the active set. It does not compensate and cannot abort a store
// call already in flight; it is a post-hoc override.
func (c *Coordinator) CancelTransaction(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.active[id]
	if !ok || (tx.Status != StatusPending && tx.Status != StatusExecuting) {
		return false
	}
	tx.Status = StatusFailed
	tx.Error = "Cancelled by user"
	now := time.Now()
	tx.CompletedAt = &now
	delete(c.active, id)
	c.history = append(c.history, tx)
	c.trimHistory()
	return true
}

// GetTransaction looks up a transaction in the active set or history.
func (c *Coordinator) GetTransaction(id string) (*Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx, ok := c.active[id]; ok {
		return tx, true
	}
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].ID == id {
			return c.history[i], true
		}
	}
	return nil, false
}

func (c *Coordinator) GetActiveTransactions() []*Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Transaction, 0, len(c.active))
	for _, tx := range c.active {
		out = append(out, tx)
	}
	return out
}

// GetTransactionHistory returns the most recent terminal transactions, newest
// last. limit <= 0 means the default of 100.
func (c *Coordinator) GetTransactionHistory(limit int) []*Transaction {
	if limit <= 0 {
		limit = 100
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) <= limit {
		return append([]*Transaction(nil), c.history...)
	}
	return append([]*Transaction(nil), c.history[len(c.history)-limit:]...)
}

// GetStats derives activity statistics from recent history.
func (c *Coordinator) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := Stats{ActiveTransactions: len(c.active)}
	if len(c.history) == 0 {
		return stats
	}
	var completed int
	var total time.Duration
	for _, tx := range c.history {
		if tx.Status == StatusCompleted {
			completed++
		}
		if tx.CompletedAt != nil {
			total += tx.CompletedAt.Sub(tx.CreatedAt)
		}
	}
	stats.RecentSuccessRate = float64(completed) / float64(len(c.history))
	stats.AverageTransactionTime = total / time.Duration(len(c.history))
	return stats
}

func validateSteps(steps []Step) error {
	for i, s := range steps {
		switch s.Type {
		case StepVector, StepGraph, StepMapping:
		default:
			return apperr.Newf(apperr.KindInvalid, "txn", "validate_steps",
				"step %d has unknown type %q", i, s.Type).
				WithMeta("step_index", i)
		}
	}
	return nil
}

func (c *Coordinator) trackActive(tx *Transaction) {
	c.mu.Lock()
	c.active[tx.ID] = tx
	c.mu.Unlock()
}

// retire moves a terminal transaction from the active set into history. A
// cancelled transaction was already retired by CancelTransaction.
func (c *Coordinator) retire(tx *Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[tx.ID]; !ok {
		return
	}
	delete(c.active, tx.ID)
	c.history = append(c.history, tx)
	c.trimHistory()
}

func (c *Coordinator) trimHistory() {
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

func (c *Coordinator) setStatus(tx *Transaction, s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a cancel that raced us wins
	if tx.Status == StatusFailed && tx.Error == "Cancelled by user" {
		return
	}
	tx.Status = s
}

func (c *Coordinator) setError(tx *Transaction, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx.Error == "" {
		tx.Error = msg
	}
}

func (c *Coordinator) cancelled(tx *Transaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tx.Status == StatusFailed && tx.Error == "Cancelled by user"
}

func (c *Coordinator) finish(tx *Transaction, s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx.Status == StatusFailed && tx.Error == "Cancelled by user" {
		return
	}
	tx.Status = s
	now := time.Now()
	tx.CompletedAt = &now
}
