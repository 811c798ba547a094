package txn

import (
	"context"
	"time"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/util"
)

// Session is the interactive transaction builder: steps are accumulated with
// AddVectorOperation/AddGraphOperation, then executed by Commit or undone by
// Rollback. The handle is explicit so independent coordinators never share
// builder state, but each coordinator still allows only one open session at a
// time.
type Session struct {
	coord *Coordinator
	tx    *Transaction
}

// Begin opens a new interactive transaction. It fails fast with a conflict
// error if this coordinator already has one open.
func (c *Coordinator) Begin(projectID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil, apperr.New(apperr.KindConflict, "txn", "begin",
			"a transaction is already open on this coordinator")
	}
	tx := &Transaction{
		ID:        util.GenerateID("tx"),
		ProjectID: projectID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	c.session = tx
	c.active[tx.ID] = tx
	return &Session{coord: c, tx: tx}, nil
}

// ID returns the underlying transaction id.
func (s *Session) ID() string { return s.tx.ID }

// AddVectorOperation appends a vector-store step with an optional
// compensating operation.
func (s *Session) AddVectorOperation(op Operation, compensating *Operation) error {
	return s.add(StepVector, op, compensating)
}

// AddGraphOperation appends a graph-store step with an optional compensating
// operation.
func (s *Session) AddGraphOperation(op Operation, compensating *Operation) error {
	return s.add(StepGraph, op, compensating)
}

// AddMappingOperation appends a registry step. Registry writes rarely need
// compensation but the slot is there for symmetry.
func (s *Session) AddMappingOperation(op Operation, compensating *Operation) error {
	return s.add(StepMapping, op, compensating)
}

func (s *Session) add(stepType StepType, op Operation, compensating *Operation) error {
	c := s.coord
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s.tx {
		return apperr.New(apperr.KindConflict, "txn", "add_operation", "no active transaction")
	}
	s.tx.Steps = append(s.tx.Steps, &Step{
		ID:           util.GenerateID("step"),
		Type:         stepType,
		Operation:    op,
		Compensating: compensating,
	})
	return nil
}

// Commit runs the accumulated steps through the same execute/compensate
// algorithm as ExecuteTransaction. The session is closed regardless of
// outcome; reuse after Commit fails with "no active transaction".
func (s *Session) Commit(ctx context.Context) (Result, error) {
	c := s.coord
	c.mu.Lock()
	if c.session != s.tx {
		c.mu.Unlock()
		return Result{}, apperr.New(apperr.KindConflict, "txn", "commit", "no active transaction")
	}
	c.session = nil
	c.mu.Unlock()

	res := c.run(ctx, s.tx)
	c.retire(s.tx)
	return res, nil
}

// Rollback force-compensates every executed step and closes the session. On a
// never-committed session there is nothing executed, so this just discards
// the accumulated steps.
func (s *Session) Rollback(ctx context.Context) error {
	c := s.coord
	c.mu.Lock()
	if c.session != s.tx {
		c.mu.Unlock()
		return apperr.New(apperr.KindConflict, "txn", "rollback", "no active transaction")
	}
	c.session = nil
	c.mu.Unlock()

	c.compensateTransaction(ctx, s.tx)
	c.mu.Lock()
	s.tx.Status = StatusFailed
	s.tx.Error = "rolled back"
	now := time.Now()
	s.tx.CompletedAt = &now
	c.mu.Unlock()
	c.retire(s.tx)
	return nil
}
