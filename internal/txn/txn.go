package txn

import (
	"time"

	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/registry"
)

type StepType string

const (
	StepVector  StepType = "vector"
	StepGraph   StepType = "graph"
	StepMapping StepType = "mapping"
)

// Operation type vocabulary per step type. Unrecognized types are treated as
// no-op successes for forward compatibility, never as failures.
const (
	OpStoreChunks   = "store_chunks"
	OpDeleteChunks  = "delete_chunks"
	OpRestoreChunks = "restore_chunks"
	OpDeleteNodes   = "delete_nodes"
	OpRestoreNodes  = "restore_nodes"
	OpUpdateMapping = "update_mapping"
	OpDeleteMapping = "delete_mapping"
)

// Operation describes one store or registry action. Which fields matter
// depends on Type: store writes use Items, deletes/restores use IDs, mapping
// operations use EntityID and Update.
type Operation struct {
	Type     string
	Items    []models.ChunkData
	IDs      []string
	EntityID string
	Update   *registry.MappingUpdate
}

// Step is one unit of a transaction. ResultIDs holds the store-side ids a
// successful store write produced; compensation falls back to them when the
// compensating operation has no explicit ids.
type Step struct {
	ID           string
	Type         StepType
	Operation    Operation
	Compensating *Operation
	Executed     bool
	Compensated  bool
	ResultIDs    []string
}

type Status string

const (
	StatusPending      Status = "pending"
	StatusExecuting    Status = "executing"
	StatusCompensating Status = "compensating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Transaction is the saga execution unit: an ordered step list plus its
// lifecycle state. Steps execute strictly in slice order; compensation runs
// over executed steps strictly in reverse.
type Transaction struct {
	ID          string
	ProjectID   string
	Steps       []*Step
	Status      Status
	CreatedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Result is the caller-facing outcome of one transaction. VectorIDs and
// GraphIDs aggregate the ids produced by successful store writes, in step
// order.
type Result struct {
	TransactionID string
	Success       bool
	ExecutedSteps int
	VectorIDs     []string
	GraphIDs      []string
	Error         string
	Duration      time.Duration
}

// Stats summarizes coordinator activity over recent history.
type Stats struct {
	ActiveTransactions     int
	RecentSuccessRate      float64
	AverageTransactionTime time.Duration
}
