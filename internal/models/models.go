package models

import "time"

type EntityType string

const (
	EntityFile     EntityType = "file"
	EntityFunction EntityType = "function"
	EntityClass    EntityType = "class"
	EntitySymbol   EntityType = "symbol"
	EntitySnippet  EntityType = "snippet"
)

// SyncStatus classifies how an entity's two store-side representations agree.
// It is always derived from which store ids are present, never set directly.
type SyncStatus string

const (
	StatusSynced     SyncStatus = "synced"
	StatusVectorOnly SyncStatus = "vector_only"
	StatusGraphOnly  SyncStatus = "graph_only"
	StatusConflict   SyncStatus = "conflict"
)

// DeriveSyncStatus computes the status from the presence of the two store ids.
func DeriveSyncStatus(vectorID, graphID string) SyncStatus {
	switch {
	case vectorID != "" && graphID != "":
		return StatusSynced
	case vectorID != "":
		return StatusVectorOnly
	case graphID != "":
		return StatusGraphOnly
	default:
		return StatusConflict
	}
}

// EntityMapping correlates one logical entity with its representation in the
// vector store and the graph store. An empty VectorID/GraphID means the entity
// has no representation in that store.
type EntityMapping struct {
	EntityID   string
	EntityType EntityType
	ProjectID  string
	VectorID   string
	GraphID    string
	LastSynced time.Time
	SyncStatus SyncStatus
}

type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
)

type OperationStatus string

const (
	OpPending    OperationStatus = "pending"
	OpInProgress OperationStatus = "in_progress"
	OpCompleted  OperationStatus = "completed"
	OpFailed     OperationStatus = "failed"
)

// ChunkData is the store-facing payload for one entity. The consistency layer
// treats it as opaque; only the stores interpret it.
type ChunkData struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SyncOperation is an intent to mutate one entity's dual-store representation.
type SyncOperation struct {
	ID         string
	Type       OperationType
	EntityType EntityType
	EntityID   string
	ProjectID  string
	VectorData *ChunkData
	GraphData  *ChunkData
	Timestamp  time.Time
	Status     OperationStatus
	Error      string
}

// SyncResult is the outcome of one entity-level operation.
type SyncResult struct {
	EntityID string
	Success  bool
	VectorID string
	GraphID  string
	Error    string
	Duration time.Duration
}

type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchExecuting BatchStatus = "executing"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// SyncBatch groups operations executed sequentially with per-item isolation.
type SyncBatch struct {
	ID         string
	ProjectID  string
	Operations []SyncOperation
	Status     BatchStatus
	CreatedAt  time.Time
	Results    []SyncResult
}

// SyncStats summarizes mapping statuses for a project (or all projects).
type SyncStats struct {
	Total      int
	Synced     int
	VectorOnly int
	GraphOnly  int
	Conflicts  int
}

type IssueType string

const (
	IssueMissingVector  IssueType = "missing_vector"
	IssueMissingGraph   IssueType = "missing_graph"
	IssueDataMismatch   IssueType = "data_mismatch"
	IssueOrphanedEntity IssueType = "orphaned_entity"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ConsistencyIssue is a detected divergence between intended and actual
// dual-store state. Immutable once created except for ResolvedAt.
type ConsistencyIssue struct {
	ID          string
	Type        IssueType
	EntityID    string
	EntityType  EntityType
	ProjectID   string
	Severity    Severity
	Description string
	DetectedAt  time.Time
	ResolvedAt  *time.Time
}

// RepairAction records the outcome of one repair attempt.
type RepairAction struct {
	IssueID   string
	Success   bool
	Action    string
	Message   string
	Timestamp time.Time
}

// ConsistencyReport is the result of one project scan.
type ConsistencyReport struct {
	ProjectID     string
	TotalEntities int
	IssuesFound   int
	Issues        []ConsistencyIssue
	CheckedAt     time.Time
	Duration      time.Duration
}

// ConsistencyStats aggregates issue counts and resolution progress.
type ConsistencyStats struct {
	TotalIssues      int
	ResolvedIssues   int
	UnresolvedIssues int
	ResolutionRate   float64
	ByType           map[IssueType]int
	BySeverity       map[Severity]int
}
