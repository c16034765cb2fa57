package model

import (
	"time"
)

// WriteRequest persists a dataset to a table location
type WriteRequest struct {
	Location string       `json:"location" validate:"required"`
	Mode     WriteMode    `json:"mode" validate:"required"`
	Schema   *TableSchema `json:"schema,omitempty"`
	Rows     []Row        `json:"rows" validate:"required"`
}

// WriteResponse reports the committed version
type WriteResponse struct {
	Location    string    `json:"location"`
	Version     int64     `json:"version"`
	Operation   string    `json:"operation"`
	RowsWritten int64     `json:"rowsWritten"`
	CommittedAt time.Time `json:"committedAt"`
}

// ReadRequest reads a table location at an optional historical version
type ReadRequest struct {
	Location      string   `json:"location" validate:"required"`
	VersionAsOf   *int64   `json:"versionAsOf,omitempty"`
	TimestampAsOf *string  `json:"timestampAsOf,omitempty"` // RFC3339
	Columns       []string `json:"columns,omitempty"`
	Limit         int      `json:"limit" validate:"omitempty,min=1,max=100000"`
}

// ReadResponse carries a snapshot of a table
type ReadResponse struct {
	Location string      `json:"location"`
	Version  int64       `json:"version"`
	Schema   TableSchema `json:"schema"`
	Rows     []Row       `json:"rows"`
	RowCount int64       `json:"rowCount"`
}

// UpdateRequest applies column expressions to rows matching a condition
type UpdateRequest struct {
	Location    string       `json:"location" validate:"required"`
	Condition   Filter       `json:"condition"`
	Assignments []Assignment `json:"assignments" validate:"required,min=1,dive"`
}

// DeleteRequest removes rows matching a condition
type DeleteRequest struct {
	Location  string `json:"location" validate:"required"`
	Condition Filter `json:"condition"`
}

// MutationResponse reports a conditional update or delete
type MutationResponse struct {
	Location     string `json:"location"`
	Version      int64  `json:"version"`
	RowsAffected int64  `json:"rowsAffected"`
}

// HistoryResponse lists a table's commit history, newest first
type HistoryResponse struct {
	Location string       `json:"location"`
	Commits  []CommitInfo `json:"commits"`
}

// StartStreamRequest starts a micro-batch ingest stream into a table
type StartStreamRequest struct {
	Name               string       `json:"name" validate:"required"`
	SourceLocation     string       `json:"sourceLocation" validate:"required"`
	SourceFormat       string       `json:"sourceFormat" validate:"required,oneof=csv json avro delta"`
	TargetLocation     string       `json:"targetLocation" validate:"required"`
	CheckpointLocation string       `json:"checkpointLocation" validate:"required"`
	MaxFilesPerTrigger int          `json:"maxFilesPerTrigger" validate:"omitempty,min=1"`
	TriggerIntervalMs  int          `json:"triggerIntervalMs" validate:"omitempty,min=100"`
	IgnoreChanges      bool         `json:"ignoreChanges"`
	IgnoreDeletes      bool         `json:"ignoreDeletes"`
	Schema             *TableSchema `json:"schema,omitempty"`
}

// StreamStatus describes a running or stopped stream
type StreamStatus struct {
	Name             string    `json:"name"`
	State            string    `json:"state"` // running, stopping, stopped, failed
	SourceLocation   string    `json:"sourceLocation"`
	TargetLocation   string    `json:"targetLocation"`
	BatchesCommitted int64     `json:"batchesCommitted"`
	RowsCommitted    int64     `json:"rowsCommitted"`
	LastBatchAt      time.Time `json:"lastBatchAt,omitempty"`
	StartedAt        time.Time `json:"startedAt"`
	LastError        string    `json:"lastError,omitempty"`
}

// CreateDatabaseRequest registers a catalog database
type CreateDatabaseRequest struct {
	Name      string `json:"name" validate:"required"`
	Collation string `json:"collation,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// CreateTableRequest registers a managed or external catalog table
type CreateTableRequest struct {
	Database string       `json:"database" validate:"required"`
	Name     string       `json:"name" validate:"required"`
	Type     TableType    `json:"type" validate:"required,oneof=managed external"`
	Path     string       `json:"path,omitempty"` // required for external tables
	Schema   *TableSchema `json:"schema,omitempty"`
	Comment  string       `json:"comment,omitempty"`
}

// CreateDataSourceRequest registers an external data source root
type CreateDataSourceRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
	Comment  string `json:"comment,omitempty"`
}

// RowSetRequest is a catalog-independent read of table files by location
// and declared format, always at the latest committed version
type RowSetRequest struct {
	DataSource string   `json:"dataSource,omitempty"`
	Bulk       string   `json:"bulk" validate:"required"`
	Format     string   `json:"format" validate:"required"`
	Columns    []string `json:"columns,omitempty"`
	Filter     *Filter  `json:"filter,omitempty"`
	Limit      int      `json:"limit" validate:"omitempty,min=1,max=100000"`
}

// RowSetResponse carries rows read directly from storage
type RowSetResponse struct {
	Location string      `json:"location"`
	Format   string      `json:"format"`
	Version  int64       `json:"version"`
	Schema   TableSchema `json:"schema"`
	Rows     []Row       `json:"rows"`
	RowCount int64       `json:"rowCount"`
}
