package model

import (
	"fmt"
	"strings"
	"time"
)

// WriteMode controls how a new table version relates to the prior one
type WriteMode string

const (
	// WriteModeOverwrite replaces all previously visible rows
	WriteModeOverwrite WriteMode = "overwrite"
	// WriteModeAppend unions the input with the prior version's rows
	WriteModeAppend WriteMode = "append"
	// WriteModeErrorIfExists fails if the table already exists
	WriteModeErrorIfExists WriteMode = "errorifexists"
)

// IsValidWriteMode checks if a write mode is valid
func IsValidWriteMode(mode string) bool {
	switch WriteMode(strings.ToLower(mode)) {
	case WriteModeOverwrite, WriteModeAppend, WriteModeErrorIfExists:
		return true
	default:
		return false
	}
}

// ColumnType is the logical type of a table column
type ColumnType string

const (
	ColumnTypeString    ColumnType = "string"
	ColumnTypeInteger   ColumnType = "integer"
	ColumnTypeFloat     ColumnType = "float"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeTimestamp ColumnType = "timestamp"
	ColumnTypeDate      ColumnType = "date"
)

// ColumnSchema describes a single table column
type ColumnSchema struct {
	Name     string     `json:"name" validate:"required"`
	Type     ColumnType `json:"type" validate:"required"`
	Nullable bool       `json:"nullable"`
	Comment  string     `json:"comment,omitempty"`
}

// TableSchema is the ordered column list of a table
type TableSchema struct {
	Columns          []ColumnSchema `json:"columns" validate:"required,min=1,dive"`
	PartitionColumns []string       `json:"partitionColumns,omitempty"`
}

// Column returns the schema of the named column, or nil if absent
func (s *TableSchema) Column(name string) *ColumnSchema {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the ordered column names
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Equal reports whether two schemas have the same columns in the same order.
// Comments are ignored; nullability and types are not.
func (s *TableSchema) Equal(other *TableSchema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i := range s.Columns {
		a, b := s.Columns[i], other.Columns[i]
		if a.Name != b.Name || a.Type != b.Type || a.Nullable != b.Nullable {
			return false
		}
	}
	return true
}

// CommitInfo describes one committed version of a table
type CommitInfo struct {
	Version             int64             `json:"version"`
	Timestamp           time.Time         `json:"timestamp"`
	Operation           string            `json:"operation"`
	OperationParameters map[string]string `json:"operationParameters,omitempty"`
	OperationMetrics    map[string]string `json:"operationMetrics,omitempty"`
	UserName            string            `json:"userName,omitempty"`
	ClientVersion       string            `json:"clientVersion,omitempty"`
}

// TableDetails summarizes a table for API responses
type TableDetails struct {
	Location         string      `json:"location"`
	Version          int64       `json:"version"`
	Schema           TableSchema `json:"schema"`
	NumFiles         int         `json:"numFiles"`
	SizeBytes        int64       `json:"sizeBytes"`
	CreatedAt        time.Time   `json:"createdAt"`
	LastModifiedAt   time.Time   `json:"lastModifiedAt"`
	PartitionColumns []string    `json:"partitionColumns,omitempty"`
}

// ReadSelector selects a historical table version. At most one of
// VersionAsOf and TimestampAsOf may be set; neither means latest.
type ReadSelector struct {
	VersionAsOf   *int64     `json:"versionAsOf,omitempty"`
	TimestampAsOf *time.Time `json:"timestampAsOf,omitempty"`
}

// Validate checks the selector constraints
func (rs *ReadSelector) Validate() error {
	if rs.VersionAsOf != nil && rs.TimestampAsOf != nil {
		return fmt.Errorf("only one of versionAsOf and timestampAsOf may be specified")
	}
	if rs.VersionAsOf != nil && *rs.VersionAsOf < 0 {
		return fmt.Errorf("versionAsOf must be non-negative, got %d", *rs.VersionAsOf)
	}
	return nil
}

// IsLatest reports whether the selector targets the current version
func (rs *ReadSelector) IsLatest() bool {
	return rs == nil || (rs.VersionAsOf == nil && rs.TimestampAsOf == nil)
}

// Predicate is a single column comparison used by conditional updates,
// deletes and row-set filtering
type Predicate struct {
	Column   string        `json:"column" validate:"required"`
	Operator string        `json:"operator" validate:"required,oneof=EQ NEQ LT LTE GT GTE IN IS_NULL"`
	Value    interface{}   `json:"value,omitempty"`
	Values   []interface{} `json:"values,omitempty"` // For IN
}

// Filter combines predicates with a logical operator (AND by default)
type Filter struct {
	Predicates      []Predicate `json:"predicates"`
	LogicalOperator string      `json:"logicalOperator,omitempty"` // AND, OR
}

// Assignment applies an expression to a column for rows matching an
// update condition
type Assignment struct {
	Column string      `json:"column" validate:"required"`
	Op     string      `json:"op" validate:"required,oneof=set multiply add"`
	Value  interface{} `json:"value"`
}
