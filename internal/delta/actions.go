package delta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"lakehouse-gateway/internal/model"
)

// Action shapes follow the open transaction log layout: one JSON object
// per line, each wrapping exactly one action kind.

// CommitInfoAction records provenance for a commit.
type CommitInfoAction struct {
	Timestamp           int64             `json:"timestamp"`
	Operation           string            `json:"operation"`
	OperationParameters map[string]string `json:"operationParameters,omitempty"`
	OperationMetrics    map[string]string `json:"operationMetrics,omitempty"`
	UserName            string            `json:"userName,omitempty"`
	ClientVersion       string            `json:"clientVersion,omitempty"`
}

// ProtocolAction declares the minimum reader and writer versions.
type ProtocolAction struct {
	MinReaderVersion int32 `json:"minReaderVersion"`
	MinWriterVersion int32 `json:"minWriterVersion"`
}

// FormatSpec names the data file format of a table.
type FormatSpec struct {
	Provider string            `json:"provider"`
	Options  map[string]string `json:"options"`
}

// MetadataAction carries table identity and schema.
type MetadataAction struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Format           FormatSpec        `json:"format"`
	SchemaString     string            `json:"schemaString"`
	PartitionColumns []string          `json:"partitionColumns"`
	Configuration    map[string]string `json:"configuration"`
	CreatedTime      int64             `json:"createdTime"`
}

// AddAction makes a data file part of the table.
type AddAction struct {
	Path             string            `json:"path"`
	PartitionValues  map[string]string `json:"partitionValues"`
	Size             int64             `json:"size"`
	ModificationTime int64             `json:"modificationTime"`
	DataChange       bool              `json:"dataChange"`
	Stats            string            `json:"stats,omitempty"`
}

// RemoveAction logically deletes a data file from the table.
type RemoveAction struct {
	Path              string `json:"path"`
	DeletionTimestamp int64  `json:"deletionTimestamp"`
	DataChange        bool   `json:"dataChange"`
}

// TxnAction records an application transaction watermark, used by
// streaming sinks to make batch commits idempotent.
type TxnAction struct {
	AppID       string `json:"appId"`
	Version     int64  `json:"version"`
	LastUpdated int64  `json:"lastUpdated,omitempty"`
}

// LogEntry is the single-key wrapper each log line is encoded as.
type LogEntry struct {
	CommitInfo *CommitInfoAction `json:"commitInfo,omitempty"`
	Protocol   *ProtocolAction   `json:"protocol,omitempty"`
	Metadata   *MetadataAction   `json:"metaData,omitempty"`
	Add        *AddAction        `json:"add,omitempty"`
	Remove     *RemoveAction     `json:"remove,omitempty"`
	Txn        *TxnAction        `json:"txn,omitempty"`
}

// Operation names recorded in commitInfo.
const (
	OpWrite           = "WRITE"
	OpCreateTable     = "CREATE TABLE"
	OpUpdate          = "UPDATE"
	OpDelete          = "DELETE"
	OpStreamingUpdate = "STREAMING UPDATE"
)

const clientVersion = "lakehouse-gateway/1.0"

// NewCommitInfo builds a commitInfo action stamped with the current time.
func NewCommitInfo(operation string, params map[string]string, metrics map[string]string) *CommitInfoAction {
	return &CommitInfoAction{
		Timestamp:           time.Now().UnixMilli(),
		Operation:           operation,
		OperationParameters: params,
		OperationMetrics:    metrics,
		ClientVersion:       clientVersion,
	}
}

// DefaultProtocol is the protocol written with every new table.
func DefaultProtocol() *ProtocolAction {
	return &ProtocolAction{MinReaderVersion: 1, MinWriterVersion: 2}
}

// EncodeLogEntries renders actions as newline-delimited JSON, the wire
// layout of a commit file.
func EncodeLogEntries(entries []LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to encode log entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeLogEntries parses a commit file back into actions.
func DecodeLogEntries(data []byte) ([]LogEntry, error) {
	var entries []LogEntry
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// structField mirrors the struct-type schema JSON stored in metaData.
type structField struct {
	Name     string                 `json:"name"`
	Type     string                 `json:"type"`
	Nullable bool                   `json:"nullable"`
	Metadata map[string]interface{} `json:"metadata"`
}

type structType struct {
	Type   string        `json:"type"`
	Fields []structField `json:"fields"`
}

var columnTypeToLog = map[model.ColumnType]string{
	model.ColumnTypeString:    "string",
	model.ColumnTypeInteger:   "long",
	model.ColumnTypeFloat:     "double",
	model.ColumnTypeBoolean:   "boolean",
	model.ColumnTypeTimestamp: "timestamp",
	model.ColumnTypeDate:      "date",
}

var logToColumnType = map[string]model.ColumnType{
	"string":    model.ColumnTypeString,
	"long":      model.ColumnTypeInteger,
	"integer":   model.ColumnTypeInteger,
	"short":     model.ColumnTypeInteger,
	"byte":      model.ColumnTypeInteger,
	"double":    model.ColumnTypeFloat,
	"float":     model.ColumnTypeFloat,
	"boolean":   model.ColumnTypeBoolean,
	"timestamp": model.ColumnTypeTimestamp,
	"date":      model.ColumnTypeDate,
}

// MarshalSchema renders a table schema as the struct-type JSON string
// stored in metaData.schemaString.
func MarshalSchema(schema *model.TableSchema) (string, error) {
	st := structType{Type: "struct", Fields: make([]structField, 0, len(schema.Columns))}
	for _, col := range schema.Columns {
		logType, ok := columnTypeToLog[col.Type]
		if !ok {
			return "", fmt.Errorf("column %s has unsupported type %q", col.Name, col.Type)
		}
		st.Fields = append(st.Fields, structField{
			Name:     col.Name,
			Type:     logType,
			Nullable: col.Nullable,
			Metadata: map[string]interface{}{},
		})
	}
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	return string(data), nil
}

// UnmarshalSchema parses a metaData.schemaString back into a table schema.
func UnmarshalSchema(schemaString string) (*model.TableSchema, error) {
	var st structType
	if err := json.Unmarshal([]byte(schemaString), &st); err != nil {
		return nil, fmt.Errorf("failed to parse schema string: %w", err)
	}
	schema := &model.TableSchema{Columns: make([]model.ColumnSchema, 0, len(st.Fields))}
	for _, field := range st.Fields {
		colType, ok := logToColumnType[field.Type]
		if !ok {
			return nil, fmt.Errorf("column %s has unsupported log type %q", field.Name, field.Type)
		}
		schema.Columns = append(schema.Columns, model.ColumnSchema{
			Name:     field.Name,
			Type:     colType,
			Nullable: field.Nullable,
		})
	}
	return schema, nil
}
