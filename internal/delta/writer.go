package delta

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"lakehouse-gateway/internal/model"
)

// WriteResult reports the outcome of a successful commit.
type WriteResult struct {
	Version  int64
	NumRows  int
	NumFiles int
}

// MutationResult reports the outcome of an update or delete.
type MutationResult struct {
	Version     int64
	RowsMatched int
	RowsTotal   int
}

func dataFileKey() string {
	return fmt.Sprintf("part-00000-%s-c000.snappy.parquet", uuid.NewString())
}

// newMetadata builds the metaData action for a table schema.
func newMetadata(name string, schema *model.TableSchema) (*MetadataAction, error) {
	schemaString, err := MarshalSchema(schema)
	if err != nil {
		return nil, err
	}
	return &MetadataAction{
		ID:               uuid.NewString(),
		Name:             name,
		Format:           FormatSpec{Provider: "parquet", Options: map[string]string{}},
		SchemaString:     schemaString,
		PartitionColumns: []string{},
		Configuration:    map[string]string{},
		CreatedTime:      time.Now().UnixMilli(),
	}, nil
}

// Create commits version 0 of an empty table with the given schema.
func (t *Table) Create(ctx context.Context, name string, schema *model.TableSchema) error {
	exists, err := t.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrTableAlreadyExists
	}

	metadata, err := newMetadata(name, schema)
	if err != nil {
		return err
	}
	entries := []LogEntry{
		{CommitInfo: NewCommitInfo(OpCreateTable, map[string]string{"name": name}, nil)},
		{Protocol: DefaultProtocol()},
		{Metadata: metadata},
	}
	if _, err := t.Commit(ctx, entries, CommitOptions{}); err != nil {
		return err
	}
	return nil
}

// writeDataFile stages rows as one parquet object and returns its add
// action.
func (t *Table) writeDataFile(ctx context.Context, schema *model.TableSchema, rows []model.Row) (*AddAction, error) {
	data, err := WriteParquet(schema, rows)
	if err != nil {
		return nil, err
	}
	key := dataFileKey()
	if err := t.store.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("failed to write data file: %w", err)
	}
	return &AddAction{
		Path:             key,
		PartitionValues:  map[string]string{},
		Size:             int64(len(data)),
		ModificationTime: time.Now().UnixMilli(),
		DataChange:       true,
	}, nil
}

// Write commits rows under one of the three write modes. A write to a
// location without a table creates the table regardless of mode; after
// that, errorifexists fails, append adds files, and overwrite replaces
// every live file in a single commit.
func (t *Table) Write(ctx context.Context, mode model.WriteMode, schema *model.TableSchema, rows []model.Row, txn *TxnAction) (*WriteResult, error) {
	if !model.IsValidWriteMode(string(mode)) {
		return nil, fmt.Errorf("invalid write mode %q", mode)
	}

	exists, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}

	if !exists {
		if schema == nil {
			schema = InferSchema(rows)
		}
		if schema == nil || len(schema.Columns) == 0 {
			return nil, fmt.Errorf("cannot create a table without a schema or rows")
		}
		return t.writeInitial(ctx, schema, rows, txn)
	}

	if mode == model.WriteModeErrorIfExists {
		return nil, ErrTableAlreadyExists
	}

	state, err := t.StateAt(ctx, -1)
	if err != nil {
		return nil, err
	}
	if state.Metadata == nil {
		return nil, fmt.Errorf("table has no metadata action")
	}
	current, err := UnmarshalSchema(state.Metadata.SchemaString)
	if err != nil {
		return nil, err
	}

	writeSchema := current
	switch mode {
	case model.WriteModeAppend:
		if schema != nil && !schema.Equal(current) {
			return nil, fmt.Errorf("%w: appended schema differs from table schema", ErrSchemaMismatch)
		}
	case model.WriteModeOverwrite:
		// Overwrite may replace the schema along with the data.
		if schema != nil {
			writeSchema = schema
		}
	}
	if err := checkRowsAgainstSchema(writeSchema, rows); err != nil {
		return nil, err
	}

	add, err := t.writeDataFile(ctx, writeSchema, rows)
	if err != nil {
		return nil, err
	}

	params := map[string]string{"mode": string(mode)}
	metrics := map[string]string{
		"numOutputRows": strconv.Itoa(len(rows)),
		"numFiles":      "1",
	}
	entries := []LogEntry{{CommitInfo: NewCommitInfo(OpWrite, params, metrics)}}

	opts := CommitOptions{}
	if mode == model.WriteModeOverwrite {
		// Replacing data depends on the file set we read, so newer
		// commits must fail us rather than be silently dropped.
		readVersion := state.Version
		opts.ReadVersion = &readVersion
		now := time.Now().UnixMilli()
		for _, file := range state.Files() {
			remove := RemoveAction{Path: file.Path, DeletionTimestamp: now, DataChange: true}
			entries = append(entries, LogEntry{Remove: &remove})
		}
		if schema != nil && !schema.Equal(current) {
			metadata := *state.Metadata
			schemaString, err := MarshalSchema(schema)
			if err != nil {
				return nil, err
			}
			metadata.SchemaString = schemaString
			entries = append(entries, LogEntry{Metadata: &metadata})
		}
	}
	entries = append(entries, LogEntry{Add: add})
	if txn != nil {
		entries = append(entries, LogEntry{Txn: txn})
	}

	version, err := t.Commit(ctx, entries, opts)
	if err != nil {
		return nil, err
	}
	return &WriteResult{Version: version, NumRows: len(rows), NumFiles: 1}, nil
}

func (t *Table) writeInitial(ctx context.Context, schema *model.TableSchema, rows []model.Row, txn *TxnAction) (*WriteResult, error) {
	if err := checkRowsAgainstSchema(schema, rows); err != nil {
		return nil, err
	}
	metadata, err := newMetadata("", schema)
	if err != nil {
		return nil, err
	}
	metrics := map[string]string{
		"numOutputRows": strconv.Itoa(len(rows)),
	}
	entries := []LogEntry{
		{CommitInfo: NewCommitInfo(OpWrite, map[string]string{"mode": "overwrite"}, metrics)},
		{Protocol: DefaultProtocol()},
		{Metadata: metadata},
	}
	numFiles := 0
	if len(rows) > 0 {
		add, err := t.writeDataFile(ctx, schema, rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LogEntry{Add: add})
		numFiles = 1
	}
	if txn != nil {
		entries = append(entries, LogEntry{Txn: txn})
	}

	version, err := t.Commit(ctx, entries, CommitOptions{})
	if err != nil {
		return nil, err
	}
	return &WriteResult{Version: version, NumRows: len(rows), NumFiles: numFiles}, nil
}

// checkRowsAgainstSchema rejects rows carrying columns the schema does
// not declare, or values a column cannot hold.
func checkRowsAgainstSchema(schema *model.TableSchema, rows []model.Row) error {
	known := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		known[col.Name] = true
	}
	for _, row := range rows {
		for key := range row {
			if !known[key] {
				return fmt.Errorf("%w: row column %q not declared in table schema", ErrSchemaMismatch, key)
			}
		}
		for _, col := range schema.Columns {
			if _, err := encodeValue(col, row[col.Name]); err != nil {
				return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
			}
		}
	}
	return nil
}

// InferSchema derives a schema from row values, scanning until every
// column has a typed sample.
func InferSchema(rows []model.Row) *model.TableSchema {
	if len(rows) == 0 {
		return nil
	}
	order := make([]string, 0)
	seen := make(map[string]model.ColumnType)
	for _, row := range rows {
		for key, value := range row {
			if _, ok := seen[key]; ok && seen[key] != "" {
				continue
			}
			if _, ok := seen[key]; !ok {
				order = append(order, key)
				seen[key] = ""
			}
			if value == nil {
				continue
			}
			seen[key] = inferColumnType(value)
		}
	}

	schema := &model.TableSchema{}
	for _, name := range order {
		colType := seen[name]
		if colType == "" {
			colType = model.ColumnTypeString
		}
		schema.Columns = append(schema.Columns, model.ColumnSchema{
			Name:     name,
			Type:     colType,
			Nullable: true,
		})
	}
	return schema
}

func inferColumnType(value interface{}) model.ColumnType {
	switch v := value.(type) {
	case bool:
		return model.ColumnTypeBoolean
	case int, int32, int64:
		return model.ColumnTypeInteger
	case float32:
		return model.ColumnTypeFloat
	case float64:
		if v == float64(int64(v)) {
			return model.ColumnTypeInteger
		}
		return model.ColumnTypeFloat
	case time.Time:
		return model.ColumnTypeTimestamp
	case string:
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return model.ColumnTypeTimestamp
		}
		return model.ColumnTypeString
	default:
		return model.ColumnTypeString
	}
}

// UpdateWhere rewrites every matching row with the assignments applied
// in one commit. Files with no matches are left untouched.
func (t *Table) UpdateWhere(ctx context.Context, condition *model.Filter, assignments []model.Assignment) (*MutationResult, error) {
	return t.mutate(ctx, OpUpdate, condition, assignments)
}

// DeleteWhere removes every matching row in one commit.
func (t *Table) DeleteWhere(ctx context.Context, condition *model.Filter) (*MutationResult, error) {
	return t.mutate(ctx, OpDelete, condition, nil)
}

func (t *Table) mutate(ctx context.Context, op string, condition *model.Filter, assignments []model.Assignment) (*MutationResult, error) {
	state, err := t.StateAt(ctx, -1)
	if err != nil {
		return nil, err
	}
	if state.Metadata == nil {
		return nil, fmt.Errorf("table has no metadata action")
	}
	schema, err := UnmarshalSchema(state.Metadata.SchemaString)
	if err != nil {
		return nil, err
	}

	matched := 0
	total := 0
	now := time.Now().UnixMilli()
	var entries []LogEntry

	for _, file := range state.Files() {
		data, err := t.store.Get(ctx, file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %s: %w", file.Path, err)
		}
		rows, err := ReadParquet(schema, data)
		if err != nil {
			return nil, err
		}
		total += len(rows)

		fileMatched := 0
		rewritten := make([]model.Row, 0, len(rows))
		for _, row := range rows {
			hit, err := EvaluateFilter(condition, row)
			if err != nil {
				return nil, err
			}
			if !hit {
				rewritten = append(rewritten, row)
				continue
			}
			fileMatched++
			if op == OpUpdate {
				updated, err := ApplyAssignments(schema, row, assignments)
				if err != nil {
					return nil, err
				}
				rewritten = append(rewritten, updated)
			}
		}
		if fileMatched == 0 {
			continue
		}
		matched += fileMatched

		remove := RemoveAction{Path: file.Path, DeletionTimestamp: now, DataChange: true}
		entries = append(entries, LogEntry{Remove: &remove})
		if len(rewritten) > 0 {
			add, err := t.writeDataFile(ctx, schema, rewritten)
			if err != nil {
				return nil, err
			}
			entries = append(entries, LogEntry{Add: add})
		}
	}

	// A zero-match mutation still advances the version: the operation
	// lands in the log as a commitInfo-only commit.
	metricName := "numUpdatedRows"
	if op == OpDelete {
		metricName = "numDeletedRows"
	}
	info := NewCommitInfo(op, nil, map[string]string{metricName: strconv.Itoa(matched)})
	entries = append([]LogEntry{{CommitInfo: info}}, entries...)

	readVersion := state.Version
	version, err := t.Commit(ctx, entries, CommitOptions{ReadVersion: &readVersion})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Version: version, RowsMatched: matched, RowsTotal: total}, nil
}
