// Package query serializes row-set results to Arrow IPC format so
// clients that speak Arrow can consume snapshots without re-parsing
// JSON.
package query

import (
	"bytes"
	"fmt"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"lakehouse-gateway/internal/model"
)

var columnTypeToArrow = map[model.ColumnType]arrow.DataType{
	model.ColumnTypeString:    arrow.BinaryTypes.String,
	model.ColumnTypeInteger:   arrow.PrimitiveTypes.Int64,
	model.ColumnTypeFloat:     arrow.PrimitiveTypes.Float64,
	model.ColumnTypeBoolean:   arrow.FixedWidthTypes.Boolean,
	model.ColumnTypeTimestamp: arrow.FixedWidthTypes.Timestamp_ms,
	model.ColumnTypeDate:      arrow.FixedWidthTypes.Date32,
}

// ArrowSchema converts a table schema to its Arrow equivalent.
func ArrowSchema(schema *model.TableSchema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		dt, ok := columnTypeToArrow[col.Type]
		if !ok {
			return nil, fmt.Errorf("column %s has unsupported type %q", col.Name, col.Type)
		}
		fields = append(fields, arrow.Field{Name: col.Name, Type: dt, Nullable: col.Nullable})
	}
	return arrow.NewSchema(fields, nil), nil
}

// EncodeIPC serializes rows into a single-record Arrow IPC stream.
func EncodeIPC(schema *model.TableSchema, rows []model.Row) ([]byte, error) {
	arrowSchema, err := ArrowSchema(schema)
	if err != nil {
		return nil, err
	}

	allocator := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(allocator, arrowSchema)
	defer builder.Release()

	for i, col := range schema.Columns {
		if err := appendColumn(builder.Field(i), col, rows); err != nil {
			return nil, err
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(arrowSchema), ipc.WithAllocator(allocator))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return buf.Bytes(), nil
}

func appendColumn(fb array.Builder, col model.ColumnSchema, rows []model.Row) error {
	for _, row := range rows {
		value := row[col.Name]
		if value == nil {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.StringBuilder:
			s, ok := value.(string)
			if !ok {
				return typeError(col, value)
			}
			b.Append(s)
		case *array.Int64Builder:
			v, ok := asInt64(value)
			if !ok {
				return typeError(col, value)
			}
			b.Append(v)
		case *array.Float64Builder:
			v, ok := asFloat64(value)
			if !ok {
				return typeError(col, value)
			}
			b.Append(v)
		case *array.BooleanBuilder:
			v, ok := value.(bool)
			if !ok {
				return typeError(col, value)
			}
			b.Append(v)
		case *array.TimestampBuilder:
			ts, ok := asTime(value)
			if !ok {
				return typeError(col, value)
			}
			b.Append(arrow.Timestamp(ts.UnixMilli()))
		case *array.Date32Builder:
			ts, ok := asTime(value)
			if !ok {
				return typeError(col, value)
			}
			b.Append(arrow.Date32FromTime(ts))
		default:
			return fmt.Errorf("column %s has unsupported builder %T", col.Name, fb)
		}
	}
	return nil
}

func typeError(col model.ColumnSchema, value interface{}) error {
	return fmt.Errorf("column %s holds %T, incompatible with type %q", col.Name, value, col.Type)
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func asFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func asTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	case int64:
		return time.UnixMilli(v), true
	}
	return time.Time{}, false
}
