package query

import (
	"bytes"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"

	"lakehouse-gateway/internal/model"
)

func eventSchema() *model.TableSchema {
	return &model.TableSchema{
		Columns: []model.ColumnSchema{
			{Name: "id", Type: model.ColumnTypeInteger},
			{Name: "name", Type: model.ColumnTypeString},
			{Name: "score", Type: model.ColumnTypeFloat, Nullable: true},
			{Name: "active", Type: model.ColumnTypeBoolean},
			{Name: "seen_at", Type: model.ColumnTypeTimestamp},
		},
	}
}

func TestEncodeIPCRoundTrip(t *testing.T) {
	seen := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	rows := []model.Row{
		{"id": int64(1), "name": "alpha", "score": 0.75, "active": true, "seen_at": seen},
		{"id": int64(2), "name": "beta", "score": nil, "active": false, "seen_at": seen.Add(time.Minute)},
	}

	payload, err := EncodeIPC(eventSchema(), rows)
	if err != nil {
		t.Fatalf("EncodeIPC failed: %v", err)
	}

	reader, err := ipc.NewReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to open IPC stream: %v", err)
	}
	defer reader.Release()

	if !reader.Next() {
		t.Fatal("Expected one record in the stream")
	}
	record := reader.Record()
	if record.NumRows() != 2 {
		t.Errorf("Expected 2 rows, got %d", record.NumRows())
	}
	if record.NumCols() != 5 {
		t.Errorf("Expected 5 columns, got %d", record.NumCols())
	}

	names := record.Column(1).(*array.String)
	if names.Value(0) != "alpha" || names.Value(1) != "beta" {
		t.Errorf("Unexpected name column: %v", names)
	}
	scores := record.Column(2).(*array.Float64)
	if !scores.IsNull(1) {
		t.Error("Expected null score for the second row")
	}
	timestamps := record.Column(4).(*array.Timestamp)
	if int64(timestamps.Value(0)) != seen.UnixMilli() {
		t.Errorf("Expected timestamp %d, got %d", seen.UnixMilli(), timestamps.Value(0))
	}

	if reader.Next() {
		t.Error("Expected a single record in the stream")
	}
}

func TestArrowSchemaMapsColumnTypes(t *testing.T) {
	schema, err := ArrowSchema(eventSchema())
	if err != nil {
		t.Fatalf("ArrowSchema failed: %v", err)
	}
	if schema.NumFields() != 5 {
		t.Fatalf("Expected 5 fields, got %d", schema.NumFields())
	}
	if !arrow.TypeEqual(schema.Field(0).Type, arrow.PrimitiveTypes.Int64) {
		t.Errorf("Expected int64 for id, got %s", schema.Field(0).Type)
	}
	if !schema.Field(2).Nullable {
		t.Error("Expected score to be nullable")
	}
	if !arrow.TypeEqual(schema.Field(4).Type, arrow.FixedWidthTypes.Timestamp_ms) {
		t.Errorf("Expected ms timestamp for seen_at, got %s", schema.Field(4).Type)
	}
}

func TestEncodeIPCRejectsMismatchedValue(t *testing.T) {
	schema := &model.TableSchema{
		Columns: []model.ColumnSchema{{Name: "active", Type: model.ColumnTypeBoolean}},
	}
	_, err := EncodeIPC(schema, []model.Row{{"active": "yes"}})
	if err == nil {
		t.Fatal("Expected type error for string in boolean column")
	}
}
