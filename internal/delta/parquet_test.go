package delta

import (
	"testing"
	"time"

	"lakehouse-gateway/internal/model"
)

func TestParquetRoundTrip(t *testing.T) {
	schema := &model.TableSchema{Columns: []model.ColumnSchema{
		{Name: "id", Type: model.ColumnTypeInteger},
		{Name: "name", Type: model.ColumnTypeString},
		{Name: "score", Type: model.ColumnTypeFloat},
		{Name: "active", Type: model.ColumnTypeBoolean},
		{Name: "seen", Type: model.ColumnTypeTimestamp},
		{Name: "note", Type: model.ColumnTypeString, Nullable: true},
	}}
	seen := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	rows := []model.Row{
		{"id": int64(1), "name": "alpha", "score": 1.5, "active": true, "seen": seen, "note": "first"},
		{"id": int64(2), "name": "beta", "score": -0.25, "active": false, "seen": seen.Add(time.Hour), "note": nil},
	}

	data, err := WriteParquet(schema, rows)
	if err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}
	got, err := ReadParquet(schema, data)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(got))
	}

	first := got[0]
	if first["id"].(int64) != 1 || first["name"] != "alpha" || first["active"] != true {
		t.Errorf("Row mismatch: %+v", first)
	}
	if first["score"].(float64) != 1.5 {
		t.Errorf("Expected score 1.5, got %v", first["score"])
	}
	if !first["seen"].(time.Time).Equal(seen) {
		t.Errorf("Expected timestamp %v, got %v", seen, first["seen"])
	}
	if got[1]["note"] != nil {
		t.Errorf("Expected nil note, got %v", got[1]["note"])
	}
}

func TestSchemaStringRoundTrip(t *testing.T) {
	schema := &model.TableSchema{Columns: []model.ColumnSchema{
		{Name: "device", Type: model.ColumnTypeString},
		{Name: "reading", Type: model.ColumnTypeFloat, Nullable: true},
		{Name: "at", Type: model.ColumnTypeTimestamp},
	}}

	encoded, err := MarshalSchema(schema)
	if err != nil {
		t.Fatalf("MarshalSchema failed: %v", err)
	}
	decoded, err := UnmarshalSchema(encoded)
	if err != nil {
		t.Fatalf("UnmarshalSchema failed: %v", err)
	}
	if !decoded.Equal(schema) {
		t.Errorf("Schema round trip mismatch: %+v vs %+v", decoded, schema)
	}
}

func TestEncodeValueRejectsWrongTypes(t *testing.T) {
	col := model.ColumnSchema{Name: "qty", Type: model.ColumnTypeInteger}
	if _, err := encodeValue(col, "ten"); err == nil {
		t.Error("Expected an error encoding a string into an integer column")
	}
	if _, err := encodeValue(col, nil); err == nil {
		t.Error("Expected an error encoding nil into a non-nullable column")
	}
}
