package ingest

import (
	"bytes"
	"testing"

	"github.com/linkedin/goavro/v2"

	"lakehouse-gateway/internal/model"
)

func TestCSVDecodeInfersTypes(t *testing.T) {
	data := []byte("device,reading,ok\nsensor-1,21.5,true\nsensor-2,19,false\nsensor-3,,true\n")

	rows, schema, err := NewCSVDecoder(nil).Decode(data, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	reading := schema.Column("reading")
	if reading == nil || reading.Type != model.ColumnTypeFloat {
		t.Errorf("Expected reading column inferred as float, got %+v", reading)
	}
	if !reading.Nullable {
		t.Error("Expected reading column nullable after empty value")
	}
	if ok := schema.Column("ok"); ok == nil || ok.Type != model.ColumnTypeBoolean {
		t.Errorf("Expected ok column inferred as boolean, got %+v", ok)
	}

	if rows[0]["device"] != "sensor-1" || rows[0]["reading"].(float64) != 21.5 {
		t.Errorf("Row mismatch: %+v", rows[0])
	}
	if rows[2]["reading"] != nil {
		t.Errorf("Expected nil reading for empty field, got %v", rows[2]["reading"])
	}
}

func TestCSVDecodeWithSchemaRejectsBadValues(t *testing.T) {
	schema := &model.TableSchema{Columns: []model.ColumnSchema{
		{Name: "device", Type: model.ColumnTypeString},
		{Name: "reading", Type: model.ColumnTypeInteger},
	}}
	data := []byte("device,reading\nsensor-1,not-a-number\n")

	if _, _, err := NewCSVDecoder(nil).Decode(data, schema); err == nil {
		t.Error("Expected an error for a non-integer value")
	}
}

func TestJSONDecodeLinesAndArray(t *testing.T) {
	lines := []byte(`{"device":"a","reading":1.5}` + "\n" + `{"device":"b","reading":2}`)
	array := []byte(`[{"device":"a","reading":1.5},{"device":"b","reading":2}]`)

	for _, data := range [][]byte{lines, array} {
		rows, schema, err := (&JSONDecoder{}).Decode(data, nil)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Expected 2 rows, got %d", len(rows))
		}
		if col := schema.Column("reading"); col == nil || col.Type != model.ColumnTypeFloat {
			t.Errorf("Expected reading inferred as float, got %+v", col)
		}
		if rows[1]["reading"].(float64) != 2.0 {
			t.Errorf("Expected reading 2.0, got %v", rows[1]["reading"])
		}
	}
}

func TestAvroDecodeRoundTrip(t *testing.T) {
	const avroSchema = `{
		"type": "record",
		"name": "reading",
		"fields": [
			{"name": "device", "type": "string"},
			{"name": "value", "type": "double"},
			{"name": "count", "type": "long"}
		]
	}`

	var buf bytes.Buffer
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: &buf, Schema: avroSchema})
	if err != nil {
		t.Fatalf("NewOCFWriter failed: %v", err)
	}
	records := []interface{}{
		map[string]interface{}{"device": "a", "value": 1.25, "count": int64(3)},
		map[string]interface{}{"device": "b", "value": 2.5, "count": int64(7)},
	}
	if err := w.Append(records); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows, schema, err := (&AvroDecoder{}).Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if col := schema.Column("count"); col == nil || col.Type != model.ColumnTypeInteger {
		t.Errorf("Expected count inferred as integer, got %+v", col)
	}
	if rows[0]["device"] != "a" || rows[0]["value"].(float64) != 1.25 {
		t.Errorf("Row mismatch: %+v", rows[0])
	}
}

func TestNewDecoderUnknownFormat(t *testing.T) {
	if _, err := NewDecoder("orc"); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}
