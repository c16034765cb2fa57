package ingest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/linkedin/goavro/v2"

	"lakehouse-gateway/internal/model"
)

// AvroDecoder decodes Avro object container files.
type AvroDecoder struct{}

// Decode parses an Avro OCF into rows. With a nil schema, one is
// inferred from the decoded records.
func (d *AvroDecoder) Decode(data []byte, schema *model.TableSchema) ([]model.Row, *model.TableSchema, error) {
	ocf, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Avro container: %w", err)
	}

	var rawRows []model.Row
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read Avro record: %w", err)
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("Avro datum is not a record, got %T", datum)
		}
		row := make(model.Row, len(record))
		for name, value := range record {
			row[name] = flattenAvroValue(value)
		}
		rawRows = append(rawRows, row)
	}
	if err := ocf.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to scan Avro container: %w", err)
	}

	if schema == nil {
		schema = inferAvroSchema(rawRows)
		if schema == nil {
			return nil, nil, fmt.Errorf("no Avro records found")
		}
	}

	rows := make([]model.Row, 0, len(rawRows))
	for i, raw := range rawRows {
		row := make(model.Row, len(schema.Columns))
		for _, col := range schema.Columns {
			value := raw[col.Name]
			if value == nil {
				row[col.Name] = nil
				continue
			}
			coerced, err := CoerceValue(col.Type, value)
			if err != nil {
				return nil, nil, fmt.Errorf("Avro record %d column %s: %w", i+1, col.Name, err)
			}
			row[col.Name] = coerced
		}
		rows = append(rows, row)
	}
	return rows, schema, nil
}

// flattenAvroValue unwraps union encodings, which arrive as a map with
// one type-name key.
func flattenAvroValue(value interface{}) interface{} {
	union, ok := value.(map[string]interface{})
	if !ok || len(union) != 1 {
		return normalizeAvroScalar(value)
	}
	for _, inner := range union {
		return normalizeAvroScalar(inner)
	}
	return nil
}

func normalizeAvroScalar(value interface{}) interface{} {
	switch v := value.(type) {
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case []byte:
		return string(v)
	default:
		return v
	}
}

func inferAvroSchema(rows []model.Row) *model.TableSchema {
	if len(rows) == 0 {
		return nil
	}
	var order []string
	types := make(map[string]model.ColumnType)
	for _, row := range rows {
		for key, value := range row {
			if _, seen := types[key]; !seen {
				order = append(order, key)
				types[key] = ""
			}
			if value == nil || types[key] != "" {
				continue
			}
			types[key] = inferAvroType(value)
		}
	}

	schema := &model.TableSchema{}
	for _, name := range order {
		colType := types[name]
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

func inferAvroType(value interface{}) model.ColumnType {
	switch value.(type) {
	case bool:
		return model.ColumnTypeBoolean
	case int64:
		return model.ColumnTypeInteger
	case float64:
		return model.ColumnTypeFloat
	case time.Time:
		return model.ColumnTypeTimestamp
	default:
		return model.ColumnTypeString
	}
}
