package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"lakehouse-gateway/internal/model"
)

// JSONDecoder decodes JSON input, either an array of objects or one
// object per line.
type JSONDecoder struct{}

// Decode parses JSON data into rows. With a nil schema, one is inferred
// from the decoded values.
func (d *JSONDecoder) Decode(data []byte, schema *model.TableSchema) ([]model.Row, *model.TableSchema, error) {
	var objects []map[string]interface{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, nil, fmt.Errorf("failed to parse JSON array: %w", err)
		}
	} else {
		for i, line := range bytes.Split(trimmed, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var obj map[string]interface{}
			if err := json.Unmarshal(line, &obj); err != nil {
				return nil, nil, fmt.Errorf("failed to parse JSON line %d: %w", i+1, err)
			}
			objects = append(objects, obj)
		}
	}

	rawRows := make([]model.Row, 0, len(objects))
	for _, obj := range objects {
		rawRows = append(rawRows, model.Row(obj))
	}

	if schema == nil {
		schema = inferJSONSchema(rawRows)
		if schema == nil {
			return nil, nil, fmt.Errorf("no JSON objects found")
		}
	}

	rows := make([]model.Row, 0, len(rawRows))
	for i, raw := range rawRows {
		row := make(model.Row, len(schema.Columns))
		for _, col := range schema.Columns {
			value, ok := raw[col.Name]
			if !ok || value == nil {
				row[col.Name] = nil
				continue
			}
			coerced, err := CoerceValue(col.Type, value)
			if err != nil {
				return nil, nil, fmt.Errorf("JSON object %d column %s: %w", i+1, col.Name, err)
			}
			row[col.Name] = coerced
		}
		rows = append(rows, row)
	}
	return rows, schema, nil
}

func inferJSONSchema(rows []model.Row) *model.TableSchema {
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
			types[key] = inferJSONType(value)
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

func inferJSONType(value interface{}) model.ColumnType {
	switch v := value.(type) {
	case bool:
		return model.ColumnTypeBoolean
	case float64:
		if v == float64(int64(v)) {
			return model.ColumnTypeInteger
		}
		return model.ColumnTypeFloat
	case string:
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return model.ColumnTypeTimestamp
		}
		return model.ColumnTypeString
	default:
		return model.ColumnTypeString
	}
}

// CoerceValue converts a dynamically-typed decoded value to the Go type
// a column expects.
func CoerceValue(colType model.ColumnType, value interface{}) (interface{}, error) {
	switch colType {
	case model.ColumnTypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	case model.ColumnTypeInteger:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			return int64(v), nil
		case float32:
			return int64(v), nil
		}
	case model.ColumnTypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case model.ColumnTypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case model.ColumnTypeTimestamp, model.ColumnTypeDate:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return ts, nil
			}
			if colType == model.ColumnTypeDate {
				if ts, err := time.Parse("2006-01-02", v); err == nil {
					return ts, nil
				}
			}
		case float64:
			return time.UnixMilli(int64(v)).UTC(), nil
		case int64:
			return time.UnixMilli(v).UTC(), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", value, colType)
}
