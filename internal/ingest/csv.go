package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lakehouse-gateway/internal/model"
)

// CSVConfig tunes CSV decoding.
type CSVConfig struct {
	Delimiter  rune
	HasHeader  bool
	NullValues []string
	SampleSize int // rows sampled for type inference
}

// CSVDecoder decodes delimited text with a header row, inferring column
// types from a sample when no schema is configured.
type CSVDecoder struct {
	config *CSVConfig
}

// NewCSVDecoder creates a CSV decoder. A nil config selects comma
// delimited input with a header row.
func NewCSVDecoder(config *CSVConfig) *CSVDecoder {
	if config == nil {
		config = &CSVConfig{
			Delimiter:  ',',
			HasHeader:  true,
			NullValues: []string{"", "NULL", "null", "NA", "N/A"},
			SampleSize: 1000,
		}
	}
	return &CSVDecoder{config: config}
}

func (d *CSVDecoder) isNull(value string) bool {
	for _, null := range d.config.NullValues {
		if value == null {
			return true
		}
	}
	return false
}

// Decode parses CSV data into rows. With a nil schema, column types are
// inferred from a row sample.
func (d *CSVDecoder) Decode(data []byte, schema *model.TableSchema) ([]model.Row, *model.TableSchema, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = d.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header []string
	if d.config.HasHeader {
		rec, err := reader.Read()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		header = rec
	} else if schema != nil {
		header = schema.ColumnNames()
	} else {
		return nil, nil, fmt.Errorf("headerless CSV requires a configured schema")
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		records = append(records, rec)
	}

	if schema == nil {
		schema = d.inferSchema(header, records)
	}

	rows := make([]model.Row, 0, len(records))
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, nil, fmt.Errorf("CSV row %d has %d fields, expected %d", i+1, len(rec), len(header))
		}
		row := make(model.Row, len(header))
		for j, name := range header {
			col := schema.Column(name)
			if col == nil {
				continue
			}
			if d.isNull(rec[j]) {
				row[name] = nil
				continue
			}
			value, err := parseCSVValue(col.Type, rec[j])
			if err != nil {
				return nil, nil, fmt.Errorf("CSV row %d column %s: %w", i+1, name, err)
			}
			row[name] = value
		}
		rows = append(rows, row)
	}
	return rows, schema, nil
}

// inferSchema samples records and picks the narrowest type every sampled
// value fits.
func (d *CSVDecoder) inferSchema(header []string, records [][]string) *model.TableSchema {
	sample := records
	if d.config.SampleSize > 0 && len(sample) > d.config.SampleSize {
		sample = sample[:d.config.SampleSize]
	}

	schema := &model.TableSchema{}
	for idx, name := range header {
		colType := model.ColumnType("")
		nullable := false
		for _, rec := range sample {
			if idx >= len(rec) || d.isNull(rec[idx]) {
				nullable = true
				continue
			}
			colType = widenType(colType, sniffType(rec[idx]))
		}
		if colType == "" {
			colType = model.ColumnTypeString
		}
		schema.Columns = append(schema.Columns, model.ColumnSchema{
			Name:     name,
			Type:     colType,
			Nullable: nullable,
		})
	}
	return schema
}

func sniffType(value string) model.ColumnType {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return model.ColumnTypeInteger
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return model.ColumnTypeFloat
	}
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return model.ColumnTypeBoolean
	}
	if _, err := time.Parse(time.RFC3339, value); err == nil {
		return model.ColumnTypeTimestamp
	}
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return model.ColumnTypeDate
	}
	return model.ColumnTypeString
}

// widenType merges two observed types into the narrowest common one.
func widenType(current, observed model.ColumnType) model.ColumnType {
	if current == "" || current == observed {
		return observed
	}
	if (current == model.ColumnTypeInteger && observed == model.ColumnTypeFloat) ||
		(current == model.ColumnTypeFloat && observed == model.ColumnTypeInteger) {
		return model.ColumnTypeFloat
	}
	return model.ColumnTypeString
}

func parseCSVValue(colType model.ColumnType, value string) (interface{}, error) {
	switch colType {
	case model.ColumnTypeString:
		return value, nil
	case model.ColumnTypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		return n, nil
	case model.ColumnTypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", value)
		}
		return f, nil
	case model.ColumnTypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", value)
		}
		return b, nil
	case model.ColumnTypeTimestamp:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q", value)
		}
		return ts, nil
	case model.ColumnTypeDate:
		ts, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", value)
		}
		return ts, nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", colType)
	}
}
