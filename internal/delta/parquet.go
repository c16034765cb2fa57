package delta

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"lakehouse-gateway/internal/model"
)

// bufferFile adapts an in-memory byte slice to the parquet file
// interface so data files can be staged before a single object-store
// Put, the same role the object-store-backed parquet sources play for
// direct reads.
type bufferFile struct {
	data []byte
	pos  int64
}

func newBufferFile(data []byte) *bufferFile {
	return &bufferFile{data: data}
}

func (f *bufferFile) Create(name string) (source.ParquetFile, error) {
	return &bufferFile{}, nil
}

func (f *bufferFile) Open(name string) (source.ParquetFile, error) {
	return &bufferFile{data: f.data}, nil
}

func (f *bufferFile) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.pos + offset
	case io.SeekEnd:
		next = int64(len(f.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	f.pos = next
	return next, nil
}

func (f *bufferFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *bufferFile) Write(p []byte) (int, error) {
	if f.pos == int64(len(f.data)) {
		f.data = append(f.data, p...)
	} else {
		f.data = append(f.data[:f.pos], p...)
	}
	f.pos += int64(len(p))
	return len(p), nil
}

func (f *bufferFile) Close() error {
	return nil
}

func (f *bufferFile) Bytes() []byte {
	return f.data
}

var columnTypeToParquetTag = map[model.ColumnType]string{
	model.ColumnTypeString:    "type=BYTE_ARRAY, convertedtype=UTF8",
	model.ColumnTypeInteger:   "type=INT64",
	model.ColumnTypeFloat:     "type=DOUBLE",
	model.ColumnTypeBoolean:   "type=BOOLEAN",
	model.ColumnTypeTimestamp: "type=INT64, convertedtype=TIMESTAMP_MILLIS",
	model.ColumnTypeDate:      "type=INT32, convertedtype=DATE",
}

// parquetJSONSchema renders the tag-based schema the JSON writer needs.
func parquetJSONSchema(schema *model.TableSchema) (string, error) {
	type tagField struct {
		Tag string `json:"Tag"`
	}
	type tagSchema struct {
		Tag    string     `json:"Tag"`
		Fields []tagField `json:"Fields"`
	}

	ts := tagSchema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, col := range schema.Columns {
		typeTag, ok := columnTypeToParquetTag[col.Type]
		if !ok {
			return "", fmt.Errorf("column %s has unsupported type %q", col.Name, col.Type)
		}
		repetition := "REQUIRED"
		if col.Nullable {
			repetition = "OPTIONAL"
		}
		ts.Fields = append(ts.Fields, tagField{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=%s", col.Name, typeTag, repetition),
		})
	}
	data, err := json.Marshal(ts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal parquet schema: %w", err)
	}
	return string(data), nil
}

const epochDaySeconds = 24 * 60 * 60

// encodeValue converts a row value to its physical parquet form.
func encodeValue(col model.ColumnSchema, value interface{}) (interface{}, error) {
	if value == nil {
		if !col.Nullable {
			return nil, fmt.Errorf("column %s is not nullable", col.Name)
		}
		return nil, nil
	}
	switch col.Type {
	case model.ColumnTypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("column %s expects a string, got %T", col.Name, value)
		}
		return s, nil
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
		default:
			return nil, fmt.Errorf("column %s expects an integer, got %T", col.Name, value)
		}
	case model.ColumnTypeFloat:
		switch v := value.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("column %s expects a float, got %T", col.Name, value)
		}
	case model.ColumnTypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("column %s expects a boolean, got %T", col.Name, value)
		}
		return b, nil
	case model.ColumnTypeTimestamp:
		ts, err := coerceTime(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		return ts.UnixMilli(), nil
	case model.ColumnTypeDate:
		ts, err := coerceTime(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		return int32(ts.Unix() / epochDaySeconds), nil
	default:
		return nil, fmt.Errorf("column %s has unsupported type %q", col.Name, col.Type)
	}
}

// decodeValue converts a physical parquet value back to the row form.
func decodeValue(col model.ColumnSchema, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch col.Type {
	case model.ColumnTypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case model.ColumnTypeInteger:
		switch v := value.(type) {
		case float64:
			return int64(v), nil
		case int64:
			return v, nil
		}
	case model.ColumnTypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
	case model.ColumnTypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case model.ColumnTypeTimestamp:
		switch v := value.(type) {
		case float64:
			return time.UnixMilli(int64(v)).UTC(), nil
		case int64:
			return time.UnixMilli(v).UTC(), nil
		}
	case model.ColumnTypeDate:
		switch v := value.(type) {
		case float64:
			return time.Unix(int64(v)*epochDaySeconds, 0).UTC(), nil
		case int64:
			return time.Unix(v*epochDaySeconds, 0).UTC(), nil
		}
	}
	return nil, fmt.Errorf("column %s: unexpected stored value %T", col.Name, value)
}

func coerceTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
		}
		return ts, nil
	case int64:
		return time.UnixMilli(v), nil
	case float64:
		return time.UnixMilli(int64(v)), nil
	default:
		return time.Time{}, fmt.Errorf("cannot interpret %T as a timestamp", value)
	}
}

const parquetParallelism = 2

// WriteParquet encodes rows into a parquet file held in memory.
func WriteParquet(schema *model.TableSchema, rows []model.Row) ([]byte, error) {
	schemaJSON, err := parquetJSONSchema(schema)
	if err != nil {
		return nil, err
	}

	pfile := newBufferFile(nil)
	jw, err := writer.NewJSONWriter(schemaJSON, pfile, parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	for _, row := range rows {
		encoded := make(map[string]interface{}, len(schema.Columns))
		for _, col := range schema.Columns {
			value, err := encodeValue(col, row[col.Name])
			if err != nil {
				return nil, err
			}
			encoded[col.Name] = value
		}
		line, err := json.Marshal(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
		if err := jw.Write(string(line)); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := jw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return pfile.Bytes(), nil
}

// ReadParquet decodes every row of a parquet file into schema-typed rows.
func ReadParquet(schema *model.TableSchema, data []byte) ([]model.Row, error) {
	pfile := newBufferFile(data)
	pr, err := reader.NewParquetReader(pfile, nil, parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	rows := make([]model.Row, 0, numRows)
	for len(rows) < numRows {
		batch, err := pr.ReadByNumber(numRows - len(rows))
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, raw := range batch {
			row, err := decodeRow(schema, raw)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// decodeRow converts one dynamically-typed reader record into a Row.
// The reader surfaces records as structs whose field names may differ
// from the declared column names in case only, so keys are matched
// case-insensitively.
func decodeRow(schema *model.TableSchema, raw interface{}) (model.Row, error) {
	blob, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode parquet record: %w", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(blob, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode parquet record: %w", err)
	}

	folded := make(map[string]interface{}, len(generic))
	for key, value := range generic {
		folded[strings.ToLower(key)] = value
	}

	row := make(model.Row, len(schema.Columns))
	for _, col := range schema.Columns {
		value, ok := folded[strings.ToLower(col.Name)]
		if !ok {
			row[col.Name] = nil
			continue
		}
		decoded, err := decodeValue(col, value)
		if err != nil {
			return nil, err
		}
		row[col.Name] = decoded
	}
	return row, nil
}
