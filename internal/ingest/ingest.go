// Package ingest decodes source files (CSV, JSON, Avro) into typed rows
// for batch loads and streaming micro-batches.
package ingest

import (
	"fmt"
	"strings"

	"lakehouse-gateway/internal/model"
)

// SourceFormat names a supported input file format.
type SourceFormat string

const (
	FormatCSV  SourceFormat = "csv"
	FormatJSON SourceFormat = "json"
	FormatAvro SourceFormat = "avro"
)

// ErrUnsupportedFormat is returned for input formats no decoder handles.
var ErrUnsupportedFormat = fmt.Errorf("unsupported source format")

// Decoder turns one source file into rows. When the configured schema
// is nil, the decoder infers one from the data and returns it.
type Decoder interface {
	Decode(data []byte, schema *model.TableSchema) ([]model.Row, *model.TableSchema, error)
}

// NewDecoder returns the decoder for a format.
func NewDecoder(format SourceFormat) (Decoder, error) {
	switch SourceFormat(strings.ToLower(string(format))) {
	case FormatCSV:
		return NewCSVDecoder(nil), nil
	case FormatJSON:
		return &JSONDecoder{}, nil
	case FormatAvro:
		return &AvroDecoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Extension returns the file extension decoders of this format accept.
func Extension(format SourceFormat) string {
	return "." + strings.ToLower(string(format))
}
