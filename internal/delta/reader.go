package delta

import (
	"context"
	"fmt"

	"lakehouse-gateway/internal/model"
)

// ReadOptions narrows a table read.
type ReadOptions struct {
	// Columns projects the result to a subset of the schema. Empty
	// means all columns.
	Columns []string
	// Limit caps the returned row count when positive.
	Limit int
	// Filter drops rows that do not match when set.
	Filter *model.Filter
}

// ReadResult is a fully materialized table scan.
type ReadResult struct {
	Version int64
	Schema  *model.TableSchema
	Rows    []model.Row
}

// Read materializes the table at the version the selector resolves to.
func (t *Table) Read(ctx context.Context, selector model.ReadSelector, opts ReadOptions) (*ReadResult, error) {
	version, err := t.ResolveSelector(ctx, selector)
	if err != nil {
		return nil, err
	}
	state, err := t.StateAt(ctx, version)
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

	resultSchema := schema
	if len(opts.Columns) > 0 {
		projected := &model.TableSchema{}
		for _, name := range opts.Columns {
			col := schema.Column(name)
			if col == nil {
				return nil, fmt.Errorf("%w: unknown column %q", ErrSchemaMismatch, name)
			}
			projected.Columns = append(projected.Columns, *col)
		}
		resultSchema = projected
	}

	result := &ReadResult{Version: version, Schema: resultSchema}
	for _, file := range state.Files() {
		if opts.Limit > 0 && len(result.Rows) >= opts.Limit {
			break
		}
		data, err := t.store.Get(ctx, file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %s: %w", file.Path, err)
		}
		rows, err := ReadParquet(schema, data)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if opts.Limit > 0 && len(result.Rows) >= opts.Limit {
				break
			}
			if opts.Filter != nil {
				hit, err := EvaluateFilter(opts.Filter, row)
				if err != nil {
					return nil, err
				}
				if !hit {
					continue
				}
			}
			if len(opts.Columns) > 0 {
				projected := make(model.Row, len(opts.Columns))
				for _, name := range opts.Columns {
					projected[name] = row[name]
				}
				row = projected
			}
			result.Rows = append(result.Rows, row)
		}
	}
	return result, nil
}

// Count returns the number of live rows at the selected version.
func (t *Table) Count(ctx context.Context, selector model.ReadSelector) (int64, error) {
	result, err := t.Read(ctx, selector, ReadOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(result.Rows)), nil
}
