package streaming

import (
	"context"
	"fmt"
	"strings"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/ingest"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/storage"
)

// Batch is one micro-batch pulled from a source, plus the checkpoint
// advances to record once the batch is committed downstream.
type Batch struct {
	Rows   []model.Row
	Schema *model.TableSchema

	// Files lists source files delivered in this batch (folder sources).
	Files []string
	// SourceVersion is the last source commit consumed (table sources).
	SourceVersion int64
}

// Source yields micro-batches relative to a checkpoint. An empty batch
// with no files and an unchanged version means the source is idle.
// Replay re-materializes a previously planned batch: exactly the input
// the plan names, never anything that arrived after it.
type Source interface {
	Next(ctx context.Context, cp *Checkpoint, maxFiles int) (*Batch, error)
	Replay(ctx context.Context, cp *Checkpoint, plan *BatchPlan) (*Batch, error)
}

// FolderSource tails a folder of data files, delivering each file once.
type FolderSource struct {
	store   storage.ObjectStore
	decoder ingest.Decoder
	ext     string
	schema  *model.TableSchema
}

// NewFolderSource creates a source over all format-matching files under
// the store root. A nil schema is inferred from the first batch and
// pinned afterwards.
func NewFolderSource(store storage.ObjectStore, format ingest.SourceFormat, schema *model.TableSchema) (*FolderSource, error) {
	decoder, err := ingest.NewDecoder(format)
	if err != nil {
		return nil, err
	}
	return &FolderSource{
		store:   store,
		decoder: decoder,
		ext:     ingest.Extension(format),
		schema:  schema,
	}, nil
}

// Next delivers rows from up to maxFiles unprocessed files.
func (s *FolderSource) Next(ctx context.Context, cp *Checkpoint, maxFiles int) (*Batch, error) {
	metas, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list source folder: %w", err)
	}

	keys := make([]string, 0, len(metas))
	for _, meta := range metas {
		if maxFiles > 0 && len(keys) >= maxFiles {
			break
		}
		if !strings.HasSuffix(meta.Key, s.ext) || cp.ProcessedFiles[meta.Key] {
			continue
		}
		keys = append(keys, meta.Key)
	}
	return s.deliver(ctx, keys, cp.SourceVersion)
}

// Replay re-reads exactly the files the plan names, leaving later
// arrivals for the next batch.
func (s *FolderSource) Replay(ctx context.Context, cp *Checkpoint, plan *BatchPlan) (*Batch, error) {
	return s.deliver(ctx, plan.Files, plan.SourceVersion)
}

func (s *FolderSource) deliver(ctx context.Context, keys []string, sourceVersion int64) (*Batch, error) {
	batch := &Batch{Schema: s.schema, SourceVersion: sourceVersion}
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read source file %s: %w", key, err)
		}
		rows, schema, err := s.decoder.Decode(data, s.schema)
		if err != nil {
			return nil, fmt.Errorf("failed to decode source file %s: %w", key, err)
		}
		if s.schema == nil {
			s.schema = schema
			batch.Schema = schema
		}
		batch.Rows = append(batch.Rows, rows...)
		batch.Files = append(batch.Files, key)
	}
	return batch, nil
}

// TableSource tails another versioned table's log, replaying appended
// rows commit by commit.
type TableSource struct {
	table         *delta.Table
	ignoreChanges bool
	ignoreDeletes bool
}

// NewTableSource creates a source over a table's commits. With
// ignoreDeletes, delete-only commits are skipped; with ignoreChanges,
// commits that rewrite files re-deliver their added rows instead of
// failing the stream.
func NewTableSource(table *delta.Table, ignoreChanges, ignoreDeletes bool) *TableSource {
	return &TableSource{table: table, ignoreChanges: ignoreChanges, ignoreDeletes: ignoreDeletes}
}

// Next replays source commits after the checkpointed version, at most
// maxFiles added files per batch.
func (s *TableSource) Next(ctx context.Context, cp *Checkpoint, maxFiles int) (*Batch, error) {
	latest, err := s.table.LatestVersion(ctx)
	if err != nil {
		if err == delta.ErrTableNotFound {
			return &Batch{SourceVersion: cp.SourceVersion}, nil
		}
		return nil, err
	}
	return s.pull(ctx, cp, maxFiles, latest)
}

// Replay re-reads the commit range the plan covered, stopping at the
// planned source version even when the source has moved on.
func (s *TableSource) Replay(ctx context.Context, cp *Checkpoint, plan *BatchPlan) (*Batch, error) {
	return s.pull(ctx, cp, 0, plan.SourceVersion)
}

func (s *TableSource) pull(ctx context.Context, cp *Checkpoint, maxFiles int, until int64) (*Batch, error) {
	schema, err := s.table.Schema(ctx)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Schema: schema, SourceVersion: cp.SourceVersion}
	filesRead := 0
	for version := cp.SourceVersion + 1; version <= until; version++ {
		entries, err := s.table.ReadCommit(ctx, version)
		if err != nil {
			return nil, err
		}

		var adds []delta.AddAction
		removes := 0
		for _, entry := range entries {
			switch {
			case entry.Add != nil && entry.Add.DataChange:
				adds = append(adds, *entry.Add)
			case entry.Remove != nil && entry.Remove.DataChange:
				removes++
			}
		}

		if removes > 0 {
			if len(adds) == 0 {
				// Pure delete.
				if !s.ignoreDeletes && !s.ignoreChanges {
					return nil, fmt.Errorf("%w: version %d deletes data", delta.ErrUnsupportedSourceChange, version)
				}
				batch.SourceVersion = version
				continue
			}
			// Update or overwrite: files rewritten in place.
			if !s.ignoreChanges {
				return nil, fmt.Errorf("%w: version %d rewrites data", delta.ErrUnsupportedSourceChange, version)
			}
		}

		if maxFiles > 0 && filesRead+len(adds) > maxFiles && filesRead > 0 {
			break
		}
		for _, add := range adds {
			data, err := s.table.Store().Get(ctx, add.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to read source data file %s: %w", add.Path, err)
			}
			rows, err := delta.ReadParquet(schema, data)
			if err != nil {
				return nil, err
			}
			batch.Rows = append(batch.Rows, rows...)
			filesRead++
		}
		batch.SourceVersion = version
	}
	return batch, nil
}
