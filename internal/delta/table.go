// Package delta implements a versioned table engine over an object
// store. Every change is an atomic commit to a JSON transaction log,
// and any historical version can be reconstructed by replaying the log.
package delta

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/storage"
)

// Table is a handle to one versioned table rooted at an object store.
type Table struct {
	store storage.ObjectStore
	log   *logrus.Entry
}

// NewTable creates a handle for the table rooted at store.
func NewTable(store storage.ObjectStore) *Table {
	return &Table{
		store: store,
		log:   logrus.WithField("component", "delta"),
	}
}

// Store exposes the underlying object store.
func (t *Table) Store() storage.ObjectStore {
	return t.store
}

// listCommitVersions returns all committed versions in ascending order.
func (t *Table) listCommitVersions(ctx context.Context) ([]int64, error) {
	metas, err := t.store.List(ctx, logDirName+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction log: %w", err)
	}
	var versions []int64
	for _, meta := range metas {
		if version, ok := ParseCommitKey(meta.Key); ok {
			versions = append(versions, version)
		}
	}
	return versions, nil
}

// Exists reports whether a transaction log is present at the location.
func (t *Table) Exists(ctx context.Context) (bool, error) {
	versions, err := t.listCommitVersions(ctx)
	if err != nil {
		return false, err
	}
	return len(versions) > 0, nil
}

// LatestVersion returns the highest committed version, or
// ErrTableNotFound for an empty location.
func (t *Table) LatestVersion(ctx context.Context) (int64, error) {
	versions, err := t.listCommitVersions(ctx)
	if err != nil {
		return -1, err
	}
	if len(versions) == 0 {
		return -1, ErrTableNotFound
	}
	return versions[len(versions)-1], nil
}

// ReadCommit loads and parses the commit file for one version.
func (t *Table) ReadCommit(ctx context.Context, version int64) ([]LogEntry, error) {
	data, err := t.store.Get(ctx, CommitKey(version))
	if err != nil {
		if err == storage.ErrObjectNotFound {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to read commit %d: %w", version, err)
	}
	return DecodeLogEntries(data)
}

// StateAt replays the log up to and including version. Pass a negative
// version for the latest state.
func (t *Table) StateAt(ctx context.Context, version int64) (*TableState, error) {
	versions, err := t.listCommitVersions(ctx)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrTableNotFound
	}
	if version < 0 {
		version = versions[len(versions)-1]
	}

	state := NewTableState()
	found := false
	for _, v := range versions {
		if v > version {
			break
		}
		entries, err := t.ReadCommit(ctx, v)
		if err != nil {
			return nil, err
		}
		if err := state.Apply(v, entries); err != nil {
			return nil, err
		}
		if v == version {
			found = true
		}
	}
	if !found {
		return nil, ErrVersionNotFound
	}
	return state, nil
}

// commitTimestamp extracts the commit time, preferring the recorded
// commitInfo and falling back to the log object's modification time.
func (t *Table) commitTimestamp(ctx context.Context, version int64, entries []LogEntry) (time.Time, error) {
	for _, entry := range entries {
		if entry.CommitInfo != nil {
			return time.UnixMilli(entry.CommitInfo.Timestamp).UTC(), nil
		}
	}
	meta, err := t.store.Head(ctx, CommitKey(version))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat commit %d: %w", version, err)
	}
	return meta.LastModified.UTC(), nil
}

// ResolveSelector maps a read selector to a concrete version. A
// timestamp selects the newest commit at or before it; a timestamp
// earlier than the first commit resolves to no version.
func (t *Table) ResolveSelector(ctx context.Context, selector model.ReadSelector) (int64, error) {
	if err := selector.Validate(); err != nil {
		return -1, err
	}
	versions, err := t.listCommitVersions(ctx)
	if err != nil {
		return -1, err
	}
	if len(versions) == 0 {
		return -1, ErrTableNotFound
	}

	if selector.VersionAsOf != nil {
		requested := *selector.VersionAsOf
		for _, v := range versions {
			if v == requested {
				return requested, nil
			}
		}
		return -1, ErrVersionNotFound
	}

	if selector.TimestampAsOf != nil {
		cutoff := *selector.TimestampAsOf
		resolved := int64(-1)
		for _, v := range versions {
			entries, err := t.ReadCommit(ctx, v)
			if err != nil {
				return -1, err
			}
			ts, err := t.commitTimestamp(ctx, v, entries)
			if err != nil {
				return -1, err
			}
			if ts.After(cutoff) {
				break
			}
			resolved = v
		}
		if resolved < 0 {
			return -1, ErrVersionNotFound
		}
		return resolved, nil
	}

	return versions[len(versions)-1], nil
}

// History returns commit metadata newest first, capped at limit when
// limit is positive.
func (t *Table) History(ctx context.Context, limit int) ([]model.CommitInfo, error) {
	versions, err := t.listCommitVersions(ctx)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrTableNotFound
	}

	var history []model.CommitInfo
	for i := len(versions) - 1; i >= 0; i-- {
		if limit > 0 && len(history) >= limit {
			break
		}
		version := versions[i]
		entries, err := t.ReadCommit(ctx, version)
		if err != nil {
			return nil, err
		}
		info := model.CommitInfo{Version: version}
		for _, entry := range entries {
			if entry.CommitInfo != nil {
				info.Timestamp = time.UnixMilli(entry.CommitInfo.Timestamp).UTC()
				info.Operation = entry.CommitInfo.Operation
				info.OperationParameters = entry.CommitInfo.OperationParameters
				info.OperationMetrics = entry.CommitInfo.OperationMetrics
				info.UserName = entry.CommitInfo.UserName
				info.ClientVersion = entry.CommitInfo.ClientVersion
				break
			}
		}
		history = append(history, info)
	}
	return history, nil
}

// Schema returns the table schema at the latest version.
func (t *Table) Schema(ctx context.Context) (*model.TableSchema, error) {
	state, err := t.StateAt(ctx, -1)
	if err != nil {
		return nil, err
	}
	if state.Metadata == nil {
		return nil, fmt.Errorf("table has no metadata action")
	}
	return UnmarshalSchema(state.Metadata.SchemaString)
}

// Details summarizes the table at its latest version.
func (t *Table) Details(ctx context.Context) (*model.TableDetails, error) {
	state, err := t.StateAt(ctx, -1)
	if err != nil {
		return nil, err
	}
	details := &model.TableDetails{
		Version:  state.Version,
		NumFiles: state.NumFiles(),
	}
	if state.Metadata != nil {
		details.CreatedAt = time.UnixMilli(state.Metadata.CreatedTime).UTC()
		details.PartitionColumns = state.Metadata.PartitionColumns
		schema, err := UnmarshalSchema(state.Metadata.SchemaString)
		if err != nil {
			return nil, err
		}
		details.Schema = *schema
	}
	for _, file := range state.Files() {
		details.SizeBytes += file.Size
	}
	entries, err := t.ReadCommit(ctx, state.Version)
	if err == nil {
		if ts, tsErr := t.commitTimestamp(ctx, state.Version, entries); tsErr == nil {
			details.LastModifiedAt = ts
		}
	}
	return details, nil
}
