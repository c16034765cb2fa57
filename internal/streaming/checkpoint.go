// Package streaming runs micro-batch ingestion from file folders or
// other versioned tables into a sink table, with durable checkpoints so
// a restarted stream resumes where it stopped.
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lakehouse-gateway/internal/storage"
)

const (
	checkpointKey = "offsets/checkpoint.json"
	planKey       = "offsets/plan.json"
)

// Checkpoint records stream progress: the last completed batch, the
// source files already delivered and, for table sources, the last
// source version consumed.
type Checkpoint struct {
	StreamID       string          `json:"streamId"`
	BatchID        int64           `json:"batchId"`
	ProcessedFiles map[string]bool `json:"processedFiles,omitempty"`
	SourceVersion  int64           `json:"sourceVersion"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NewCheckpoint returns the starting checkpoint for a stream.
func NewCheckpoint(streamID string) *Checkpoint {
	return &Checkpoint{
		StreamID:       streamID,
		BatchID:        -1,
		ProcessedFiles: make(map[string]bool),
		SourceVersion:  -1,
	}
}

// BatchPlan is the write-ahead record of one batch: exactly which files
// and source versions it will deliver. It is persisted before the sink
// commit so a crash between commit and checkpoint save replays the same
// batch instead of re-planning it with later arrivals mixed in.
type BatchPlan struct {
	StreamID      string    `json:"streamId"`
	BatchID       int64     `json:"batchId"`
	Files         []string  `json:"files,omitempty"`
	SourceVersion int64     `json:"sourceVersion"`
	PlannedAt     time.Time `json:"plannedAt"`
}

// CheckpointStore persists checkpoints at a checkpoint location.
type CheckpointStore struct {
	store storage.ObjectStore
}

// NewCheckpointStore wraps an object store rooted at the checkpoint
// location.
func NewCheckpointStore(store storage.ObjectStore) *CheckpointStore {
	return &CheckpointStore{store: store}
}

// Load reads the persisted checkpoint, or returns a fresh one when the
// location holds none yet.
func (c *CheckpointStore) Load(ctx context.Context, streamID string) (*Checkpoint, error) {
	data, err := c.store.Get(ctx, checkpointKey)
	if err != nil {
		if err == storage.ErrObjectNotFound {
			return NewCheckpoint(streamID), nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	if cp.ProcessedFiles == nil {
		cp.ProcessedFiles = make(map[string]bool)
	}
	return &cp, nil
}

// LoadPlan reads the persisted batch plan, or nil when none exists.
func (c *CheckpointStore) LoadPlan(ctx context.Context) (*BatchPlan, error) {
	data, err := c.store.Get(ctx, planKey)
	if err != nil {
		if err == storage.ErrObjectNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load batch plan: %w", err)
	}
	var plan BatchPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse batch plan: %w", err)
	}
	return &plan, nil
}

// SavePlan persists the batch plan ahead of the sink commit.
func (c *CheckpointStore) SavePlan(ctx context.Context, plan *BatchPlan) error {
	plan.PlannedAt = time.Now().UTC()
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch plan: %w", err)
	}
	if err := c.store.Put(ctx, planKey, data); err != nil {
		return fmt.Errorf("failed to save batch plan: %w", err)
	}
	return nil
}

// Save persists the checkpoint. The backing store's replace semantics
// make the write atomic per object.
func (c *CheckpointStore) Save(ctx context.Context, cp *Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := c.store.Put(ctx, checkpointKey, data); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
