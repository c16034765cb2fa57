package delta

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"lakehouse-gateway/internal/storage"
)

const defaultCommitRetries = 10

// CommitOptions tunes the optimistic commit loop.
type CommitOptions struct {
	// MaxRetries caps rename attempts when other writers win the race.
	// Zero means the default budget.
	MaxRetries int
	// ReadVersion, when non-nil, asserts the table has not advanced past
	// this version since the writer read it. Any newer commit fails the
	// transaction instead of being retried over.
	ReadVersion *int64
}

// Commit appends one commit to the log using prepare-then-rename: the
// encoded actions land in a temp object first, then a rename that fails
// on an occupied destination decides the winner at each version.
func (t *Table) Commit(ctx context.Context, entries []LogEntry, opts CommitOptions) (int64, error) {
	data, err := EncodeLogEntries(entries)
	if err != nil {
		return -1, err
	}

	tmpKey := fmt.Sprintf("%s/_commit_%s.json.tmp", logDirName, uuid.NewString())
	if err := t.store.Put(ctx, tmpKey, data); err != nil {
		return -1, fmt.Errorf("failed to stage commit: %w", err)
	}

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultCommitRetries
	}

	version, err := t.LatestVersion(ctx)
	if err != nil && err != ErrTableNotFound {
		t.discardStaged(ctx, tmpKey)
		return -1, err
	}

	for attempt := 0; attempt <= retries; attempt++ {
		next := version + 1
		if opts.ReadVersion != nil && version > *opts.ReadVersion {
			t.discardStaged(ctx, tmpKey)
			return -1, ErrCommitConflict
		}

		err := t.store.RenameIfNotExists(ctx, tmpKey, CommitKey(next))
		if err == nil {
			t.log.WithField("version", next).Debug("Committed transaction")
			return next, nil
		}
		if err != storage.ErrObjectAlreadyExists {
			t.discardStaged(ctx, tmpKey)
			return -1, fmt.Errorf("failed to commit version %d: %w", next, err)
		}

		// Someone else took this version. Refresh and try the next slot.
		latest, lerr := t.LatestVersion(ctx)
		if lerr != nil {
			t.discardStaged(ctx, tmpKey)
			return -1, lerr
		}
		version = latest
	}

	t.discardStaged(ctx, tmpKey)
	return -1, ErrCommitConflict
}

func (t *Table) discardStaged(ctx context.Context, key string) {
	if err := t.store.Delete(ctx, key); err != nil && err != storage.ErrObjectNotFound {
		t.log.WithError(err).WithField("key", key).Warn("Failed to clean up staged commit")
	}
}
