// Package storage provides object store backends for table data and
// transaction logs. All backends expose the same ObjectStore interface
// with slash-separated keys relative to the store root.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrObjectNotFound is returned when a requested object does not exist.
	ErrObjectNotFound = errors.New("object does not exist")
	// ErrObjectAlreadyExists is returned by RenameIfNotExists when the
	// destination key is already occupied.
	ErrObjectAlreadyExists = errors.New("object already exists")
)

// ObjectMeta describes a stored object.
type ObjectMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the storage abstraction used by the table engine.
// Keys use forward slashes regardless of backend.
type ObjectStore interface {
	// Get returns the full contents of the object at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes data to key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Head returns metadata for the object at key.
	Head(ctx context.Context, key string) (ObjectMeta, error)

	// List returns all objects under prefix, sorted lexically by key
	// when IsListOrdered reports true.
	List(ctx context.Context, prefix string) ([]ObjectMeta, error)

	// Delete removes the object at key. Deleting a missing key returns
	// ErrObjectNotFound.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// RenameIfNotExists atomically moves src to dst, failing with
	// ErrObjectAlreadyExists when dst is occupied. Backends that cannot
	// offer atomicity document the weaker guarantee.
	RenameIfNotExists(ctx context.Context, src, dst string) error

	// IsListOrdered reports whether List results come back in lexical
	// key order without client-side sorting.
	IsListOrdered() bool
}

// JoinKey joins path segments into a slash key, dropping empties.
func JoinKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}
