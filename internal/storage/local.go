package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// LocalStore is a filesystem-backed ObjectStore rooted at a directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root, creating the
// directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute root directory of the store.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Get returns the contents of the file at key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Put writes data to key via a temp file and rename so readers never
// observe a partial object.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", key, err)
	}
	tmp := target + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize object %s: %w", key, err)
	}
	return nil
}

// Head returns metadata for the file at key.
func (s *LocalStore) Head(ctx context.Context, key string) (ObjectMeta, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMeta{}, ErrObjectNotFound
		}
		return ObjectMeta{}, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if info.IsDir() {
		return ObjectMeta{}, ErrObjectNotFound
	}
	return ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// List walks the tree under prefix and returns files in lexical key order.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	var metas []ObjectMeta
	base := s.path(prefix)

	// The prefix may name a directory or a key prefix inside one.
	walkRoot := base
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		walkRoot = filepath.Dir(base)
	}
	if _, err := os.Stat(walkRoot); os.IsNotExist(err) {
		return nil, nil
	}

	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, strings.TrimSuffix(prefix, "/")) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		metas = append(metas, ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// Delete removes the file at key.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every file under prefix.
func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) error {
	if err := os.RemoveAll(s.path(prefix)); err != nil {
		return fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}
	return nil
}

// RenameIfNotExists moves src to dst using a hard link so that the
// destination check and the move are one atomic step.
func (s *LocalStore) RenameIfNotExists(ctx context.Context, src, dst string) error {
	srcPath := s.path(src)
	dstPath := s.path(dst)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dst, err)
	}
	if err := os.Link(srcPath, dstPath); err != nil {
		if os.IsExist(err) {
			return ErrObjectAlreadyExists
		}
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to rename %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(srcPath); err != nil {
		return fmt.Errorf("failed to remove rename source %s: %w", src, err)
	}
	return nil
}

// IsListOrdered reports that List results are sorted.
func (s *LocalStore) IsListOrdered() bool {
	return true
}
