package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/colinmarc/hdfs/v2"
)

// HDFSConfig holds HDFS namenode connection settings.
type HDFSConfig struct {
	Addresses []string
	User      string
	Root      string
}

// HDFSStore is an ObjectStore backed by an HDFS directory tree.
type HDFSStore struct {
	client *hdfs.Client
	root   string
}

// NewHDFSStore connects to the HDFS namenode and scopes the store to a
// root directory, creating it if needed.
func NewHDFSStore(config *HDFSConfig) (*HDFSStore, error) {
	if len(config.Addresses) == 0 {
		return nil, fmt.Errorf("hdfs namenode address is required")
	}

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: config.Addresses,
		User:      config.User,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to HDFS: %w", err)
	}

	root := "/" + strings.Trim(config.Root, "/")
	if err := client.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create HDFS root %s: %w", root, err)
	}
	return &HDFSStore{client: client, root: root}, nil
}

func (s *HDFSStore) path(key string) string {
	return path.Join(s.root, key)
}

// Get returns the contents of the file at key.
func (s *HDFSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read hdfs file %s: %w", key, err)
	}
	return data, nil
}

// Put writes data to key, replacing any existing file.
func (s *HDFSStore) Put(ctx context.Context, key string, data []byte) error {
	target := s.path(key)
	if err := s.client.MkdirAll(path.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create hdfs directory for %s: %w", key, err)
	}
	if err := s.client.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace hdfs file %s: %w", key, err)
	}
	w, err := s.client.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create hdfs file %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write hdfs file %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close hdfs file %s: %w", key, err)
	}
	return nil
}

// Head returns metadata for the file at key.
func (s *HDFSStore) Head(ctx context.Context, key string) (ObjectMeta, error) {
	info, err := s.client.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMeta{}, ErrObjectNotFound
		}
		return ObjectMeta{}, fmt.Errorf("failed to stat hdfs file %s: %w", key, err)
	}
	if info.IsDir() {
		return ObjectMeta{}, ErrObjectNotFound
	}
	return ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// List walks the tree under prefix and returns files in lexical key order.
func (s *HDFSStore) List(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	base := s.path(prefix)
	walkRoot := base
	if info, err := s.client.Stat(base); err != nil || !info.IsDir() {
		walkRoot = path.Dir(base)
	}
	if _, err := s.client.Stat(walkRoot); os.IsNotExist(err) {
		return nil, nil
	}

	var metas []ObjectMeta
	err := s.client.Walk(walkRoot, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		key := strings.TrimPrefix(strings.TrimPrefix(p, s.root), "/")
		if prefix != "" && !strings.HasPrefix(key, strings.TrimSuffix(prefix, "/")) {
			return nil
		}
		metas = append(metas, ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list hdfs files under %s: %w", prefix, err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// Delete removes the file at key.
func (s *HDFSStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Remove(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete hdfs file %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every file under prefix.
func (s *HDFSStore) DeletePrefix(ctx context.Context, prefix string) error {
	if err := s.client.RemoveAll(s.path(prefix)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete hdfs prefix %s: %w", prefix, err)
	}
	return nil
}

// RenameIfNotExists moves src to dst after checking the destination.
// The check and the rename are two namenode calls, so the guarantee is
// weaker than the local backend's.
func (s *HDFSStore) RenameIfNotExists(ctx context.Context, src, dst string) error {
	dstPath := s.path(dst)
	if _, err := s.client.Stat(dstPath); err == nil {
		return ErrObjectAlreadyExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat hdfs file %s: %w", dst, err)
	}
	if err := s.client.MkdirAll(path.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create hdfs directory for %s: %w", dst, err)
	}
	if err := s.client.Rename(s.path(src), dstPath); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		if os.IsExist(err) {
			return ErrObjectAlreadyExists
		}
		return fmt.Errorf("failed to rename hdfs file %s to %s: %w", src, dst, err)
	}
	return nil
}

// IsListOrdered reports that List results are sorted.
func (s *HDFSStore) IsListOrdered() bool {
	return true
}
