package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// MinIOStore is an ObjectStore backed by a MinIO bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOStore creates a MinIO-backed store scoped to a bucket and
// optional key prefix.
func NewMinIOStore(config *MinIOConfig) (*MinIOStore, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOStore{client: client, bucket: config.Bucket, prefix: config.Prefix}, nil
}

func (s *MinIOStore) objectName(key string) string {
	return JoinKey(s.prefix, key)
}

func isMinIONotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" || resp.StatusCode == 404
}

// Get downloads the object at key.
func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isMinIONotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Put uploads data to key.
func (s *MinIOStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// Head returns metadata for the object at key.
func (s *MinIOStore) Head(ctx context.Context, key string) (ObjectMeta, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if isMinIONotFound(err) {
			return ObjectMeta{}, ErrObjectNotFound
		}
		return ObjectMeta{}, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return ObjectMeta{Key: key, Size: info.Size, LastModified: info.LastModified}, nil
}

// List returns all objects under prefix in lexical key order.
func (s *MinIOStore) List(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	full := s.objectName(prefix)
	var metas []ObjectMeta
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, info.Err)
		}
		key := info.Key
		if s.prefix != "" {
			key = key[len(s.prefix)+1:]
		}
		metas = append(metas, ObjectMeta{Key: key, Size: info.Size, LastModified: info.LastModified})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// Delete removes the object at key.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if _, err := s.Head(ctx, key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix.
func (s *MinIOStore) DeletePrefix(ctx context.Context, prefix string) error {
	metas, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, meta := range metas {
		if err := s.client.RemoveObject(ctx, s.bucket, s.objectName(meta.Key), minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete object %s: %w", meta.Key, err)
		}
	}
	return nil
}

// RenameIfNotExists copies src to dst after checking the destination.
// Object storage has no atomic rename; callers needing strict mutual
// exclusion serialize commits at a higher level.
func (s *MinIOStore) RenameIfNotExists(ctx context.Context, src, dst string) error {
	if _, err := s.Head(ctx, dst); err == nil {
		return ErrObjectAlreadyExists
	} else if err != ErrObjectNotFound {
		return err
	}

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: s.objectName(dst)},
		minio.CopySrcOptions{Bucket: s.bucket, Object: s.objectName(src)},
	)
	if err != nil {
		if isMinIONotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return s.Delete(ctx, src)
}

// IsListOrdered reports that List results are sorted.
func (s *MinIOStore) IsListOrdered() bool {
	return true
}
