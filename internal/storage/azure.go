package storage

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig holds Azure Blob Storage connection settings.
type AzureConfig struct {
	AccountName string
	AccountKey  string
	SASToken    string
	Endpoint    string // optional custom endpoint
	Container   string
	Prefix      string
}

// AzureStore is an ObjectStore backed by an Azure Blob container.
type AzureStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureStore creates an Azure Blob backed store scoped to a container
// and optional key prefix.
func NewAzureStore(config *AzureConfig) (*AzureStore, error) {
	if config.AccountName == "" {
		return nil, fmt.Errorf("azure account name is required")
	}
	if config.Container == "" {
		return nil, fmt.Errorf("azure container is required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
	if config.Endpoint != "" {
		serviceURL = config.Endpoint
	}

	var client *azblob.Client
	var err error
	if config.SASToken != "" {
		client, err = azblob.NewClientWithNoCredential(serviceURL+"?"+config.SASToken, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob client with SAS: %w", err)
		}
	} else {
		credential, credErr := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
		}
	}

	return &AzureStore{client: client, container: config.Container, prefix: config.Prefix}, nil
}

func (s *AzureStore) blobName(key string) string {
	return JoinKey(s.prefix, key)
}

func isAzureNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound)
}

// Get downloads the blob at key.
func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blobName(key), nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Put uploads data to key.
func (s *AzureStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, s.blobName(key), data, nil)
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}
	return nil
}

// Head returns metadata for the blob at key.
func (s *AzureStore) Head(ctx context.Context, key string) (ObjectMeta, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(s.blobName(key))
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return ObjectMeta{}, ErrObjectNotFound
		}
		return ObjectMeta{}, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}
	meta := ObjectMeta{Key: key}
	if props.ContentLength != nil {
		meta.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		meta.LastModified = *props.LastModified
	}
	return meta, nil
}

// List returns all blobs under prefix in lexical key order.
func (s *AzureStore) List(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	full := s.blobName(prefix)
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &full,
	})

	var metas []ObjectMeta
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs under %s: %w", prefix, err)
		}
		for _, blob := range page.Segment.BlobItems {
			key := *blob.Name
			if s.prefix != "" {
				key = key[len(s.prefix)+1:]
			}
			meta := ObjectMeta{Key: key}
			if blob.Properties.ContentLength != nil {
				meta.Size = *blob.Properties.ContentLength
			}
			if blob.Properties.LastModified != nil {
				meta.LastModified = *blob.Properties.LastModified
			}
			metas = append(metas, meta)
		}
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// Delete removes the blob at key.
func (s *AzureStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, s.blobName(key), nil)
	if err != nil {
		if isAzureNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every blob under prefix.
func (s *AzureStore) DeletePrefix(ctx context.Context, prefix string) error {
	metas, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, meta := range metas {
		if err := s.Delete(ctx, meta.Key); err != nil && err != ErrObjectNotFound {
			return err
		}
	}
	return nil
}

// RenameIfNotExists copies src to dst after checking the destination.
// Blob storage has no atomic rename; callers needing strict mutual
// exclusion serialize commits at a higher level.
func (s *AzureStore) RenameIfNotExists(ctx context.Context, src, dst string) error {
	if _, err := s.Head(ctx, dst); err == nil {
		return ErrObjectAlreadyExists
	} else if err != ErrObjectNotFound {
		return err
	}

	data, err := s.Get(ctx, src)
	if err != nil {
		return err
	}
	if err := s.Put(ctx, dst, data); err != nil {
		return err
	}
	return s.Delete(ctx, src)
}

// IsListOrdered reports that List results are sorted.
func (s *AzureStore) IsListOrdered() bool {
	return true
}
