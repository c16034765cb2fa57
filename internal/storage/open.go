package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Credentials carries per-backend connection settings used when a table
// location names a remote store. Unset backends fall back to anonymous
// or environment-provided credentials.
type Credentials struct {
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool

	AzureAccountName string
	AzureAccountKey  string
	AzureSASToken    string
	AzureEndpoint    string

	HDFSUser string
}

// Open resolves a table location URI to an ObjectStore rooted at that
// location. Supported schemes are file (or a bare path), s3, s3a,
// minio, az, abfs, wasb and hdfs.
func Open(ctx context.Context, location string, creds Credentials) (ObjectStore, error) {
	if !strings.Contains(location, "://") {
		return NewLocalStore(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid table location %q: %w", location, err)
	}
	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "file":
		return NewLocalStore(u.Path)
	case "s3", "s3a":
		return NewS3Store(ctx, &S3Config{
			Region:    creds.S3Region,
			AccessKey: creds.S3AccessKey,
			SecretKey: creds.S3SecretKey,
			Endpoint:  creds.S3Endpoint,
			Bucket:    u.Host,
			Prefix:    prefix,
		})
	case "minio":
		return NewMinIOStore(&MinIOConfig{
			Endpoint:  creds.MinIOEndpoint,
			AccessKey: creds.MinIOAccessKey,
			SecretKey: creds.MinIOSecretKey,
			UseSSL:    creds.MinIOUseSSL,
			Bucket:    u.Host,
			Prefix:    prefix,
		})
	case "az", "abfs", "wasb":
		return NewAzureStore(&AzureConfig{
			AccountName: creds.AzureAccountName,
			AccountKey:  creds.AzureAccountKey,
			SASToken:    creds.AzureSASToken,
			Endpoint:    creds.AzureEndpoint,
			Container:   u.Host,
			Prefix:      prefix,
		})
	case "hdfs":
		return NewHDFSStore(&HDFSConfig{
			Addresses: []string{u.Host},
			User:      creds.HDFSUser,
			Root:      u.Path,
		})
	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", u.Scheme)
	}
}
