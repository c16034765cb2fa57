package service

import (
	"context"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/storage"
)

// TableOpener resolves location URIs to table handles using the
// configured storage credentials.
type TableOpener struct {
	creds storage.Credentials
}

// NewTableOpener creates an opener with per-backend credentials.
func NewTableOpener(creds storage.Credentials) *TableOpener {
	return &TableOpener{creds: creds}
}

// OpenStore resolves a location to its object store.
func (o *TableOpener) OpenStore(ctx context.Context, location string) (storage.ObjectStore, error) {
	return storage.Open(ctx, location, o.creds)
}

// OpenTable resolves a location to a table handle.
func (o *TableOpener) OpenTable(ctx context.Context, location string) (*delta.Table, error) {
	store, err := o.OpenStore(ctx, location)
	if err != nil {
		return nil, err
	}
	return delta.NewTable(store), nil
}
