package repository

import (
	"context"

	"lakehouse-gateway/internal/model"
)

// CatalogRepository defines the interface for catalog metadata operations
type CatalogRepository interface {
	// CreateDatabase registers a new database namespace
	CreateDatabase(ctx context.Context, db *model.CatalogDatabase) error

	// GetDatabase retrieves a database by name
	GetDatabase(ctx context.Context, name string) (*model.CatalogDatabase, error)

	// ListDatabases retrieves all registered databases
	ListDatabases(ctx context.Context) ([]*model.CatalogDatabase, error)

	// DropDatabase removes a database entry
	DropDatabase(ctx context.Context, name string) error

	// CreateEntry registers a table under a database
	CreateEntry(ctx context.Context, entry *model.CatalogEntry) error

	// GetEntry retrieves a table entry by database and name
	GetEntry(ctx context.Context, database, name string) (*model.CatalogEntry, error)

	// ListEntries retrieves all table entries of a database
	ListEntries(ctx context.Context, database string) ([]*model.CatalogEntry, error)

	// CountEntries returns the number of table entries of a database
	CountEntries(ctx context.Context, database string) (int64, error)

	// DeleteEntry removes a table entry
	DeleteEntry(ctx context.Context, database, name string) error
}

// DataSourceRepository defines the interface for external data source
// registrations used by row-set queries
type DataSourceRepository interface {
	// Create registers a new external data source
	Create(ctx context.Context, source *model.ExternalDataSource) error

	// GetByName retrieves an external data source by name
	GetByName(ctx context.Context, name string) (*model.ExternalDataSource, error)

	// GetAll retrieves all external data sources
	GetAll(ctx context.Context) ([]*model.ExternalDataSource, error)

	// Delete removes an external data source
	Delete(ctx context.Context, name string) error
}
