package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lakehouse-gateway/internal/model"
)

// memoryCatalogRepository is an in-memory CatalogRepository used by
// tests and single-node deployments that run without a metadata store.
type memoryCatalogRepository struct {
	mu        sync.RWMutex
	databases map[string]*model.CatalogDatabase
	entries   map[string]map[string]*model.CatalogEntry
}

// NewMemoryCatalogRepository creates an in-memory CatalogRepository
func NewMemoryCatalogRepository() CatalogRepository {
	return &memoryCatalogRepository{
		databases: make(map[string]*model.CatalogDatabase),
		entries:   make(map[string]map[string]*model.CatalogEntry),
	}
}

func (r *memoryCatalogRepository) CreateDatabase(ctx context.Context, database *model.CatalogDatabase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.databases[database.Name]; ok {
		return ErrDatabaseExists
	}
	now := time.Now().UTC()
	database.CreatedAt = now
	database.UpdatedAt = now
	copied := *database
	r.databases[database.Name] = &copied
	r.entries[database.Name] = make(map[string]*model.CatalogEntry)
	return nil
}

func (r *memoryCatalogRepository) GetDatabase(ctx context.Context, name string) (*model.CatalogDatabase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	database, ok := r.databases[name]
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	copied := *database
	return &copied, nil
}

func (r *memoryCatalogRepository) ListDatabases(ctx context.Context) ([]*model.CatalogDatabase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.databases))
	for name := range r.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*model.CatalogDatabase, 0, len(names))
	for _, name := range names {
		copied := *r.databases[name]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryCatalogRepository) DropDatabase(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.databases[name]; !ok {
		return ErrDatabaseNotFound
	}
	delete(r.databases, name)
	delete(r.entries, name)
	return nil
}

func (r *memoryCatalogRepository) CreateEntry(ctx context.Context, entry *model.CatalogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tables, ok := r.entries[entry.Database]
	if !ok {
		return ErrDatabaseNotFound
	}
	if _, exists := tables[entry.Name]; exists {
		return ErrEntryExists
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	copied := *entry
	tables[entry.Name] = &copied
	return nil
}

func (r *memoryCatalogRepository) GetEntry(ctx context.Context, database, name string) (*model.CatalogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tables, ok := r.entries[database]
	if !ok {
		return nil, ErrEntryNotFound
	}
	entry, ok := tables[name]
	if !ok {
		return nil, ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *memoryCatalogRepository) ListEntries(ctx context.Context, database string) ([]*model.CatalogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tables, ok := r.entries[database]
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*model.CatalogEntry, 0, len(names))
	for _, name := range names {
		copied := *tables[name]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryCatalogRepository) CountEntries(ctx context.Context, database string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tables, ok := r.entries[database]
	if !ok {
		return 0, nil
	}
	return int64(len(tables)), nil
}

func (r *memoryCatalogRepository) DeleteEntry(ctx context.Context, database, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tables, ok := r.entries[database]
	if !ok {
		return ErrEntryNotFound
	}
	if _, exists := tables[name]; !exists {
		return ErrEntryNotFound
	}
	delete(tables, name)
	return nil
}

// memoryDataSourceRepository is the in-memory DataSourceRepository
// counterpart.
type memoryDataSourceRepository struct {
	mu      sync.RWMutex
	sources map[string]*model.ExternalDataSource
}

// NewMemoryDataSourceRepository creates an in-memory DataSourceRepository
func NewMemoryDataSourceRepository() DataSourceRepository {
	return &memoryDataSourceRepository{sources: make(map[string]*model.ExternalDataSource)}
}

func (r *memoryDataSourceRepository) Create(ctx context.Context, source *model.ExternalDataSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[source.Name]; ok {
		return ErrDataSourceExists
	}
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now
	copied := *source
	r.sources[source.Name] = &copied
	return nil
}

func (r *memoryDataSourceRepository) GetByName(ctx context.Context, name string) (*model.ExternalDataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[name]
	if !ok {
		return nil, ErrDataSourceNotFound
	}
	copied := *source
	return &copied, nil
}

func (r *memoryDataSourceRepository) GetAll(ctx context.Context) ([]*model.ExternalDataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*model.ExternalDataSource, 0, len(names))
	for _, name := range names {
		copied := *r.sources[name]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryDataSourceRepository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[name]; !ok {
		return ErrDataSourceNotFound
	}
	delete(r.sources, name)
	return nil
}
