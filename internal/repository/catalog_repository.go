package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lakehouse-gateway/internal/model"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// CreateDatabase registers a new database namespace
func (r *catalogRepository) CreateDatabase(ctx context.Context, database *model.CatalogDatabase) error {
	err := r.db.WithContext(ctx).Create(database).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDatabaseExists
	}
	return err
}

// GetDatabase retrieves a database by name
func (r *catalogRepository) GetDatabase(ctx context.Context, name string) (*model.CatalogDatabase, error) {
	var database model.CatalogDatabase
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&database)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDatabaseNotFound
		}
		return nil, result.Error
	}
	return &database, nil
}

// ListDatabases retrieves all registered databases
func (r *catalogRepository) ListDatabases(ctx context.Context) ([]*model.CatalogDatabase, error) {
	var databases []*model.CatalogDatabase
	result := r.db.WithContext(ctx).Order("name ASC").Find(&databases)
	if result.Error != nil {
		return nil, result.Error
	}
	return databases, nil
}

// DropDatabase removes a database entry
func (r *catalogRepository) DropDatabase(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.CatalogDatabase{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDatabaseNotFound
	}
	return nil
}

// CreateEntry registers a table under a database
func (r *catalogRepository) CreateEntry(ctx context.Context, entry *model.CatalogEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEntryExists
	}
	return err
}

// GetEntry retrieves a table entry by database and name
func (r *catalogRepository) GetEntry(ctx context.Context, database, name string) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	result := r.db.WithContext(ctx).Where("`database` = ? AND name = ?", database, name).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, result.Error
	}
	return &entry, nil
}

// ListEntries retrieves all table entries of a database
func (r *catalogRepository) ListEntries(ctx context.Context, database string) ([]*model.CatalogEntry, error) {
	var entries []*model.CatalogEntry
	result := r.db.WithContext(ctx).Where("`database` = ?", database).Order("name ASC").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// CountEntries returns the number of table entries of a database
func (r *catalogRepository) CountEntries(ctx context.Context, database string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CatalogEntry{}).Where("`database` = ?", database).Count(&count).Error
	return count, err
}

// DeleteEntry removes a table entry
func (r *catalogRepository) DeleteEntry(ctx context.Context, database, name string) error {
	result := r.db.WithContext(ctx).Where("`database` = ? AND name = ?", database, name).Delete(&model.CatalogEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}
