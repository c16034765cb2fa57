package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lakehouse-gateway/internal/model"
)

type dataSourceRepository struct {
	db *gorm.DB
}

// NewDataSourceRepository creates a new instance of DataSourceRepository
func NewDataSourceRepository(db *gorm.DB) DataSourceRepository {
	return &dataSourceRepository{db: db}
}

// Create registers a new external data source
func (r *dataSourceRepository) Create(ctx context.Context, source *model.ExternalDataSource) error {
	err := r.db.WithContext(ctx).Create(source).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDataSourceExists
	}
	return err
}

// GetByName retrieves an external data source by name
func (r *dataSourceRepository) GetByName(ctx context.Context, name string) (*model.ExternalDataSource, error) {
	var source model.ExternalDataSource
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&source)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDataSourceNotFound
		}
		return nil, result.Error
	}
	return &source, nil
}

// GetAll retrieves all external data sources
func (r *dataSourceRepository) GetAll(ctx context.Context) ([]*model.ExternalDataSource, error) {
	var sources []*model.ExternalDataSource
	result := r.db.WithContext(ctx).Order("name ASC").Find(&sources)
	if result.Error != nil {
		return nil, result.Error
	}
	return sources, nil
}

// Delete removes an external data source
func (r *dataSourceRepository) Delete(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.ExternalDataSource{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDataSourceNotFound
	}
	return nil
}
