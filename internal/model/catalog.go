package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TableType distinguishes catalog ownership of the underlying storage
type TableType string

const (
	// TableTypeManaged tables have their storage lifecycle owned by the catalog
	TableTypeManaged TableType = "managed"
	// TableTypeExternal tables only bind metadata; data outlives the entry
	TableTypeExternal TableType = "external"
)

// CatalogDatabase is a namespace for catalog tables
type CatalogDatabase struct {
	Name      string    `gorm:"size:255;primaryKey" json:"name"`
	Collation string    `gorm:"size:128" json:"collation,omitempty"`
	Location  string    `gorm:"size:1024" json:"location,omitempty"`
	Comment   string    `gorm:"size:1024" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the CatalogDatabase model
func (CatalogDatabase) TableName() string {
	return "catalog_databases"
}

// SchemaJSON wraps TableSchema for JSON column storage
type SchemaJSON TableSchema

// Value implements driver.Valuer interface for GORM
func (s SchemaJSON) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM
func (s *SchemaJSON) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return json.Unmarshal([]byte(v.(string)), s)
	}

	return json.Unmarshal(bytes, s)
}

// CatalogEntry binds a table name to a storage location and schema
type CatalogEntry struct {
	ID        string     `gorm:"type:char(36);primaryKey" json:"id"`
	Database  string     `gorm:"size:255;not null;uniqueIndex:idx_db_table" json:"database"`
	Name      string     `gorm:"size:255;not null;uniqueIndex:idx_db_table" json:"name"`
	Type      TableType  `gorm:"type:enum('managed','external');not null" json:"type"`
	Location  string     `gorm:"size:1024;not null" json:"location"`
	Format    string     `gorm:"size:32;not null;default:'delta'" json:"format"`
	Schema    SchemaJSON `gorm:"type:json;not null" json:"schema"`
	Owner     string     `gorm:"size:255" json:"owner,omitempty"`
	Comment   string     `gorm:"size:1024" json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the table name for the CatalogEntry model
func (CatalogEntry) TableName() string {
	return "catalog_entries"
}

// BeforeCreate generates a new UUID if ID is empty
func (ce *CatalogEntry) BeforeCreate(tx *gorm.DB) error {
	if ce.ID == "" {
		ce.ID = uuid.New().String()
	}
	return nil
}

// QualifiedName returns the database-qualified table name
func (ce *CatalogEntry) QualifiedName() string {
	return ce.Database + "." + ce.Name
}

// ExternalDataSource names a storage root for catalog-independent row-set
// queries, so callers can reference files relative to it
type ExternalDataSource struct {
	Name      string    `gorm:"size:255;primaryKey" json:"name"`
	Location  string    `gorm:"size:1024;not null" json:"location"`
	Comment   string    `gorm:"size:1024" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the ExternalDataSource model
func (ExternalDataSource) TableName() string {
	return "external_data_sources"
}
