package repository

import "errors"

// Common repository errors
var (
	ErrDatabaseNotFound   = errors.New("database not found")
	ErrDatabaseExists     = errors.New("database already exists")
	ErrDatabaseNotEmpty   = errors.New("database still holds tables")
	ErrEntryNotFound      = errors.New("table entry not found")
	ErrEntryExists        = errors.New("table entry already exists")
	ErrDataSourceNotFound = errors.New("external data source not found")
	ErrDataSourceExists   = errors.New("external data source already exists")
)
