package delta

import "errors"

var (
	// ErrTableNotFound indicates no transaction log exists at the location.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableAlreadyExists indicates the location already holds a table.
	ErrTableAlreadyExists = errors.New("table already exists at location")
	// ErrVersionNotFound indicates a requested version or timestamp
	// resolves to no committed version.
	ErrVersionNotFound = errors.New("version not found")
	// ErrSchemaMismatch indicates appended or updated rows do not match
	// the table schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrCommitConflict indicates optimistic commit retries were
	// exhausted because concurrent writers kept winning.
	ErrCommitConflict = errors.New("concurrent commit conflict")
	// ErrNotATable indicates the location exists but holds no
	// transaction log.
	ErrNotATable = errors.New("location is not a table")
	// ErrUnsupportedSourceChange indicates a streaming source table saw
	// an update, delete or overwrite commit it cannot replay.
	ErrUnsupportedSourceChange = errors.New("unsupported change in streaming source table")
)
