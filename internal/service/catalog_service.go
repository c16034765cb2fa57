package service

import (
	"context"
	"fmt"
	"strings"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/repository"
	"lakehouse-gateway/internal/utils"

	"github.com/sirupsen/logrus"
)

// CatalogService manages database namespaces and the tables registered
// under them. Managed tables own their storage, external tables only
// bind metadata to a caller-provided location.
type CatalogService interface {
	CreateDatabase(ctx context.Context, req *model.CreateDatabaseRequest) (*model.CatalogDatabase, error)
	GetDatabase(ctx context.Context, name string) (*model.CatalogDatabase, error)
	ListDatabases(ctx context.Context) ([]*model.CatalogDatabase, error)
	DropDatabase(ctx context.Context, name string, cascade bool) error

	CreateTable(ctx context.Context, req *model.CreateTableRequest) (*model.CatalogEntry, error)
	GetTable(ctx context.Context, database, name string) (*model.CatalogEntry, error)
	ListTables(ctx context.Context, database string) ([]*model.CatalogEntry, error)
	DropTable(ctx context.Context, database, name string) error

	CreateDataSource(ctx context.Context, req *model.CreateDataSourceRequest) (*model.ExternalDataSource, error)
	GetDataSource(ctx context.Context, name string) (*model.ExternalDataSource, error)
	ListDataSources(ctx context.Context) ([]*model.ExternalDataSource, error)
	DropDataSource(ctx context.Context, name string) error
}

type catalogService struct {
	catalogRepo    repository.CatalogRepository
	datasourceRepo repository.DataSourceRepository
	opener         *TableOpener
	warehouseRoot  string
	log            *logrus.Entry
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(catalogRepo repository.CatalogRepository, datasourceRepo repository.DataSourceRepository, opener *TableOpener, warehouseRoot string) CatalogService {
	return &catalogService{
		catalogRepo:    catalogRepo,
		datasourceRepo: datasourceRepo,
		opener:         opener,
		warehouseRoot:  warehouseRoot,
		log:            logrus.WithField("component", "catalog"),
	}
}

// joinLocation appends segments to a location URI without touching its
// scheme prefix.
func joinLocation(base string, parts ...string) string {
	joined := strings.TrimRight(base, "/")
	for _, p := range parts {
		joined = joined + "/" + strings.Trim(p, "/")
	}
	return joined
}

func (s *catalogService) CreateDatabase(ctx context.Context, req *model.CreateDatabaseRequest) (*model.CatalogDatabase, error) {
	db := &model.CatalogDatabase{
		Name:      req.Name,
		Collation: req.Collation,
		Location:  joinLocation(s.warehouseRoot, req.Name+".db"),
		Comment:   req.Comment,
	}
	if err := s.catalogRepo.CreateDatabase(ctx, db); err != nil {
		return nil, err
	}
	s.log.WithField("database", db.Name).Info("Created database")
	return db, nil
}

func (s *catalogService) GetDatabase(ctx context.Context, name string) (*model.CatalogDatabase, error) {
	return s.catalogRepo.GetDatabase(ctx, name)
}

func (s *catalogService) ListDatabases(ctx context.Context) ([]*model.CatalogDatabase, error) {
	return s.catalogRepo.ListDatabases(ctx)
}

func (s *catalogService) DropDatabase(ctx context.Context, name string, cascade bool) error {
	if _, err := s.catalogRepo.GetDatabase(ctx, name); err != nil {
		return err
	}

	count, err := s.catalogRepo.CountEntries(ctx, name)
	if err != nil {
		return err
	}
	if count > 0 && !cascade {
		return repository.ErrDatabaseNotEmpty
	}
	if cascade {
		entries, err := s.catalogRepo.ListEntries(ctx, name)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.DropTable(ctx, entry.Database, entry.Name); err != nil {
				return err
			}
		}
	}

	if err := s.catalogRepo.DropDatabase(ctx, name); err != nil {
		return err
	}
	s.log.WithField("database", name).Info("Dropped database")
	return nil
}

func (s *catalogService) CreateTable(ctx context.Context, req *model.CreateTableRequest) (*model.CatalogEntry, error) {
	db, err := s.catalogRepo.GetDatabase(ctx, req.Database)
	if err != nil {
		return nil, err
	}

	var entry *model.CatalogEntry
	switch req.Type {
	case model.TableTypeManaged:
		entry, err = s.createManagedTable(ctx, db, req)
	case model.TableTypeExternal:
		entry, err = s.createExternalTable(ctx, db, req)
	default:
		return nil, utils.NewValidationError(fmt.Sprintf("unknown table type %q", req.Type))
	}
	if err != nil {
		return nil, err
	}

	if err := s.catalogRepo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"table": entry.QualifiedName(), "type": entry.Type}).Info("Created table")
	return entry, nil
}

// createManagedTable provisions storage under the database location and
// writes the table's first commit. A managed location must start empty.
func (s *catalogService) createManagedTable(ctx context.Context, db *model.CatalogDatabase, req *model.CreateTableRequest) (*model.CatalogEntry, error) {
	if req.Schema == nil {
		return nil, utils.NewValidationError("managed tables require a schema")
	}

	location := joinLocation(db.Location, req.Name)
	store, err := s.opener.OpenStore(ctx, location)
	if err != nil {
		return nil, err
	}
	objects, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(objects) > 0 {
		return nil, utils.NewErrorBuilder(utils.ErrCodeLocationOccupied).
			WithDetails(fmt.Sprintf("location %s already holds %d objects", location, len(objects))).
			Build()
	}

	table := delta.NewTable(store)
	if err := table.Create(ctx, db.Name+"."+req.Name, req.Schema); err != nil {
		return nil, err
	}

	return &model.CatalogEntry{
		Database: req.Database,
		Name:     req.Name,
		Type:     model.TableTypeManaged,
		Location: location,
		Format:   "delta",
		Schema:   model.SchemaJSON(*req.Schema),
		Comment:  req.Comment,
	}, nil
}

// createExternalTable binds metadata to an existing location. When the
// location already holds a transaction log the registered schema comes
// from the log, not the request.
func (s *catalogService) createExternalTable(ctx context.Context, db *model.CatalogDatabase, req *model.CreateTableRequest) (*model.CatalogEntry, error) {
	if req.Path == "" {
		return nil, utils.NewValidationError("external tables require a path")
	}

	table, err := s.opener.OpenTable(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	exists, err := table.Exists(ctx)
	if err != nil {
		return nil, err
	}

	var schema *model.TableSchema
	switch {
	case exists:
		schema, err = table.Schema(ctx)
		if err != nil {
			return nil, err
		}
	default:
		objects, err := table.Store().List(ctx, "")
		if err != nil {
			return nil, err
		}
		if len(objects) > 0 {
			return nil, fmt.Errorf("location %s: %w", req.Path, delta.ErrNotATable)
		}
		if req.Schema == nil {
			return nil, utils.NewValidationError("external table over an empty location requires a schema")
		}
		schema = req.Schema
		if err := table.Create(ctx, db.Name+"."+req.Name, schema); err != nil {
			return nil, err
		}
	}

	return &model.CatalogEntry{
		Database: req.Database,
		Name:     req.Name,
		Type:     model.TableTypeExternal,
		Location: req.Path,
		Format:   "delta",
		Schema:   model.SchemaJSON(*schema),
		Comment:  req.Comment,
	}, nil
}

func (s *catalogService) GetTable(ctx context.Context, database, name string) (*model.CatalogEntry, error) {
	return s.catalogRepo.GetEntry(ctx, database, name)
}

func (s *catalogService) ListTables(ctx context.Context, database string) ([]*model.CatalogEntry, error) {
	if _, err := s.catalogRepo.GetDatabase(ctx, database); err != nil {
		return nil, err
	}
	return s.catalogRepo.ListEntries(ctx, database)
}

// DropTable removes a table entry. Managed table data is deleted with
// the entry, external data stays in place.
func (s *catalogService) DropTable(ctx context.Context, database, name string) error {
	entry, err := s.catalogRepo.GetEntry(ctx, database, name)
	if err != nil {
		return err
	}

	if entry.Type == model.TableTypeManaged {
		store, err := s.opener.OpenStore(ctx, entry.Location)
		if err != nil {
			return err
		}
		if err := store.DeletePrefix(ctx, ""); err != nil {
			return fmt.Errorf("failed to delete data for %s: %w", entry.QualifiedName(), err)
		}
	}

	if err := s.catalogRepo.DeleteEntry(ctx, database, name); err != nil {
		return err
	}
	s.log.WithField("table", entry.QualifiedName()).Info("Dropped table")
	return nil
}

func (s *catalogService) CreateDataSource(ctx context.Context, req *model.CreateDataSourceRequest) (*model.ExternalDataSource, error) {
	source := &model.ExternalDataSource{
		Name:     req.Name,
		Location: req.Location,
		Comment:  req.Comment,
	}
	if err := s.datasourceRepo.Create(ctx, source); err != nil {
		return nil, err
	}
	return source, nil
}

func (s *catalogService) GetDataSource(ctx context.Context, name string) (*model.ExternalDataSource, error) {
	return s.datasourceRepo.GetByName(ctx, name)
}

func (s *catalogService) ListDataSources(ctx context.Context) ([]*model.ExternalDataSource, error) {
	return s.datasourceRepo.GetAll(ctx)
}

func (s *catalogService) DropDataSource(ctx context.Context, name string) error {
	return s.datasourceRepo.Delete(ctx, name)
}
