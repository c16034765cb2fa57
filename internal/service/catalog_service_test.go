package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/repository"
	"lakehouse-gateway/internal/storage"
	"lakehouse-gateway/internal/utils"
)

func productSchema() *model.TableSchema {
	return &model.TableSchema{
		Columns: []model.ColumnSchema{
			{Name: "id", Type: model.ColumnTypeInteger},
			{Name: "name", Type: model.ColumnTypeString},
			{Name: "price", Type: model.ColumnTypeFloat, Nullable: true},
		},
	}
}

func newTestCatalogService(t *testing.T) (CatalogService, string) {
	t.Helper()
	root := t.TempDir()
	svc := NewCatalogService(
		repository.NewMemoryCatalogRepository(),
		repository.NewMemoryDataSourceRepository(),
		NewTableOpener(storage.Credentials{}),
		root,
	)
	return svc, root
}

func TestCreateDatabaseAssignsManagedLocation(t *testing.T) {
	svc, root := newTestCatalogService(t)
	ctx := context.Background()

	db, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "sales"})
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	want := filepath.ToSlash(root) + "/sales.db"
	if db.Location != want {
		t.Errorf("Expected location %s, got %s", want, db.Location)
	}

	if _, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "sales"}); !errors.Is(err, repository.ErrDatabaseExists) {
		t.Errorf("Expected ErrDatabaseExists on duplicate, got %v", err)
	}
}

func TestManagedTableLifecycle(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	if _, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "sales"}); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	entry, err := svc.CreateTable(ctx, &model.CreateTableRequest{
		Database: "sales",
		Name:     "products",
		Type:     model.TableTypeManaged,
		Schema:   productSchema(),
	})
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if entry.Type != model.TableTypeManaged {
		t.Errorf("Expected managed entry, got %s", entry.Type)
	}

	store, err := storage.NewLocalStore(entry.Location)
	if err != nil {
		t.Fatalf("Failed to open table store: %v", err)
	}
	table := delta.NewTable(store)
	exists, err := table.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Fatal("Expected managed table to have a transaction log")
	}

	if err := svc.DropTable(ctx, "sales", "products"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	objects, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("Expected managed data deleted with the entry, found %d objects", len(objects))
	}
	if _, err := svc.GetTable(ctx, "sales", "products"); !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound after drop, got %v", err)
	}
}

func TestManagedTableRefusesOccupiedLocation(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	db, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "sales"})
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	tableDir := filepath.Join(filepath.FromSlash(db.Location), "orders")
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		t.Fatalf("Failed to create table dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tableDir, "stray.parquet"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	_, err = svc.CreateTable(ctx, &model.CreateTableRequest{
		Database: "sales",
		Name:     "orders",
		Type:     model.TableTypeManaged,
		Schema:   productSchema(),
	})
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Code != utils.ErrCodeLocationOccupied {
		t.Fatalf("Expected LOCATION_OCCUPIED, got %v", err)
	}
}

func TestExternalTableBindsSchemaFromLog(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	dataDir := t.TempDir()
	store, err := storage.NewLocalStore(dataDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	table := delta.NewTable(store)
	rows := []model.Row{
		{"id": int64(1), "name": "widget", "price": 9.5},
		{"id": int64(2), "name": "gadget", "price": 12.0},
	}
	if _, err := table.Write(ctx, model.WriteModeOverwrite, productSchema(), rows, nil); err != nil {
		t.Fatalf("Failed to seed external table: %v", err)
	}

	if _, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "analytics"}); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	entry, err := svc.CreateTable(ctx, &model.CreateTableRequest{
		Database: "analytics",
		Name:     "products_ext",
		Type:     model.TableTypeExternal,
		Path:     dataDir,
	})
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	schema := model.TableSchema(entry.Schema)
	if !schema.Equal(productSchema()) {
		t.Errorf("Expected external entry to carry the log schema, got %+v", schema)
	}

	// Dropping an external table leaves the data in place.
	if err := svc.DropTable(ctx, "analytics", "products_ext"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	exists, err := table.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Expected external data to survive the entry")
	}
}

func TestExternalTableOverDataWithoutLog(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "raw.parquet"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write data file: %v", err)
	}

	if _, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "analytics"}); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	_, err := svc.CreateTable(ctx, &model.CreateTableRequest{
		Database: "analytics",
		Name:     "raw",
		Type:     model.TableTypeExternal,
		Path:     dataDir,
	})
	if !errors.Is(err, delta.ErrNotATable) {
		t.Fatalf("Expected ErrNotATable for data without a log, got %v", err)
	}
}

func TestDropDatabaseRequiresCascade(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	if _, err := svc.CreateDatabase(ctx, &model.CreateDatabaseRequest{Name: "sales"}); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	if _, err := svc.CreateTable(ctx, &model.CreateTableRequest{
		Database: "sales",
		Name:     "products",
		Type:     model.TableTypeManaged,
		Schema:   productSchema(),
	}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	if err := svc.DropDatabase(ctx, "sales", false); !errors.Is(err, repository.ErrDatabaseNotEmpty) {
		t.Fatalf("Expected ErrDatabaseNotEmpty, got %v", err)
	}
	if err := svc.DropDatabase(ctx, "sales", true); err != nil {
		t.Fatalf("Cascade drop failed: %v", err)
	}
	if _, err := svc.GetDatabase(ctx, "sales"); !errors.Is(err, repository.ErrDatabaseNotFound) {
		t.Errorf("Expected ErrDatabaseNotFound after drop, got %v", err)
	}
}

func TestDataSourceRoundTrip(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	created, err := svc.CreateDataSource(ctx, &model.CreateDataSourceRequest{
		Name:     "lake",
		Location: "/data/lake",
	})
	if err != nil {
		t.Fatalf("CreateDataSource failed: %v", err)
	}
	if created.Location != "/data/lake" {
		t.Errorf("Unexpected location %s", created.Location)
	}

	sources, err := svc.ListDataSources(ctx)
	if err != nil {
		t.Fatalf("ListDataSources failed: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "lake" {
		t.Errorf("Unexpected sources %+v", sources)
	}

	if err := svc.DropDataSource(ctx, "lake"); err != nil {
		t.Fatalf("DropDataSource failed: %v", err)
	}
	if _, err := svc.GetDataSource(ctx, "lake"); !errors.Is(err, repository.ErrDataSourceNotFound) {
		t.Errorf("Expected ErrDataSourceNotFound, got %v", err)
	}
}
