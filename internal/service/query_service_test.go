package service

import (
	"context"
	"errors"
	"testing"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/repository"
	"lakehouse-gateway/internal/storage"
	"lakehouse-gateway/internal/utils"
)

func seedTable(t *testing.T, dir string, rows []model.Row) *delta.Table {
	t.Helper()
	store, err := storage.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	table := delta.NewTable(store)
	if _, err := table.Write(context.Background(), model.WriteModeOverwrite, productSchema(), rows, nil); err != nil {
		t.Fatalf("Failed to seed table: %v", err)
	}
	return table
}

func TestOpenRowSetRowCountParity(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rows := []model.Row{
		{"id": int64(1), "name": "widget", "price": 9.5},
		{"id": int64(2), "name": "gadget", "price": 12.0},
		{"id": int64(3), "name": "gizmo", "price": 3.25},
	}
	table := seedTable(t, dir, rows)

	svc := NewQueryService(repository.NewMemoryDataSourceRepository(), NewTableOpener(storage.Credentials{}))
	result, err := svc.OpenRowSet(ctx, &model.RowSetRequest{Bulk: dir, Format: "DELTA"})
	if err != nil {
		t.Fatalf("OpenRowSet failed: %v", err)
	}

	direct, err := table.Count(ctx, model.ReadSelector{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if result.RowCount != direct {
		t.Errorf("Expected %d rows from openrowset, got %d", direct, result.RowCount)
	}
	if result.Format != "delta" {
		t.Errorf("Expected normalized format delta, got %s", result.Format)
	}
}

func TestOpenRowSetReadsLatestVersion(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	table := seedTable(t, dir, []model.Row{
		{"id": int64(1), "name": "widget", "price": 9.5},
	})
	replacement := []model.Row{
		{"id": int64(10), "name": "anvil", "price": 50.0},
		{"id": int64(11), "name": "hammer", "price": 15.0},
	}
	if _, err := table.Write(ctx, model.WriteModeOverwrite, nil, replacement, nil); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	svc := NewQueryService(repository.NewMemoryDataSourceRepository(), NewTableOpener(storage.Credentials{}))
	result, err := svc.OpenRowSet(ctx, &model.RowSetRequest{Bulk: dir, Format: "delta"})
	if err != nil {
		t.Fatalf("OpenRowSet failed: %v", err)
	}
	if result.Version != 1 {
		t.Errorf("Expected latest version 1, got %d", result.Version)
	}
	if result.RowCount != 2 {
		t.Errorf("Expected 2 rows at the latest version, got %d", result.RowCount)
	}
}

func TestOpenRowSetRejectsNonDeltaFormat(t *testing.T) {
	svc := NewQueryService(repository.NewMemoryDataSourceRepository(), NewTableOpener(storage.Credentials{}))

	_, err := svc.OpenRowSet(context.Background(), &model.RowSetRequest{Bulk: "/tmp/x", Format: "PARQUET"})
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Code != utils.ErrCodeUnsupportedFormat {
		t.Fatalf("Expected UNSUPPORTED_FORMAT, got %v", err)
	}
}

func TestOpenRowSetResolvesDataSourceRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	seedTable(t, root+"/warehouse/products", []model.Row{
		{"id": int64(1), "name": "widget", "price": 9.5},
	})

	datasourceRepo := repository.NewMemoryDataSourceRepository()
	if err := datasourceRepo.Create(ctx, &model.ExternalDataSource{Name: "lake", Location: root}); err != nil {
		t.Fatalf("Failed to register data source: %v", err)
	}

	svc := NewQueryService(datasourceRepo, NewTableOpener(storage.Credentials{}))
	result, err := svc.OpenRowSet(ctx, &model.RowSetRequest{
		DataSource: "lake",
		Bulk:       "warehouse/products",
		Format:     "delta",
	})
	if err != nil {
		t.Fatalf("OpenRowSet failed: %v", err)
	}
	if result.RowCount != 1 {
		t.Errorf("Expected 1 row, got %d", result.RowCount)
	}

	if _, err := svc.OpenRowSet(ctx, &model.RowSetRequest{
		DataSource: "missing",
		Bulk:       "warehouse/products",
		Format:     "delta",
	}); !errors.Is(err, repository.ErrDataSourceNotFound) {
		t.Errorf("Expected ErrDataSourceNotFound, got %v", err)
	}
}

func TestOpenRowSetFilterAndProjection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedTable(t, dir, []model.Row{
		{"id": int64(1), "name": "widget", "price": 9.5},
		{"id": int64(2), "name": "gadget", "price": 12.0},
		{"id": int64(3), "name": "gizmo", "price": 3.25},
	})

	svc := NewQueryService(repository.NewMemoryDataSourceRepository(), NewTableOpener(storage.Credentials{}))
	result, err := svc.OpenRowSet(ctx, &model.RowSetRequest{
		Bulk:    dir,
		Format:  "delta",
		Columns: []string{"name"},
		Filter: &model.Filter{
			Predicates: []model.Predicate{{Column: "price", Operator: "GT", Value: 5.0}},
		},
	})
	if err != nil {
		t.Fatalf("OpenRowSet failed: %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("Expected 2 matching rows, got %d", result.RowCount)
	}
	for _, row := range result.Rows {
		if _, ok := row["price"]; ok {
			t.Errorf("Expected price projected away, got %+v", row)
		}
	}
}
