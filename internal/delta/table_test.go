package delta

import (
	"context"
	"errors"
	"testing"
	"time"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/storage"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return NewTable(store)
}

func productSchema() *model.TableSchema {
	return &model.TableSchema{Columns: []model.ColumnSchema{
		{Name: "ProductID", Type: model.ColumnTypeInteger},
		{Name: "ProductName", Type: model.ColumnTypeString},
		{Name: "Category", Type: model.ColumnTypeString},
		{Name: "Price", Type: model.ColumnTypeFloat},
	}}
}

func productRows() []model.Row {
	return []model.Row{
		{"ProductID": int64(1), "ProductName": "Widget", "Category": "Gadgets", "Price": 19.99},
		{"ProductID": int64(2), "ProductName": "Cable", "Category": "Accessories", "Price": 9.50},
		{"ProductID": int64(3), "ProductName": "Stand", "Category": "Accessories", "Price": 24.00},
	}
}

func mustWrite(t *testing.T, table *Table, mode model.WriteMode, schema *model.TableSchema, rows []model.Row) *WriteResult {
	t.Helper()
	result, err := table.Write(context.Background(), mode, schema, rows, nil)
	if err != nil {
		t.Fatalf("Write(%s) failed: %v", mode, err)
	}
	return result
}

func rowsByID(rows []model.Row) map[int64]model.Row {
	out := make(map[int64]model.Row, len(rows))
	for _, row := range rows {
		out[row["ProductID"].(int64)] = row
	}
	return out
}

func TestWriteOverwriteThenReadBack(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	written := productRows()
	result := mustWrite(t, table, model.WriteModeOverwrite, productSchema(), written)
	if result.Version != 0 {
		t.Errorf("Expected first commit at version 0, got %d", result.Version)
	}

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != len(written) {
		t.Fatalf("Expected %d rows, got %d", len(written), len(read.Rows))
	}
	got := rowsByID(read.Rows)
	for _, want := range written {
		row, ok := got[want["ProductID"].(int64)]
		if !ok {
			t.Fatalf("Missing row for ProductID %v", want["ProductID"])
		}
		if row["ProductName"] != want["ProductName"] || row["Category"] != want["Category"] {
			t.Errorf("Row mismatch: got %+v, want %+v", row, want)
		}
		if row["Price"].(float64) != want["Price"].(float64) {
			t.Errorf("Price mismatch: got %v, want %v", row["Price"], want["Price"])
		}
	}
}

func TestWriteOverwriteReplacesPreviousData(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())
	replacement := []model.Row{
		{"ProductID": int64(9), "ProductName": "Dock", "Category": "Gadgets", "Price": 49.99},
	}
	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), replacement)

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != 1 {
		t.Fatalf("Expected 1 row after overwrite, got %d", len(read.Rows))
	}
	if read.Rows[0]["ProductName"] != "Dock" {
		t.Errorf("Expected replacement row, got %+v", read.Rows[0])
	}
}

func TestWriteAppendUnionsRows(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())
	extra := []model.Row{
		{"ProductID": int64(4), "ProductName": "Mount", "Category": "Accessories", "Price": 14.25},
	}
	mustWrite(t, table, model.WriteModeAppend, nil, extra)

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != 4 {
		t.Fatalf("Expected 4 rows after append, got %d", len(read.Rows))
	}
	if _, ok := rowsByID(read.Rows)[4]; !ok {
		t.Error("Appended row missing from read")
	}
}

func TestWriteErrorIfExists(t *testing.T) {
	table := newTestTable(t)

	mustWrite(t, table, model.WriteModeErrorIfExists, productSchema(), productRows())

	_, err := table.Write(context.Background(), model.WriteModeErrorIfExists, productSchema(), productRows(), nil)
	if !errors.Is(err, ErrTableAlreadyExists) {
		t.Errorf("Expected ErrTableAlreadyExists, got %v", err)
	}
}

func TestAppendSchemaMismatch(t *testing.T) {
	table := newTestTable(t)

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	bad := []model.Row{{"ProductID": int64(5), "Color": "red"}}
	_, err := table.Write(context.Background(), model.WriteModeAppend, nil, bad, nil)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch, got %v", err)
	}
}

func TestVersionAsOfIsStableAcrossAppends(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	original := productRows()
	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), original)
	mustWrite(t, table, model.WriteModeAppend, nil, []model.Row{
		{"ProductID": int64(4), "ProductName": "Mount", "Category": "Accessories", "Price": 14.25},
	})
	mustWrite(t, table, model.WriteModeAppend, nil, []model.Row{
		{"ProductID": int64(5), "ProductName": "Hub", "Category": "Gadgets", "Price": 39.00},
	})

	v0 := int64(0)
	read, err := table.Read(ctx, model.ReadSelector{VersionAsOf: &v0}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read at version 0 failed: %v", err)
	}
	if read.Version != 0 {
		t.Errorf("Expected resolved version 0, got %d", read.Version)
	}
	if len(read.Rows) != len(original) {
		t.Errorf("Expected %d rows at version 0, got %d", len(original), len(read.Rows))
	}

	missing := int64(99)
	if _, err := table.Read(ctx, model.ReadSelector{VersionAsOf: &missing}, ReadOptions{}); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("Expected ErrVersionNotFound for version 99, got %v", err)
	}
}

func TestTimestampAsOfResolution(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	entries, err := table.ReadCommit(ctx, 0)
	if err != nil {
		t.Fatalf("ReadCommit failed: %v", err)
	}
	commitTime, err := table.commitTimestamp(ctx, 0, entries)
	if err != nil {
		t.Fatalf("commitTimestamp failed: %v", err)
	}

	after := commitTime.Add(time.Second)
	version, err := table.ResolveSelector(ctx, model.ReadSelector{TimestampAsOf: &after})
	if err != nil {
		t.Fatalf("ResolveSelector failed: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected version 0 for timestamp after commit, got %d", version)
	}

	before := commitTime.Add(-time.Hour)
	if _, err := table.ResolveSelector(ctx, model.ReadSelector{TimestampAsOf: &before}); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("Expected ErrVersionNotFound for timestamp before first commit, got %v", err)
	}
}

func TestSelectorRejectsBothForms(t *testing.T) {
	table := newTestTable(t)
	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	v := int64(0)
	ts := time.Now()
	if _, err := table.ResolveSelector(context.Background(), model.ReadSelector{VersionAsOf: &v, TimestampAsOf: &ts}); err == nil {
		t.Error("Expected an error when both selector forms are set")
	}
}

func TestUpdateWhereAppliesDiscount(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	condition := &model.Filter{Predicates: []model.Predicate{
		{Column: "Category", Operator: "EQ", Value: "Accessories"},
	}}
	assignments := []model.Assignment{
		{Column: "Price", Op: "multiply", Value: 0.9},
	}
	result, err := table.UpdateWhere(ctx, condition, assignments)
	if err != nil {
		t.Fatalf("UpdateWhere failed: %v", err)
	}
	if result.RowsMatched != 2 {
		t.Errorf("Expected 2 matched rows, got %d", result.RowsMatched)
	}

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != 3 {
		t.Fatalf("Expected row count unchanged at 3, got %d", len(read.Rows))
	}
	byID := rowsByID(read.Rows)
	const eps = 1e-9
	if price := byID[2]["Price"].(float64); price < 9.50*0.9-eps || price > 9.50*0.9+eps {
		t.Errorf("Expected discounted price for ProductID 2, got %v", price)
	}
	if price := byID[1]["Price"].(float64); price != 19.99 {
		t.Errorf("Expected unmatched row untouched, got price %v", price)
	}
}

func TestDeleteWhereRemovesRows(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	condition := &model.Filter{Predicates: []model.Predicate{
		{Column: "Price", Operator: "GT", Value: 10.0},
	}}
	result, err := table.DeleteWhere(ctx, condition)
	if err != nil {
		t.Fatalf("DeleteWhere failed: %v", err)
	}
	if result.RowsMatched != 2 {
		t.Errorf("Expected 2 deleted rows, got %d", result.RowsMatched)
	}

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != 1 {
		t.Fatalf("Expected 1 remaining row, got %d", len(read.Rows))
	}
	if read.Rows[0]["ProductID"].(int64) != 2 {
		t.Errorf("Expected ProductID 2 to remain, got %+v", read.Rows[0])
	}
}

func TestUpdateWhereNoMatchesStillCommits(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	condition := &model.Filter{Predicates: []model.Predicate{
		{Column: "Category", Operator: "EQ", Value: "Furniture"},
	}}
	result, err := table.UpdateWhere(ctx, condition, []model.Assignment{
		{Column: "Price", Op: "multiply", Value: 0.9},
	})
	if err != nil {
		t.Fatalf("UpdateWhere failed: %v", err)
	}
	if result.RowsMatched != 0 {
		t.Errorf("Expected 0 matched rows, got %d", result.RowsMatched)
	}
	if result.Version != 1 {
		t.Errorf("Expected the update to commit version 1, got %d", result.Version)
	}

	history, err := table.History(ctx, 1)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history[0].Operation != OpUpdate {
		t.Errorf("Expected UPDATE in history, got %q", history[0].Operation)
	}

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != 3 {
		t.Errorf("Expected data unchanged, got %d rows", len(read.Rows))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())
	mustWrite(t, table, model.WriteModeAppend, nil, []model.Row{
		{"ProductID": int64(4), "ProductName": "Mount", "Category": "Accessories", "Price": 14.25},
	})

	history, err := table.History(ctx, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Version != 1 || history[1].Version != 0 {
		t.Errorf("Expected newest-first ordering, got versions %d, %d", history[0].Version, history[1].Version)
	}
	if history[0].Operation != OpWrite {
		t.Errorf("Expected WRITE operation, got %q", history[0].Operation)
	}
}

func TestReadProjectionAndLimit(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())

	read, err := table.Read(ctx, model.ReadSelector{}, ReadOptions{
		Columns: []string{"ProductName", "Price"},
		Limit:   2,
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.Rows) != 2 {
		t.Fatalf("Expected 2 rows with limit, got %d", len(read.Rows))
	}
	for _, row := range read.Rows {
		if len(row) != 2 {
			t.Errorf("Expected projected row with 2 columns, got %+v", row)
		}
		if _, ok := row["Category"]; ok {
			t.Error("Projection leaked an unselected column")
		}
	}
}

func TestReadMissingTable(t *testing.T) {
	table := newTestTable(t)
	if _, err := table.Read(context.Background(), model.ReadSelector{}, ReadOptions{}); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestCommitConflictOnStaleReadVersion(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	mustWrite(t, table, model.WriteModeOverwrite, productSchema(), productRows())
	mustWrite(t, table, model.WriteModeAppend, nil, []model.Row{
		{"ProductID": int64(4), "ProductName": "Mount", "Category": "Accessories", "Price": 14.25},
	})

	// A writer that read version 0 must not commit over version 1.
	stale := int64(0)
	entries := []LogEntry{{CommitInfo: NewCommitInfo(OpWrite, nil, nil)}}
	_, err := table.Commit(ctx, entries, CommitOptions{ReadVersion: &stale})
	if !errors.Is(err, ErrCommitConflict) {
		t.Errorf("Expected ErrCommitConflict, got %v", err)
	}
}

func TestTxnWatermarkTracked(t *testing.T) {
	table := newTestTable(t)
	ctx := context.Background()

	txn := &TxnAction{AppID: "stream-1", Version: 7}
	if _, err := table.Write(ctx, model.WriteModeAppend, productSchema(), productRows(), txn); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	state, err := table.StateAt(ctx, -1)
	if err != nil {
		t.Fatalf("StateAt failed: %v", err)
	}
	if state.Txns["stream-1"] != 7 {
		t.Errorf("Expected txn watermark 7, got %d", state.Txns["stream-1"])
	}
}
