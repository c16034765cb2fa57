package storage

import (
	"context"
	"testing"
)

func TestLocalStorePutGet(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "data/part-0001.parquet", []byte("hello")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := store.Get(ctx, "data/part-0001.parquet")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected 'hello', got %q", data)
	}

	if _, err := store.Get(ctx, "data/missing.parquet"); err != ErrObjectNotFound {
		t.Errorf("Expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStoreListOrdered(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	keys := []string{
		"_delta_log/00000000000000000002.json",
		"_delta_log/00000000000000000000.json",
		"_delta_log/00000000000000000001.json",
	}
	for _, key := range keys {
		if err := store.Put(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	metas, err := store.List(ctx, "_delta_log/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("Expected 3 objects, got %d", len(metas))
	}
	for i := 1; i < len(metas); i++ {
		if metas[i-1].Key >= metas[i].Key {
			t.Errorf("List results not ordered: %s before %s", metas[i-1].Key, metas[i].Key)
		}
	}
	if !store.IsListOrdered() {
		t.Error("Expected IsListOrdered to be true")
	}
}

func TestLocalStoreRenameIfNotExists(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "tmp/commit-a.json", []byte("a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.RenameIfNotExists(ctx, "tmp/commit-a.json", "_delta_log/00000000000000000000.json"); err != nil {
		t.Fatalf("RenameIfNotExists failed: %v", err)
	}
	if _, err := store.Head(ctx, "tmp/commit-a.json"); err != ErrObjectNotFound {
		t.Errorf("Expected source to be gone, got %v", err)
	}

	// Second writer racing to the same destination must lose.
	if err := store.Put(ctx, "tmp/commit-b.json", []byte("b")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	err = store.RenameIfNotExists(ctx, "tmp/commit-b.json", "_delta_log/00000000000000000000.json")
	if err != ErrObjectAlreadyExists {
		t.Errorf("Expected ErrObjectAlreadyExists, got %v", err)
	}

	data, err := store.Get(ctx, "_delta_log/00000000000000000000.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "a" {
		t.Errorf("Expected winning commit contents 'a', got %q", data)
	}
}

func TestLocalStoreDeletePrefix(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"data/a.parquet", "data/b.parquet", "other/c.parquet"} {
		if err := store.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
	if err := store.DeletePrefix(ctx, "data"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	metas, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 || metas[0].Key != "other/c.parquet" {
		t.Errorf("Expected only other/c.parquet to remain, got %+v", metas)
	}
}
