package streaming

import (
	"context"
	"errors"
	"testing"
	"time"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/ingest"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/storage"
)

func newStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return store
}

func newFolderStream(t *testing.T, name string, source *storage.LocalStore) (*Stream, *delta.Table) {
	t.Helper()
	folderSource, err := NewFolderSource(source, ingest.FormatCSV, nil)
	if err != nil {
		t.Fatalf("NewFolderSource failed: %v", err)
	}
	sink := delta.NewTable(newStore(t))
	stream := NewStream(Config{
		Name:        name,
		Source:      folderSource,
		Sink:        sink,
		Checkpoints: NewCheckpointStore(newStore(t)),
	})
	return stream, sink
}

func sinkRowCount(t *testing.T, sink *delta.Table) int {
	t.Helper()
	count, err := sink.Count(context.Background(), model.ReadSelector{})
	if err != nil {
		if errors.Is(err, delta.ErrTableNotFound) {
			return 0
		}
		t.Fatalf("Count failed: %v", err)
	}
	return int(count)
}

func TestFolderStreamDeliversEachFileOnce(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	stream, sink := newFolderStream(t, "ingest-csv", source)

	if err := source.Put(ctx, "batch-1.csv", []byte("device,reading\na,1\nb,2\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 2 {
		t.Fatalf("Expected 2 rows after first batch, got %d", got)
	}

	// No new files: the trigger is a no-op.
	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 2 {
		t.Errorf("Expected no re-delivery, got %d rows", got)
	}

	if err := source.Put(ctx, "batch-2.csv", []byte("device,reading\nc,3\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 3 {
		t.Errorf("Expected 3 rows after second batch, got %d", got)
	}
}

func TestStreamResumesFromCheckpointAfterRestart(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	checkpoints := NewCheckpointStore(newStore(t))
	sink := delta.NewTable(newStore(t))

	build := func() *Stream {
		folderSource, err := NewFolderSource(source, ingest.FormatCSV, nil)
		if err != nil {
			t.Fatalf("NewFolderSource failed: %v", err)
		}
		return NewStream(Config{
			Name:        "resume",
			Source:      folderSource,
			Sink:        sink,
			Checkpoints: checkpoints,
		})
	}

	if err := source.Put(ctx, "batch-1.csv", []byte("device,reading\na,1\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	first := build()
	if err := first.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// A new stream instance over the same checkpoint must not replay
	// the already delivered file.
	second := build()
	if err := second.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 1 {
		t.Errorf("Expected 1 row after restart, got %d", got)
	}

	if err := source.Put(ctx, "batch-2.csv", []byte("device,reading\nb,2\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := second.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 2 {
		t.Errorf("Expected 2 rows after new file, got %d", got)
	}
}

func TestStreamRecoveryKeepsFilesArrivedDuringCrash(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	checkpointStore := newStore(t)
	checkpoints := NewCheckpointStore(checkpointStore)
	sink := delta.NewTable(newStore(t))

	build := func() *Stream {
		folderSource, err := NewFolderSource(source, ingest.FormatCSV, nil)
		if err != nil {
			t.Fatalf("NewFolderSource failed: %v", err)
		}
		return NewStream(Config{
			Name:        "recover",
			Source:      folderSource,
			Sink:        sink,
			Checkpoints: checkpoints,
		})
	}

	if err := source.Put(ctx, "batch-1.csv", []byte("device,reading\na,1\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	first := build()
	if err := first.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// Simulate a crash after the sink commit but before the checkpoint
	// save: the batch plan survives, the checkpoint does not.
	if err := checkpointStore.Delete(ctx, checkpointKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// A file lands while the stream is down.
	if err := source.Put(ctx, "batch-2.csv", []byte("device,reading\nb,2\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	restarted := build()
	// First trigger replays exactly the planned file; the watermark
	// suppresses the duplicate sink write.
	if err := restarted.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce after restart failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 1 {
		t.Fatalf("Expected no duplicate rows after replay, got %d", got)
	}
	cp, err := checkpoints.Load(ctx, "recover")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cp.ProcessedFiles["batch-2.csv"] {
		t.Fatal("File arrived during the crash must not be checkpointed by the replayed batch")
	}

	// Second trigger delivers the late arrival.
	if err := restarted.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 2 {
		t.Errorf("Expected both files' rows after recovery, got %d", got)
	}
	cp, err = checkpoints.Load(ctx, "recover")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cp.ProcessedFiles["batch-1.csv"] || !cp.ProcessedFiles["batch-2.csv"] {
		t.Errorf("Expected both files checkpointed, got %v", cp.ProcessedFiles)
	}
}

func TestStreamRecoveryFromPlanBeforeSinkCommit(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	checkpoints := NewCheckpointStore(newStore(t))
	sink := delta.NewTable(newStore(t))

	if err := source.Put(ctx, "batch-1.csv", []byte("device,reading\na,1\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Crash before the sink commit: only the plan was written.
	if err := checkpoints.SavePlan(ctx, &BatchPlan{
		StreamID:      "planned",
		BatchID:       0,
		Files:         []string{"batch-1.csv"},
		SourceVersion: -1,
	}); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	folderSource, err := NewFolderSource(source, ingest.FormatCSV, nil)
	if err != nil {
		t.Fatalf("NewFolderSource failed: %v", err)
	}
	stream := NewStream(Config{
		Name:        "planned",
		Source:      folderSource,
		Sink:        sink,
		Checkpoints: checkpoints,
	})
	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 1 {
		t.Errorf("Expected the planned batch delivered once, got %d rows", got)
	}
}

func writeSourceTable(t *testing.T) *delta.Table {
	t.Helper()
	table := delta.NewTable(newStore(t))
	schema := &model.TableSchema{Columns: []model.ColumnSchema{
		{Name: "id", Type: model.ColumnTypeInteger},
		{Name: "name", Type: model.ColumnTypeString},
	}}
	rows := []model.Row{
		{"id": int64(1), "name": "a"},
		{"id": int64(2), "name": "b"},
	}
	if _, err := table.Write(context.Background(), model.WriteModeOverwrite, schema, rows, nil); err != nil {
		t.Fatalf("source Write failed: %v", err)
	}
	return table
}

func newTableStream(t *testing.T, name string, source *delta.Table, ignoreChanges, ignoreDeletes bool) (*Stream, *delta.Table) {
	t.Helper()
	sink := delta.NewTable(newStore(t))
	stream := NewStream(Config{
		Name:        name,
		Source:      NewTableSource(source, ignoreChanges, ignoreDeletes),
		Sink:        sink,
		Checkpoints: NewCheckpointStore(newStore(t)),
	})
	return stream, sink
}

func TestTableStreamReplaysAppends(t *testing.T) {
	ctx := context.Background()
	source := writeSourceTable(t)
	stream, sink := newTableStream(t, "table-tail", source, false, false)

	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 2 {
		t.Fatalf("Expected 2 rows from initial version, got %d", got)
	}

	if _, err := source.Write(ctx, model.WriteModeAppend, nil, []model.Row{{"id": int64(3), "name": "c"}}, nil); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 3 {
		t.Errorf("Expected 3 rows after source append, got %d", got)
	}
}

func TestTableStreamFailsOnUpdateWithoutIgnoreChanges(t *testing.T) {
	ctx := context.Background()
	source := writeSourceTable(t)
	stream, _ := newTableStream(t, "strict", source, false, false)

	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	condition := &model.Filter{Predicates: []model.Predicate{{Column: "id", Operator: "EQ", Value: 1}}}
	if _, err := source.UpdateWhere(ctx, condition, []model.Assignment{{Column: "name", Op: "set", Value: "z"}}); err != nil {
		t.Fatalf("UpdateWhere failed: %v", err)
	}

	err := stream.RunOnce(ctx)
	if !errors.Is(err, delta.ErrUnsupportedSourceChange) {
		t.Errorf("Expected ErrUnsupportedSourceChange, got %v", err)
	}
}

func TestTableStreamIgnoreChangesRedeliversRewrites(t *testing.T) {
	ctx := context.Background()
	source := writeSourceTable(t)
	stream, sink := newTableStream(t, "tolerant", source, true, false)

	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	condition := &model.Filter{Predicates: []model.Predicate{{Column: "id", Operator: "EQ", Value: 1}}}
	if _, err := source.UpdateWhere(ctx, condition, []model.Assignment{{Column: "name", Op: "set", Value: "z"}}); err != nil {
		t.Fatalf("UpdateWhere failed: %v", err)
	}

	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	// The rewritten file's rows are delivered again.
	if got := sinkRowCount(t, sink); got != 4 {
		t.Errorf("Expected 4 rows after rewrite re-delivery, got %d", got)
	}
}

func TestTableStreamIgnoreDeletesSkipsDeleteCommits(t *testing.T) {
	ctx := context.Background()
	source := writeSourceTable(t)
	stream, sink := newTableStream(t, "skip-deletes", source, false, true)

	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// Delete every row so the commit removes the file without adding a
	// rewritten one.
	condition := &model.Filter{Predicates: []model.Predicate{{Column: "id", Operator: "GT", Value: 0}}}
	if _, err := source.DeleteWhere(ctx, condition); err != nil {
		t.Fatalf("DeleteWhere failed: %v", err)
	}

	if err := stream.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if got := sinkRowCount(t, sink); got != 2 {
		t.Errorf("Expected delete commit to be skipped, got %d rows", got)
	}
}

type brokenSource struct{}

func (brokenSource) Next(ctx context.Context, cp *Checkpoint, maxFiles int) (*Batch, error) {
	return nil, errors.New("source unavailable")
}

func (brokenSource) Replay(ctx context.Context, cp *Checkpoint, plan *BatchPlan) (*Batch, error) {
	return nil, errors.New("source unavailable")
}

func TestStreamReportsTerminalStateOnFailure(t *testing.T) {
	terminal := make(chan string, 1)
	stream := NewStream(Config{
		Name:            "doomed",
		Source:          brokenSource{},
		Sink:            delta.NewTable(newStore(t)),
		Checkpoints:     NewCheckpointStore(newStore(t)),
		TriggerInterval: 10 * time.Millisecond,
		OnTerminal: func(state string) {
			terminal <- state
		},
	})

	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case state := <-terminal:
		if state != StateFailed {
			t.Errorf("Expected terminal state %q, got %q", StateFailed, state)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the stream to fail")
	}
	if got := stream.Status().State; got != StateFailed {
		t.Errorf("Expected status %q, got %q", StateFailed, got)
	}
}

func TestStreamReportsTerminalStateOnStop(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	terminal := make(chan string, 1)

	folderSource, err := NewFolderSource(source, ingest.FormatCSV, nil)
	if err != nil {
		t.Fatalf("NewFolderSource failed: %v", err)
	}
	stream := NewStream(Config{
		Name:            "short-lived",
		Source:          folderSource,
		Sink:            delta.NewTable(newStore(t)),
		Checkpoints:     NewCheckpointStore(newStore(t)),
		TriggerInterval: 10 * time.Millisecond,
		OnTerminal: func(state string) {
			terminal <- state
		},
	})

	if err := stream.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	stream.Stop()

	select {
	case state := <-terminal:
		if state != StateStopped {
			t.Errorf("Expected terminal state %q, got %q", StateStopped, state)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the stream to stop")
	}
}
