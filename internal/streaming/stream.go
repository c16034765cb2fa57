package streaming

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/model"
)

// Stream states.
const (
	StateRunning  = "running"
	StateStopping = "stopping"
	StateStopped  = "stopped"
	StateFailed   = "failed"
)

const defaultTriggerInterval = 2 * time.Second

// Config wires one stream together.
type Config struct {
	Name               string
	Source             Source
	Sink               *delta.Table
	Checkpoints        *CheckpointStore
	SourceLocation     string
	TargetLocation     string
	TriggerInterval    time.Duration
	MaxFilesPerTrigger int

	// OnBatch, when set, runs after each batch is committed and its
	// checkpoint saved.
	OnBatch func(batchID int64, rows int)

	// OnTerminal, when set, runs once when the batch loop exits, with
	// the final state (stopped or failed).
	OnTerminal func(state string)
}

// Stream pulls micro-batches from a source and appends them to a sink
// table. Each committed batch carries a transaction watermark so a
// replayed batch after a crash is detected and skipped.
type Stream struct {
	cfg Config
	log *logrus.Entry

	mu               sync.Mutex
	state            string
	batchesCommitted int64
	rowsCommitted    int64
	lastBatchAt      time.Time
	startedAt        time.Time
	lastErr          error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStream creates a stream from its configuration.
func NewStream(cfg Config) *Stream {
	if cfg.TriggerInterval <= 0 {
		cfg.TriggerInterval = defaultTriggerInterval
	}
	return &Stream{
		cfg:   cfg,
		log:   logrus.WithFields(logrus.Fields{"component": "streaming", "stream": cfg.Name}),
		state: StateStopped,
	}
}

// Start launches the micro-batch loop. The stream runs until Stop or a
// batch failure.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return fmt.Errorf("stream %s is already running", s.cfg.Name)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	s.startedAt = time.Now().UTC()
	s.lastErr = nil

	go s.run(runCtx)
	return nil
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TriggerInterval)
	defer ticker.Stop()

	for {
		if err := s.runBatch(ctx); err != nil {
			if ctx.Err() != nil {
				s.finish(StateStopped, nil)
				return
			}
			s.log.WithError(err).Error("Stream batch failed")
			s.finish(StateFailed, err)
			return
		}

		select {
		case <-ctx.Done():
			s.finish(StateStopped, nil)
			return
		case <-ticker.C:
		}
	}
}

// finish records the terminal state and notifies the lifecycle hook.
func (s *Stream) finish(state string, err error) {
	s.setState(state, err)
	if s.cfg.OnTerminal != nil {
		s.cfg.OnTerminal(state)
	}
}

// runBatch performs one trigger: plan, commit to the sink, then advance
// the checkpoint. The plan is persisted before the sink commit, so a
// crash anywhere in the window re-delivers exactly the planned input on
// restart; the transaction watermark then discards the duplicate write,
// and files that arrived after the plan wait for the next batch.
func (s *Stream) runBatch(ctx context.Context) error {
	cp, err := s.cfg.Checkpoints.Load(ctx, s.cfg.Name)
	if err != nil {
		return err
	}
	batchID := cp.BatchID + 1

	plan, err := s.cfg.Checkpoints.LoadPlan(ctx)
	if err != nil {
		return err
	}

	var batch *Batch
	if plan != nil && plan.BatchID == batchID {
		batch, err = s.cfg.Source.Replay(ctx, cp, plan)
		if err != nil {
			return err
		}
	} else {
		batch, err = s.cfg.Source.Next(ctx, cp, s.cfg.MaxFilesPerTrigger)
		if err != nil {
			return err
		}
		progressed := len(batch.Files) > 0 || batch.SourceVersion != cp.SourceVersion || len(batch.Rows) > 0
		if !progressed {
			return nil
		}
		plan = &BatchPlan{
			StreamID:      s.cfg.Name,
			BatchID:       batchID,
			Files:         batch.Files,
			SourceVersion: batch.SourceVersion,
		}
		if err := s.cfg.Checkpoints.SavePlan(ctx, plan); err != nil {
			return err
		}
	}

	if len(batch.Rows) > 0 {
		committed, err := s.sinkCommitted(ctx, batchID)
		if err != nil {
			return err
		}
		if !committed {
			txn := &delta.TxnAction{AppID: s.cfg.Name, Version: batchID}
			if _, err := s.cfg.Sink.Write(ctx, model.WriteModeAppend, batch.Schema, batch.Rows, txn); err != nil {
				return fmt.Errorf("failed to commit batch %d: %w", batchID, err)
			}
		} else {
			s.log.WithField("batch", batchID).Info("Skipping already committed batch")
		}
	}

	cp.BatchID = batchID
	cp.SourceVersion = plan.SourceVersion
	for _, file := range plan.Files {
		cp.ProcessedFiles[file] = true
	}
	if err := s.cfg.Checkpoints.Save(ctx, cp); err != nil {
		return err
	}

	s.mu.Lock()
	s.batchesCommitted++
	s.rowsCommitted += int64(len(batch.Rows))
	s.lastBatchAt = time.Now().UTC()
	s.mu.Unlock()

	if s.cfg.OnBatch != nil {
		s.cfg.OnBatch(batchID, len(batch.Rows))
	}

	s.log.WithFields(logrus.Fields{"batch": batchID, "rows": len(batch.Rows)}).Debug("Committed batch")
	return nil
}

// sinkCommitted reports whether the sink already holds this stream's
// watermark for batchID.
func (s *Stream) sinkCommitted(ctx context.Context, batchID int64) (bool, error) {
	state, err := s.cfg.Sink.StateAt(ctx, -1)
	if err != nil {
		if err == delta.ErrTableNotFound {
			return false, nil
		}
		return false, err
	}
	watermark, ok := state.Txns[s.cfg.Name]
	return ok && watermark >= batchID, nil
}

func (s *Stream) setState(state string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if err != nil {
		s.lastErr = err
	}
}

// Stop halts the batch loop and waits for the in-flight batch to finish.
func (s *Stream) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Status returns a snapshot of the stream's progress.
func (s *Stream) Status() model.StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := model.StreamStatus{
		Name:             s.cfg.Name,
		State:            s.state,
		SourceLocation:   s.cfg.SourceLocation,
		TargetLocation:   s.cfg.TargetLocation,
		BatchesCommitted: s.batchesCommitted,
		RowsCommitted:    s.rowsCommitted,
		LastBatchAt:      s.lastBatchAt,
		StartedAt:        s.startedAt,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// RunOnce executes a single trigger synchronously, used by tests and
// one-shot backfills.
func (s *Stream) RunOnce(ctx context.Context) error {
	return s.runBatch(ctx)
}
