package service

import (
	"context"
	"fmt"
	"time"

	"lakehouse-gateway/internal/ingest"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/streaming"
	"lakehouse-gateway/internal/utils"
)

// StreamingService manages named micro-batch ingest streams.
type StreamingService interface {
	StartStream(ctx context.Context, req *model.StartStreamRequest) (*model.StreamStatus, error)
	StopStream(ctx context.Context, name string) (*model.StreamStatus, error)
	GetStatus(ctx context.Context, name string) (*model.StreamStatus, error)
	ListStreams(ctx context.Context) ([]model.StreamStatus, error)
	StopAll()
}

type streamingService struct {
	opener  *TableOpener
	manager *streaming.Manager
	metrics *EngineMetrics
}

// NewStreamingService creates a new instance of StreamingService
func NewStreamingService(opener *TableOpener, manager *streaming.Manager) StreamingService {
	return &streamingService{
		opener:  opener,
		manager: manager,
		metrics: GetEngineMetrics(),
	}
}

func (ss *streamingService) buildSource(ctx context.Context, req *model.StartStreamRequest) (streaming.Source, error) {
	if req.SourceFormat == "delta" {
		source, err := ss.opener.OpenTable(ctx, req.SourceLocation)
		if err != nil {
			return nil, err
		}
		exists, err := source.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, utils.NewErrorBuilder(utils.ErrCodeTableNotFound).
				WithDetails(fmt.Sprintf("source table %s does not exist", req.SourceLocation)).
				Build()
		}
		return streaming.NewTableSource(source, req.IgnoreChanges, req.IgnoreDeletes), nil
	}

	store, err := ss.opener.OpenStore(ctx, req.SourceLocation)
	if err != nil {
		return nil, err
	}
	return streaming.NewFolderSource(store, ingest.SourceFormat(req.SourceFormat), req.Schema)
}

func (ss *streamingService) StartStream(ctx context.Context, req *model.StartStreamRequest) (*model.StreamStatus, error) {
	source, err := ss.buildSource(ctx, req)
	if err != nil {
		return nil, err
	}

	sink, err := ss.opener.OpenTable(ctx, req.TargetLocation)
	if err != nil {
		return nil, err
	}
	checkpointStore, err := ss.opener.OpenStore(ctx, req.CheckpointLocation)
	if err != nil {
		return nil, err
	}

	stream := streaming.NewStream(streaming.Config{
		Name:               req.Name,
		Source:             source,
		Sink:               sink,
		Checkpoints:        streaming.NewCheckpointStore(checkpointStore),
		SourceLocation:     req.SourceLocation,
		TargetLocation:     req.TargetLocation,
		TriggerInterval:    time.Duration(req.TriggerIntervalMs) * time.Millisecond,
		MaxFilesPerTrigger: req.MaxFilesPerTrigger,
		OnBatch: func(batchID int64, rows int) {
			ss.metrics.StreamBatchesTotal.WithLabelValues(req.Name).Inc()
			ss.metrics.StreamRowsTotal.WithLabelValues(req.Name).Add(float64(rows))
		},
		OnTerminal: func(state string) {
			ss.metrics.ActiveStreams.Dec()
		},
	})

	if err := ss.manager.Register(ctx, stream); err != nil {
		return nil, utils.NewErrorBuilder(utils.ErrCodeStreamExists).WithDetails(err.Error()).Build()
	}
	ss.metrics.ActiveStreams.Inc()

	status := stream.Status()
	return &status, nil
}

func (ss *streamingService) StopStream(ctx context.Context, name string) (*model.StreamStatus, error) {
	stream, ok := ss.manager.Get(name)
	if !ok {
		return nil, utils.NewErrorBuilder(utils.ErrCodeStreamNotFound).
			WithDetails(fmt.Sprintf("stream %s is not registered", name)).
			Build()
	}
	stream.Stop()

	status := stream.Status()
	return &status, nil
}

func (ss *streamingService) GetStatus(ctx context.Context, name string) (*model.StreamStatus, error) {
	stream, ok := ss.manager.Get(name)
	if !ok {
		return nil, utils.NewErrorBuilder(utils.ErrCodeStreamNotFound).
			WithDetails(fmt.Sprintf("stream %s is not registered", name)).
			Build()
	}
	status := stream.Status()
	return &status, nil
}

func (ss *streamingService) ListStreams(ctx context.Context) ([]model.StreamStatus, error) {
	names := ss.manager.Names()
	statuses := make([]model.StreamStatus, 0, len(names))
	for _, name := range names {
		if stream, ok := ss.manager.Get(name); ok {
			statuses = append(statuses, stream.Status())
		}
	}
	return statuses, nil
}

func (ss *streamingService) StopAll() {
	ss.manager.StopAll()
}
