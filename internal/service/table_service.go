package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/model"
)

// TableService exposes versioned table reads and writes by location.
type TableService interface {
	Write(ctx context.Context, req *model.WriteRequest) (*model.WriteResponse, error)
	Read(ctx context.Context, req *model.ReadRequest) (*model.ReadResponse, error)
	Update(ctx context.Context, req *model.UpdateRequest) (*model.MutationResponse, error)
	Delete(ctx context.Context, req *model.DeleteRequest) (*model.MutationResponse, error)
	History(ctx context.Context, location string, limit int) (*model.HistoryResponse, error)
	Details(ctx context.Context, location string) (*model.TableDetails, error)
}

type tableService struct {
	opener  *TableOpener
	metrics *EngineMetrics
}

// NewTableService creates a new instance of TableService
func NewTableService(opener *TableOpener) TableService {
	return &tableService{
		opener:  opener,
		metrics: GetEngineMetrics(),
	}
}

func (s *tableService) observe(operation string, start time.Time, err error) {
	s.metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TableCommitErrors.WithLabelValues(operation).Inc()
		if errors.Is(err, delta.ErrCommitConflict) {
			s.metrics.CommitConflicts.Inc()
		}
		return
	}
	s.metrics.TableCommitsTotal.WithLabelValues(operation).Inc()
}

func (s *tableService) Write(ctx context.Context, req *model.WriteRequest) (*model.WriteResponse, error) {
	start := time.Now()
	table, err := s.opener.OpenTable(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	result, err := table.Write(ctx, req.Mode, req.Schema, req.Rows, nil)
	s.observe("write", start, err)
	if err != nil {
		return nil, err
	}
	s.metrics.TableRowsWritten.Add(float64(result.NumRows))

	return &model.WriteResponse{
		Location:    req.Location,
		Version:     result.Version,
		Operation:   string(req.Mode),
		RowsWritten: int64(result.NumRows),
		CommittedAt: time.Now().UTC(),
	}, nil
}

func (s *tableService) Read(ctx context.Context, req *model.ReadRequest) (*model.ReadResponse, error) {
	table, err := s.opener.OpenTable(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	selector := model.ReadSelector{VersionAsOf: req.VersionAsOf}
	if req.TimestampAsOf != nil {
		ts, err := time.Parse(time.RFC3339, *req.TimestampAsOf)
		if err != nil {
			return nil, fmt.Errorf("invalid timestampAsOf %q: %w", *req.TimestampAsOf, err)
		}
		selector.TimestampAsOf = &ts
	}

	result, err := table.Read(ctx, selector, delta.ReadOptions{
		Columns: req.Columns,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.TableRowsRead.Add(float64(len(result.Rows)))

	return &model.ReadResponse{
		Location: req.Location,
		Version:  result.Version,
		Schema:   *result.Schema,
		Rows:     result.Rows,
		RowCount: int64(len(result.Rows)),
	}, nil
}

func (s *tableService) Update(ctx context.Context, req *model.UpdateRequest) (*model.MutationResponse, error) {
	start := time.Now()
	table, err := s.opener.OpenTable(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	result, err := table.UpdateWhere(ctx, &req.Condition, req.Assignments)
	s.observe("update", start, err)
	if err != nil {
		return nil, err
	}

	return &model.MutationResponse{
		Location:     req.Location,
		Version:      result.Version,
		RowsAffected: int64(result.RowsMatched),
	}, nil
}

func (s *tableService) Delete(ctx context.Context, req *model.DeleteRequest) (*model.MutationResponse, error) {
	start := time.Now()
	table, err := s.opener.OpenTable(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	result, err := table.DeleteWhere(ctx, &req.Condition)
	s.observe("delete", start, err)
	if err != nil {
		return nil, err
	}

	return &model.MutationResponse{
		Location:     req.Location,
		Version:      result.Version,
		RowsAffected: int64(result.RowsMatched),
	}, nil
}

func (s *tableService) History(ctx context.Context, location string, limit int) (*model.HistoryResponse, error) {
	table, err := s.opener.OpenTable(ctx, location)
	if err != nil {
		return nil, err
	}
	commits, err := table.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &model.HistoryResponse{Location: location, Commits: commits}, nil
}

func (s *tableService) Details(ctx context.Context, location string) (*model.TableDetails, error) {
	table, err := s.opener.OpenTable(ctx, location)
	if err != nil {
		return nil, err
	}
	details, err := table.Details(ctx)
	if err != nil {
		return nil, err
	}
	details.Location = location
	return details, nil
}
