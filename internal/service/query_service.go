package service

import (
	"context"
	"fmt"
	"strings"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/repository"
	"lakehouse-gateway/internal/utils"
)

// QueryService answers row-set queries: ad hoc reads of table files by
// location and declared format, without a catalog entry. Row-set reads
// always see the latest committed version.
type QueryService interface {
	OpenRowSet(ctx context.Context, req *model.RowSetRequest) (*model.RowSetResponse, error)
}

type queryService struct {
	datasourceRepo repository.DataSourceRepository
	opener         *TableOpener
	metrics        *EngineMetrics
}

// NewQueryService creates a new instance of QueryService
func NewQueryService(datasourceRepo repository.DataSourceRepository, opener *TableOpener) QueryService {
	return &queryService{
		datasourceRepo: datasourceRepo,
		opener:         opener,
		metrics:        GetEngineMetrics(),
	}
}

// resolveLocation expands the bulk path against the named data source
// root, or takes it verbatim when no data source is given.
func (s *queryService) resolveLocation(ctx context.Context, req *model.RowSetRequest) (string, error) {
	if req.DataSource == "" {
		return req.Bulk, nil
	}
	source, err := s.datasourceRepo.GetByName(ctx, req.DataSource)
	if err != nil {
		return "", err
	}
	return joinLocation(source.Location, req.Bulk), nil
}

func (s *queryService) OpenRowSet(ctx context.Context, req *model.RowSetRequest) (*model.RowSetResponse, error) {
	format := strings.ToLower(req.Format)
	if format != "delta" {
		s.metrics.RowSetQueriesTotal.WithLabelValues(req.Format, "error").Inc()
		return nil, utils.NewErrorBuilder(utils.ErrCodeUnsupportedFormat).
			WithDetails(fmt.Sprintf("format %q is not supported, expected DELTA", req.Format)).
			Build()
	}

	location, err := s.resolveLocation(ctx, req)
	if err != nil {
		s.metrics.RowSetQueriesTotal.WithLabelValues(format, "error").Inc()
		return nil, err
	}

	table, err := s.opener.OpenTable(ctx, location)
	if err != nil {
		s.metrics.RowSetQueriesTotal.WithLabelValues(format, "error").Inc()
		return nil, err
	}

	result, err := table.Read(ctx, model.ReadSelector{}, delta.ReadOptions{
		Columns: req.Columns,
		Limit:   req.Limit,
		Filter:  req.Filter,
	})
	if err != nil {
		s.metrics.RowSetQueriesTotal.WithLabelValues(format, "error").Inc()
		return nil, err
	}

	s.metrics.RowSetQueriesTotal.WithLabelValues(format, "ok").Inc()
	s.metrics.TableRowsRead.Add(float64(len(result.Rows)))

	return &model.RowSetResponse{
		Location: location,
		Format:   format,
		Version:  result.Version,
		Schema:   *result.Schema,
		Rows:     result.Rows,
		RowCount: int64(len(result.Rows)),
	}, nil
}
