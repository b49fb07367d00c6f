package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/wbapi"
)

// Fetcher is the part of *wbapi.Client the report service drives.
type Fetcher interface {
	FetchIncomes(ctx context.Context, p wbapi.Params) (json.RawMessage, error)
	FetchOrders(ctx context.Context, p wbapi.Params) (json.RawMessage, error)
	FetchSales(ctx context.Context, p wbapi.Params) (json.RawMessage, error)
	FetchStocks(ctx context.Context, p wbapi.Params) (json.RawMessage, error)
}

// reportService implements domain.ReportService.
type reportService struct {
	client Fetcher
	repo   domain.FetchRepository
	now    func() time.Time
}

// NewReportService creates a ReportService that fetches through client and
// reads the fetch log from repo.
func NewReportService(client Fetcher, repo domain.FetchRepository) domain.ReportService {
	return &reportService{client: client, repo: repo, now: time.Now}
}

// Fetch runs the upstream fetch behind kind. Upstream failures come back as
// AppErrors: CodeUpstreamTimeout when the deadline passed, CodeUpstream
// otherwise. Unknown kinds are CodeNotFound.
func (s *reportService) Fetch(ctx context.Context, kind domain.Kind, q domain.ReportQuery) (*domain.Report, error) {
	fetch, ok := s.fetchFunc(kind)
	if !ok {
		return nil, domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("unknown report %q", kind), nil)
	}

	data, err := fetch(ctx, wbapi.Params{
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, upstreamError(kind, err)
	}

	return &domain.Report{
		Kind:      kind,
		Query:     q,
		Data:      data,
		FetchedAt: s.now().UTC(),
	}, nil
}

// ListFetches returns one page of the fetch log.
func (s *reportService) ListFetches(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.FetchRecord], error) {
	return s.repo.List(ctx, req)
}

func (s *reportService) fetchFunc(kind domain.Kind) (func(context.Context, wbapi.Params) (json.RawMessage, error), bool) {
	switch kind {
	case domain.KindIncomes:
		return s.client.FetchIncomes, true
	case domain.KindOrders:
		return s.client.FetchOrders, true
	case domain.KindSales:
		return s.client.FetchSales, true
	case domain.KindStocks:
		return s.client.FetchStocks, true
	default:
		return nil, false
	}
}

// upstreamError converts a client error into the AppError shown to users.
// The message never includes the upstream body or URL.
func upstreamError(kind domain.Kind, err error) error {
	if wbapi.IsTimeout(err) {
		return domain.NewAppError(domain.CodeUpstreamTimeout,
			fmt.Sprintf("%s: the metrics API did not answer in time", kind.Title()), err)
	}

	var se *wbapi.StatusError
	switch {
	case errors.As(err, &se):
		return domain.NewAppError(domain.CodeUpstream,
			fmt.Sprintf("%s: the metrics API answered with status %d", kind.Title(), se.StatusCode), err)
	case errors.Is(err, wbapi.ErrBodyTooLarge):
		return domain.NewAppError(domain.CodeUpstream,
			fmt.Sprintf("%s: the metrics API response is too large", kind.Title()), err)
	default:
		return domain.NewAppError(domain.CodeUpstream,
			fmt.Sprintf("%s: the metrics API is unreachable", kind.Title()), err)
	}
}
