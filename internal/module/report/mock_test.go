package report

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/wbapi"
)

// fakeFetcher records which fetch method ran and returns canned results.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	last  wbapi.Params
	data  json.RawMessage
	err   error
}

func (f *fakeFetcher) record(name string, p wbapi.Params) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeFetcher) FetchIncomes(_ context.Context, p wbapi.Params) (json.RawMessage, error) {
	return f.record("incomes", p)
}

func (f *fakeFetcher) FetchOrders(_ context.Context, p wbapi.Params) (json.RawMessage, error) {
	return f.record("orders", p)
}

func (f *fakeFetcher) FetchSales(_ context.Context, p wbapi.Params) (json.RawMessage, error) {
	return f.record("sales", p)
}

func (f *fakeFetcher) FetchStocks(_ context.Context, p wbapi.Params) (json.RawMessage, error) {
	return f.record("stocks", p)
}

// mockReportService is a domain.ReportService with injectable results.
type mockReportService struct {
	mu       sync.Mutex
	fetches  []domain.Kind
	lastQ    domain.ReportQuery
	lastPage domain.PageRequest
	data     json.RawMessage
	fetchErr error
	records  []domain.FetchRecord
	listErr  error
}

func newMockService() *mockReportService {
	return &mockReportService{data: json.RawMessage(`[{"id":1}]`)}
}

func (m *mockReportService) Fetch(_ context.Context, kind domain.Kind, q domain.ReportQuery) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, kind)
	m.lastQ = q
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return &domain.Report{Kind: kind, Query: q, Data: m.data}, nil
}

func (m *mockReportService) ListFetches(_ context.Context, req domain.PageRequest) (*pagination.Pagination[domain.FetchRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPage = req
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &pagination.Pagination[domain.FetchRecord]{
		Items:        m.records,
		TotalItems:   int64(len(m.records)),
		TotalPages:   1,
		CurrentPage:  req.Page,
		FirstPage:    1,
		LastPage:     1,
		ItemsPerPage: req.PageSize,
	}, nil
}

func (m *mockReportService) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetches)
}

func intPtr(n int) *int { return &n }
