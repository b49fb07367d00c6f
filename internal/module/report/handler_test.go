package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"

	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/pkg"
)

// setupAPIRouter creates a gin engine with the report API routes.
func setupAPIRouter(h *ReportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api/v1")
	api.GET("/reports/:kind", h.Get)
	api.GET("/fetches", h.ListFetches)

	return r
}

func doGet(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestReportHandler_Get(t *testing.T) {
	svc := newMockService()
	svc.data = json.RawMessage(`[{"nmId":42}]`)
	r := setupAPIRouter(NewReportHandler(svc))

	w := doGet(r, "/api/v1/reports/stocks?dateFrom=2024-01-01&dateTo=2024-01-31&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Code int           `json:"code"`
		Data domain.Report `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Data.Kind != domain.KindStocks {
		t.Errorf("kind = %q, want stocks", resp.Data.Kind)
	}
	if string(resp.Data.Data) != `[{"nmId":42}]` {
		t.Errorf("data = %s, want upstream body unchanged", resp.Data.Data)
	}
	if svc.lastQ.DateFrom != "2024-01-01" || svc.lastQ.Limit == nil || *svc.lastQ.Limit != 5 || svc.lastQ.Page != nil {
		t.Errorf("query = %+v", svc.lastQ)
	}
}

func TestReportHandler_Get_UnknownKind(t *testing.T) {
	svc := newMockService()
	r := setupAPIRouter(NewReportHandler(svc))

	w := doGet(r, "/api/v1/reports/Incomes?dateFrom=a&dateTo=b")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	if svc.fetchCount() != 0 {
		t.Error("service called for unknown kind")
	}
}

func TestReportHandler_Get_ValidationError(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantField string
	}{
		{"missing dateFrom", "dateTo=2024-01-31", "dateFrom"},
		{"missing dateTo", "dateFrom=2024-01-01", "dateTo"},
		{"page zero", "dateFrom=a&dateTo=b&page=0", "page"},
		{"negative limit", "dateFrom=a&dateTo=b&limit=-1", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			r := setupAPIRouter(NewReportHandler(svc))

			w := doGet(r, "/api/v1/reports/orders?"+tt.query)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			var resp pkg.ValidationErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if _, ok := resp.Errors[tt.wantField]; !ok {
				t.Errorf("expected error for %q, got %v", tt.wantField, resp.Errors)
			}
			if svc.fetchCount() != 0 {
				t.Error("service called with invalid query")
			}
		})
	}
}

func TestReportHandler_Get_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"upstream", domain.NewAppError(domain.CodeUpstream, "Orders: the metrics API is unreachable", nil), http.StatusBadGateway},
		{"timeout", domain.NewAppError(domain.CodeUpstreamTimeout, "Orders: the metrics API did not answer in time", nil), http.StatusGatewayTimeout},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			svc.fetchErr = tt.err
			r := setupAPIRouter(NewReportHandler(svc))

			w := doGet(r, "/api/v1/reports/orders?dateFrom=a&dateTo=b")
			if w.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, w.Code)
			}
			var resp pkg.Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Code != tt.want || resp.Data != nil {
				t.Errorf("envelope = %+v", resp)
			}
			if tt.want == http.StatusInternalServerError && resp.Message != "internal error" {
				t.Errorf("message = %q, want internal error", resp.Message)
			}
		})
	}
}

func TestReportHandler_Get_PlainTextBody(t *testing.T) {
	svc := newMockService()
	svc.data = json.RawMessage("id;amount\n1;2")
	r := setupAPIRouter(NewReportHandler(svc))

	w := doGet(r, "/api/v1/reports/sales?dateFrom=2024-01-01&dateTo=2024-01-31")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Data string `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v\n%s", err, w.Body.String())
	}
	if resp.Data.Data != "id;amount\n1;2" {
		t.Errorf("data = %q, want the upstream text", resp.Data.Data)
	}
}

func TestReportHandler_ListFetches(t *testing.T) {
	svc := newMockService()
	svc.records = []domain.FetchRecord{{Endpoint: "/api/sales", Status: 200}}
	r := setupAPIRouter(NewReportHandler(svc))

	w := doGet(r, "/api/v1/fetches?page=2&page_size=500&sort=status:asc&endpoint=/api/sales")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if svc.lastPage.Page != 2 || svc.lastPage.PageSize != 100 || svc.lastPage.Sort != "status:asc" {
		t.Errorf("page request = %+v", svc.lastPage)
	}
	if svc.lastPage.Filter["endpoint"] != "/api/sales" {
		t.Errorf("filter = %v", svc.lastPage.Filter)
	}

	var resp struct {
		Data pagination.Pagination[domain.FetchRecord] `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Data.Items) != 1 || resp.Data.Items[0].Endpoint != "/api/sales" {
		t.Errorf("items = %+v", resp.Data.Items)
	}
}

func TestReportHandler_ListFetches_Error(t *testing.T) {
	svc := newMockService()
	svc.listErr = domain.NewAppError(domain.CodeInternal, "database error", errors.New("locked"))
	r := setupAPIRouter(NewReportHandler(svc))

	w := doGet(r, "/api/v1/fetches")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
}
