package report

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/pkg"
)

// ReportHandler serves the JSON API for reports and the fetch log.
type ReportHandler struct {
	svc domain.ReportService
}

// NewReportHandler creates a new ReportHandler with the given service.
func NewReportHandler(svc domain.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Get proxies one report fetch and wraps the upstream body in the standard
// envelope.
// GET /api/v1/reports/:kind
func (h *ReportHandler) Get(c *gin.Context) {
	kind, ok := domain.ParseKind(c.Param("kind"))
	if !ok {
		pkg.Error(c, domain.NewAppError(domain.CodeNotFound, "unknown report", nil))
		return
	}

	var req ReportQueryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	report, err := h.svc.Fetch(c.Request.Context(), kind, req.ToQuery())
	if err != nil {
		_ = c.Error(err)
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, report)
}

// ListFetches returns a page of the fetch log.
// GET /api/v1/fetches
func (h *ReportHandler) ListFetches(c *gin.Context) {
	result, err := h.svc.ListFetches(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		_ = c.Error(err)
		pkg.Error(c, err)
		return
	}
	pkg.List(c, result)
}
