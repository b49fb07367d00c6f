package report

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/wbdash/internal/domain"
)

// NavItem is one entry of the page navigation.
type NavItem struct {
	Title  string
	Path   string
	Active bool
}

// ReportPageHandler renders the four report pages.
type ReportPageHandler struct {
	svc domain.ReportService
}

// NewReportPageHandler creates a new ReportPageHandler with the given service.
func NewReportPageHandler(svc domain.ReportService) *ReportPageHandler {
	return &ReportPageHandler{svc: svc}
}

// Page returns the handler for kind's page. It always renders
// report/<kind>.html once: with the filter form alone until both dates are
// given, then with the fetched data or the fetch error.
// GET /incomes, /orders, /sales, /stocks
func (h *ReportPageHandler) Page(kind domain.Kind) gin.HandlerFunc {
	tmpl := "report/" + string(kind) + ".html"

	return func(c *gin.Context) {
		var q pageQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			slog.DebugContext(c.Request.Context(), "report page: bind error", "kind", kind, "error", err)
			c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
			return
		}

		data := gin.H{
			"Kind":  kind,
			"Title": kind.Title(),
			"Nav":   navItems(kind),
			"Query": q,
		}
		if !q.complete() {
			c.HTML(http.StatusOK, tmpl, data)
			return
		}

		report, err := h.svc.Fetch(c.Request.Context(), kind, q.toQuery())
		if err != nil {
			_ = c.Error(err)
			data["Error"] = pageErrorMessage(err)
			c.HTML(domain.HTTPStatusCode(err), tmpl, data)
			return
		}

		data["Report"] = report
		data["Table"] = tabulate(report.Data)
		data["Raw"] = prettyJSON(report.Data)
		c.HTML(http.StatusOK, tmpl, data)
	}
}

func navItems(active domain.Kind) []NavItem {
	kinds := domain.Kinds()
	items := make([]NavItem, len(kinds))
	for i, k := range kinds {
		items[i] = NavItem{Title: k.Title(), Path: k.Path(), Active: k == active}
	}
	return items
}

// pageErrorMessage returns the AppError message for upstream failures and a
// generic text for anything else.
func pageErrorMessage(err error) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		switch appErr.Code {
		case domain.CodeUpstream, domain.CodeUpstreamTimeout, domain.CodeNotFound:
			return appErr.Message
		}
	}
	return "Something went wrong while loading the report. Please try again."
}
