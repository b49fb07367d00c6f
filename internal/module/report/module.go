package report

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/wbdash/internal/domain"
)

// ReportModule implements the app.Module interface for the report domain.
type ReportModule struct {
	handler     *ReportHandler
	pageHandler *ReportPageHandler
}

// NewModule creates a new ReportModule with the given handlers.
// Panics if h or ph is nil.
func NewModule(h *ReportHandler, ph *ReportPageHandler) *ReportModule {
	if h == nil {
		panic("report.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("report.NewModule: pageHandler must not be nil")
	}
	return &ReportModule{handler: h, pageHandler: ph}
}

// RegisterRoutes registers the report API routes and one page route per
// report kind. Page paths are matched exactly.
func (m *ReportModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.GET("/reports/:kind", m.handler.Get)
	api.GET("/fetches", m.handler.ListFetches)

	for _, kind := range domain.Kinds() {
		pages.GET(kind.Path(), m.pageHandler.Page(kind))
	}
}
