package report

import "github.com/simp-lee/wbdash/internal/domain"

// ReportQueryRequest is the query string of the JSON report endpoint.
type ReportQueryRequest struct {
	DateFrom string `json:"dateFrom" form:"dateFrom" binding:"required"`
	DateTo   string `json:"dateTo" form:"dateTo" binding:"required"`
	Page     *int   `json:"page" form:"page" binding:"omitempty,min=1"`
	Limit    *int   `json:"limit" form:"limit" binding:"omitempty,min=1"`
}

// ToQuery converts the request into a domain.ReportQuery.
func (r ReportQueryRequest) ToQuery() domain.ReportQuery {
	return domain.ReportQuery{DateFrom: r.DateFrom, DateTo: r.DateTo, Page: r.Page, Limit: r.Limit}
}

// pageQuery is the query string of a report page. Both dates are optional:
// the page fetches only once both are filled in.
type pageQuery struct {
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	Page     *int   `form:"page" binding:"omitempty,min=1"`
	Limit    *int   `form:"limit" binding:"omitempty,min=1"`
}

func (q pageQuery) complete() bool {
	return q.DateFrom != "" && q.DateTo != ""
}

func (q pageQuery) toQuery() domain.ReportQuery {
	return domain.ReportQuery{DateFrom: q.DateFrom, DateTo: q.DateTo, Page: q.Page, Limit: q.Limit}
}
