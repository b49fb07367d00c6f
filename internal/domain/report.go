package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/simp-lee/pagination"
)

// Kind names one of the dashboard reports. Each kind owns exactly one page
// route and one upstream fetch.
type Kind string

const (
	KindIncomes Kind = "incomes"
	KindOrders  Kind = "orders"
	KindSales   Kind = "sales"
	KindStocks  Kind = "stocks"
)

// Kinds returns every report kind in navigation order.
func Kinds() []Kind {
	return []Kind{KindIncomes, KindOrders, KindSales, KindStocks}
}

// ParseKind resolves s to a known Kind using exact, case-sensitive matching.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Title returns the human-readable page title for the kind.
func (k Kind) Title() string {
	switch k {
	case KindIncomes:
		return "Incomes"
	case KindOrders:
		return "Orders"
	case KindSales:
		return "Sales"
	case KindStocks:
		return "Stocks"
	default:
		return string(k)
	}
}

// Path returns the page route for the kind.
func (k Kind) Path() string {
	return "/" + string(k)
}

// ReportQuery is the date range and optional pagination for a report fetch.
// Nil Page and Limit are left out of the upstream request.
type ReportQuery struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
	Page     *int   `json:"page,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
}

// Report is the result of one upstream fetch. Data is the upstream body,
// passed through without interpretation.
type Report struct {
	Kind      Kind            `json:"kind"`
	Query     ReportQuery     `json:"query"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// JSONData returns Data when it is a JSON document, and Data as a JSON string
// otherwise, e.g. for a plain-text upstream body.
func (r *Report) JSONData() json.RawMessage {
	if len(r.Data) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(r.Data) {
		return r.Data
	}
	s, _ := json.Marshal(string(r.Data))
	return s
}

// MarshalJSON encodes r with Data made JSON-safe by JSONData.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	out := plain(r)
	out.Data = r.JSONData()
	return json.Marshal(out)
}

// ReportService defines the business logic interface for dashboard reports.
type ReportService interface {
	Fetch(ctx context.Context, kind Kind, query ReportQuery) (*Report, error)
	ListFetches(ctx context.Context, req PageRequest) (*pagination.Pagination[FetchRecord], error)
}
