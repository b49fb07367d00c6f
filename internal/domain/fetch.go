package domain

import (
	"context"

	"github.com/simp-lee/pagination"
)

// FetchRecord is the persisted trace of a single upstream API call.
type FetchRecord struct {
	BaseModel
	Endpoint   string `gorm:"size:64;index;not null" json:"endpoint"`
	DateFrom   string `gorm:"size:32" json:"date_from"`
	DateTo     string `gorm:"size:32" json:"date_to"`
	Page       *int   `json:"page,omitempty"`
	Limit      *int   `json:"limit,omitempty"`
	Status     int    `gorm:"index" json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `gorm:"size:1024" json:"error,omitempty"`
	RequestID  string `gorm:"size:64" json:"request_id,omitempty"`
}

// Failed reports whether the call ended in an error or a non-2xx status.
func (r *FetchRecord) Failed() bool {
	return r.Error != "" || r.Status < 200 || r.Status > 299
}

// FetchRepository defines the data access interface for fetch records.
type FetchRepository interface {
	Create(ctx context.Context, record *FetchRecord) error
	List(ctx context.Context, req PageRequest) (*pagination.Pagination[FetchRecord], error)
}
