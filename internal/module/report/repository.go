package report

import (
	"context"
	"errors"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/pkg"
)

// Columns accepted by the fetch log list.
var (
	sortColumns   = pkg.Columns{"id", "created_at", "endpoint", "status", "duration_ms"}
	filterColumns = pkg.Columns{"endpoint", "status", "request_id", "date_from", "date_to"}
)

// fetchRepository implements domain.FetchRepository using GORM.
type fetchRepository struct {
	db *gorm.DB
}

// NewFetchRepository creates a FetchRepository backed by db.
func NewFetchRepository(db *gorm.DB) domain.FetchRepository {
	return &fetchRepository{db: db}
}

// Create inserts record.
func (r *fetchRepository) Create(ctx context.Context, record *domain.FetchRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// List returns one page of records. The count and the page are read in one
// transaction so TotalItems matches the rows the page was cut from. A page
// past the end yields the last page.
func (r *fetchRepository) List(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.FetchRecord], error) {
	var result *pagination.Pagination[domain.FetchRecord]
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		filtered := func() *gorm.DB {
			return tx.Model(&domain.FetchRecord{}).Scopes(pkg.Filter(req, filterColumns))
		}
		p := pagination.NewPaginator(
			pagination.WithItemsPerPage[domain.FetchRecord](req.PageSize),
			pagination.WithItemTotalCallback[domain.FetchRecord](func(context.Context) (int64, error) {
				var total int64
				err := filtered().Count(&total).Error
				return total, err
			}),
			pagination.WithSliceCallback(func(_ context.Context, offset, limit int) ([]domain.FetchRecord, error) {
				var records []domain.FetchRecord
				err := filtered().Scopes(pkg.Paginate(offset, limit), pkg.Sort(req, sortColumns)).Find(&records).Error
				return records, err
			}),
		)
		var err error
		result, err = p.Paginate(ctx, req.Page)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, pagination.ErrInvalidPageNumber) || errors.Is(err, pagination.ErrInvalidConfig) {
		return domain.NewAppError(domain.CodeValidation, "invalid page request", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}
