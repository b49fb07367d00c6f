package report

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/metrics"
	"github.com/simp-lee/wbdash/internal/middleware"
	"github.com/simp-lee/wbdash/internal/wbapi"
)

// persistTimeout bounds writing one fetch record.
const persistTimeout = 5 * time.Second

// UpstreamMetrics receives one observation per upstream round trip.
type UpstreamMetrics interface {
	RecordUpstreamFetch(endpoint, outcome string, d time.Duration)
	RecordFetchLogError()
}

// FetchRecorder observes client round trips: it logs them, counts them and
// appends them to the fetch log. Failing to persist is logged and counted,
// never returned to the caller of the fetch.
type FetchRecorder struct {
	repo    domain.FetchRepository
	metrics UpstreamMetrics
	log     *slog.Logger
}

var _ wbapi.Observer = (*FetchRecorder)(nil)

// NewFetchRecorder creates a FetchRecorder. repo and m may be nil to skip
// persistence or metrics.
func NewFetchRecorder(repo domain.FetchRepository, m UpstreamMetrics, log *slog.Logger) *FetchRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &FetchRecorder{repo: repo, metrics: m, log: log}
}

// ObserveFetch implements wbapi.Observer.
func (r *FetchRecorder) ObserveFetch(ctx context.Context, o wbapi.Observation) {
	attrs := []slog.Attr{
		slog.String("endpoint", o.Endpoint),
		slog.String("date_from", o.Params.DateFrom),
		slog.String("date_to", o.Params.DateTo),
		slog.Int("status", o.Status),
		slog.Duration("duration", o.Duration),
	}
	if o.Err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "upstream fetch failed", append(attrs, slog.Any("error", o.Err))...)
	} else {
		r.log.LogAttrs(ctx, slog.LevelDebug, "upstream fetch", attrs...)
	}

	if r.metrics != nil {
		r.metrics.RecordUpstreamFetch(o.Endpoint, outcome(o), o.Duration)
	}
	if r.repo == nil {
		return
	}

	record := &domain.FetchRecord{
		Endpoint:   o.Endpoint,
		DateFrom:   o.Params.DateFrom,
		DateTo:     o.Params.DateTo,
		Page:       o.Params.Page,
		Limit:      o.Params.Limit,
		Status:     o.Status,
		DurationMS: o.Duration.Milliseconds(),
		RequestID:  middleware.RequestIDFromContext(ctx),
	}
	if o.Err != nil {
		record.Error = truncate(o.Err.Error(), 1024)
	}

	// The fetch may have ended because ctx was canceled; the record is
	// still written.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := r.repo.Create(pctx, record); err != nil {
		r.log.LogAttrs(ctx, slog.LevelError, "persist fetch record", slog.String("endpoint", o.Endpoint), slog.Any("error", err))
		if r.metrics != nil {
			r.metrics.RecordFetchLogError()
		}
	}
}

// outcome labels o for metrics: the status code when a response arrived,
// otherwise timeout or error.
func outcome(o wbapi.Observation) string {
	switch {
	case o.Status != 0:
		return strconv.Itoa(o.Status)
	case wbapi.IsTimeout(o.Err):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
