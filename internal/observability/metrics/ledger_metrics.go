package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonCanceled             = "canceled"
	ReasonLockTimeout          = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonNotFound             = "not_found"
	ReasonUnknown              = "unknown"
)

// LedgerMetrics tracks persistence behaviour of the credit ledger and
// upstream generation latency.
type LedgerMetrics struct {
	mutateDuration     *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
}

func NewLedgerMetrics(reg prometheus.Registerer) (*LedgerMetrics, error) {
	m := &LedgerMetrics{
		mutateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipeverse_ledger_mutate_duration_seconds",
			Help:    "Duration of locked entitlement mutations.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeverse_ledger_store_errors_total",
			Help: "Entitlement store failures by operation and reason.",
		}, []string{"operation", "reason"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipeverse_generation_duration_seconds",
			Help:    "Latency of upstream recipe generation calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"status"}),
	}
	if reg != nil {
		if err := registerCollector(reg, &m.mutateDuration); err != nil {
			return nil, err
		}
		if err := registerCollector(reg, &m.storeErrors); err != nil {
			return nil, err
		}
		if err := registerCollector(reg, &m.generationDuration); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *LedgerMetrics) ObserveMutate(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.mutateDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordStoreError classifies err and returns the reason it was counted under.
func (m *LedgerMetrics) RecordStoreError(operation string, err error) string {
	reason := ClassifyStoreError(err)
	if m == nil || err == nil {
		return reason
	}
	m.storeErrors.WithLabelValues(operation, reason).Inc()
	return reason
}

func (m *LedgerMetrics) ObserveGeneration(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ClassifyStoreError maps driver errors from postgres (pgx or lib/pq) and
// gorm to a bounded set of reasons.
func ClassifyStoreError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ReasonNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ReasonUniqueViolation
	}

	code := sqlStateCode(err)
	switch code {
	case "55P03":
		return ReasonLockTimeout
	case "40001", "40P01":
		return ReasonSerializationFailure
	case "23505":
		return ReasonUniqueViolation
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"):
		return ReasonLockTimeout
	case strings.Contains(msg, "unique constraint"):
		return ReasonUniqueViolation
	}
	return ReasonUnknown
}

func sqlStateCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
