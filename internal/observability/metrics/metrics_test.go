package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("user_id", "123"),
		attribute.String("tier", "FREE"),
		attribute.String("outcome", "admitted"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("tier"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordLedgerOutcome(context.Background(), "FREE", "admitted")
	m.RecordRefund(context.Background(), "invalid_input")

	var lm *LedgerMetrics
	lm.ObserveMutate("charge", time.Millisecond)
	assert.Equal(t, ReasonUnknown, lm.RecordStoreError("charge", errors.New("boom")))
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordBillingEvent(context.Background(), "stripe", "checkout.session.completed", "applied")
}

func TestClassifyStoreError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), ReasonDeadlineExceeded},
		{"duplicated", gorm.ErrDuplicatedKey, ReasonUniqueViolation},
		{"pgx lock", &pgconn.PgError{Code: "55P03"}, ReasonLockTimeout},
		{"pgx serialization", fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"}), ReasonSerializationFailure},
		{"pq unique", &pq.Error{Code: "23505"}, ReasonUniqueViolation},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), ReasonLockTimeout},
		{"other", errors.New("boom"), ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStoreError(tc.err))
		})
	}
}

func TestLedgerMetricsCountsStoreErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewLedgerMetrics(reg)
	require.NoError(t, err)

	m.RecordStoreError("charge", &pgconn.PgError{Code: "55P03"})
	m.RecordStoreError("charge", &pgconn.PgError{Code: "55P03"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("charge", ReasonLockTimeout)))
}

func TestNewLedgerMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewLedgerMetrics(reg)
	require.NoError(t, err)
	second, err := NewLedgerMetrics(reg)
	require.NoError(t, err)

	first.RecordStoreError("refund", gorm.ErrDuplicatedKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.storeErrors.WithLabelValues("refund", ReasonUniqueViolation)))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/recipes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recipes/42", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/recipes/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}
