package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  fmt.Errorf("purge: %w", &pgconn.PgError{Code: "40001"}),
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "invalid_db",
			err:  gorm.ErrInvalidDB,
			want: SchedulerJobReasonDB,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	metrics := newSchedulerMetrics(prometheus.NewRegistry(), Config{
		ServiceName: "woyofal",
		Environment: "test",
	})

	metrics.AddBatchProcessed("purchase_log_retention", "logs_achats", 3)
	metrics.AddBatchProcessed("purchase_log_retention", "logs_achats", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("purchase_log_retention", "logs_achats"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestLastSuccessGauge(t *testing.T) {
	metrics := newSchedulerMetrics(prometheus.NewRegistry(), Config{})
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	metrics.SetLastSuccess("period_close", at)

	got := testutil.ToFloat64(metrics.lastSuccess.WithLabelValues("period_close"))
	if got != float64(at.Unix()) {
		t.Fatalf("expected %d, got %v", at.Unix(), got)
	}
	if metrics.Registry() == nil {
		t.Fatalf("expected registry")
	}
}
