package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/woyofal/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	NumeroCompteur string
	Statut         string
	StartAt        *time.Time
	EndAt          *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	Logs []LogEntry `json:"logs"`
}

// Service is the audit sink for purchase attempts.
type Service interface {
	Record(ctx context.Context, rec Record) error
	RecordSystem(ctx context.Context, operation string, details map[string]any, opErr error, elapsed time.Duration) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
	DailyStats(ctx context.Context, day time.Time) (DailyStats, error)
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

var (
	ErrInvalidStatus    = errors.New("invalid_audit_status")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
