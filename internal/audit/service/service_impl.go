package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	"github.com/smallbiznis/woyofal/internal/audit/masking"
	"github.com/smallbiznis/woyofal/internal/auditcontext"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/pkg/db/pagination"
	"github.com/smallbiznis/woyofal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize   = 50
	maxPageSize       = 1000
	cleanupBatchSize  = 1000
	systemMethod      = "SYSTEM"
	systemUserAgent   = "woyofal/scheduler"
	maxErrorMessageLn = 1000
	maxNumeroLn       = 20
)

// numeric(12,2) upper bound
var maxMontant = decimal.New(1, 10)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	loc   *time.Location
	clock clock.Clock
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		loc:   p.Cfg.Location(),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Record writes one purchase attempt. Failures are logged and returned but
// callers treat them as non fatal.
func (s *Service) Record(ctx context.Context, rec auditdomain.Record) error {
	if !rec.Statut.Valid() {
		return auditdomain.ErrInvalidStatus
	}

	info := auditcontext.FromContext(ctx)
	attemptID := strings.TrimSpace(rec.AttemptID)
	if attemptID == "" {
		_, attemptID = correlation.EnsureAttemptID(ctx)
	}

	entry := auditdomain.LogEntry{
		ID:              s.genID.Generate(),
		AttemptID:       attemptID,
		NumeroCompteur:  optional(truncate(strings.TrimSpace(rec.NumeroCompteur), maxNumeroLn)),
		Statut:          rec.Statut,
		IPAddress:       optional(info.IPAddress),
		UserAgent:       optional(info.UserAgent),
		Method:          optional(info.Method),
		Endpoint:        optional(info.Endpoint),
		ErrorMessage:    optional(truncate(masking.MaskText(rec.ErrorMessage), maxErrorMessageLn)),
		ExecutionTimeMs: rec.ExecutionTime.Milliseconds(),
		CreatedAt:       s.clock.Now().UTC(),
	}
	if rec.Montant != nil && rec.Montant.Abs().LessThan(maxMontant) {
		entry.Montant = decimal.NullDecimal{Decimal: rec.Montant.Round(2), Valid: true}
	}

	request := withRequestID(masking.MaskPayload(rec.RequestData), info.RequestID)
	if request != nil {
		entry.RequestData = datatypes.JSONMap(request)
	}
	if response := masking.MaskPayload(rec.ResponseData); response != nil {
		entry.ResponseData = datatypes.JSONMap(response)
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write purchase log",
			zap.String("attempt_id", attemptID),
			zap.String("statut", string(rec.Statut)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// RecordSystem logs a maintenance operation in the same table as purchase
// attempts, with a SYSTEM method and a /system/<operation> endpoint.
func (s *Service) RecordSystem(ctx context.Context, operation string, details map[string]any, opErr error, elapsed time.Duration) error {
	operation = strings.ToLower(strings.TrimSpace(operation))
	if operation == "" {
		operation = "unknown"
	}

	ctx = auditcontext.WithEndpoint(ctx, systemMethod, "/system/"+operation)
	ctx = auditcontext.WithUserAgent(ctx, systemUserAgent)

	rec := auditdomain.Record{
		Statut:        auditdomain.StatusSuccess,
		RequestData:   map[string]any{"operation": operation},
		ResponseData:  details,
		ExecutionTime: elapsed,
	}
	if opErr != nil {
		rec.Statut = auditdomain.StatusError
		rec.ErrorMessage = opErr.Error()
	}
	return s.Record(ctx, rec)
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	statut := auditdomain.Status(strings.TrimSpace(req.Statut))
	if statut != "" && !statut.Valid() {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidStatus
	}

	var cursor *auditdomain.AuditCursor
	decoded, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}
	if decoded != nil {
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: decoded.CreatedAt}
	}

	pageSize := req.Limit(defaultPageSize, maxPageSize)
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		NumeroCompteur: req.NumeroCompteur,
		Statut:         statut,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Cursor:         cursor,
		Limit:          pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo, err := pagination.Trim(items, pageSize, func(item *auditdomain.LogEntry) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String(), CreatedAt: item.CreatedAt}
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs := make([]auditdomain.LogEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, Logs: logs}, nil
}

// DailyStats aggregates the attempts of the calendar day containing day,
// in the billing timezone.
func (s *Service) DailyStats(ctx context.Context, day time.Time) (auditdomain.DailyStats, error) {
	local := day.In(s.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	counts, err := s.repo.CountByStatus(ctx, s.db, from, to)
	if err != nil {
		return auditdomain.DailyStats{}, err
	}
	exec, err := s.repo.ExecutionStats(ctx, s.db, from, to)
	if err != nil {
		return auditdomain.DailyStats{}, err
	}

	stats := auditdomain.DailyStats{
		Date:            from.Format("2006-01-02"),
		Statuts:         make(map[auditdomain.Status]int64, len(counts)),
		TotalMontant:    decimal.Zero,
		UniqueCompteurs: exec.UniqueCompteurs,
		UniqueIPs:       exec.UniqueIPs,
	}
	for _, c := range counts {
		stats.Statuts[c.Statut] = c.Count
		stats.TotalRequests += c.Count
		if c.Statut == auditdomain.StatusSuccess {
			stats.SuccessCount += c.Count
			stats.TotalMontant = stats.TotalMontant.Add(c.MontantTotal)
		} else {
			stats.ErrorCount += c.Count
		}
	}
	stats.TotalMontant = stats.TotalMontant.Round(2)

	if stats.TotalRequests > 0 {
		rate := decimal.NewFromInt(stats.SuccessCount * 100).
			DivRound(decimal.NewFromInt(stats.TotalRequests), 2)
		stats.SuccessRate = rate.InexactFloat64()
		stats.AvgExecutionTimeMs = exec.Avg.Round(2).InexactFloat64()
		stats.MaxExecutionTimeMs = exec.Max
		stats.MinExecutionTimeMs = exec.Min
	}

	return stats, nil
}

func (s *Service) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	if olderThan.IsZero() {
		return 0, errors.New("cleanup cutoff is required")
	}
	deleted, err := s.repo.DeleteBefore(ctx, s.db, olderThan, cleanupBatchSize)
	if err != nil {
		return deleted, err
	}
	s.log.Info("purchase logs cleaned up",
		zap.Time("cutoff", olderThan.UTC()),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

func withRequestID(payload map[string]any, requestID string) map[string]any {
	if requestID == "" {
		return payload
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["request_id"] = requestID
	return payload
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
