package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// closePreviousPeriod summarises the month that just ended. Counters are
// never reset: the next purchase opens a fresh row for the new period.
func (s *Scheduler) closePreviousPeriod(ctx context.Context) error {
	start := time.Now()
	period := s.tracker.CurrentPeriod().Previous()

	summary, err := s.tracker.Summarize(ctx, period)
	if err != nil {
		s.logJobError(ctx, "period summary failed", JobPeriodClose, err,
			zap.Int("mois", period.Mois),
			zap.Int("annee", period.Annee),
		)
		s.recordSystem(ctx, JobPeriodClose, map[string]any{"mois": period.Mois, "annee": period.Annee}, err, time.Since(start))
		return err
	}

	jobRunFromContext(ctx).AddProcessed("clients", summary.Clients)

	details := map[string]any{
		"mois":          period.Mois,
		"annee":         period.Annee,
		"clients":       summary.Clients,
		"nombre_achats": summary.NombreAchats,
		"montant_total": summary.MontantTotal.StringFixed(2),
		"kwh_total":     summary.KwhTotal.StringFixed(3),
	}
	s.logger(ctx).Info("billing period closed",
		zap.Int("mois", period.Mois),
		zap.Int("annee", period.Annee),
		zap.Int64("clients", summary.Clients),
		zap.Int64("nombre_achats", summary.NombreAchats),
		zap.String("montant_total", summary.MontantTotal.StringFixed(2)),
		zap.String("kwh_total", summary.KwhTotal.StringFixed(3)),
	)
	s.recordSystem(ctx, JobPeriodClose, details, nil, time.Since(start))
	return nil
}

// prunePurchaseLogs deletes audit rows older than the retention window.
func (s *Scheduler) prunePurchaseLogs(ctx context.Context) error {
	start := time.Now()
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.LogRetentionDays)

	deleted, err := s.audit.Cleanup(ctx, cutoff)
	details := map[string]any{
		"retention_days": s.cfg.LogRetentionDays,
		"cutoff":         cutoff.UTC().Format(time.RFC3339),
		"deleted":        deleted,
	}
	if err != nil {
		s.logJobError(ctx, "purchase log cleanup failed", JobPurchaseLogRetention, err)
		s.recordSystem(ctx, JobPurchaseLogRetention, details, err, time.Since(start))
		return err
	}

	jobRunFromContext(ctx).AddProcessed("logs_achat", deleted)
	s.logger(ctx).Info("purchase logs pruned",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
	s.recordSystem(ctx, JobPurchaseLogRetention, details, nil, time.Since(start))
	return nil
}

func (s *Scheduler) recordSystem(ctx context.Context, operation string, details map[string]any, opErr error, elapsed time.Duration) {
	if err := s.audit.RecordSystem(ctx, operation, details, opErr, elapsed); err != nil {
		s.logger(ctx).Warn("record system operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}
