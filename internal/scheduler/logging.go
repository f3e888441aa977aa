package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/woyofal/internal/observability/context"
	obslogger "github.com/smallbiznis/woyofal/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/woyofal/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun accumulates what a single job execution touched.
type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	processed map[string]int64
	errors    int
	metrics   *obsmetrics.SchedulerMetrics
}

type jobRunKey struct{}

// AddProcessed counts rows handled for resource ("clients", "logs_achat").
func (r *jobRun) AddProcessed(resource string, count int64) {
	if r == nil || count <= 0 {
		return
	}
	r.processed[resource] += count
	r.metrics.AddBatchProcessed(r.job, resource, count)
}

func (r *jobRun) IncError() {
	if r != nil {
		r.errors++
	}
}

// startJobRun tags ctx with a fresh run id. The run id doubles as the
// request id so audit rows written by the job can be traced back to it.
func (s *Scheduler) startJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
		processed: make(map[string]int64),
		metrics:   s.metrics,
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithRequestID(ctx, run.runID)
	return ctx, run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.String("timezone", s.loc.String()),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Any("processed", run.processed),
		zap.Int("error_count", run.errors),
	}
	if run.errors > 0 {
		s.logger(ctx).Warn("scheduler.job.finish", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logJobError(ctx context.Context, msg, job string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	jobRunFromContext(ctx).IncError()
	base := []zap.Field{
		zap.String("job", job),
		zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Error(err),
	}
	s.logger(ctx).Error(msg, append(base, fields...)...)
}
