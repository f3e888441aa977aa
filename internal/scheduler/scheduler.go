package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	consumptiondomain "github.com/smallbiznis/woyofal/internal/consumption/domain"
	"github.com/smallbiznis/woyofal/internal/metricspush"
	obsmetrics "github.com/smallbiznis/woyofal/internal/observability/metrics"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrUnknownJob    = errors.New("unknown_scheduler_job")
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Cfg     config.Config
	Config  Config `optional:"true"`
	Tracker consumptiondomain.Tracker
	Audit   auditdomain.Service
	Locker  *ratelimit.Locker            `optional:"true"`
	Pusher  metricspush.Pusher           `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type job struct {
	name     string
	schedule cron.Schedule
	next     time.Time
	run      func(ctx context.Context) error
}

// Scheduler runs the periodic maintenance jobs: closing the previous billing
// period and pruning old purchase logs.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	loc     *time.Location
	tracker consumptiondomain.Tracker
	audit   auditdomain.Service
	locker  *ratelimit.Locker
	pusher  metricspush.Pusher
	metrics *obsmetrics.SchedulerMetrics

	mu   sync.Mutex
	jobs []*job
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.Tracker == nil || p.Audit == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	if p.Config.LogRetentionDays <= 0 && p.Cfg.LogRetentionDays > 0 {
		cfg.LogRetentionDays = p.Cfg.LogRetentionDays
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Scheduler()
	}

	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     cfg,
		genID:   p.GenID,
		clock:   p.Clock,
		loc:     p.Cfg.Location(),
		tracker: p.Tracker,
		audit:   p.Audit,
		locker:  p.Locker,
		pusher:  p.Pusher,
		metrics: metrics,
	}

	specs := map[string]struct {
		spec string
		run  func(context.Context) error
	}{
		JobPeriodClose:          {cfg.PeriodCloseSpec, s.closePreviousPeriod},
		JobPurchaseLogRetention: {cfg.RetentionSpec, s.prunePurchaseLogs},
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		if s.jobEnabled(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	now := s.now()
	for _, name := range names {
		schedule, err := cron.ParseStandard(specs[name].spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s schedule %q: %v", ErrInvalidConfig, name, specs[name].spec, err)
		}
		s.jobs = append(s.jobs, &job{
			name:     name,
			schedule: schedule,
			next:     schedule.Next(now),
			run:      specs[name].run,
		})
	}
	return s, nil
}

func (s *Scheduler) jobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}

func (s *Scheduler) now() time.Time {
	return s.clock.Now().In(s.loc)
}

// Jobs lists the registered jobs with their next run time.
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.jobs))
	for _, j := range s.jobs {
		out[j.name] = j.next
	}
	return out
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err != nil && run.errors == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		s.metrics.SetLastSuccess(name, s.clock.Now())
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job whose next run time has passed.
func (s *Scheduler) RunOnce(parent context.Context) error {
	now := s.now()

	s.mu.Lock()
	due := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !now.Before(j.next) {
			due = append(due, j)
			j.next = j.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, j := range due {
		if err := s.execute(parent, j); err != nil {
			errs = append(errs, err)
		}
	}

	s.pushMetrics(parent)
	return errors.Join(errs...)
}

// RunJob runs a single job immediately, ignoring its schedule.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	s.mu.Lock()
	var target *job
	for _, j := range s.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	err := s.execute(ctx, target)
	s.pushMetrics(ctx)
	return err
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	_, err := s.withJobLock(ctx, j.name, func(lockCtx context.Context) error {
		if err := s.runJob(lockCtx, j.name, s.cfg.JobTimeout, j.run); err != nil {
			return &jobError{err: err}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var jobErr *jobError
	if errors.As(err, &jobErr) {
		return jobErr.err
	}
	s.log.Warn("scheduler lock unavailable", zap.String("job", j.name), zap.Error(err))
	return fmt.Errorf("%s: lock: %w", j.name, err)
}

func (s *Scheduler) pushMetrics(ctx context.Context) {
	if s.pusher == nil || !s.cfg.PushAfterEachTick {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.pusher.Push(pushCtx, s.metrics.Registry()); err != nil {
		s.log.Warn("push scheduler metrics failed", zap.Error(err))
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.RunInterval),
		zap.Int("jobs", len(s.jobs)),
	)

	expected := time.Now().Add(s.cfg.RunInterval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case tick := <-ticker.C:
			if lag := tick.Sub(expected); lag > 0 {
				s.metrics.ObserveRunLoopLag(lag)
			}
			expected = tick.Add(s.cfg.RunInterval)
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}
