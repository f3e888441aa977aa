package scheduler

import (
	"context"
	"errors"

	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix     = "woyofal:scheduler:"
	skipReasonLocked  = "locked"
	skipReasonLockErr = "lock_error"
)

func lockKey(job string) string {
	return lockKeyPrefix + job
}

// withJobLock runs fn only on the replica that wins the job lock. Losing the
// race is not an error. Without redis every replica runs the job.
func (s *Scheduler) withJobLock(ctx context.Context, job string, fn func(context.Context) error) (bool, error) {
	if !s.locker.Enabled() {
		return true, fn(ctx)
	}

	err := s.locker.WithLock(ctx, lockKey(job), s.cfg.LockTTL, fn)
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		s.metrics.IncJobSkipped(job, skipReasonLocked)
		s.log.Debug("scheduler job held by another replica", zap.String("job", job))
		return false, nil
	case err != nil && !isJobError(err):
		s.metrics.IncJobSkipped(job, skipReasonLockErr)
		return false, err
	default:
		return true, err
	}
}

// isJobError tells job failures apart from redis failures. The lock layer
// only returns its own errors before fn starts.
func isJobError(err error) bool {
	var jobErr *jobError
	return errors.As(err, &jobErr)
}

type jobError struct {
	err error
}

func (e *jobError) Error() string { return e.err.Error() }

func (e *jobError) Unwrap() error { return e.err }
