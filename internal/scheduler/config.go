package scheduler

import (
	"time"

	"github.com/smallbiznis/woyofal/internal/config"
)

const (
	JobPeriodClose          = "period_close"
	JobPurchaseLogRetention = "purchase_log_retention"
)

// Config controls the tick interval, job schedules and lock lifetimes.
// Schedules use the standard 5-field cron syntax in the billing timezone.
type Config struct {
	RunInterval       time.Duration
	JobTimeout        time.Duration
	LockTTL           time.Duration
	PeriodCloseSpec   string
	RetentionSpec     string
	LogRetentionDays  int
	EnabledJobs       []string
	PushAfterEachTick bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval:       time.Minute,
		JobTimeout:        5 * time.Minute,
		LockTTL:           10 * time.Minute,
		PeriodCloseSpec:   "0 0 1 * *",
		RetentionSpec:     "0 2 * * *",
		LogRetentionDays:  90,
		PushAfterEachTick: true,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.PeriodCloseSpec == "" {
		c.PeriodCloseSpec = defaults.PeriodCloseSpec
	}
	if c.RetentionSpec == "" {
		c.RetentionSpec = defaults.RetentionSpec
	}
	if c.LogRetentionDays <= 0 {
		c.LogRetentionDays = defaults.LogRetentionDays
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.LogRetentionDays = cfg.LogRetentionDays
	return out.withDefaults()
}
