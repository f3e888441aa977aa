package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tracker owns the monthly consumption counters. Methods taking a *gorm.DB
// run inside the caller's transaction.
type Tracker interface {
	CurrentPeriod() Period
	// Current returns the counter of the current period, creating a zero row
	// when absent, and locks it for the rest of the transaction.
	Current(ctx context.Context, tx *gorm.DB, clientID snowflake.ID) (*MonthlyConsumption, error)
	// Peek returns the current counter without writing; a missing row reads
	// as zero.
	Peek(ctx context.Context, clientID snowflake.ID) (*MonthlyConsumption, error)
	// Commit adds a successful purchase to the counter of period.
	Commit(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, period Period, amount, kwh decimal.Decimal) error
	History(ctx context.Context, clientID snowflake.ID, limit int) ([]MonthlyConsumption, error)
	Summarize(ctx context.Context, period Period) (PeriodSummary, error)
}

var (
	ErrCounterMissing = errors.New("consumption_counter_missing")
	ErrInvalidAmount  = errors.New("consumption_invalid_amount")
)
