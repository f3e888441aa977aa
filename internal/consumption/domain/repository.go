package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	// FindByPeriod returns nil, nil when the period has no row yet. With lock
	// set the row is read FOR UPDATE on databases that support it.
	FindByPeriod(ctx context.Context, db *gorm.DB, clientID snowflake.ID, period Period, lock bool) (*MonthlyConsumption, error)
	InsertIfAbsent(ctx context.Context, db *gorm.DB, row *MonthlyConsumption) error
	Increment(ctx context.Context, db *gorm.DB, clientID snowflake.ID, period Period, amount, kwh decimal.Decimal, now time.Time) (int64, error)
	ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID, limit int) ([]MonthlyConsumption, error)
	Summarize(ctx context.Context, db *gorm.DB, period Period) (PeriodSummary, error)
}
