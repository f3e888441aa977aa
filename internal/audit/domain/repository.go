package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatusCount struct {
	Statut       Status          `gorm:"column:statut"`
	Count        int64           `gorm:"column:count"`
	MontantTotal decimal.Decimal `gorm:"column:montant_total"`
}

type ExecutionStats struct {
	Avg             decimal.Decimal `gorm:"column:avg"`
	Max             int64           `gorm:"column:max"`
	Min             int64           `gorm:"column:min"`
	UniqueCompteurs int64           `gorm:"column:unique_compteurs"`
	UniqueIPs       int64           `gorm:"column:unique_ips"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *LogEntry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*LogEntry, error)
	CountByStatus(ctx context.Context, db *gorm.DB, from, to time.Time) ([]StatusCount, error)
	ExecutionStats(ctx context.Context, db *gorm.DB, from, to time.Time) (ExecutionStats, error)
	DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, batchSize int) (int64, error)
}
