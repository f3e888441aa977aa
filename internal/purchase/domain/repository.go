package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ExistsByReference(ctx context.Context, db *gorm.DB, reference string) (bool, error)
	ExistsByRechargeCode(ctx context.Context, db *gorm.DB, code string) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Transaction, error)
	ListByMeter(ctx context.Context, db *gorm.DB, numero string, limit int) ([]Transaction, error)
}
