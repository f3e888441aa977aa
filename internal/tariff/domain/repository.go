package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *TariffTier) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TariffTier, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*TariffTier, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]TariffTier, error)
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
}
