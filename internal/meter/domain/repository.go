package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, meter *Meter) error
	FindByNumero(ctx context.Context, db *gorm.DB, numero string) (*Meter, error)
	FindWithClient(ctx context.Context, db *gorm.DB, numero string) (*MeterWithClient, error)
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
}
