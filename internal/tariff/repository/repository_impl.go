package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tariffdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *tariffdomain.TariffTier) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tranches_tarifaires (
			id, nom, code, seuil_min, seuil_max, prix_kwh, ordre, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tier.ID,
		tier.Nom,
		tier.Code,
		tier.SeuilMin,
		tier.SeuilMax,
		tier.PrixKwh,
		tier.Ordre,
		tier.Status,
		tier.CreatedAt,
		tier.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tariffdomain.TariffTier, error) {
	var tier tariffdomain.TariffTier
	err := db.WithContext(ctx).Raw(
		`SELECT id, nom, code, seuil_min, seuil_max, prix_kwh, ordre, status, created_at, updated_at
		 FROM tranches_tarifaires WHERE id = ?`,
		id,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*tariffdomain.TariffTier, error) {
	var tier tariffdomain.TariffTier
	err := db.WithContext(ctx).Raw(
		`SELECT id, nom, code, seuil_min, seuil_max, prix_kwh, ordre, status, created_at, updated_at
		 FROM tranches_tarifaires WHERE code = ?`,
		code,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]tariffdomain.TariffTier, error) {
	var items []tariffdomain.TariffTier
	err := db.WithContext(ctx).Raw(
		`SELECT id, nom, code, seuil_min, seuil_max, prix_kwh, ordre, status, created_at, updated_at
		 FROM tranches_tarifaires WHERE status = ? ORDER BY ordre ASC`,
		tariffdomain.StatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status tariffdomain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tranches_tarifaires SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}
