package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/woyofal/internal/format"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo tariffdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo tariffdomain.Repository
}

func New(p Params) tariffdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("tariff.service"),
		repo: p.Repo,
	}
}

func (s *Service) Schedule(ctx context.Context) ([]allocator.Tier, error) {
	return ScheduleFrom(ctx, s.db, s.repo)
}

// ScheduleFrom loads and validates the active schedule through db, which may
// be an open transaction.
func ScheduleFrom(ctx context.Context, db *gorm.DB, repo tariffdomain.Repository) ([]allocator.Tier, error) {
	rows, err := repo.ListActive(ctx, db)
	if err != nil {
		return nil, err
	}
	return allocator.NormalizeSchedule(tariffdomain.ToAllocatorTiers(rows))
}

func (s *Service) Summaries(ctx context.Context) ([]tariffdomain.Summary, error) {
	rows, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]tariffdomain.Summary, 0, len(rows))
	for _, row := range rows {
		tier := row.ToAllocator()
		resp = append(resp, tariffdomain.Summary{
			ID:          row.ID.String(),
			Nom:         row.Nom,
			Code:        row.Code,
			Description: format.ThresholdRange(tier.Min, tier.Max),
			Prix:        format.PricePerKWh(row.PrixKwh),
			Ordre:       row.Ordre,
		})
	}
	return resp, nil
}

// Deactivate takes a tier out of the schedule. The remaining active tiers
// must still form a valid schedule, otherwise nothing changes.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return tariffdomain.ErrInvalidCode
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tier, err := s.repo.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if tier == nil {
			return tariffdomain.ErrNotFound
		}
		if !tier.IsActive() {
			return nil
		}

		active, err := s.repo.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		remaining := make([]tariffdomain.TariffTier, 0, len(active))
		for _, row := range active {
			if row.ID != tier.ID {
				remaining = append(remaining, row)
			}
		}
		if _, err := allocator.NormalizeSchedule(tariffdomain.ToAllocatorTiers(remaining)); err != nil {
			return fmt.Errorf("%w: %v", tariffdomain.ErrScheduleWouldBreak, err)
		}

		if err := s.repo.SetStatus(ctx, tx, tier.ID, tariffdomain.StatusInactive); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.log.Info("tariff tier deactivated", zap.String("code", code))
	}
	return nil
}
