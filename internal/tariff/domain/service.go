package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
)

// Service is the tariff schedule source used by purchases and the public
// tier listing.
type Service interface {
	// Schedule returns the active tiers, validated and sorted for allocation.
	Schedule(ctx context.Context) ([]allocator.Tier, error)
	Summaries(ctx context.Context) ([]Summary, error)
	Deactivate(ctx context.Context, code string) error
}

// Summary is the public description of an active tier.
type Summary struct {
	ID          string `json:"id"`
	Nom         string `json:"nom"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Prix        string `json:"prix"`
	Ordre       int    `json:"ordre"`
}

var (
	ErrNotFound    = errors.New("tariff_tier_not_found")
	ErrInvalidCode = errors.New("invalid_tariff_tier_code")

	ErrScheduleWouldBreak = errors.New("tariff_schedule_would_break")
)
