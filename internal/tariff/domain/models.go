package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// TariffTier is one row of the progressive tariff schedule.
type TariffTier struct {
	ID        snowflake.ID        `json:"id" gorm:"primaryKey"`
	Nom       string              `json:"nom" gorm:"column:nom;type:varchar(100);not null"`
	Code      string              `json:"code" gorm:"column:code;type:varchar(100);not null;uniqueIndex"`
	SeuilMin  decimal.Decimal     `json:"seuil_min" gorm:"column:seuil_min;type:numeric(12,3);not null"`
	SeuilMax  decimal.NullDecimal `json:"seuil_max" gorm:"column:seuil_max;type:numeric(12,3)"`
	PrixKwh   decimal.Decimal     `json:"prix_kwh" gorm:"column:prix_kwh;type:numeric(10,2);not null"`
	Ordre     int                 `json:"ordre" gorm:"column:ordre;not null;uniqueIndex"`
	Status    Status              `json:"status" gorm:"column:status;type:varchar(16);not null;default:active"`
	CreatedAt time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time           `json:"updated_at" gorm:"not null"`
}

func (TariffTier) TableName() string { return "tranches_tarifaires" }

func (t TariffTier) IsActive() bool {
	return t.Status == StatusActive
}

// ToAllocator converts the row into the allocator's tier shape.
func (t TariffTier) ToAllocator() allocator.Tier {
	tier := allocator.Tier{
		ID:        int64(t.ID),
		Code:      t.Code,
		Name:      t.Nom,
		Min:       t.SeuilMin,
		UnitPrice: t.PrixKwh,
		Order:     t.Ordre,
	}
	if t.SeuilMax.Valid {
		max := t.SeuilMax.Decimal
		tier.Max = &max
	}
	return tier
}

func ToAllocatorTiers(rows []TariffTier) []allocator.Tier {
	out := make([]allocator.Tier, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToAllocator())
	}
	return out
}
