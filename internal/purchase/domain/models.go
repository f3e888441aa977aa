package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusSuccess   Status = "success"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Transaction is a completed prepaid purchase (achat). Rows are written once
// and never updated.
type Transaction struct {
	ID             snowflake.ID                         `json:"id" gorm:"primaryKey"`
	Reference      string                               `json:"reference" gorm:"column:reference;type:varchar(20);not null;uniqueIndex:ux_achats_reference"`
	CodeRecharge   string                               `json:"code_recharge" gorm:"column:code_recharge;type:varchar(20);not null;uniqueIndex:ux_achats_code_recharge"`
	NumeroCompteur string                               `json:"numero_compteur" gorm:"column:numero_compteur;type:varchar(20);not null;index"`
	ClientID       snowflake.ID                         `json:"client_id" gorm:"column:client_id;not null;index"`
	Montant        decimal.Decimal                      `json:"montant" gorm:"column:montant;type:numeric(12,2);not null"`
	KwhAchetes     decimal.Decimal                      `json:"kwh_achetes" gorm:"column:kwh_achetes;type:numeric(12,3);not null"`
	PrixUnitaire   decimal.Decimal                      `json:"prix_unitaire" gorm:"column:prix_unitaire;type:numeric(10,2);not null"`
	TrancheID      snowflake.ID                         `json:"tranche_id" gorm:"column:tranche_id;not null"`
	TierBreakdown  datatypes.JSONSlice[allocator.Entry] `json:"tier_breakdown" gorm:"column:tier_breakdown;not null"`
	Statut         Status                               `json:"statut" gorm:"column:statut;type:varchar(16);not null"`
	DateAchat      time.Time                            `json:"date_achat" gorm:"column:date_achat;not null;index"`
	IPAddress      *string                              `json:"ip_address,omitempty" gorm:"column:ip_address;type:varchar(64)"`
	UserAgent      *string                              `json:"user_agent,omitempty" gorm:"column:user_agent;type:text"`
	CreatedAt      time.Time                            `json:"created_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "achats_woyofal" }

// Normalize restores the fixed scales after a round trip through a driver
// that reports numeric columns as floats.
func (t *Transaction) Normalize() {
	t.Montant = t.Montant.Round(2)
	t.KwhAchetes = t.KwhAchetes.Round(3)
	t.PrixUnitaire = t.PrixUnitaire.Round(2)
}
