package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Period is a billing month.
type Period struct {
	Mois  int `json:"mois"`
	Annee int `json:"annee"`
}

func PeriodOf(t time.Time, loc *time.Location) Period {
	if loc != nil {
		t = t.In(loc)
	}
	return Period{Mois: int(t.Month()), Annee: t.Year()}
}

// Previous returns the month before p.
func (p Period) Previous() Period {
	if p.Mois == 1 {
		return Period{Mois: 12, Annee: p.Annee - 1}
	}
	return Period{Mois: p.Mois - 1, Annee: p.Annee}
}

// MonthlyConsumption is the per-client counter for one billing period.
type MonthlyConsumption struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	ClientID     snowflake.ID    `json:"client_id" gorm:"column:client_id;not null;uniqueIndex:ux_consommations_client_periode,priority:1"`
	Mois         int             `json:"mois" gorm:"column:mois;not null;uniqueIndex:ux_consommations_client_periode,priority:2;check:chk_consommations_mois,mois BETWEEN 1 AND 12"`
	Annee        int             `json:"annee" gorm:"column:annee;not null;uniqueIndex:ux_consommations_client_periode,priority:3;check:chk_consommations_annee,annee >= 2024"`
	MontantTotal decimal.Decimal `json:"montant_total" gorm:"column:montant_total;type:numeric(14,2);not null"`
	KwhTotal     decimal.Decimal `json:"kwh_total" gorm:"column:kwh_total;type:numeric(14,3);not null"`
	NombreAchats int             `json:"nombre_achats" gorm:"column:nombre_achats;not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null"`
}

func (MonthlyConsumption) TableName() string { return "consommations_mensuelles" }

func (c MonthlyConsumption) Period() Period {
	return Period{Mois: c.Mois, Annee: c.Annee}
}

// Normalize restores the fixed scales after a round trip through a driver
// that reports numeric columns as floats.
func (c *MonthlyConsumption) Normalize() {
	c.MontantTotal = c.MontantTotal.Round(2)
	c.KwhTotal = c.KwhTotal.Round(3)
}

// PeriodSummary aggregates every counter of one period.
type PeriodSummary struct {
	Period       Period          `json:"period"`
	Clients      int64           `json:"clients"`
	MontantTotal decimal.Decimal `json:"montant_total"`
	KwhTotal     decimal.Decimal `json:"kwh_total"`
	NombreAchats int64           `json:"nombre_achats"`
}
