package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"

	TypePrepaid = "prepaye"
)

// Meter is a prepaid electricity meter (compteur) bound to one customer.
type Meter struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Numero    string       `json:"numero" gorm:"column:numero;type:varchar(20);not null;uniqueIndex"`
	ClientID  snowflake.ID `json:"client_id" gorm:"column:client_id;not null;index"`
	Adresse   *string      `json:"adresse,omitempty" gorm:"column:adresse;type:varchar(500)"`
	Quartier  *string      `json:"quartier,omitempty" gorm:"column:quartier;type:varchar(100)"`
	Ville     string       `json:"ville" gorm:"column:ville;type:varchar(100);not null;default:Dakar"`
	Type      string       `json:"type" gorm:"column:type;type:varchar(20);not null;default:prepaye"`
	Status    Status       `json:"status" gorm:"column:status;type:varchar(16);not null;default:active"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Meter) TableName() string { return "compteurs" }

func (m Meter) IsActive() bool {
	return m.Status == StatusActive
}

// MeterWithClient is the result of the meter lookup used by purchases.
type MeterWithClient struct {
	Meter  Meter
	Client customerdomain.Customer
}
