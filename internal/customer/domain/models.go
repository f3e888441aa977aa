package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Customer is the holder of one or more prepaid meters.
type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Nom       string       `gorm:"column:nom;type:varchar(100);not null" json:"nom"`
	Prenom    string       `gorm:"column:prenom;type:varchar(100);not null" json:"prenom"`
	Telephone *string      `gorm:"column:telephone;type:varchar(20)" json:"telephone,omitempty"`
	Email     *string      `gorm:"column:email;type:varchar(150)" json:"email,omitempty"`
	Status    Status       `gorm:"column:status;type:varchar(16);not null;default:active" json:"status"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "clients" }

// DisplayName is "Prenom Nom" as printed on receipts.
func (c Customer) DisplayName() string {
	return strings.TrimSpace(c.Prenom + " " + c.Nom)
}

func (c Customer) IsActive() bool {
	return c.Status == StatusActive
}
