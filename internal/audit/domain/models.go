package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusSuccess            Status = "success"
	StatusError              Status = "error"
	StatusValidationError    Status = "validation_error"
	StatusInsufficientFunds  Status = "insufficient_funds"
	StatusCompteurNotFound   Status = "compteur_not_found"
	StatusServerError        Status = "server_error"
	StatusConsistencyWarning Status = "consistency_warning"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusError, StatusValidationError, StatusInsufficientFunds,
		StatusCompteurNotFound, StatusServerError, StatusConsistencyWarning:
		return true
	}
	return false
}

// LogEntry is one purchase attempt, whatever its outcome.
type LogEntry struct {
	ID              snowflake.ID        `json:"id" gorm:"primaryKey"`
	AttemptID       string              `json:"attempt_id" gorm:"column:attempt_id;type:varchar(26);not null"`
	NumeroCompteur  *string             `json:"numero_compteur,omitempty" gorm:"column:numero_compteur;type:varchar(20);index:idx_logs_achats_compteur,priority:1"`
	Montant         decimal.NullDecimal `json:"montant" gorm:"column:montant;type:numeric(12,2)"`
	Statut          Status              `json:"statut" gorm:"column:statut;type:varchar(32);not null;index:idx_logs_achats_statut,priority:1"`
	IPAddress       *string             `json:"ip_address,omitempty" gorm:"column:ip_address;type:varchar(64)"`
	UserAgent       *string             `json:"user_agent,omitempty" gorm:"column:user_agent;type:text"`
	Method          *string             `json:"method,omitempty" gorm:"column:method;type:varchar(10)"`
	Endpoint        *string             `json:"endpoint,omitempty" gorm:"column:endpoint;type:varchar(255)"`
	RequestData     datatypes.JSONMap   `json:"request_data,omitempty" gorm:"column:request_data"`
	ResponseData    datatypes.JSONMap   `json:"response_data,omitempty" gorm:"column:response_data"`
	ErrorMessage    *string             `json:"error_message,omitempty" gorm:"column:error_message;type:text"`
	ExecutionTimeMs int64               `json:"execution_time_ms" gorm:"column:execution_time_ms;not null"`
	CreatedAt       time.Time           `json:"created_at" gorm:"not null;index:idx_logs_achats_created_at;index:idx_logs_achats_compteur,priority:2;index:idx_logs_achats_statut,priority:2"`
}

func (LogEntry) TableName() string { return "logs_achats" }

// Record is what callers hand to the audit sink.
type Record struct {
	AttemptID      string
	NumeroCompteur string
	Montant        *decimal.Decimal
	Statut         Status
	RequestData    map[string]any
	ResponseData   map[string]any
	ErrorMessage   string
	ExecutionTime  time.Duration
}

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	NumeroCompteur string
	Statut         Status
	StartAt        *time.Time
	EndAt          *time.Time
	Cursor         *AuditCursor
	Limit          int
}

// DailyStats summarizes the attempts logged during one day.
type DailyStats struct {
	Date               string           `json:"date"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessCount       int64            `json:"success_count"`
	ErrorCount         int64            `json:"error_count"`
	SuccessRate        float64          `json:"success_rate"`
	Statuts            map[Status]int64 `json:"statuts"`
	TotalMontant       decimal.Decimal  `json:"total_montant"`
	UniqueCompteurs    int64            `json:"unique_compteurs_count"`
	UniqueIPs          int64            `json:"unique_ips_count"`
	AvgExecutionTimeMs float64          `json:"avg_execution_time_ms"`
	MaxExecutionTimeMs int64            `json:"max_execution_time_ms"`
	MinExecutionTimeMs int64            `json:"min_execution_time_ms"`
}
