package domain

import (
	"context"
	"errors"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Meter, error)
	// Lookup resolves an active meter and its customer.
	Lookup(ctx context.Context, numero string) (*MeterWithClient, error)
	SetStatus(ctx context.Context, numero string, status Status) error
}

type RegisterRequest struct {
	Numero   string `json:"numero"`
	ClientID string `json:"client_id"`
	Adresse  string `json:"adresse"`
	Quartier string `json:"quartier"`
	Ville    string `json:"ville"`
}

var (
	ErrInvalidNumero    = errors.New("invalid_meter_number")
	ErrInvalidClient    = errors.New("invalid_client")
	ErrInvalidStatus    = errors.New("invalid_meter_status")
	ErrInvalidAddress   = errors.New("invalid_meter_address")
	ErrAlreadyExists    = errors.New("meter_already_exists")
	ErrNotFound         = errors.New("meter_not_found")
	ErrInactive         = errors.New("meter_inactive")
	ErrInactiveCustomer = errors.New("meter_customer_inactive")
)
