package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation               = errors.New("purchase_validation_failed")
	ErrMeterNotFound            = errors.New("meter_not_found")
	ErrIdentifierSpaceExhausted = errors.New("purchase_identifier_space_exhausted")
	ErrPersistence              = errors.New("purchase_persistence_failed")
	ErrConsistency              = errors.New("purchase_consistency_warning")
	ErrInternal                 = errors.New("purchase_internal_error")
	ErrNotFound                 = errors.New("purchase_not_found")
	ErrInvalidReference         = errors.New("invalid_purchase_reference")
)

// ValidationError is a caller-fixable problem with the purchase request.
// Message is safe to return to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// MeterNotFoundError covers unknown meters as well as inactive ones.
type MeterNotFoundError struct {
	Numero  string
	Message string
	cause   error
}

func NewMeterNotFound(numero, message string, cause error) *MeterNotFoundError {
	return &MeterNotFoundError{Numero: numero, Message: message, cause: cause}
}

func (e *MeterNotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("meter %s: %s", e.Numero, e.cause)
	}
	return fmt.Sprintf("meter %s not found", e.Numero)
}

func (e *MeterNotFoundError) Is(target error) bool {
	return target == ErrMeterNotFound
}

func (e *MeterNotFoundError) Unwrap() error {
	return e.cause
}

// ConsistencyError reports a purchase whose commit outcome could not be
// confirmed. The transaction row may or may not exist.
type ConsistencyError struct {
	Reference string
	Cause     error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("purchase %s commit outcome unknown: %v", e.Reference, e.Cause)
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

func (e *ConsistencyError) Unwrap() error {
	return e.Cause
}
