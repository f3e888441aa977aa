package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/internal/format"
	meterservice "github.com/smallbiznis/woyofal/internal/meter/service"
	"github.com/smallbiznis/woyofal/internal/purchase/domain"
)

// validateRequest returns the cleaned meter number and amount, or the first
// failing check as a *domain.ValidationError.
func validateRequest(policy config.PurchasePolicy, req domain.PurchaseRequest) (string, decimal.Decimal, error) {
	if strings.TrimSpace(req.Compteur) == "" {
		return "", decimal.Zero, &domain.ValidationError{Field: "compteur", Message: "Le numéro de compteur est obligatoire"}
	}
	numero := meterservice.NormalizeNumero(req.Compteur)
	if len(numero) < policy.MeterMinDigits || len(numero) > policy.MeterMaxDigits {
		return "", decimal.Zero, &domain.ValidationError{
			Field:   "compteur",
			Message: fmt.Sprintf("Le numéro de compteur doit contenir entre %d et %d chiffres", policy.MeterMinDigits, policy.MeterMaxDigits),
		}
	}

	amount := req.Montant
	if !amount.IsPositive() {
		return "", decimal.Zero, &domain.ValidationError{Field: "montant", Message: "Le montant doit être supérieur à 0"}
	}
	minAmount := decimal.NewFromInt(policy.MinAmount)
	if amount.LessThan(minAmount) {
		return "", decimal.Zero, &domain.ValidationError{
			Field:   "montant",
			Message: fmt.Sprintf("Le montant minimum est de %s FCFA", format.Number(minAmount, 0)),
		}
	}
	maxAmount := decimal.NewFromInt(policy.MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return "", decimal.Zero, &domain.ValidationError{
			Field:   "montant",
			Message: fmt.Sprintf("Le montant maximum est de %s FCFA", format.Number(maxAmount, 0)),
		}
	}
	if policy.AmountStep > 0 && !amount.Mod(decimal.NewFromInt(policy.AmountStep)).IsZero() {
		return "", decimal.Zero, &domain.ValidationError{
			Field:   "montant",
			Message: fmt.Sprintf("Le montant doit être un multiple de %d FCFA", policy.AmountStep),
		}
	}

	return numero, amount, nil
}
