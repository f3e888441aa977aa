package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/shopspring/decimal"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"github.com/smallbiznis/woyofal/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	simulateCompteur string
	simulateMontant  string
)

type envelope struct {
	Data    any    `json:"data"`
	Statut  string `json:"statut"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var errSimulationFailed = errors.New("simulation failed")

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Estimate a purchase without recording it",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(simulateMontant)
		if err != nil {
			return writeEnvelope(envelope{
				Statut:  "error",
				Code:    http.StatusBadRequest,
				Message: "Le montant doit être un nombre",
			})
		}

		var svc purchasedomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			sim, err := svc.Simulate(ctx, purchasedomain.PurchaseRequest{
				Compteur: simulateCompteur,
				Montant:  amount,
			})
			if err != nil {
				status, message := server.MapError(err)
				return writeEnvelope(envelope{Statut: "error", Code: status, Message: message})
			}
			return writeEnvelope(envelope{
				Data:    sim,
				Statut:  "simulation",
				Code:    http.StatusOK,
				Message: "Simulation d'achat réalisée",
			})
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCompteur, "compteur", "", "meter number")
	simulateCmd.Flags().StringVar(&simulateMontant, "montant", "", "amount in FCFA")
	_ = simulateCmd.MarkFlagRequired("compteur")
	_ = simulateCmd.MarkFlagRequired("montant")
}

// writeEnvelope prints the response and turns error envelopes into a non-zero exit.
func writeEnvelope(env envelope) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return err
	}
	if env.Code != http.StatusOK {
		return errSimulationFailed
	}
	return nil
}
