package main

import (
	"context"
	"fmt"
	"strings"

	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var tariffCmd = &cobra.Command{
	Use:   "tariff",
	Short: "Inspect and manage the tariff schedule",
}

var tariffListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the active tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc tariffdomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			tiers, err := svc.Summaries(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tier := range tiers {
				fmt.Fprintf(out, "%-12s %-28s %s\n", tier.Nom, tier.Description, tier.Prix)
			}
			return nil
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

var tariffDeactivateCmd = &cobra.Command{
	Use:   "deactivate <code>",
	Short: "Remove a tier from the active schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc tariffdomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			return svc.Deactivate(ctx, args[0])
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers",
}

var customerCreateReq customerdomain.CreateCustomerRequest

var customerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a customer and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc customerdomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			customer, err := svc.Create(ctx, customerCreateReq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", customer.ID, customer.DisplayName())
			return nil
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

var customerShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc customerdomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			customer, err := svc.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", customer.ID, customer.DisplayName(), customer.Status)
			if customer.Telephone != nil {
				fmt.Fprintf(out, "telephone: %s\n", *customer.Telephone)
			}
			if customer.Email != nil {
				fmt.Fprintf(out, "email: %s\n", *customer.Email)
			}
			return nil
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

var meterCmd = &cobra.Command{
	Use:   "meter",
	Short: "Manage meters",
}

var meterStatusCmd = &cobra.Command{
	Use:   "status <numero> <active|inactive>",
	Short: "Activate or deactivate a meter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := meterdomain.Status(strings.ToLower(strings.TrimSpace(args[1])))
		if status != meterdomain.StatusActive && status != meterdomain.StatusInactive {
			return fmt.Errorf("unknown meter status %q", args[1])
		}

		var svc meterdomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			return svc.SetStatus(ctx, args[0], status)
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

var meterRegisterReq meterdomain.RegisterRequest

var meterRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Attach a new prepaid meter to a customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc meterdomain.Service
		return runTask(cmd.Context(), func(ctx context.Context) error {
			meter, err := svc.Register(ctx, meterRegisterReq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", meter.Numero, meter.Ville)
			return nil
		}, infrastructure(), quietLogs(), domains(), fx.Populate(&svc))
	},
}

func init() {
	tariffCmd.AddCommand(tariffListCmd)
	tariffCmd.AddCommand(tariffDeactivateCmd)
	meterCmd.AddCommand(meterStatusCmd)
	meterCmd.AddCommand(meterRegisterCmd)
	customerCmd.AddCommand(customerCreateCmd)
	customerCmd.AddCommand(customerShowCmd)

	f := customerCreateCmd.Flags()
	f.StringVar(&customerCreateReq.Nom, "nom", "", "family name")
	f.StringVar(&customerCreateReq.Prenom, "prenom", "", "given name")
	f.StringVar(&customerCreateReq.Telephone, "telephone", "", "Senegalese mobile number")
	f.StringVar(&customerCreateReq.Email, "email", "", "contact email")
	_ = customerCreateCmd.MarkFlagRequired("nom")
	_ = customerCreateCmd.MarkFlagRequired("prenom")

	f = meterRegisterCmd.Flags()
	f.StringVar(&meterRegisterReq.Numero, "numero", "", "meter number")
	f.StringVar(&meterRegisterReq.ClientID, "client", "", "customer id")
	f.StringVar(&meterRegisterReq.Adresse, "adresse", "", "street address")
	f.StringVar(&meterRegisterReq.Quartier, "quartier", "", "neighbourhood")
	f.StringVar(&meterRegisterReq.Ville, "ville", "", "city (default Dakar)")
	_ = meterRegisterCmd.MarkFlagRequired("numero")
	_ = meterRegisterCmd.MarkFlagRequired("client")
}
