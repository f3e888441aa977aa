package main

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "woyofal",
	Short: "Prepaid electricity purchase engine",
	Long: `woyofal sells prepaid electricity credit against a monthly tiered tariff.

Examples:
  woyofal serve
  woyofal migrate
  woyofal seed --demo
  woyofal simulate --compteur 123456789 --montant 5000
  woyofal customer create --nom DIOP --prenom Amadou --telephone 771234567
  woyofal meter register --numero 123456789 --client <id>
  woyofal scheduler run period_close`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print dependency graph events")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(tariffCmd)
	rootCmd.AddCommand(meterCmd)
	rootCmd.AddCommand(customerCmd)
	rootCmd.AddCommand(versionCmd)
}
