package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		// migrations run while the graph is built
		return runTask(cmd.Context(), func(context.Context) error { return nil },
			infrastructure(),
			fx.Invoke(reportDone("migrations applied")),
		)
	},
}
