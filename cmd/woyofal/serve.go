package main

import (
	"github.com/smallbiznis/woyofal/internal/metricspush"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"github.com/smallbiznis/woyofal/internal/scheduler"
	"github.com/smallbiznis/woyofal/internal/seed"
	"github.com/smallbiznis/woyofal/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var runScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []fx.Option{
			infrastructure(),
			seed.Module,
			domains(),
			ratelimit.Module,
			server.Module,
		}
		if runScheduler {
			opts = append(opts, metricspush.Module, scheduler.Module)
		}
		fx.New(opts...).Run()
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&runScheduler, "scheduler", true, "run the background jobs in this process")
}
