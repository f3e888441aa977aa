package main

import (
	"context"

	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var seedDemo bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the tariff schedule and optional demo customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(cmd.Context(), func(context.Context) error { return nil },
			infrastructure(),
			fx.Decorate(func(cfg config.Config) config.Config {
				if seedDemo {
					cfg.SeedDemoData = true
				}
				return cfg
			}),
			seed.Module,
			fx.Invoke(reportDone("seed complete")),
		)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also insert demo customers and meters")
}

func reportDone(msg string) func(*zap.Logger) {
	return func(log *zap.Logger) {
		log.Info(msg)
	}
}
