package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/woyofal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module seeds reference data. It must be listed after the migrations module.
var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		ctx := context.Background()
		tiers, err := EnsureTariffSchedule(ctx, conn, node)
		if err != nil {
			return err
		}
		if tiers > 0 {
			log.Info("tariff schedule seeded", zap.Int("tiers", tiers))
		}

		if !cfg.SeedDemoData {
			return nil
		}
		meters, err := EnsureDemoData(ctx, conn, node)
		if err != nil {
			return err
		}
		log.Info("demo data seeded", zap.Int("meters", meters))
		return nil
	}),
)
