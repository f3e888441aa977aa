package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/woyofal/internal/audit"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/internal/consumption"
	"github.com/smallbiznis/woyofal/internal/customer"
	"github.com/smallbiznis/woyofal/internal/meter"
	"github.com/smallbiznis/woyofal/internal/migration"
	"github.com/smallbiznis/woyofal/internal/observability"
	"github.com/smallbiznis/woyofal/internal/purchase"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"github.com/smallbiznis/woyofal/internal/seed"
	"github.com/smallbiznis/woyofal/internal/server"
	"github.com/smallbiznis/woyofal/internal/tariff"
	"github.com/smallbiznis/woyofal/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		customer.Module,
		meter.Module,
		tariff.Module,
		consumption.Module,
		audit.Module,
		purchase.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
