package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/woyofal/internal/audit"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/internal/consumption"
	"github.com/smallbiznis/woyofal/internal/metricspush"
	"github.com/smallbiznis/woyofal/internal/observability"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"github.com/smallbiznis/woyofal/internal/scheduler"
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

		// Services the jobs call into
		consumption.Module,
		audit.Module,
		ratelimit.Module,
		metricspush.Module,

		// No server module. Migrations are owned by the api process.
		scheduler.Module,
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
