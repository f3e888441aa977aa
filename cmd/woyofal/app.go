package main

import (
	"context"
	"errors"
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
	"github.com/smallbiznis/woyofal/internal/tariff"
	"github.com/smallbiznis/woyofal/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}

// infrastructure is shared by every command that touches the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		fxLogger(),
	)
}

func domains() fx.Option {
	return fx.Options(
		customer.Module,
		meter.Module,
		tariff.Module,
		consumption.Module,
		audit.Module,
		purchase.Module,
	)
}

func fxLogger() fx.Option {
	if !verbose {
		return fx.NopLogger
	}
	return fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	})
}

// quietLogs lowers the log level so command output stays readable.
func quietLogs() fx.Option {
	return fx.Decorate(func(cfg observability.Config) observability.Config {
		if !verbose {
			cfg.LogLevel = "warn"
		}
		return cfg
	})
}

// runTask starts a short lived app, calls fn and stops the app again.
// Dependencies reach fn through fx.Populate targets in opts.
func runTask(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	return errors.Join(runErr, app.Stop(stopCtx))
}
