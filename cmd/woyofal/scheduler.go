package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/smallbiznis/woyofal/internal/metricspush"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"github.com/smallbiznis/woyofal/internal/scheduler"
	"github.com/smallbiznis/woyofal/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func schedulerModules() fx.Option {
	return fx.Options(
		infrastructure(),
		domains(),
		ratelimit.Module,
		metricspush.Module,
	)
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fx.New(
			schedulerModules(),
			seed.Module,
			scheduler.Module,
		).Run()
		return nil
	},
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run one job immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sched *scheduler.Scheduler
		return runTask(cmd.Context(), func(ctx context.Context) error {
			return sched.RunJob(ctx, args[0])
		}, schedulerModules(), scheduler.Components, fx.Populate(&sched))
	},
}

var schedulerJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List enabled jobs and their next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sched *scheduler.Scheduler
		return runTask(cmd.Context(), func(ctx context.Context) error {
			next := make(map[string]string)
			for name, at := range sched.Jobs() {
				next[name] = at.Format(time.RFC3339)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(next)
		}, schedulerModules(), quietLogs(), scheduler.Components, fx.Populate(&sched))
	},
}

func init() {
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerJobsCmd)
}
