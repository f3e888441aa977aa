package scheduler

import (
	"context"

	"go.uber.org/fx"
)

// Components provides the scheduler without starting its loop.
var Components = fx.Options(
	fx.Provide(ProvideConfig),
	fx.Provide(New),
)

var Module = fx.Module("scheduler",
	Components,
	fx.Invoke(Start),
)

// Start runs the scheduler loop for the lifetime of the fx app.
func Start(lc fx.Lifecycle, sched *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				sched.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
