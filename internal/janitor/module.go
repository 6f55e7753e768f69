package janitor

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("janitor",
	fx.Provide(New),

	fx.Invoke(func(lc fx.Lifecycle, j *Janitor) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				j.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				j.Stop()
				return nil
			},
		})
	}),
)
