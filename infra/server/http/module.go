package httpserver

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("http_server",
	fx.Provide(
		NewRouter,
		NewServer,
	),

	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return s.Start()
			},
			OnStop: func(ctx context.Context) error {
				return s.Stop(ctx)
			},
		})
	}),
)
