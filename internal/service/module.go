package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewQueueService,
			fx.As(new(Queuer)),
		),
		fx.Annotate(
			NewBroadcastService,
			fx.As(new(Broadcaster)),
		),
		fx.Annotate(
			NewChatService,
			fx.As(new(Chatter)),
		),
	),

	// [DECORATION_LAYER] Intercept Chatter to add cross-cutting concerns
	fx.Decorate(func(orig Chatter, logger *slog.Logger) Chatter {
		return &ChatMiddleware{
			Next:   orig,
			Logger: logger,
		}
	}),
)
