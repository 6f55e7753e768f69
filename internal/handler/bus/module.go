package bus

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("bus_handler",
	fx.Provide(
		NewQueueEventHandler,
		NewWatermillRouter,
	),

	fx.Invoke(RegisterAndRun),
)

// RegisterAndRun binds the consumer pipeline and keeps the router running
// for the application lifetime. Startup blocks until the router reports
// running so no queue event published after OnStart can slip past an
// unstarted consumer.
func RegisterAndRun(lc fx.Lifecycle, router *message.Router, h *QueueEventHandler, sub message.Subscriber, logger *slog.Logger) error {
	if err := h.RegisterHandlers(router, sub); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				done <- router.Run(runCtx)
			}()

			select {
			case <-router.Running():
				logger.Info("BUS_ROUTER_RUNNING")
				return nil
			case err := <-done:
				cancel()
				return err
			case <-ctx.Done():
				cancel()
				return ctx.Err()
			}
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return nil
}
