package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.uber.org/fx"

	"github.com/virtuolot/showroom-assist-service/config"
	infrapubsub "github.com/virtuolot/showroom-assist-service/infra/pubsub"
	"github.com/virtuolot/showroom-assist-service/infra/telemetry"
	adapterpubsub "github.com/virtuolot/showroom-assist-service/internal/adapter/pubsub"
)

// ProvideTelemetry starts the OTLP pipelines and flushes them after every
// other component has stopped.
func ProvideTelemetry(lc fx.Lifecycle, cfg *config.Config) (*telemetry.Provider, error) {
	tel, err := telemetry.NewProvider(context.Background(), cfg.Telemetry, ServiceName, version)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tel.Shutdown(ctx)
		},
	})

	return tel, nil
}

// ProvideLogger builds the process-wide slog logger. With log export enabled
// records go through the OTLP bridge; otherwise they go to stdout in the
// configured format.
func ProvideLogger(cfg *config.Config, tel *telemetry.Provider) *slog.Logger {
	var handler slog.Handler

	if lp := tel.LoggerProvider(); lp != nil {
		handler = otelslog.NewHandler(ServiceName,
			otelslog.WithLoggerProvider(lp),
			otelslog.WithVersion(version),
		)
	} else {
		opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
		if cfg.Log.Format == "text" {
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}
	}

	logger := slog.New(handler).With("service", ServiceName)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ProvideWatermillLogger adapts the service logger for watermill internals.
func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

// ProvidePubSub owns the in-process bus and the optional AMQP mirror.
func ProvidePubSub(lc fx.Lifecycle, cfg *config.Config, wmLogger watermill.LoggerAdapter) (*infrapubsub.Provider, error) {
	provider, err := infrapubsub.NewProvider(cfg, wmLogger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Close()
		},
	})

	return provider, nil
}

// ProvideDispatcher exposes the domain-facing publish surface.
func ProvideDispatcher(p *infrapubsub.Provider, logger *slog.Logger) adapterpubsub.EventDispatcher {
	return adapterpubsub.NewEventDispatcher(p.Publisher(), p.Export(), logger)
}

// ProvideSubscriber exposes the bus side the consumer router reads from.
func ProvideSubscriber(p *infrapubsub.Provider) message.Subscriber {
	return p.Subscriber()
}
