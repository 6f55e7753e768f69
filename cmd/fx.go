package cmd

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/infra/client/llm"
	httpserver "github.com/virtuolot/showroom-assist-service/infra/server/http"
	"github.com/virtuolot/showroom-assist-service/internal/domain/docroom"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	"github.com/virtuolot/showroom-assist-service/internal/handler/bus"
	"github.com/virtuolot/showroom-assist-service/internal/handler/rest"
	"github.com/virtuolot/showroom-assist-service/internal/handler/ws"
	"github.com/virtuolot/showroom-assist-service/internal/inventory"
	"github.com/virtuolot/showroom-assist-service/internal/janitor"
	"github.com/virtuolot/showroom-assist-service/internal/metrics"
	"github.com/virtuolot/showroom-assist-service/internal/service"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideTelemetry,
			ProvideLogger,
			ProvideWatermillLogger,
			ProvidePubSub,
			ProvideDispatcher,
			ProvideSubscriber,
		),

		registry.Module,
		docroom.Module,
		service.Module,
		llm.Module,
		inventory.Module,
		ws.Module,
		rest.Module,
		bus.Module,
		janitor.Module,
		metrics.Module,
		httpserver.Module,

		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
	)
}
