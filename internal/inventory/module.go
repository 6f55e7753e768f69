package inventory

import (
	"context"

	"go.uber.org/fx"

	"github.com/virtuolot/showroom-assist-service/config"
)

var Module = fx.Module("inventory",
	fx.Provide(NewCatalog),

	fx.Invoke(func(lc fx.Lifecycle, c *Catalog, cfg *config.Config) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if !cfg.Inventory.Watch {
					return nil
				}
				return c.Watch()
			},
			OnStop: func(ctx context.Context) error {
				return c.Close()
			},
		})
	}),
)
