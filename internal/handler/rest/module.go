package rest

import (
	"go.uber.org/fx"

	"github.com/virtuolot/showroom-assist-service/internal/inventory"
)

var Module = fx.Module("handler_rest",
	fx.Provide(
		func(c *inventory.Catalog) CarLister { return c },
		NewHandler,
	),
)
