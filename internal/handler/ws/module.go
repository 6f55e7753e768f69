package ws

import (
	"go.uber.org/fx"
)

var Module = fx.Module(
	"ws_handlers",

	fx.Provide(
		NewShopperHandler,
		NewMonitorHandler,
		NewCollabHandler,
	),
)
