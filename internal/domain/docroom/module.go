package docroom

import "go.uber.org/fx"

var Module = fx.Module("docroom",
	fx.Provide(
		NewHub,
		fx.Annotate(
			func(h *Hub) Hubber { return h },
			fx.As(new(Hubber)),
		),
	),
)
