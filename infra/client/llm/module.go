package llm

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"llm_client",

	fx.Provide(
		New,
		fx.Annotate(
			func(c *Client) Completer { return c },
			fx.As(new(Completer)),
		),
	),

	// [LIFECYCLE] Ensures pooled provider connections are closed on shutdown
	fx.Invoke(func(lc fx.Lifecycle, client *Client) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}),
)
