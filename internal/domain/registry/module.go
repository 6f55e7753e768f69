package registry

import (
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		func() *Store {
			return NewStore()
		},
		fx.Annotate(
			func(s *Store) Storer { return s },
			fx.As(new(Storer)),
		),
	),
)
