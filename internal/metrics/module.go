package metrics

import (
	"go.uber.org/fx"

	"github.com/virtuolot/showroom-assist-service/internal/domain/docroom"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
)

var Module = fx.Module("metrics",
	// [BINDING] Gauges pull from the live store; nothing to provide.
	fx.Invoke(func(store registry.Storer, hub docroom.Hubber) {
		BindRegistry(store.Stats)
		BindRooms(hub.Rooms)
	}),
)
