package bus

import (
	"context"
	"log/slog"

	"github.com/virtuolot/showroom-assist-service/internal/metrics"
	"github.com/virtuolot/showroom-assist-service/internal/service/dto"
)

// [ON_QUEUE_CHANGED]
// One committed store mutation arrived; rebuild the monitor snapshot and
// fan it out. The event carries identifiers only, the handler reads fresh
// state, so a burst of changes collapses into snapshots that each reflect
// the latest committed state.
func (h *QueueEventHandler) OnQueueChangedV1(ctx context.Context, raw *dto.QueueChangedV1) error {
	ev := raw.ToDomain()

	delivered := h.broadcaster.BroadcastQueue(ctx)

	metrics.RecordQueueChange(string(ev.Change))
	metrics.RecordBroadcast(delivered)

	h.logger.Debug("QUEUE_CHANGE_FANNED_OUT",
		slog.String("change", string(ev.Change)),
		slog.String("shopper_id", ev.ShopperID),
		slog.String("trace_id", TraceID(ctx)),
		slog.Int("delivered", delivered),
	)
	return nil
}
