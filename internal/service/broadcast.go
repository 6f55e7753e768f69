package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
)

// fanoutWorkers bounds the parallel pushes per snapshot so one saturated
// monitor cannot stretch the whole fan-out to N*sendTimeout.
const fanoutWorkers = 8

// Broadcaster pushes the derived queue snapshot to every representative.
type Broadcaster interface {
	BroadcastQueue(ctx context.Context) int
}

type BroadcastService struct {
	store       registry.Storer
	logger      *slog.Logger
	sendTimeout time.Duration
}

func NewBroadcastService(store registry.Storer, logger *slog.Logger, cfg *config.Config) *BroadcastService {
	return &BroadcastService{
		store:       store,
		logger:      logger,
		sendTimeout: cfg.Service.SendTimeout,
	}
}

// BroadcastQueue takes one snapshot, wraps it in a single queue_update frame
// and fans it out to every registered representative. The frame instance is
// shared across connections; the first write pump to marshal it fills the
// encoding cache for the rest. Snapshots are sheddable under backpressure
// because any later snapshot subsumes this one. Returns the delivered count.
func (b *BroadcastService) BroadcastQueue(ctx context.Context) int {
	frame := event.NewFrame(event.QueueUpdate, event.PriorityLow, &model.QueueUpdatePayload{
		Queue: b.store.SnapshotQueue(),
	})

	conns := b.store.RepConns()
	if len(conns) == 0 {
		return 0
	}

	// [PARALLEL_FANOUT] Pushes are independent per connector; the group keeps
	// the whole fan-out near one sendTimeout instead of summing them.
	var delivered atomic.Int64
	var g errgroup.Group
	g.SetLimit(fanoutWorkers)
	for _, conn := range conns {
		g.Go(func() error {
			if conn.Send(frame, b.sendTimeout) {
				delivered.Add(1)
				return nil
			}
			// Dead or saturated monitor channel. Roster removal belongs to
			// the endpoint's close path, not here.
			b.logger.Debug("SNAPSHOT_DROPPED",
				slog.String("conn_id", conn.GetID().String()),
				slog.Uint64("total_dropped", conn.Dropped()),
			)
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Debug("QUEUE_SNAPSHOT_FANOUT",
		slog.Int("representatives", len(conns)),
		slog.Int("delivered", int(delivered.Load())),
	)
	return int(delivered.Load())
}
