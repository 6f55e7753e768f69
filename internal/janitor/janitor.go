// Package janitor reclaims state nobody is coming back for: shopper entries
// disconnected past the grace window, and collaboration requests left
// unanswered past their TTL. Live connections never expire.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/adapter/pubsub"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	"github.com/virtuolot/showroom-assist-service/internal/metrics"
)

// Janitor runs the periodic sweeps over the registry. One instance per
// process; the fx lifecycle owns start and stop.
type Janitor struct {
	store      registry.Storer
	dispatcher pubsub.EventDispatcher
	logger     *slog.Logger

	interval time.Duration
	grace    time.Duration
	ttl      time.Duration

	stop chan struct{}
	done chan struct{}
}

func New(store registry.Storer, dispatcher pubsub.EventDispatcher, logger *slog.Logger, cfg *config.Config) *Janitor {
	return &Janitor{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   cfg.Queue.SweepInterval,
		grace:      cfg.Queue.GracePeriod,
		ttl:        cfg.Collab.PendingTTL,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (j *Janitor) Start() {
	go j.run()
	j.logger.Info("[JANITOR] started",
		slog.Duration("interval", j.interval),
		slog.Duration("grace_period", j.grace),
		slog.Duration("collab_ttl", j.ttl),
	)
}

// Stop halts the loop and waits for an in-flight sweep to finish. Sweeps
// run to completion; there is no mid-sweep cancellation.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.Sweep(context.Background())
		}
	}
}

// Sweep runs both passes once and reports (evicted shoppers, expired
// collaboration requests). Exported for tests and for the stats surface.
func (j *Janitor) Sweep(ctx context.Context) (int, int) {
	evicted := j.store.SweepDisconnected(j.grace)
	if len(evicted) > 0 {
		for _, entry := range evicted {
			j.logger.Info("[JANITOR] evicted disconnected shopper",
				slog.String("shopper_id", entry.ShopperID),
				slog.Int64("disconnected_at", entry.DisconnectedAt),
				slog.String("assigned_rep_id", entry.AssignedRepID),
			)
		}
		metrics.RecordEvictedShoppers(len(evicted))

		// One broadcast per sweep, not per eviction: representatives only
		// need the post-sweep snapshot.
		if err := j.dispatcher.Publish(ctx, event.NewQueueChanged(event.ChangeEvicted, "", "")); err != nil {
			j.logger.Error("QUEUE_EVENT_PUBLISH_FAILED", "change", event.ChangeEvicted, "err", err)
		}
	}

	expired := j.store.SweepExpiredCollabs(j.ttl)
	if expired > 0 {
		metrics.RecordExpiredCollabs(expired)
		j.logger.Info("[JANITOR] expired pending collaboration requests",
			slog.Int("count", expired),
		)
	}

	return len(evicted), expired
}
