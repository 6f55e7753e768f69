// Package metrics provides the Prometheus instruments of the showroom
// assist service. Counters are pushed from the hot paths; registry gauges
// pull a fresh store census at scrape time, so the exposition never lags
// the queue.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

var (
	// Counters

	// QueueChangesTotal counts committed queue mutations by kind.
	QueueChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showroom_queue_changes_total",
		Help: "Total number of committed queue mutations, by change kind.",
	}, []string{"change"})

	// BroadcastsTotal counts snapshot fan-outs to the monitor roster.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showroom_queue_broadcasts_total",
		Help: "Total number of queue_update fan-outs.",
	})

	// BroadcastDeliveriesTotal counts individual snapshot deliveries.
	BroadcastDeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showroom_queue_broadcast_deliveries_total",
		Help: "Total number of queue_update frames delivered to representative connections.",
	})

	// FramesReceivedTotal counts inbound duplex frames by wire type.
	FramesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showroom_frames_received_total",
		Help: "Total number of inbound duplex frames, by frame type.",
	}, []string{"type"})

	// FramesSentTotal counts outbound duplex frames by event kind.
	FramesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showroom_frames_sent_total",
		Help: "Total number of outbound duplex frames, by event kind.",
	}, []string{"kind"})

	// JanitorEvictedShoppersTotal counts grace-window evictions.
	JanitorEvictedShoppersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showroom_janitor_evicted_shoppers_total",
		Help: "Total number of disconnected shopper entries reclaimed by the janitor.",
	})

	// JanitorExpiredCollabsTotal counts TTL-swept collaboration requests.
	JanitorExpiredCollabsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showroom_janitor_expired_collabs_total",
		Help: "Total number of pending collaboration requests discarded after the TTL.",
	})

	// Histograms

	// ChatTurnSeconds observes one full chat completion round trip.
	ChatTurnSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "showroom_chat_turn_seconds",
		Help:    "Latency of one chat completion round trip, by outcome.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})
)

// Registry gauges read through late-bound sources so the package stays
// import-light and tests never need a live store.
var (
	registrySource atomic.Value // func() model.RegistryStats
	roomsSource    atomic.Value // func() int
)

// BindRegistry attaches the store census behind the registry gauges.
func BindRegistry(stats func() model.RegistryStats) {
	registrySource.Store(stats)
}

// BindRooms attaches the collaboration-room count behind its gauge.
func BindRooms(rooms func() int) {
	roomsSource.Store(rooms)
}

func registryGauge(name, help string, field func(model.RegistryStats) float64) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
		if f, ok := registrySource.Load().(func() model.RegistryStats); ok {
			return field(f())
		}
		return 0
	})
}

var (
	_ = registryGauge("showroom_queue_shoppers", "Current number of shopper entries in the registry.",
		func(st model.RegistryStats) float64 { return float64(st.Shoppers) })
	_ = registryGauge("showroom_queue_connected_shoppers", "Current number of shopper entries with a live channel.",
		func(st model.RegistryStats) float64 { return float64(st.ConnectedShoppers) })
	_ = registryGauge("showroom_queue_waiting_shoppers", "Current size of the waiting line (connected and unassigned).",
		func(st model.RegistryStats) float64 { return float64(st.WaitingShoppers) })
	_ = registryGauge("showroom_queue_assigned_shoppers", "Current number of shoppers assigned to a representative.",
		func(st model.RegistryStats) float64 { return float64(st.AssignedShoppers) })
	_ = registryGauge("showroom_representatives_connected", "Current number of registered representative connections.",
		func(st model.RegistryStats) float64 { return float64(st.Representatives) })
	_ = registryGauge("showroom_collab_pending_requests", "Current number of pending collaboration requests.",
		func(st model.RegistryStats) float64 { return float64(st.PendingCollabs) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "showroom_collab_rooms",
		Help: "Current number of live collaboration document rooms.",
	}, func() float64 {
		if f, ok := roomsSource.Load().(func() int); ok {
			return float64(f())
		}
		return 0
	})
)

// RecordQueueChange increments the mutation counter for one change kind.
func RecordQueueChange(change string) {
	QueueChangesTotal.WithLabelValues(change).Inc()
}

// RecordBroadcast counts one fan-out and its delivered frames.
func RecordBroadcast(delivered int) {
	BroadcastsTotal.Inc()
	BroadcastDeliveriesTotal.Add(float64(delivered))
}

// RecordFrameIn increments the inbound frame counter.
func RecordFrameIn(frameType string) {
	FramesReceivedTotal.WithLabelValues(frameType).Inc()
}

// RecordFrameOut increments the outbound frame counter.
func RecordFrameOut(kind string) {
	FramesSentTotal.WithLabelValues(kind).Inc()
}

// RecordEvictedShoppers adds one janitor sweep's eviction count.
func RecordEvictedShoppers(n int) {
	JanitorEvictedShoppersTotal.Add(float64(n))
}

// RecordExpiredCollabs adds one janitor sweep's TTL-expiry count.
func RecordExpiredCollabs(n int) {
	JanitorExpiredCollabsTotal.Add(float64(n))
}

// ObserveChatTurn records one chat round trip.
func ObserveChatTurn(d time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	ChatTurnSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}
