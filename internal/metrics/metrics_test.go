package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

// gaugeValue reads a registered gauge through the default gatherer, the same
// path the /metrics endpoint takes.
func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.Metric)
			return mf.Metric[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

// histogramCount returns the observation count for one outcome label, or 0
// before the first observation mints the child.
func histogramCount(t *testing.T, name, outcome string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			for _, lp := range m.Label {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestRecordQueueChange(t *testing.T) {
	before := testutil.ToFloat64(QueueChangesTotal.WithLabelValues("joined"))

	RecordQueueChange("joined")

	assert.Equal(t, before+1, testutil.ToFloat64(QueueChangesTotal.WithLabelValues("joined")))
}

func TestRecordBroadcastCountsDeliveries(t *testing.T) {
	fanouts := testutil.ToFloat64(BroadcastsTotal)
	deliveries := testutil.ToFloat64(BroadcastDeliveriesTotal)

	RecordBroadcast(3)

	assert.Equal(t, fanouts+1, testutil.ToFloat64(BroadcastsTotal))
	assert.Equal(t, deliveries+3, testutil.ToFloat64(BroadcastDeliveriesTotal))
}

func TestRecordFrameCounters(t *testing.T) {
	inBefore := testutil.ToFloat64(FramesReceivedTotal.WithLabelValues("join_queue"))
	outBefore := testutil.ToFloat64(FramesSentTotal.WithLabelValues("queue_update"))

	RecordFrameIn("join_queue")
	RecordFrameOut("queue_update")

	assert.Equal(t, inBefore+1, testutil.ToFloat64(FramesReceivedTotal.WithLabelValues("join_queue")))
	assert.Equal(t, outBefore+1, testutil.ToFloat64(FramesSentTotal.WithLabelValues("queue_update")))
}

func TestRecordJanitorCounters(t *testing.T) {
	evicted := testutil.ToFloat64(JanitorEvictedShoppersTotal)
	expired := testutil.ToFloat64(JanitorExpiredCollabsTotal)

	RecordEvictedShoppers(2)
	RecordExpiredCollabs(1)

	assert.Equal(t, evicted+2, testutil.ToFloat64(JanitorEvictedShoppersTotal))
	assert.Equal(t, expired+1, testutil.ToFloat64(JanitorExpiredCollabsTotal))
}

func TestRegistryGaugesFollowBoundSource(t *testing.T) {
	BindRegistry(func() model.RegistryStats {
		return model.RegistryStats{
			Shoppers:          4,
			ConnectedShoppers: 3,
			WaitingShoppers:   2,
			AssignedShoppers:  1,
			Representatives:   5,
			PendingCollabs:    6,
		}
	})
	BindRooms(func() int { return 7 })

	assert.Equal(t, 4.0, gaugeValue(t, "showroom_queue_shoppers"))
	assert.Equal(t, 3.0, gaugeValue(t, "showroom_queue_connected_shoppers"))
	assert.Equal(t, 2.0, gaugeValue(t, "showroom_queue_waiting_shoppers"))
	assert.Equal(t, 1.0, gaugeValue(t, "showroom_queue_assigned_shoppers"))
	assert.Equal(t, 5.0, gaugeValue(t, "showroom_representatives_connected"))
	assert.Equal(t, 6.0, gaugeValue(t, "showroom_collab_pending_requests"))
	assert.Equal(t, 7.0, gaugeValue(t, "showroom_collab_rooms"))
}

func TestObserveChatTurnLabelsOutcome(t *testing.T) {
	okBefore := histogramCount(t, "showroom_chat_turn_seconds", "ok")
	errBefore := histogramCount(t, "showroom_chat_turn_seconds", "error")

	ObserveChatTurn(250*time.Millisecond, true)
	ObserveChatTurn(time.Second, false)

	assert.Equal(t, okBefore+1, histogramCount(t, "showroom_chat_turn_seconds", "ok"))
	assert.Equal(t, errBefore+1, histogramCount(t, "showroom_chat_turn_seconds", "error"))
}
