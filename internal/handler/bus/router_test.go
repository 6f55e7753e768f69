package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuolot/showroom-assist-service/internal/adapter/pubsub"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/service/dto"
)

// signalBroadcaster reports every fan-out through a channel so tests can
// block on delivery instead of sleeping.
type signalBroadcaster struct {
	calls chan string
}

func (b *signalBroadcaster) BroadcastQueue(ctx context.Context) int {
	b.calls <- TraceID(ctx)
	return 1
}

type chanDispatcher struct {
	ps *gochannel.GoChannel
}

func (d *chanDispatcher) Publish(context.Context, event.Eventer) error { return nil }
func (d *chanDispatcher) Publisher() message.Publisher                 { return d.ps }

func TestOnQueueChangedFansOut(t *testing.T) {
	calls := make(chan string, 1)
	h := NewQueueEventHandler(
		&signalBroadcaster{calls: calls},
		&chanDispatcher{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	err := h.OnQueueChangedV1(context.Background(), &dto.QueueChangedV1{
		ID:        "ev-1",
		Change:    "joined",
		ShopperID: "s1",
	})

	require.NoError(t, err)
	require.Len(t, calls, 1)
}

func TestQueueEventPipelineEndToEnd(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer ps.Close()

	calls := make(chan string, 1)
	h := NewQueueEventHandler(
		&signalBroadcaster{calls: calls},
		&chanDispatcher{ps: ps},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	router, err := NewWatermillRouter(watermill.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, h.RegisterHandlers(router, ps))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router never came up")
	}

	payload, err := json.Marshal(dto.QueueChangedV1{
		ID:         "ev-42",
		Change:     "claimed",
		ShopperID:  "s1",
		SalesRepID: "rep-1",
		OccurredAt: time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(pubsub.TopicQueueEvents, message.NewMessage(watermill.NewUUID(), payload)))

	select {
	case traceID := <-calls:
		assert.NotEmpty(t, traceID, "pipeline must stamp a trace id before the handler runs")
	case <-time.After(5 * time.Second):
		t.Fatal("queue change never reached the broadcaster")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("router did not shut down")
	}
}
