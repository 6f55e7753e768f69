package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
)

// TopicQueueEvents is the in-process topic every queue mutation is announced
// on. The broadcaster listens here to rebuild monitor snapshots.
const TopicQueueEvents = "queue.events.v1"

// EventDispatcher defines the high-level contract for outgoing events.
// This allows callers to stay agnostic of the transport implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, ev event.Eventer) error
	Publisher() message.Publisher
}

// eventDispatcher is the concrete implementation (private).
type eventDispatcher struct {
	publisher message.Publisher
	export    message.Publisher
	logger    *slog.Logger
}

// NewEventDispatcher returns the interface instead of the pointer to the
// struct. export may be nil; the in-process publisher is mandatory.
func NewEventDispatcher(pub message.Publisher, export message.Publisher, logger *slog.Logger) EventDispatcher {
	return &eventDispatcher{
		publisher: pub,
		export:    export,
		logger:    logger,
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev event.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(TopicQueueEvents, msg); err != nil {
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", TopicQueueEvents, err)
	}

	d.mirror(ctx, ev, payload)
	return nil
}

// mirror copies the event to the external broker. A broker outage must never
// stall the in-process pipeline, so failures are logged and swallowed.
func (d *eventDispatcher) mirror(ctx context.Context, ev event.Eventer, payload []byte) {
	if d.export == nil {
		return
	}

	exp, ok := ev.(event.Exportable)
	if !ok {
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.export.Publish(exp.GetRoutingKey(), msg); err != nil {
		d.logger.Warn("[EXPORT_MIRROR_FAILED]",
			slog.String("routing_key", exp.GetRoutingKey()),
			slog.String("error", err.Error()),
		)
	}
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}
