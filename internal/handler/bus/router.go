package bus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/virtuolot/showroom-assist-service/internal/adapter/pubsub"
	"github.com/virtuolot/showroom-assist-service/internal/service"
)

const (
	// PoisonTopic collects events that exhausted their retry budget.
	PoisonTopic = pubsub.TopicQueueEvents + ".poison"

	handlerQueueChanged = "ON_QUEUE_CHANGED"
)

// QueueEventHandler consumes committed queue mutations and drives the
// monitor fan-out.
type QueueEventHandler struct {
	broadcaster service.Broadcaster
	dispatcher  pubsub.EventDispatcher
	logger      *slog.Logger
}

func NewQueueEventHandler(broadcaster service.Broadcaster, dispatcher pubsub.EventDispatcher, logger *slog.Logger) *QueueEventHandler {
	return &QueueEventHandler{
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// NewWatermillRouter builds the consumer router for the in-process bus.
func NewWatermillRouter(wmLogger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("ROUTER_SETUP_FAILED: %w", err)
	}
	return router, nil
}

// [REGISTRATION_PIPELINE]
func (h *QueueEventHandler) RegisterHandlers(router *message.Router, sub message.Subscriber) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), PoisonTopic)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{handlerQueueChanged, pubsub.TopicQueueEvents, Bind(h, h.OnQueueChangedV1)},
	}

	for _, c := range configs {
		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			NewRetryMiddleware().Middleware,
			poison,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("BUS_PIPELINE_READY", "topic", pubsub.TopicQueueEvents)
	return nil
}
