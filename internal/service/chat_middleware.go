package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/virtuolot/showroom-assist-service/infra/telemetry"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	"github.com/virtuolot/showroom-assist-service/internal/metrics"
)

// ChatMiddleware implements [DECORATOR_PATTERN] to add observability to the
// conversational flow without touching business logic.
type ChatMiddleware struct {
	Next   Chatter
	Logger *slog.Logger
}

// Respond wraps the completion in a span plus execution timing and outcome
// logging. The tracer is resolved per call from the installed provider, so
// disabled telemetry costs a noop span.
func (m *ChatMiddleware) Respond(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	ctx, span := telemetry.Tracer("showroom.chat").Start(ctx, "chat.turn")
	defer span.End()

	start := time.Now()

	res, err := m.Next.Respond(ctx, req)

	// [OBSERVABILITY] Scoped logging and latency histogram
	duration := time.Since(start)
	metrics.ObserveChatTurn(duration, err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat turn failed")
		m.Logger.Error("CHAT_TURN_FAILED",
			"err", err,
			"conversation_id", req.ConversationID,
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		span.SetAttributes(attribute.String("chat.conversation_id", res.ConversationID))
		m.Logger.Debug("CHAT_TURN_COMPLETED",
			"conversation_id", res.ConversationID,
			"duration_ms", duration.Milliseconds(),
		)
	}

	return res, err
}
