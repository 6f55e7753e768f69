package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/infra/client/llm"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

// stubCompleter plays the provider role and records every completion call.
type stubCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	systems []string
	batches [][]llm.Message
}

func (s *stubCompleter) Complete(_ context.Context, system string, messages []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, system)
	batch := make([]llm.Message, len(messages))
	copy(batch, messages)
	s.batches = append(s.batches, batch)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newChatService(stub *stubCompleter, depth int) *ChatService {
	cfg := &config.Config{Chat: config.ChatConfig{
		APIKey:       "test-key",
		HistorySize:  8,
		HistoryDepth: depth,
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewChatService(stub, logger, cfg)
}

func TestChatRespondMintsConversation(t *testing.T) {
	stub := &stubCompleter{reply: "hello there"}
	svc := newChatService(stub, 8)

	res, err := svc.Respond(context.Background(), model.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "hello there", res.Response)
	_, err = uuid.Parse(res.ConversationID)
	assert.NoError(t, err, "a fresh conversation gets a generated id")

	require.Len(t, stub.batches, 1)
	require.Len(t, stub.batches[0], 1)
	assert.Equal(t, llm.RoleUser, stub.batches[0][0].Role)
	assert.Equal(t, "hi", stub.batches[0][0].Content)
	assert.Equal(t, chatSystemPrompt, stub.systems[0])
}

func TestChatThreadContinuity(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	svc := newChatService(stub, 8)
	ctx := context.Background()

	first, err := svc.Respond(ctx, model.ChatRequest{Message: "first"})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, model.ChatRequest{Message: "second", ConversationID: first.ConversationID})
	require.NoError(t, err)

	require.Len(t, stub.batches, 2)
	batch := stub.batches[1]
	require.Len(t, batch, 3)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "first"}, batch[0])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "reply"}, batch[1])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "second"}, batch[2])
}

func TestChatHistoryWindowTrims(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	svc := newChatService(stub, 2)
	ctx := context.Background()

	first, err := svc.Respond(ctx, model.ChatRequest{Message: "first"})
	require.NoError(t, err)
	convID := first.ConversationID
	_, err = svc.Respond(ctx, model.ChatRequest{Message: "second", ConversationID: convID})
	require.NoError(t, err)
	_, err = svc.Respond(ctx, model.ChatRequest{Message: "third", ConversationID: convID})
	require.NoError(t, err)

	// Four turns exist by now; only the last two ride along with the new
	// user message.
	require.Len(t, stub.batches, 3)
	batch := stub.batches[2]
	require.Len(t, batch, 3)
	assert.Equal(t, "second", batch[0].Content)
	assert.Equal(t, llm.RoleAssistant, batch[1].Role)
	assert.Equal(t, "third", batch[2].Content)
}

func TestChatEchoesStickyFiltersAndGuidedMode(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	svc := newChatService(stub, 8)
	ctx := context.Background()
	guided := true

	first, err := svc.Respond(ctx, model.ChatRequest{
		Message:        "show me SUVs",
		CurrentFilters: model.ChatFilters{"make": "Toyota"},
		GuidedMode:     &guided,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ChatFilters{"make": "Toyota"}, first.UpdatedFilters)
	require.NotNil(t, first.GuidedMode)
	assert.True(t, *first.GuidedMode)
	assert.Contains(t, stub.systems[0], `"make":"Toyota"`)
	assert.Contains(t, stub.systems[0], "Guided mode is on")

	// A follow-up without a snapshot keeps the last one.
	second, err := svc.Respond(ctx, model.ChatRequest{
		Message:        "cheaper ones",
		ConversationID: first.ConversationID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChatFilters{"make": "Toyota"}, second.UpdatedFilters)
	assert.Contains(t, stub.systems[1], `"make":"Toyota"`)
}

func TestChatDisabledWithoutCredentials(t *testing.T) {
	cfg := &config.Config{Chat: config.ChatConfig{HistorySize: 8, HistoryDepth: 8}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewChatService(&stubCompleter{}, logger, cfg)

	_, err := svc.Respond(context.Background(), model.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrChatDisabled)
	assert.True(t, ChatUnavailable(err))
}

func TestChatProviderFailureIsNotRecorded(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream exploded")}
	svc := newChatService(stub, 8)
	ctx := context.Background()

	_, err := svc.Respond(ctx, model.ChatRequest{Message: "hi", ConversationID: "conv-1"})
	require.ErrorIs(t, err, ErrChatUnavailable)
	assert.True(t, ChatUnavailable(err))
	assert.Contains(t, err.Error(), "upstream exploded")

	// The failed exchange leaves no trace in the thread.
	stub.err = nil
	stub.reply = "recovered"
	_, err = svc.Respond(ctx, model.ChatRequest{Message: "again", ConversationID: "conv-1"})
	require.NoError(t, err)

	batch := stub.batches[len(stub.batches)-1]
	require.Len(t, batch, 1)
	assert.Equal(t, "again", batch[0].Content)
}

func TestChatKeepsClientChosenConversationID(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	svc := newChatService(stub, 8)

	res, err := svc.Respond(context.Background(), model.ChatRequest{
		Message:        "hi",
		ConversationID: "client-chosen",
	})
	require.NoError(t, err)
	assert.Equal(t, "client-chosen", res.ConversationID)
}

func TestChatUnavailableClassification(t *testing.T) {
	assert.True(t, ChatUnavailable(ErrChatDisabled))
	assert.True(t, ChatUnavailable(llm.ErrBreakerOpen))
	assert.False(t, ChatUnavailable(errors.New("validation problem")))
	assert.False(t, ChatUnavailable(nil))
}

func TestChatSystemPromptMentionsInventoryHelp(t *testing.T) {
	assert.True(t, strings.Contains(chatSystemPrompt, "car dealership"))
}

type staticChatter struct {
	res model.ChatResponse
	err error
}

func (s staticChatter) Respond(context.Context, model.ChatRequest) (model.ChatResponse, error) {
	return s.res, s.err
}

func TestChatMiddlewarePassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := &ChatMiddleware{
		Next:   staticChatter{res: model.ChatResponse{Response: "fine", ConversationID: "c1"}},
		Logger: logger,
	}
	res, err := ok.Respond(context.Background(), model.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Response)

	boom := errors.New("boom")
	failing := &ChatMiddleware{Next: staticChatter{err: boom}, Logger: logger}
	_, err = failing.Respond(context.Background(), model.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestChatMiddlewareEmitsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := &ChatMiddleware{
		Next:   staticChatter{res: model.ChatResponse{Response: "fine", ConversationID: "c1"}},
		Logger: logger,
	}
	_, err := ok.Respond(context.Background(), model.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	failing := &ChatMiddleware{Next: staticChatter{err: errors.New("boom")}, Logger: logger}
	_, err = failing.Respond(context.Background(), model.ChatRequest{Message: "hi"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "chat.turn", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("chat.conversation_id", "c1"))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
