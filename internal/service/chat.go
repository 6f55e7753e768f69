package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/infra/client/llm"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

const chatSystemPrompt = "You are a helpful assistant for a car dealership. " +
	"You help shoppers browse the vehicle inventory, compare listings and " +
	"narrow down what they are looking for. Keep answers short and friendly. " +
	"If the shopper wants to talk to a person, remind them they can call a " +
	"sales representative right from this page."

// Chatter is the conversational contract behind POST /api/chat.
type Chatter interface {
	Respond(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error)
}

// thread is one pinned conversation. Guarded by its own mutex so two
// requests on the same conversation serialize without blocking others.
type thread struct {
	mu         sync.Mutex
	turns      []llm.Message
	filters    model.ChatFilters
	guidedMode *bool
}

type ChatService struct {
	provider llm.Completer
	threads  *lru.Cache[string, *thread]
	logger   *slog.Logger
	enabled  bool
	depth    int
}

// NewChatService provides a thread-safe service with LRU conversation
// bookkeeping. Threads survive for the process lifetime or until evicted by
// capacity pressure, whichever comes first.
func NewChatService(provider llm.Completer, logger *slog.Logger, cfg *config.Config) *ChatService {
	// [MEMORY_MANAGEMENT] Capacity-bounded conversation table; the oldest
	// idle thread is evicted, never the process.
	threads, _ := lru.New[string, *thread](cfg.Chat.HistorySize)

	return &ChatService{
		provider: provider,
		threads:  threads,
		logger:   logger,
		enabled:  cfg.Chat.Enabled(),
		depth:    cfg.Chat.HistoryDepth,
	}
}

// Respond appends the user turn to its conversation, completes it through
// the provider and records the assistant turn. Filter snapshots and guided
// mode ride along with the thread: the last snapshot a client sent is the
// one echoed back.
func (s *ChatService) Respond(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	if !s.enabled {
		return model.ChatResponse{}, ErrChatDisabled
	}

	convID, th := s.getOrCreate(req.ConversationID)

	th.mu.Lock()
	defer th.mu.Unlock()

	if req.CurrentFilters != nil {
		th.filters = req.CurrentFilters
	}
	if req.GuidedMode != nil {
		th.guidedMode = req.GuidedMode
	}

	messages := append(s.window(th.turns), llm.Message{
		Role:    llm.RoleUser,
		Content: req.Message,
	})

	reply, err := s.provider.Complete(ctx, s.systemPrompt(th), messages)
	if err != nil {
		s.logger.Warn("CHAT_COMPLETION_FAILED",
			slog.String("conversation_id", convID),
			"err", err,
		)
		return model.ChatResponse{}, fmt.Errorf("%w: %w", ErrChatUnavailable, err)
	}

	th.turns = append(th.turns,
		llm.Message{Role: llm.RoleUser, Content: req.Message},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)

	return model.ChatResponse{
		Response:       reply,
		ConversationID: convID,
		UpdatedFilters: th.filters,
		GuidedMode:     th.guidedMode,
	}, nil
}

// getOrCreate resolves the conversation, minting a fresh id when the client
// sent none or references an evicted thread.
func (s *ChatService) getOrCreate(convID string) (string, *thread) {
	if convID != "" {
		if th, ok := s.threads.Get(convID); ok {
			return convID, th
		}
	}
	if convID == "" {
		convID = uuid.NewString()
	}
	th := &thread{}
	s.threads.Add(convID, th)
	return convID, th
}

// window trims history to the configured depth so long conversations do not
// grow the provider payload without bound.
func (s *ChatService) window(turns []llm.Message) []llm.Message {
	if s.depth > 0 && len(turns) > s.depth {
		turns = turns[len(turns)-s.depth:]
	}
	out := make([]llm.Message, len(turns), len(turns)+1)
	copy(out, turns)
	return out
}

// systemPrompt folds the thread's filter snapshot into the static prompt so
// the model can reference what the shopper is currently browsing.
func (s *ChatService) systemPrompt(th *thread) string {
	var sb strings.Builder
	sb.WriteString(chatSystemPrompt)

	if len(th.filters) > 0 {
		if snapshot, err := json.Marshal(th.filters); err == nil {
			sb.WriteString("\n\nThe shopper's current search filters: ")
			sb.Write(snapshot)
		}
	}
	if th.guidedMode != nil && *th.guidedMode {
		sb.WriteString("\n\nGuided mode is on: walk the shopper through one question at a time.")
	}
	return sb.String()
}

// ChatUnavailable reports whether the error should surface as a temporary
// outage (HTTP 503) rather than a caller mistake.
func ChatUnavailable(err error) bool {
	return errors.Is(err, ErrChatUnavailable) || errors.Is(err, ErrChatDisabled) || errors.Is(err, llm.ErrBreakerOpen)
}
