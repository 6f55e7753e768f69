// Package llm is a minimal client for an Anthropic-style messages API,
// guarded by a circuit breaker so a slow or failing provider degrades the
// chat endpoint instead of piling up goroutines.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/virtuolot/showroom-assist-service/config"
)

const (
	anthropicVersionKey   = "Anthropic-Version"
	anthropicVersionValue = "2023-06-01"

	// Consecutive failures before the breaker opens, and how long it stays
	// open before probing again.
	breakerTripAfter  = 3
	breakerOpenWindow = 30 * time.Second
)

// Message roles accepted by the messages API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrBreakerOpen reports that the provider is being skipped after repeated
// failures. Callers treat it the same as a provider outage.
var ErrBreakerOpen = errors.New("llm provider circuit open")

// Message is one conversational turn.
type Message struct {
	Role    string
	Content string
}

// Completer is the completion contract the chat service consumes.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// Interface guard
var _ Completer = (*Client)(nil)

// Client talks to one configured model over HTTP.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

// New builds the client from chat configuration. Callers should consult
// cfg.Chat.Enabled() before issuing requests; without an API key the
// provider rejects every call.
func New(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Chat.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "llm-provider",
			Timeout: breakerOpenWindow,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTripAfter
			},
		}),
		baseURL:   normalizeBaseURL(cfg.Chat.BaseURL),
		apiKey:    cfg.Chat.APIKey,
		model:     cfg.Chat.Model,
		maxTokens: cfg.Chat.MaxTokens,
	}
}

// normalizeBaseURL appends the /v1 path segment when the caller configured a
// bare host, so both "https://api.anthropic.com" and a full proxy URL work.
func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// Complete runs one messages-API call through the breaker and returns the
// concatenated text blocks of the reply.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, system, messages)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrBreakerOpen
		}
		return "", err
	}
	return out.(string), nil
}

func (c *Client) complete(ctx context.Context, system string, messages []Message) (string, error) {
	req := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}
	if system != "" {
		req.System = []contentBlock{{Type: "text", Text: system}}
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, apiMessage{
			Role:    m.Role,
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(anthropicVersionKey, anthropicVersionValue)
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("provider error %d (%s): %s", resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("provider error %d", resp.StatusCode)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("provider returned no text content")
	}
	return sb.String(), nil
}

// Close releases pooled connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Wire structures of the messages API.

type apiRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	Messages  []apiMessage   `json:"messages"`
	System    []contentBlock `json:"system,omitempty"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      apiUsage       `json:"usage"`
	Error      *apiError      `json:"error,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
