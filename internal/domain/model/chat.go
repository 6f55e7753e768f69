package model

// ChatFilters is the opaque vehicle-filter snapshot a chat client round-trips
// with every request. The service stores and echoes it per conversation; it
// never interprets the contents.
type ChatFilters map[string]any

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string      `json:"message"`
	ConversationID string      `json:"conversationId,omitempty"`
	CurrentFilters ChatFilters `json:"currentFilters,omitempty"`
	GuidedMode     *bool       `json:"guidedMode,omitempty"`
}

// ChatResponse is the reply of POST /api/chat. ConversationID is always set
// so the client can pin follow-ups to the same thread.
type ChatResponse struct {
	Response       string      `json:"response"`
	ConversationID string      `json:"conversationId"`
	UpdatedFilters ChatFilters `json:"updatedFilters,omitempty"`
	GuidedMode     *bool       `json:"guidedMode,omitempty"`
}
