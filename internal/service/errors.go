package service

import "errors"

// ErrPeerUnavailable is returned by relay operations when the counterpart of
// a call has no live channel to forward to.
var ErrPeerUnavailable = errors.New("call peer has no live connection")

// ErrChatDisabled is returned by the chat service when no provider
// credentials are configured.
var ErrChatDisabled = errors.New("chat assistant is not configured")

// ErrChatUnavailable wraps provider failures and open-breaker rejections so
// the REST layer can answer 503 without inspecting provider internals.
var ErrChatUnavailable = errors.New("chat assistant temporarily unavailable")
