package event

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*Frame)(nil)

// Frame is the generic envelope for one outbound duplex frame. A single
// Frame instance may fan out to many connections; the first marshal caches
// the wire bytes so later sends reuse them. cached is atomic because the
// write pumps of a fan-out race to fill it; the payload is immutable after
// construction, so every racer produces identical bytes.
type Frame struct {
	id         string
	kind       EventKind
	priority   EventPriority
	occurredAt int64
	payload    any
	cached     atomic.Value // wire bytes ([]byte), set by the marshaller
}

// NewFrame is the universal factory for outbound frames.
func NewFrame(kind EventKind, priority EventPriority, payload any) *Frame {
	return &Frame{
		id:         uuid.NewString(),
		kind:       kind,
		priority:   priority,
		occurredAt: time.Now().UnixMilli(),
		payload:    payload,
	}
}

// [INTERFACE_IMPLEMENTATION]
func (f *Frame) GetID() string              { return f.id }
func (f *Frame) GetKind() EventKind         { return f.kind }
func (f *Frame) GetPriority() EventPriority { return f.priority }
func (f *Frame) GetOccurredAt() int64       { return f.occurredAt }
func (f *Frame) GetPayload() any            { return f.payload }
func (f *Frame) SetCached(v any)            { f.cached.Store(v) }

func (f *Frame) GetCached() any {
	return f.cached.Load()
}
