package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (STORE/SERVICES/HANDLERS)
// This allows mocking and decoupling from the concrete implementation
type Connector interface {
	GetID() uuid.UUID
	Send(ev event.Eventer, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan event.Eventer
	Done() <-chan struct{}
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [METADATA] EXPORTED FOR TRANSPORT AND LOGGING LAYERS
type ConnectMetadata struct {
	RemoteIP  string
	UserAgent string
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id           uuid.UUID
	metadata     ConnectMetadata
	createdAt    time.Time
	ctx          context.Context
	cancelFn     context.CancelFunc
	sendCh       chan event.Eventer
	closeOnce    sync.Once // [PROTECTION]
	droppedCount uint64    // [ATOMIC_FIELD]
}

// NewConnector builds the outbound mailbox for one duplex channel. The
// context is the connection's own; cancelling it gates every pending Send.
func NewConnector(ctx context.Context, meta ConnectMetadata, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)

	return &connect{
		id:        uuid.New(),
		metadata:  meta,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan event.Eventer, bufferSize),
	}
}

// --- IMPLEMENTATION OF CONNECTOR INTERFACE ---

func (c *connect) GetID() uuid.UUID { return c.id }

// Send attempts to push an event into the mailbox.
// If the buffer stays full, it tries to evict lower priority events to make room.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	// 1. [LIFECYCLE_GATE] A closed transport always refuses. Gated before the
	// delivery select, where a ready buffer and a dead context would race and
	// the runtime picks a winner at random.
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	// [DELIVERY_WINDOW] A stalled consumer must not hold its callers hostage.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	// 2. [PRIMARY_DELIVERY] Waits up to 'timeout' for buffer space, which
	// smooths out transient saturation of the write pump.
	case c.sendCh <- ev:
		return true

	// 3. Transport died while waiting for buffer room.
	case <-c.ctx.Done():
		return false

	// 4. [BACKPRESSURE_THRESHOLD] Buffer stayed saturated the whole window.
	case <-ctx.Done():
		return c.handleBackpressure(ev, timeout)
	}
}

// handleBackpressure manages full buffers by shedding low-priority events.
func (c *connect) handleBackpressure(ev event.Eventer, timeout time.Duration) bool {
	// A low-priority incoming event is dropped outright to keep buffer room
	// for signaling and call control.
	if ev.GetPriority() <= event.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	// Try to evict one queued lower-priority event to make room.
	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			select {
			case c.sendCh <- ev:
				return true
			case <-c.ctx.Done():
				return false
			}
		}
		// The displaced event was equally important; put it back (best
		// effort), skipped once the transport is dead.
		if c.ctx.Err() == nil {
			select {
			case c.sendCh <- oldEv:
			default:
			}
		}
	case <-time.After(timeout):
		// Hard timeout reached
	case <-c.ctx.Done():
		return false
	}

	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *connect) Recv() <-chan event.Eventer { return c.sendCh }

// Done unblocks when the connection is closed. Write pumps select on it
// instead of a channel close so concurrent Sends can never hit a closed
// mailbox.
func (c *connect) Done() <-chan struct{} { return c.ctx.Done() }

// Dropped reports how many events this connection shed under backpressure.
func (c *connect) Dropped() uint64 { return atomic.LoadUint64(&c.droppedCount) }

// Close terminates the session and wakes the write pump.
func (c *connect) Close() {
	// [IDEMPOTENCY_SHIELD]
	// Teardown runs exactly once even when invoked concurrently by the
	// store (eviction), the endpoint (defer), and the broadcaster (dead write).
	c.closeOnce.Do(func() {
		c.cancelFn()
	})
}
