package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	_ Eventer    = (*QueueChangedEvent)(nil)
	_ Exportable = (*QueueChangedEvent)(nil)
)

// QueueChange names the store mutation that triggered a queue event.
type QueueChange string

const (
	ChangeJoined       QueueChange = "joined"
	ChangeReconnected  QueueChange = "reconnected"
	ChangeLeft         QueueChange = "left"
	ChangeDisconnected QueueChange = "disconnected"
	ChangeClaimed      QueueChange = "claimed"
	ChangeReleased     QueueChange = "released"
	ChangeEvicted      QueueChange = "evicted"
)

// QueueChangedEvent is published on the internal bus after every committed
// queue mutation. Consumers snapshot the store at handling time, so the
// event itself carries identifiers only, never queue state.
type QueueChangedEvent struct {
	ID         string      `json:"id"`
	Change     QueueChange `json:"change"`
	ShopperID  string      `json:"shopperId,omitempty"`
	SalesRepID string      `json:"salesRepId,omitempty"`
	OccurredAt int64       `json:"occurredAt"`
	Cached     any         `json:"-"`
}

// NewQueueChanged initializes a mutation notification.
func NewQueueChanged(change QueueChange, shopperID, salesRepID string) *QueueChangedEvent {
	return &QueueChangedEvent{
		ID:         uuid.NewString(),
		Change:     change,
		ShopperID:  shopperID,
		SalesRepID: salesRepID,
		OccurredAt: time.Now().UnixMilli(),
	}
}

func (e *QueueChangedEvent) GetID() string              { return e.ID }
func (e *QueueChangedEvent) GetKind() EventKind         { return QueueChanged }
func (e *QueueChangedEvent) GetPriority() EventPriority { return PriorityNormal }
func (e *QueueChangedEvent) GetOccurredAt() int64       { return e.OccurredAt }
func (e *QueueChangedEvent) GetPayload() any            { return e }
func (e *QueueChangedEvent) GetCached() any             { return e.Cached }
func (e *QueueChangedEvent) SetCached(v any)            { e.Cached = v }

// GetRoutingKey generates the broker routing topic for the optional export
// mirror. [PATTERN] showroom.queue.v1.{change}
func (e *QueueChangedEvent) GetRoutingKey() string {
	return fmt.Sprintf("showroom.queue.v1.%s", e.Change)
}
