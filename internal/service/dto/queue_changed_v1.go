package dto

import (
	"time"

	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
)

// [QUEUE_V1] THE CURRENT PAYLOAD STRUCTURE ON THE QUEUE EVENTS TOPIC
// Versioned separately from the domain event so the bus contract can evolve
// without touching publishers of the old shape.
type QueueChangedV1 struct {
	ID         string `json:"id"`
	Change     string `json:"change"`
	ShopperID  string `json:"shopperId"`
	SalesRepID string `json:"salesRepId"`
	OccurredAt int64  `json:"occurredAt"`
}

// ToDomain rebuilds the domain event. A missing occurredAt (older producer)
// falls back to receive time.
func (d *QueueChangedV1) ToDomain() *event.QueueChangedEvent {
	occurredAt := d.OccurredAt
	if occurredAt == 0 {
		occurredAt = time.Now().UnixMilli()
	}
	return &event.QueueChangedEvent{
		ID:         d.ID,
		Change:     event.QueueChange(d.Change),
		ShopperID:  d.ShopperID,
		SalesRepID: d.SalesRepID,
		OccurredAt: occurredAt,
	}
}
