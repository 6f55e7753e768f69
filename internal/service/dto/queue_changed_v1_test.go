package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
)

func TestToDomainMapsFields(t *testing.T) {
	d := &QueueChangedV1{
		ID:         "ev-1",
		Change:     "released",
		ShopperID:  "s1",
		SalesRepID: "rep-1",
		OccurredAt: 1748771100000,
	}

	ev := d.ToDomain()

	assert.Equal(t, "ev-1", ev.ID)
	assert.Equal(t, event.ChangeReleased, ev.Change)
	assert.Equal(t, "s1", ev.ShopperID)
	assert.Equal(t, "rep-1", ev.SalesRepID)
	assert.EqualValues(t, 1748771100000, ev.OccurredAt)
}

func TestToDomainBackfillsMissingTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	ev := (&QueueChangedV1{ID: "ev-2", Change: "joined"}).ToDomain()
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, ev.OccurredAt, before)
	assert.LessOrEqual(t, ev.OccurredAt, after)
}
