package janitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type captureDispatcher struct {
	mu      sync.Mutex
	changes []event.QueueChange
}

func (d *captureDispatcher) Publish(_ context.Context, ev event.Eventer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if qc, ok := ev.(*event.QueueChangedEvent); ok {
		d.changes = append(d.changes, qc.Change)
	}
	return nil
}

func (d *captureDispatcher) Publisher() message.Publisher { return nil }

func (d *captureDispatcher) published() []event.QueueChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.QueueChange, len(d.changes))
	copy(out, d.changes)
	return out
}

const (
	testGrace = time.Minute
	testTTL   = 5 * time.Minute
)

func newTestJanitor() (*Janitor, *registry.Store, *fakeClock, *captureDispatcher) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	store := registry.NewStore(registry.WithClock(clock.Now))
	disp := &captureDispatcher{}
	cfg := &config.Config{
		Queue:  config.QueueConfig{GracePeriod: testGrace, SweepInterval: time.Hour},
		Collab: config.CollabConfig{PendingTTL: testTTL},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, disp, logger, cfg), store, clock, disp
}

func testConn() registry.Connector {
	return registry.NewConnector(context.Background(), registry.ConnectMetadata{}, 8)
}

func TestSweepEvictsOnlyPastGrace(t *testing.T) {
	j, store, clock, disp := newTestJanitor()

	conn := testConn()
	store.UpsertShopper("shopper-1", conn, nil)
	_, ok := store.MarkShopperDisconnected("shopper-1", conn.GetID())
	require.True(t, ok)

	clock.Advance(testGrace)
	evicted, expired := j.Sweep(context.Background())
	assert.Zero(t, evicted, "exactly the grace period is still inside the window")
	assert.Zero(t, expired)
	assert.Empty(t, disp.published())

	clock.Advance(time.Millisecond)
	evicted, _ = j.Sweep(context.Background())
	assert.Equal(t, 1, evicted)

	_, found := store.GetShopper("shopper-1")
	assert.False(t, found)
	assert.Equal(t, []event.QueueChange{event.ChangeEvicted}, disp.published())
}

func TestSweepPublishesOncePerBatch(t *testing.T) {
	j, store, clock, disp := newTestJanitor()

	for _, id := range []string{"shopper-1", "shopper-2", "shopper-3"} {
		conn := testConn()
		store.UpsertShopper(id, conn, nil)
		_, ok := store.MarkShopperDisconnected(id, conn.GetID())
		require.True(t, ok)
	}

	clock.Advance(testGrace + time.Second)
	evicted, _ := j.Sweep(context.Background())

	assert.Equal(t, 3, evicted)
	assert.Len(t, disp.published(), 1, "monitors need the post-sweep snapshot, not one per eviction")
}

func TestSweepSparesLiveConnections(t *testing.T) {
	j, store, clock, disp := newTestJanitor()

	store.UpsertShopper("shopper-1", testConn(), nil)
	clock.Advance(48 * time.Hour)

	evicted, expired := j.Sweep(context.Background())
	assert.Zero(t, evicted)
	assert.Zero(t, expired)
	assert.Empty(t, disp.published())
}

func TestSweepExpiresUnansweredCollabRequests(t *testing.T) {
	j, store, clock, disp := newTestJanitor()

	store.UpsertShopper("shopper-1", testConn(), nil)
	store.RegisterRep("rep-1", testConn())
	_, err := store.Assign("shopper-1", "rep-1")
	require.NoError(t, err)
	_, err = store.RequestCollab("shopper-1", "rep-1")
	require.NoError(t, err)

	clock.Advance(testTTL)
	_, expired := j.Sweep(context.Background())
	assert.Zero(t, expired, "exactly the TTL is still pending")

	clock.Advance(time.Millisecond)
	_, expired = j.Sweep(context.Background())
	assert.Equal(t, 1, expired)

	_, found := store.GetCollab("shopper-1", "rep-1")
	assert.False(t, found)
	assert.Empty(t, disp.published(), "request expiry is not a queue mutation")
}

func TestSweepLeavesAnsweredCollabsAlone(t *testing.T) {
	j, store, clock, _ := newTestJanitor()

	store.UpsertShopper("shopper-1", testConn(), nil)
	store.RegisterRep("rep-1", testConn())
	_, err := store.Assign("shopper-1", "rep-1")
	require.NoError(t, err)
	_, err = store.RequestCollab("shopper-1", "rep-1")
	require.NoError(t, err)
	_, err = store.RespondCollab("shopper-1", "rep-1", true)
	require.NoError(t, err)

	clock.Advance(12 * time.Hour)
	_, expired := j.Sweep(context.Background())
	assert.Zero(t, expired)
}

func TestStartStopDoesNotHang(t *testing.T) {
	j, _, _, _ := newTestJanitor()
	j.Start()
	j.Stop()
}
