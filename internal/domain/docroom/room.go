// Package docroom hosts one shared collaborative document per shopper.
// Update payloads are opaque to the server; the room's job is relaying
// them between participants and fast-forwarding late joiners with the
// accumulated update log. Merge semantics live in the clients' engine.
package docroom

import (
	"sync"

	"github.com/google/uuid"
)

// Update is one opaque document operation, carried verbatim. MessageType
// preserves the transport framing (text or binary) across the relay.
type Update struct {
	MessageType int
	Data        []byte
}

// Participant is one socket joined to a room. Outbound updates arrive on
// Out; the transport layer pumps them to the wire.
type Participant struct {
	ID  uuid.UUID
	Out <-chan Update

	room *Room
	out  chan Update
}

// Room is the authoritative in-process document for one shopper id.
type Room struct {
	ShopperID string

	mu           sync.RWMutex
	log          []Update
	participants map[uuid.UUID]*Participant
}

func newRoom(shopperID string) *Room {
	return &Room{
		ShopperID:    shopperID,
		participants: make(map[uuid.UUID]*Participant),
	}
}

// join registers a participant and returns the accumulated log as its
// fast-forward backlog. The caller must flush the backlog to the socket
// before relaying anything newer.
func (r *Room) join(outBuffer int) (*Participant, []Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &Participant{
		ID:   uuid.New(),
		room: r,
		out:  make(chan Update, outBuffer),
	}
	p.Out = p.out
	r.participants[p.ID] = p

	backlog := make([]Update, len(r.log))
	copy(backlog, r.log)
	return p, backlog
}

// leave removes the participant and reports whether the room is now empty.
func (r *Room) leave(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.participants, id)
	return len(r.participants) == 0
}

// broadcast appends the update to the authoritative log and relays it to
// every participant except the sender. Delivery is best-effort: a saturated
// participant buffer drops the update for that participant only.
func (r *Room) broadcast(from uuid.UUID, upd Update) (delivered, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, upd)
	for id, p := range r.participants {
		if id == from {
			continue
		}
		select {
		case p.out <- upd:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// Size reports the participant count and accumulated log length.
func (r *Room) Size() (participants, logLen int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants), len(r.log)
}
