package docroom

import (
	"log/slog"
	"sync"
)

// outBufferSize bounds each participant's relay mailbox. A two-party room
// over a LAN never comes close; the headroom covers bulk fast-forward bursts.
const outBufferSize = 256

// Hubber is the room-registry contract consumed by the collaboration
// endpoint.
type Hubber interface {
	Join(shopperID string) (*Participant, []Update)
	Leave(p *Participant)
	Broadcast(p *Participant, upd Update)
	Rooms() int
}

// Interface guard
var _ Hubber = (*Hub)(nil)

// Hub tracks all live document rooms keyed by shopper id. Rooms appear on
// first join and are torn down when the last participant leaves.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]*Room),
	}
}

// Join attaches a new participant to the shopper's room, creating the room
// lazily, and returns the fast-forward backlog. Membership changes happen
// under the hub lock so an emptying room cannot race a reviving join.
func (h *Hub) Join(shopperID string) (*Participant, []Update) {
	h.mu.Lock()
	room, ok := h.rooms[shopperID]
	if !ok {
		room = newRoom(shopperID)
		h.rooms[shopperID] = room
	}
	p, backlog := room.join(outBufferSize)
	h.mu.Unlock()

	h.logger.Debug("[DOCROOM] participant joined",
		slog.String("shopper_id", shopperID),
		slog.String("participant_id", p.ID.String()),
		slog.Int("backlog", len(backlog)),
	)
	return p, backlog
}

// Leave detaches the participant and tears the room down when it empties.
func (h *Hub) Leave(p *Participant) {
	if p == nil || p.room == nil {
		return
	}
	room := p.room

	h.mu.Lock()
	empty := room.leave(p.ID)
	if empty {
		delete(h.rooms, room.ShopperID)
	}
	h.mu.Unlock()

	if empty {
		h.logger.Info("[DOCROOM] room torn down", slog.String("shopper_id", room.ShopperID))
	}
}

// Broadcast relays one opaque update from the participant to its room.
func (h *Hub) Broadcast(p *Participant, upd Update) {
	if p == nil || p.room == nil {
		return
	}
	_, dropped := p.room.broadcast(p.ID, upd)
	if dropped > 0 {
		h.logger.Warn("[DOCROOM] slow participants dropped an update",
			slog.String("shopper_id", p.room.ShopperID),
			slog.Int("dropped", dropped),
		)
	}
}

// Rooms reports the number of live rooms.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
