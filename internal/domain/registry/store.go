/*
Package registry owns every piece of shared mutable state in the process.

Key Architectural Concepts:
  - Single Store: shopper entries, representative connections and
    collaboration sessions live in three tables behind one coarse mutex.
    Every exported operation is atomic; callers never observe a half-applied
    transition.
  - Value Snapshots: operations return entry copies, never live references.
    The only shared handles that cross the store boundary are Connectors,
    which are internally synchronized.
  - Decoupling & Backpressure: per-connection mailboxes (Connector) isolate
    slow consumers so a stalled socket cannot block a store caller.
*/
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

// Interface guard
var _ Storer = (*Store)(nil)

// Storer is the store contract consumed by services, endpoints and the
// janitor. All operations are atomic with respect to each other.
type Storer interface {
	// Shopper table
	UpsertShopper(shopperID string, conn Connector, caps model.MediaCapabilities) (model.ShopperEntry, bool)
	GetShopper(shopperID string) (model.ShopperEntry, bool)
	ShopperConn(shopperID string) (Connector, bool)
	MarkShopperDisconnected(shopperID string, connID uuid.UUID) (model.ShopperEntry, bool)
	RemoveShopper(shopperID string) bool

	// Representative table
	RegisterRep(repID string, conn Connector) model.RepConnection
	UnregisterRep(repID string, connID uuid.UUID) bool
	RepConn(repID string) (Connector, bool)
	RepConns() []Connector
	GetRepBusy(repID string) (string, bool)

	// Call assignment
	Assign(shopperID, repID string) (model.ShopperEntry, error)
	Release(shopperID string) (model.ShopperEntry, string, bool)

	// Projections
	SnapshotQueue() []model.QueueSummary
	PositionOf(shopperID string) int
	Stats() model.RegistryStats

	// Collaboration handshake
	RequestCollab(shopperID, repID string) (model.CollabSession, error)
	RespondCollab(shopperID, repID string, accepted bool) (model.CollabSession, error)
	EndCollab(shopperID, repID string) (model.CollabSession, bool)
	GetCollab(shopperID, repID string) (model.CollabSession, bool)
	EndCollabsForShopper(shopperID string) []model.CollabSession

	// Janitor sweeps
	SweepDisconnected(grace time.Duration) []model.ShopperEntry
	SweepExpiredCollabs(ttl time.Duration) int
}

type shopperRecord struct {
	entry model.ShopperEntry
	conn  Connector
	seq   uint64 // arrival tie-breaker for equal connectedAt millis
}

type repRecord struct {
	rep  model.RepConnection
	conn Connector
}

type collabKey struct {
	repID     string
	shopperID string
}

// Store implements Storer with one coarse mutex. Operations are O(entries)
// at worst and contention is bounded by representative count, so finer
// locking buys nothing here.
type Store struct {
	mu        sync.Mutex
	shoppers  map[string]*shopperRecord
	reps      map[string]*repRecord
	collabs   map[collabKey]*model.CollabSession
	seq       uint64
	now       func() time.Time
	startedAt time.Time
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		shoppers: make(map[string]*shopperRecord),
		reps:     make(map[string]*repRecord),
		collabs:  make(map[collabKey]*model.CollabSession),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

func (s *Store) nowMs() int64 { return s.now().UnixMilli() }

// UpsertShopper creates or refreshes an entry for a (re)joining shopper.
// connectedAt survives reconnects; capabilities update only when supplied.
// The second return is true when the entry was newly created.
func (s *Store) UpsertShopper(shopperID string, conn Connector, caps model.MediaCapabilities) (model.ShopperEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok {
		s.seq++
		rec = &shopperRecord{
			entry: model.ShopperEntry{
				ShopperID:     shopperID,
				ConnectedAt:   s.nowMs(),
				HasMicrophone: caps.HasAudioInput(),
				Capabilities:  caps,
			},
			conn: conn,
			seq:  s.seq,
		}
		s.shoppers[shopperID] = rec
		return rec.entry, true
	}

	// [RECONNECT] Displace any still-live channel so its pump exits.
	if rec.conn != nil && rec.conn != conn {
		rec.conn.Close()
	}
	rec.conn = conn
	rec.entry.DisconnectedAt = 0
	if caps != nil {
		rec.entry.Capabilities = caps
		rec.entry.HasMicrophone = caps.HasAudioInput()
	}
	return rec.entry, false
}

func (s *Store) GetShopper(shopperID string) (model.ShopperEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok {
		return model.ShopperEntry{}, false
	}
	return rec.entry, true
}

func (s *Store) ShopperConn(shopperID string) (Connector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok || rec.conn == nil {
		return nil, false
	}
	return rec.conn, true
}

// MarkShopperDisconnected records a dropped channel. The connID guard keeps
// a stale handler's teardown from clobbering a fresh reconnect: only the
// connection currently on file may mark its owner disconnected.
// Assignment is NOT cleared; release stays an explicit operation.
func (s *Store) MarkShopperDisconnected(shopperID string, connID uuid.UUID) (model.ShopperEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok || rec.conn == nil || rec.conn.GetID() != connID {
		return model.ShopperEntry{}, false
	}

	rec.conn.Close()
	rec.conn = nil
	rec.entry.DisconnectedAt = s.nowMs()
	return rec.entry, true
}

// RemoveShopper deletes the entry outright. The channel is left open: a
// shopper that leaves the queue keeps its socket and may join again later.
// Callers own the follow-up of transitioning related collaboration sessions
// to ended.
func (s *Store) RemoveShopper(shopperID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.shoppers[shopperID]
	if !ok {
		return false
	}
	delete(s.shoppers, shopperID)
	return true
}

// RegisterRep puts a representative on the monitor roster, displacing any
// previous channel registered under the same id.
func (s *Store) RegisterRep(repID string, conn Connector) model.RepConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.reps[repID]; ok && prev.conn != nil && prev.conn != conn {
		prev.conn.Close()
	}
	rec := &repRecord{
		rep:  model.RepConnection{SalesRepID: repID, ConnectedAt: s.nowMs()},
		conn: conn,
	}
	s.reps[repID] = rec
	return rec.rep
}

// UnregisterRep removes the roster entry, but only when connID still matches
// the registered channel (same stale-teardown guard as shoppers).
func (s *Store) UnregisterRep(repID string, connID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reps[repID]
	if !ok || rec.conn == nil || rec.conn.GetID() != connID {
		return false
	}
	rec.conn.Close()
	delete(s.reps, repID)
	return true
}

func (s *Store) RepConn(repID string) (Connector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reps[repID]
	if !ok || rec.conn == nil {
		return nil, false
	}
	return rec.conn, true
}

// RepConns snapshots the connectors of every registered representative for
// the broadcaster's fan-out loop.
func (s *Store) RepConns() []Connector {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns := make([]Connector, 0, len(s.reps))
	for _, rec := range s.reps {
		if rec.conn != nil {
			conns = append(conns, rec.conn)
		}
	}
	return conns
}

// GetRepBusy reports which shopper (if any) the representative currently
// owns. Linear scan; rep counts are small.
func (s *Store) GetRepBusy(repID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repBusyLocked(repID)
}

func (s *Store) repBusyLocked(repID string) (string, bool) {
	for id, rec := range s.shoppers {
		if rec.entry.AssignedRepID == repID {
			return id, true
		}
	}
	return "", false
}

// Assign claims a shopper for a representative. It fails without side
// effects when the shopper is unknown, already claimed by someone else, or
// the representative is already busy elsewhere. Re-claiming an existing
// own assignment is idempotent (the re-offer path after a reconnect).
func (s *Store) Assign(shopperID, repID string) (model.ShopperEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok {
		return model.ShopperEntry{}, ErrShopperNotFound
	}
	if _, ok := s.reps[repID]; !ok {
		return model.ShopperEntry{}, ErrRepNotFound
	}
	if rec.entry.AssignedRepID != "" && rec.entry.AssignedRepID != repID {
		return model.ShopperEntry{}, ErrAlreadyClaimed
	}
	if busyWith, busy := s.repBusyLocked(repID); busy && busyWith != shopperID {
		return model.ShopperEntry{}, ErrRepBusy
	}

	rec.entry.AssignedRepID = repID
	return rec.entry, nil
}

// Release clears the assignment and reports the previous owner so the
// caller can fabricate downstream notifications. ok is false only when the
// shopper does not exist; releasing an unassigned shopper returns prev "".
func (s *Store) Release(shopperID string) (model.ShopperEntry, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok {
		return model.ShopperEntry{}, "", false
	}
	prev := rec.entry.AssignedRepID
	rec.entry.AssignedRepID = ""
	return rec.entry, prev, true
}

// SnapshotQueue derives the public projection of the whole registry in
// arrival order, including assigned and disconnected entries.
func (s *Store) SnapshotQueue() []model.QueueSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.orderedLocked(func(*shopperRecord) bool { return true })
	now := s.nowMs()
	out := make([]model.QueueSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.Summarize(rec.entry, now))
	}
	return out
}

// PositionOf ranks the shopper inside the waiting line: connected,
// unassigned, ordered by connectedAt ascending, 1-based. 0 means the
// shopper is not waiting.
func (s *Store) PositionOf(shopperID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiting := s.orderedLocked(func(rec *shopperRecord) bool {
		return rec.entry.IsConnected() && rec.entry.AssignedRepID == ""
	})
	for i, rec := range waiting {
		if rec.entry.ShopperID == shopperID {
			return i + 1
		}
	}
	return 0
}

// orderedLocked filters records and sorts by (connectedAt, arrival seq).
// The seq tie-break keeps FIFO order deterministic inside one millisecond.
func (s *Store) orderedLocked(keep func(*shopperRecord) bool) []*shopperRecord {
	recs := make([]*shopperRecord, 0, len(s.shoppers))
	for _, rec := range s.shoppers {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].entry.ConnectedAt != recs[j].entry.ConnectedAt {
			return recs[i].entry.ConnectedAt < recs[j].entry.ConnectedAt
		}
		return recs[i].seq < recs[j].seq
	})
	return recs
}

func (s *Store) Stats() model.RegistryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.RegistryStats{
		Shoppers:        len(s.shoppers),
		Representatives: len(s.reps),
		CollabSessions:  len(s.collabs),
		UptimeSeconds:   int64(s.now().Sub(s.startedAt).Seconds()),
	}
	for _, rec := range s.shoppers {
		if rec.entry.IsConnected() {
			st.ConnectedShoppers++
			if rec.entry.AssignedRepID == "" {
				st.WaitingShoppers++
			}
		}
		if rec.entry.AssignedRepID != "" {
			st.AssignedShoppers++
		}
	}
	for _, ssn := range s.collabs {
		if ssn.Status == model.CollabPending {
			st.PendingCollabs++
		}
	}
	return st
}

// RequestCollab opens a pending handshake for an actively assigned pair.
// A still-pending previous request blocks a new one; terminal sessions are
// replaced by a fresh pending session under the same key.
func (s *Store) RequestCollab(shopperID, repID string) (model.CollabSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shoppers[shopperID]
	if !ok {
		return model.CollabSession{}, ErrShopperNotFound
	}
	if rec.entry.AssignedRepID != repID {
		return model.CollabSession{}, ErrNotAssigned
	}

	key := collabKey{repID: repID, shopperID: shopperID}
	if ssn := s.observeCollabLocked(key); ssn != nil && ssn.Status == model.CollabPending {
		return model.CollabSession{}, ErrCollabPending
	}

	ssn := &model.CollabSession{
		SalesRepID:  repID,
		ShopperID:   shopperID,
		Status:      model.CollabPending,
		RequestedAt: s.nowMs(),
	}
	s.collabs[key] = ssn
	return *ssn, nil
}

// RespondCollab applies the shopper's answer to a pending handshake.
func (s *Store) RespondCollab(shopperID, repID string, accepted bool) (model.CollabSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := collabKey{repID: repID, shopperID: shopperID}
	ssn := s.observeCollabLocked(key)
	if ssn == nil || ssn.Status != model.CollabPending {
		return model.CollabSession{}, ErrNoPendingCollab
	}

	if accepted {
		ssn.Status = model.CollabAccepted
	} else {
		ssn.Status = model.CollabRejected
	}
	ssn.RespondedAt = s.nowMs()
	return *ssn, nil
}

// EndCollab forces a session to ended. Returns false when there was no
// session or it had already reached a terminal state.
func (s *Store) EndCollab(shopperID, repID string) (model.CollabSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := collabKey{repID: repID, shopperID: shopperID}
	ssn, ok := s.collabs[key]
	if !ok || ssn.Status.Terminal() {
		return model.CollabSession{}, false
	}
	ssn.Status = model.CollabEnded
	return *ssn, true
}

func (s *Store) GetCollab(shopperID, repID string) (model.CollabSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ssn := s.observeCollabLocked(collabKey{repID: repID, shopperID: shopperID})
	if ssn == nil {
		return model.CollabSession{}, false
	}
	return *ssn, true
}

// EndCollabsForShopper sweeps every non-terminal session naming the shopper.
// Used when an entry is removed (leave or janitor eviction).
func (s *Store) EndCollabsForShopper(shopperID string) []model.CollabSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endCollabsForShopperLocked(shopperID)
}

func (s *Store) endCollabsForShopperLocked(shopperID string) []model.CollabSession {
	var ended []model.CollabSession
	for key, ssn := range s.collabs {
		if key.shopperID == shopperID && !ssn.Status.Terminal() {
			ssn.Status = model.CollabEnded
			ended = append(ended, *ssn)
		}
	}
	return ended
}

// observeCollabLocked applies the lazy lifecycle rule: a non-terminal
// session whose pair is no longer assigned transitions to ended the moment
// anyone looks at it.
func (s *Store) observeCollabLocked(key collabKey) *model.CollabSession {
	ssn, ok := s.collabs[key]
	if !ok {
		return nil
	}
	if !ssn.Status.Terminal() {
		rec, ok := s.shoppers[key.shopperID]
		if !ok || rec.entry.AssignedRepID != key.repID {
			ssn.Status = model.CollabEnded
		}
	}
	return ssn
}

// SweepDisconnected evicts every entry disconnected for strictly longer
// than the grace window and ends its collaboration sessions. Returns the
// evicted entries so the caller can publish a single change event.
func (s *Store) SweepDisconnected(grace time.Duration) []model.ShopperEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMs()
	var evicted []model.ShopperEntry
	for id, rec := range s.shoppers {
		if rec.entry.IsConnected() {
			continue
		}
		if now-rec.entry.DisconnectedAt > grace.Milliseconds() {
			delete(s.shoppers, id)
			s.endCollabsForShopperLocked(id)
			evicted = append(evicted, rec.entry)
		}
	}
	return evicted
}

// SweepExpiredCollabs deletes pending sessions older than the request TTL.
func (s *Store) SweepExpiredCollabs(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMs()
	removed := 0
	for key, ssn := range s.collabs {
		if ssn.Status == model.CollabPending && now-ssn.RequestedAt > ttl.Milliseconds() {
			delete(s.collabs, key)
			removed++
		}
	}
	return removed
}
