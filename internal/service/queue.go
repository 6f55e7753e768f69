package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/adapter/pubsub"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
)

// Human-readable companions for frames that carry a message field.
const (
	msgMonitorConnected = "Monitoring connection established"
	msgCallAnswered     = "A sales representative has joined your call"
	msgCallClaimed      = "Call claimed successfully"
	msgCallReleased     = "The representative has left the call. You are back in the waiting line."
)

// [QUEUE_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (WebSocket/REST)
// Every operation is one committed store mutation (or authorized relay) plus
// its outbound frames. Mutations that change what representatives see also
// announce themselves on the internal queue-events topic.
type Queuer interface {
	// Shopper lifecycle
	ShopperJoined(ctx context.Context, conn registry.Connector, shopperID string, caps model.MediaCapabilities) error
	ShopperLeft(ctx context.Context, shopperID string) error
	ShopperDisconnected(ctx context.Context, shopperID string, connID uuid.UUID)
	EndCall(ctx context.Context, shopperID string) error

	// Representative lifecycle
	RepConnected(ctx context.Context, conn registry.Connector, repID string) error
	RepDisconnected(ctx context.Context, repID string, connID uuid.UUID)
	Claim(ctx context.Context, repID, shopperID string, sdpOffer json.RawMessage) error
	Release(ctx context.Context, repID, shopperID string) error

	// Signaling relay
	ForwardSDPAnswer(ctx context.Context, shopperID string, sdpAnswer json.RawMessage) error
	ForwardShopperICE(ctx context.Context, shopperID string, candidate json.RawMessage) error
	ForwardRepICE(ctx context.Context, repID, shopperID string, candidate json.RawMessage) error

	// Collaboration handshake
	RequestCollaboration(ctx context.Context, repID, shopperID string) error
	RespondCollaboration(ctx context.Context, shopperID, repID string, accepted bool) error
	EndCollaboration(ctx context.Context, shopperID, repID string) error
}

// [IMPLEMENTATION] PRIVATE TO ENFORCE INTERFACE USAGE
type QueueService struct {
	store       registry.Storer
	dispatcher  pubsub.EventDispatcher
	logger      *slog.Logger
	sendTimeout time.Duration
}

// NewQueueService returns a production-ready instance of the service.
func NewQueueService(store registry.Storer, dispatcher pubsub.EventDispatcher, logger *slog.Logger, cfg *config.Config) *QueueService {
	return &QueueService{
		store:       store,
		dispatcher:  dispatcher,
		logger:      logger,
		sendTimeout: cfg.Service.SendTimeout,
	}
}

// ShopperJoined registers (or refreshes) the shopper and confirms the join
// with a queue_joined frame carrying the current waiting-line position.
func (s *QueueService) ShopperJoined(ctx context.Context, conn registry.Connector, shopperID string, caps model.MediaCapabilities) error {
	entry, created := s.store.UpsertShopper(shopperID, conn, caps)

	s.push(conn, event.NewFrame(event.QueueJoined, event.PriorityNormal, &model.QueueJoinedPayload{
		ShopperID:     shopperID,
		Position:      s.store.PositionOf(shopperID),
		HasMicrophone: entry.HasMicrophone,
	}))

	change := event.ChangeJoined
	if !created {
		change = event.ChangeReconnected
	}
	s.announce(ctx, change, shopperID, entry.AssignedRepID)
	return nil
}

// ShopperLeft removes the entry outright. The duplex channel survives; the
// shopper may join again on the same socket.
func (s *QueueService) ShopperLeft(ctx context.Context, shopperID string) error {
	conn, connected := s.store.ShopperConn(shopperID)
	ended := s.store.EndCollabsForShopper(shopperID)

	if !s.store.RemoveShopper(shopperID) {
		return registry.ErrShopperNotFound
	}

	if connected {
		s.push(conn, event.NewFrame(event.QueueLeft, event.PriorityNormal, &model.QueueLeftPayload{
			ShopperID: shopperID,
		}))
		s.notifyCollabEnded(shopperID, conn, ended)
	}

	s.announce(ctx, event.ChangeLeft, shopperID, "")
	return nil
}

// ShopperDisconnected records a dropped channel. The entry stays for the
// grace window so representatives see the shopper as offline rather than
// gone. Stale teardowns (connID no longer on file) are ignored.
func (s *QueueService) ShopperDisconnected(ctx context.Context, shopperID string, connID uuid.UUID) {
	entry, ok := s.store.MarkShopperDisconnected(shopperID, connID)
	if !ok {
		return
	}
	s.announce(ctx, event.ChangeDisconnected, shopperID, entry.AssignedRepID)
}

// RepConnected puts the representative on the monitor roster and primes the
// channel: first the current snapshot, then the connected acknowledgment.
func (s *QueueService) RepConnected(ctx context.Context, conn registry.Connector, repID string) error {
	s.store.RegisterRep(repID, conn)

	s.push(conn, event.NewFrame(event.QueueUpdate, event.PriorityLow, &model.QueueUpdatePayload{
		Queue: s.store.SnapshotQueue(),
	}))
	s.push(conn, event.NewFrame(event.Connected, event.PriorityNormal, &model.ConnectedPayload{
		Message: msgMonitorConnected,
	}))
	return nil
}

// RepDisconnected drops the roster entry. Assignments held by the
// representative are NOT auto-released; shoppers keep their claim until an
// explicit release, a hangup, or janitor eviction.
func (s *QueueService) RepDisconnected(ctx context.Context, repID string, connID uuid.UUID) {
	s.store.UnregisterRep(repID, connID)
}

// Claim assigns the shopper to the representative and opens signaling: the
// shopper receives the SDP offer inside call_answered, the representative a
// call_claimed confirmation. A failed claim mutates nothing and announces
// nothing.
func (s *QueueService) Claim(ctx context.Context, repID, shopperID string, sdpOffer json.RawMessage) error {
	if _, err := s.store.Assign(shopperID, repID); err != nil {
		return err
	}

	if conn, ok := s.store.ShopperConn(shopperID); ok {
		s.push(conn, event.NewFrame(event.CallAnswered, event.PriorityHigh, &model.CallAnsweredPayload{
			SalesRepID: repID,
			Message:    msgCallAnswered,
			SDPOffer:   sdpOffer,
		}))
	} else {
		// Claiming a disconnected shopper holds the slot; the offer is
		// undeliverable until the shopper returns.
		s.logger.Info("[CLAIM_OFFLINE_SHOPPER]",
			slog.String("shopper_id", shopperID),
			slog.String("sales_rep_id", repID),
		)
	}

	if conn, ok := s.store.RepConn(repID); ok {
		s.push(conn, event.NewFrame(event.CallClaimed, event.PriorityHigh, &model.CallClaimedPayload{
			ShopperID: shopperID,
			Message:   msgCallClaimed,
		}))
	}

	s.announce(ctx, event.ChangeClaimed, shopperID, repID)
	return nil
}

// Release is the representative-initiated unassign. Only the owner may
// release; the shopper returns to the waiting line and both sides receive
// call_released.
func (s *QueueService) Release(ctx context.Context, repID, shopperID string) error {
	entry, ok := s.store.GetShopper(shopperID)
	if !ok {
		return registry.ErrShopperNotFound
	}
	if entry.AssignedRepID != repID {
		return registry.ErrNotAssigned
	}

	ended := s.store.EndCollabsForShopper(shopperID)
	if _, _, ok := s.store.Release(shopperID); !ok {
		return registry.ErrShopperNotFound
	}

	if conn, connected := s.store.ShopperConn(shopperID); connected {
		s.push(conn, event.NewFrame(event.CallReleased, event.PriorityHigh, &model.CallReleasedToShopperPayload{
			PreviousSalesRepID: repID,
			Position:           s.store.PositionOf(shopperID),
			Message:            msgCallReleased,
		}))
		s.notifyCollabEnded(shopperID, conn, ended)
	}

	if conn, ok := s.store.RepConn(repID); ok {
		s.push(conn, event.NewFrame(event.CallReleased, event.PriorityHigh, &model.CallReleasedToRepPayload{
			ShopperID: shopperID,
		}))
		s.notifyCollabEndedRep(repID, conn, ended)
	}

	s.announce(ctx, event.ChangeReleased, shopperID, repID)
	return nil
}

// EndCall is the shopper-initiated hangup. The shopper receives call_ended,
// the previous owner call_ended_by_shopper.
func (s *QueueService) EndCall(ctx context.Context, shopperID string) error {
	entry, ok := s.store.GetShopper(shopperID)
	if !ok {
		return registry.ErrShopperNotFound
	}
	if entry.AssignedRepID == "" {
		return registry.ErrNotAssigned
	}

	ended := s.store.EndCollabsForShopper(shopperID)
	_, prev, ok := s.store.Release(shopperID)
	if !ok {
		return registry.ErrShopperNotFound
	}

	if conn, connected := s.store.ShopperConn(shopperID); connected {
		s.push(conn, event.NewFrame(event.CallEnded, event.PriorityHigh, &model.CallEndedPayload{
			ShopperID: shopperID,
		}))
		s.notifyCollabEnded(shopperID, conn, ended)
	}

	if prev != "" {
		if conn, ok := s.store.RepConn(prev); ok {
			s.push(conn, event.NewFrame(event.CallEndedByShopper, event.PriorityHigh, &model.CallEndedByShopperPayload{
				ShopperID: shopperID,
			}))
			s.notifyCollabEndedRep(prev, conn, ended)
		}
	}

	s.announce(ctx, event.ChangeReleased, shopperID, prev)
	return nil
}

// ForwardSDPAnswer relays the shopper's SDP answer to its assigned
// representative. Unassigned shoppers may not signal.
func (s *QueueService) ForwardSDPAnswer(ctx context.Context, shopperID string, sdpAnswer json.RawMessage) error {
	repID, err := s.assignedRep(shopperID)
	if err != nil {
		return err
	}

	conn, ok := s.store.RepConn(repID)
	if !ok {
		return ErrPeerUnavailable
	}

	if !s.push(conn, event.NewFrame(event.SDPAnswer, event.PriorityHigh, &model.SDPAnswerPayload{
		ShopperID: shopperID,
		SDPAnswer: sdpAnswer,
	})) {
		return ErrPeerUnavailable
	}
	return nil
}

// ForwardShopperICE relays one ICE candidate from the shopper to its
// assigned representative.
func (s *QueueService) ForwardShopperICE(ctx context.Context, shopperID string, candidate json.RawMessage) error {
	repID, err := s.assignedRep(shopperID)
	if err != nil {
		return err
	}

	conn, ok := s.store.RepConn(repID)
	if !ok {
		return ErrPeerUnavailable
	}

	if !s.push(conn, event.NewFrame(event.ICECandidate, event.PriorityHigh, &model.ICECandidatePayload{
		ShopperID:    shopperID,
		ICECandidate: candidate,
	})) {
		return ErrPeerUnavailable
	}
	return nil
}

// ForwardRepICE relays one ICE candidate from a representative to a shopper
// it currently owns.
func (s *QueueService) ForwardRepICE(ctx context.Context, repID, shopperID string, candidate json.RawMessage) error {
	entry, ok := s.store.GetShopper(shopperID)
	if !ok {
		return registry.ErrShopperNotFound
	}
	if entry.AssignedRepID != repID {
		return registry.ErrNotAssigned
	}

	conn, ok := s.store.ShopperConn(shopperID)
	if !ok {
		return ErrPeerUnavailable
	}

	if !s.push(conn, event.NewFrame(event.ICECandidate, event.PriorityHigh, &model.ICECandidatePayload{
		SalesRepID:   repID,
		ICECandidate: candidate,
	})) {
		return ErrPeerUnavailable
	}
	return nil
}

// RequestCollaboration opens the handshake: a pending session in the store,
// a collaboration_request invite on the shopper's channel, and a pending
// status receipt on the representative's.
func (s *QueueService) RequestCollaboration(ctx context.Context, repID, shopperID string) error {
	conn, ok := s.store.ShopperConn(shopperID)
	if !ok {
		return ErrPeerUnavailable
	}

	if _, err := s.store.RequestCollab(shopperID, repID); err != nil {
		return err
	}

	s.push(conn, event.NewFrame(event.CollabRequest, event.PriorityNormal, &model.CollabRequestPayload{
		SalesRepID:   repID,
		SalesRepName: displayName(repID),
	}))

	if repConn, ok := s.store.RepConn(repID); ok {
		s.push(repConn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:    model.CollabPending,
			ShopperID: shopperID,
		}))
	}
	return nil
}

// RespondCollaboration applies the shopper's answer and reports the outcome
// to both parties.
func (s *QueueService) RespondCollaboration(ctx context.Context, shopperID, repID string, accepted bool) error {
	ssn, err := s.store.RespondCollab(shopperID, repID, accepted)
	if err != nil {
		return err
	}

	if conn, ok := s.store.ShopperConn(shopperID); ok {
		s.push(conn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:     ssn.Status,
			SalesRepID: repID,
		}))
	}
	if conn, ok := s.store.RepConn(repID); ok {
		s.push(conn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:    ssn.Status,
			ShopperID: shopperID,
		}))
	}
	return nil
}

// EndCollaboration force-ends one session and reports the terminal status to
// both parties. Ending an already-terminal session is a no-op.
func (s *QueueService) EndCollaboration(ctx context.Context, shopperID, repID string) error {
	ssn, ok := s.store.EndCollab(shopperID, repID)
	if !ok {
		return registry.ErrNoPendingCollab
	}

	if conn, ok := s.store.ShopperConn(shopperID); ok {
		s.push(conn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:     ssn.Status,
			SalesRepID: repID,
		}))
	}
	if conn, ok := s.store.RepConn(repID); ok {
		s.push(conn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:    ssn.Status,
			ShopperID: shopperID,
		}))
	}
	return nil
}

// assignedRep authorizes a shopper-side relay: the shopper must exist and be
// assigned to somebody.
func (s *QueueService) assignedRep(shopperID string) (string, error) {
	entry, ok := s.store.GetShopper(shopperID)
	if !ok {
		return "", registry.ErrShopperNotFound
	}
	if entry.AssignedRepID == "" {
		return "", registry.ErrNotAssigned
	}
	return entry.AssignedRepID, nil
}

// notifyCollabEnded tells the shopper about sessions force-ended by a
// lifecycle transition (release, hangup, leave).
func (s *QueueService) notifyCollabEnded(shopperID string, conn registry.Connector, ended []model.CollabSession) {
	for _, ssn := range ended {
		s.push(conn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:     ssn.Status,
			SalesRepID: ssn.SalesRepID,
		}))
	}
}

// notifyCollabEndedRep mirrors notifyCollabEnded for the representative side
// of the same sessions.
func (s *QueueService) notifyCollabEndedRep(repID string, conn registry.Connector, ended []model.CollabSession) {
	for _, ssn := range ended {
		if ssn.SalesRepID != repID {
			continue
		}
		s.push(conn, event.NewFrame(event.CollabStatus, event.PriorityNormal, &model.CollabStatusPayload{
			Status:    ssn.Status,
			ShopperID: ssn.ShopperID,
		}))
	}
}

// push delivers one frame with the configured send window and reports whether
// it landed. Lifecycle notifications ignore the result, the broadcaster
// repairs any missed state on the next snapshot. Signaling relays must
// surface a false return to the sender instead.
func (s *QueueService) push(conn registry.Connector, frame *event.Frame) bool {
	if conn.Send(frame, s.sendTimeout) {
		return true
	}
	s.logger.Warn("DOWNSTREAM_WRITE_FAILED",
		slog.String("kind", frame.GetKind().String()),
		slog.String("conn_id", conn.GetID().String()),
	)
	return false
}

// announce publishes a committed mutation on the internal queue topic. The
// broadcaster turns it into monitor snapshots.
func (s *QueueService) announce(ctx context.Context, change event.QueueChange, shopperID, repID string) {
	if err := s.dispatcher.Publish(ctx, event.NewQueueChanged(change, shopperID, repID)); err != nil {
		s.logger.Error("QUEUE_EVENT_PUBLISH_FAILED",
			slog.String("change", string(change)),
			slog.String("shopper_id", shopperID),
			"err", err,
		)
	}
}

// displayName derives a presentable label from a representative id, e.g.
// "sales-rep-1" becomes "Sales Rep 1". Identity metadata is out of scope, so
// the id is all there is to work with.
func displayName(repID string) string {
	fields := strings.FieldsFunc(repID, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	if len(fields) == 0 {
		return repID
	}
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
