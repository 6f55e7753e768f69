// Package wsmarshaller translates between domain events and the flat JSON
// frames of the duplex wire contract. Every frame is one object with a
// "type" discriminator at the top level; there is no envelope.
package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

// Wire frame type names, shared by both duplex channels.
const (
	// server → client
	TypeConnected          = "connected"
	TypeQueueJoined        = "queue_joined"
	TypeQueueLeft          = "queue_left"
	TypeQueueUpdate        = "queue_update"
	TypeCallAnswered       = "call_answered"
	TypeCallClaimed        = "call_claimed"
	TypeCallReleased       = "call_released"
	TypeCallEnded          = "call_ended"
	TypeCallEndedByShopper = "call_ended_by_shopper"
	TypeCollabRequest      = "collaboration_request"
	TypeCollabStatus       = "collaboration_status"
	TypeError              = "error"

	// client → server
	TypeJoinQueue      = "join_queue"
	TypeLeaveQueue     = "leave_queue"
	TypeEndCall        = "end_call"
	TypeCollabResponse = "collaboration_response"
	TypeRepConnect     = "connect"
	TypeClaimCall      = "claim_call"
	TypeReleaseCall    = "release_call"
	TypeRequestCollab  = "request_collaboration"

	// both directions
	TypeSDPAnswer    = "sdp_answer"
	TypeICECandidate = "ice_candidate"
)

// Machine-readable kinds carried in error frames.
const (
	CodeInvalidFrame    = "INVALID_FRAME"
	CodeUnknownType     = "UNKNOWN_TYPE"
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyClaimed  = "ALREADY_CLAIMED"
	CodeRepBusy         = "REP_BUSY"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodePeerUnavailable = "PEER_UNAVAILABLE"
	CodeCollabPending   = "COLLAB_PENDING"
	CodeNoPendingCollab = "NO_PENDING_REQUEST"
)

// MsgInvalidFormat is the mandated reply text for unparseable frames.
const MsgInvalidFormat = "Invalid message format"

// MarshalEvent encodes an event into its wire frame, caching the bytes on
// the event so a frame fanned out to many connections is encoded once.
// Write pumps racing on the same frame at worst duplicate the first encode;
// the cache is atomic and the payload immutable, so every racer produces
// the same bytes.
func MarshalEvent(ev event.Eventer) ([]byte, error) {
	if b, ok := ev.GetCached().([]byte); ok {
		return b, nil
	}

	payload := ev.GetPayload()
	name, err := frameName(payload)
	if err != nil {
		return nil, err
	}

	b, err := flatten(name, payload)
	if err != nil {
		return nil, err
	}
	ev.SetCached(b)
	return b, nil
}

// frameName binds a payload to its wire discriminator.
func frameName(payload any) (string, error) {
	switch payload.(type) {
	case *model.ConnectedPayload:
		return TypeConnected, nil
	case *model.QueueJoinedPayload:
		return TypeQueueJoined, nil
	case *model.QueueLeftPayload:
		return TypeQueueLeft, nil
	case *model.QueueUpdatePayload:
		return TypeQueueUpdate, nil
	case *model.CallAnsweredPayload:
		return TypeCallAnswered, nil
	case *model.CallClaimedPayload:
		return TypeCallClaimed, nil
	case *model.CallReleasedToShopperPayload, *model.CallReleasedToRepPayload:
		return TypeCallReleased, nil
	case *model.CallEndedPayload:
		return TypeCallEnded, nil
	case *model.CallEndedByShopperPayload:
		return TypeCallEndedByShopper, nil
	case *model.SDPAnswerPayload:
		return TypeSDPAnswer, nil
	case *model.ICECandidatePayload:
		return TypeICECandidate, nil
	case *model.CollabRequestPayload:
		return TypeCollabRequest, nil
	case *model.CollabStatusPayload:
		return TypeCollabStatus, nil
	case *model.ErrorPayload:
		return TypeError, nil
	default:
		return "", fmt.Errorf("ws marshal: unsupported payload %T", payload)
	}
}

// flatten splices the discriminator into the payload's own JSON object so
// the frame stays flat: {"type":"...", <payload fields>}.
func flatten(name string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ws marshal: %w", err)
	}

	out := make([]byte, 0, len(body)+len(name)+12)
	out = append(out, `{"type":"`...)
	out = append(out, name...)
	out = append(out, '"')
	if len(body) > 2 { // payload carries fields beyond "{}"
		out = append(out, ',')
		out = append(out, body[1:]...)
		return out, nil
	}
	return append(out, '}'), nil
}
