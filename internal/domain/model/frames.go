package model

import "encoding/json"

// Outbound frame payloads. Wire names (the "type" discriminator) are bound
// by the ws marshaller; these structs carry only the frame body so the
// domain stays agnostic of transport naming.

// ConnectedPayload acknowledges a freshly opened duplex channel.
type ConnectedPayload struct {
	Message string `json:"message"`
}

// QueueJoinedPayload confirms a join to the shopper with its waiting-line
// position (0 when the shopper is not in the waiting line, e.g. already
// assigned after a reconnect).
type QueueJoinedPayload struct {
	ShopperID     string `json:"shopperId"`
	Position      int    `json:"position"`
	HasMicrophone bool   `json:"hasMicrophone"`
}

// QueueLeftPayload confirms an explicit leave to the shopper.
type QueueLeftPayload struct {
	ShopperID string `json:"shopperId"`
}

// CallAnsweredPayload delivers the representative's SDP offer to the shopper.
type CallAnsweredPayload struct {
	SalesRepID string          `json:"salesRepId"`
	Message    string          `json:"message"`
	SDPOffer   json.RawMessage `json:"sdpOffer"`
}

// CallClaimedPayload confirms a successful claim to the representative.
type CallClaimedPayload struct {
	ShopperID string `json:"shopperId"`
	Message   string `json:"message"`
}

// CallReleasedToShopperPayload tells the shopper its call ended and where it
// now stands in the waiting line.
type CallReleasedToShopperPayload struct {
	PreviousSalesRepID string `json:"previousSalesRepId"`
	Position           int    `json:"position"`
	Message            string `json:"message"`
}

// CallReleasedToRepPayload confirms a release to the representative that
// issued it.
type CallReleasedToRepPayload struct {
	ShopperID string `json:"shopperId"`
}

// CallEndedPayload confirms a shopper-initiated hangup to the shopper.
type CallEndedPayload struct {
	ShopperID string `json:"shopperId"`
}

// CallEndedByShopperPayload notifies the representative that its shopper
// hung up.
type CallEndedByShopperPayload struct {
	ShopperID string `json:"shopperId"`
}

// SDPAnswerPayload forwards the shopper's SDP answer to the representative.
type SDPAnswerPayload struct {
	ShopperID string          `json:"shopperId"`
	SDPAnswer json.RawMessage `json:"sdpAnswer"`
}

// ICECandidatePayload forwards one ICE candidate to the counterpart of the
// call. Exactly one of the id fields identifies the sender.
type ICECandidatePayload struct {
	ShopperID    string          `json:"shopperId,omitempty"`
	SalesRepID   string          `json:"salesRepId,omitempty"`
	ICECandidate json.RawMessage `json:"iceCandidate"`
}

// CollabRequestPayload invites the shopper into a shared document session.
type CollabRequestPayload struct {
	SalesRepID   string `json:"salesRepId"`
	SalesRepName string `json:"salesRepName"`
}

// CollabStatusPayload reports the handshake state to either side.
type CollabStatusPayload struct {
	Status     CollabStatus `json:"status"`
	ShopperID  string       `json:"shopperId,omitempty"`
	SalesRepID string       `json:"salesRepId,omitempty"`
}

// QueueUpdatePayload is the snapshot fan-out frame for representatives.
type QueueUpdatePayload struct {
	Queue []QueueSummary `json:"queue"`
}

// ErrorPayload is the uniform reply for every recoverable failure at the
// duplex edge. Code carries the machine-readable kind.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
