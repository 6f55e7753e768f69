package model

// CollabStatus is the lifecycle state of a collaboration handshake.
type CollabStatus string

const (
	CollabPending  CollabStatus = "pending"
	CollabAccepted CollabStatus = "accepted"
	CollabRejected CollabStatus = "rejected"
	CollabEnded    CollabStatus = "ended"
)

// Terminal reports whether the status is a sink state. Accepted is not
// terminal: an accepted session still ends when its call is released. A new
// request for the same pair replaces a terminal session with a fresh
// pending one.
func (s CollabStatus) Terminal() bool {
	return s == CollabRejected || s == CollabEnded
}

// CollabSession is the handshake record gating entry into the shared
// document room for one (salesRepId, shopperId) pair.
type CollabSession struct {
	SalesRepID  string       `json:"salesRepId"`
	ShopperID   string       `json:"shopperId"`
	Status      CollabStatus `json:"status"`
	RequestedAt int64        `json:"requestedAt"`           // Unix milliseconds
	RespondedAt int64        `json:"respondedAt,omitempty"` // 0 until the shopper responds
}
