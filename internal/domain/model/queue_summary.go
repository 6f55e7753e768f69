package model

// QueueSummary is the public, connection-stripped projection of a shopper
// entry as pushed to representatives inside queue_update frames.
type QueueSummary struct {
	ShopperID                    string  `json:"shopperId"`
	ConnectedAt                  int64   `json:"connectedAt"`
	DisconnectedAt               *int64  `json:"disconnectedAt,omitempty"`
	IsConnected                  bool    `json:"isConnected"`
	TimeSinceDisconnectedSeconds *int64  `json:"timeSinceDisconnectedSeconds,omitempty"`
	AssignedRepID                *string `json:"assignedRepId"`
	HasMicrophone                bool    `json:"hasMicrophone"`
}

// Summarize projects an entry into its public shape. nowMs supplies the
// snapshot-time clock for the disconnect age; the entry itself is not read
// again afterwards.
func Summarize(e ShopperEntry, nowMs int64) QueueSummary {
	s := QueueSummary{
		ShopperID:     e.ShopperID,
		ConnectedAt:   e.ConnectedAt,
		IsConnected:   e.IsConnected(),
		HasMicrophone: e.HasMicrophone,
	}
	if e.DisconnectedAt != 0 {
		at := e.DisconnectedAt
		s.DisconnectedAt = &at
		age := (nowMs - e.DisconnectedAt) / 1000
		s.TimeSinceDisconnectedSeconds = &age
	}
	if e.AssignedRepID != "" {
		rep := e.AssignedRepID
		s.AssignedRepID = &rep
	}
	return s
}
