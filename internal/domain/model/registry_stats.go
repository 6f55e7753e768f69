package model

// RegistryStats is a point-in-time census of the store, served by the
// debug stats endpoint and scraped into gauges.
type RegistryStats struct {
	Shoppers          int   `json:"shoppers"`
	ConnectedShoppers int   `json:"connectedShoppers"`
	WaitingShoppers   int   `json:"waitingShoppers"`
	AssignedShoppers  int   `json:"assignedShoppers"`
	Representatives   int   `json:"representatives"`
	CollabSessions    int   `json:"collabSessions"`
	PendingCollabs    int   `json:"pendingCollabs"`
	UptimeSeconds     int64 `json:"uptimeSeconds"`
}
