package model

// RepConnection tracks one currently-connected sales representative.
// Destroyed on disconnect; the duplex channel handle itself stays
// registry-side so the model remains transport-free.
type RepConnection struct {
	SalesRepID  string
	ConnectedAt int64 // Unix milliseconds
}
