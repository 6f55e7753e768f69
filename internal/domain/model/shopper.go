package model

// MediaCapabilities is the opaque capability record a shopper reports on join.
// The queue interprets only the audio-input flag; everything else is carried verbatim.
type MediaCapabilities map[string]any

// HasAudioInput reports whether the record declares a usable microphone.
func (m MediaCapabilities) HasAudioInput() bool {
	v, ok := m["hasAudioInput"].(bool)
	return ok && v
}

// ShopperEntry is the authoritative record for one shopper identifier,
// kept for the whole process lifetime (or until the janitor reclaims it).
type ShopperEntry struct {
	ShopperID string

	// ConnectedAt is the first-seen wall-clock timestamp in Unix milliseconds.
	// [STABLE_FIELD] Never rewritten across reconnects.
	ConnectedAt int64

	// DisconnectedAt is the most recent disconnect timestamp in Unix
	// milliseconds, or 0 while the shopper is connected.
	DisconnectedAt int64

	// AssignedRepID is the representative currently handling this shopper,
	// or "" when the shopper is unassigned.
	AssignedRepID string

	HasMicrophone bool
	Capabilities  MediaCapabilities
}

// IsConnected mirrors the presence of a live duplex channel:
// connected entries carry no disconnect timestamp.
func (e ShopperEntry) IsConnected() bool {
	return e.DisconnectedAt == 0
}
