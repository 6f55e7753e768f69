package wsmarshaller

import (
	"encoding/json"
	"errors"

	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

// ErrBadFrame reports an unparseable or discriminator-less inbound frame.
var ErrBadFrame = errors.New("bad frame")

// ClientFrame is the union of every field a client may send on either
// duplex channel. Handlers switch on Type and validate the fields that
// frame requires; unknown fields are ignored.
type ClientFrame struct {
	Type              string                  `json:"type"`
	ShopperID         string                  `json:"shopperId"`
	SalesRepID        string                  `json:"salesRepId"`
	MediaCapabilities model.MediaCapabilities `json:"mediaCapabilities"`
	SDPOffer          json.RawMessage         `json:"sdpOffer"`
	SDPAnswer         json.RawMessage         `json:"sdpAnswer"`
	ICECandidate      json.RawMessage         `json:"iceCandidate"`
	Accepted          *bool                   `json:"accepted"`
}

// DecodeClientFrame parses one inbound frame. A frame that does not parse
// or carries no type discriminator is a bad frame, never a dropped
// connection.
func DecodeClientFrame(data []byte) (*ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, ErrBadFrame
	}
	if f.Type == "" {
		return nil, ErrBadFrame
	}
	return &f, nil
}
