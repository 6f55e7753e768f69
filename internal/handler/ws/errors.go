package ws

import (
	"errors"

	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	wsmarshaller "github.com/virtuolot/showroom-assist-service/internal/handler/marshaller/ws"
	"github.com/virtuolot/showroom-assist-service/internal/service"
)

// errNotIdentified rejects monitor frames arriving before the connect
// handshake bound a representative identity to the channel.
var errNotIdentified = errors.New("identify with a connect frame first")

// errIdentityMismatch rejects frames naming a representative other than the
// one bound to this channel.
var errIdentityMismatch = errors.New("frame names a different representative than this connection")

// errorPayload folds domain failures onto the wire error contract: a
// machine-readable code plus a human-readable message.
func errorPayload(err error) *model.ErrorPayload {
	switch {
	case errors.Is(err, wsmarshaller.ErrBadFrame):
		return &model.ErrorPayload{
			Code:    wsmarshaller.CodeInvalidFrame,
			Message: wsmarshaller.MsgInvalidFormat,
		}
	case errors.Is(err, registry.ErrShopperNotFound), errors.Is(err, registry.ErrRepNotFound):
		return &model.ErrorPayload{Code: wsmarshaller.CodeNotFound, Message: err.Error()}
	case errors.Is(err, registry.ErrAlreadyClaimed):
		return &model.ErrorPayload{Code: wsmarshaller.CodeAlreadyClaimed, Message: err.Error()}
	case errors.Is(err, registry.ErrRepBusy):
		return &model.ErrorPayload{Code: wsmarshaller.CodeRepBusy, Message: err.Error()}
	case errors.Is(err, registry.ErrNotAssigned),
		errors.Is(err, errNotIdentified),
		errors.Is(err, errIdentityMismatch):
		return &model.ErrorPayload{Code: wsmarshaller.CodeUnauthorized, Message: err.Error()}
	case errors.Is(err, registry.ErrCollabPending):
		return &model.ErrorPayload{Code: wsmarshaller.CodeCollabPending, Message: err.Error()}
	case errors.Is(err, registry.ErrNoPendingCollab):
		return &model.ErrorPayload{Code: wsmarshaller.CodeNoPendingCollab, Message: err.Error()}
	case errors.Is(err, service.ErrPeerUnavailable):
		return &model.ErrorPayload{Code: wsmarshaller.CodePeerUnavailable, Message: err.Error()}
	default:
		return &model.ErrorPayload{Message: err.Error()}
	}
}
