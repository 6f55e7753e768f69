package registry

import "errors"

// Typed failures surfaced by store operations. Handlers map these onto
// error reply frames; none of them terminates a connection.
var (
	ErrShopperNotFound = errors.New("shopper not found")
	ErrRepNotFound     = errors.New("representative not registered")
	ErrAlreadyClaimed  = errors.New("shopper already claimed by another representative")
	ErrRepBusy         = errors.New("representative already owns an active call")
	ErrNotAssigned     = errors.New("shopper is not assigned to this representative")
	ErrCollabPending   = errors.New("collaboration request already pending")
	ErrNoPendingCollab = errors.New("no pending collaboration request")
)
