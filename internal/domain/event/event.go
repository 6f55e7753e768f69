package event

type EventKind int16

//go:generate stringer -type=EventKind
const (
	Connected EventKind = iota + 1 // [SYSTEM]
	QueueJoined
	QueueLeft
	QueueUpdate
	CallAnswered
	CallClaimed
	CallReleased
	CallEnded
	CallEndedByShopper
	SDPAnswer
	ICECandidate
	CollabRequest
	CollabStatus
	ErrorReply
	QueueChanged // [BUS] store mutation notification, never sent to a socket
)

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all data packets flowing through the
// registry toward duplex connections.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	GetCached() any
	SetCached(any)
}

// Exportable defines an event that should be re-published to an external
// message broker. An empty routing key tells the dispatcher to skip export.
type Exportable interface {
	GetRoutingKey() string
}
