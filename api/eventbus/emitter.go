// Package eventbus fans session notifications out to any number of
// subscribers, such as renderers and recorders.
package eventbus

import (
	"sync"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/pbap"
	"github.com/cskr/pubsub/v2"
)

// EventID identifies a notification topic.
type EventID uint

const (
	StatusEvent EventID = iota + 1
	ErrorEvent
	ConnectionStateEvent
	AuthenticationEvent
	SizeEvent
	RecordEvent
	ObjectEvent
	OperationEvent
)

// AllEvents lists every topic.
var AllEvents = []EventID{
	StatusEvent, ErrorEvent, ConnectionStateEvent, AuthenticationEvent,
	SizeEvent, RecordEvent, ObjectEvent, OperationEvent,
}

// String converts an EventID to a string.
func (e EventID) String() string {
	switch e {
	case StatusEvent:
		return "status"
	case ErrorEvent:
		return "error"
	case ConnectionStateEvent:
		return "connection-state"
	case AuthenticationEvent:
		return "authentication"
	case SizeEvent:
		return "size"
	case RecordEvent:
		return "record"
	case ObjectEvent:
		return "object"
	case OperationEvent:
		return "operation"
	}

	return "unknown"
}

// Notification is one published message.
type Notification struct {
	ID EventID

	Message string
	Err     error

	Address bluetooth.MacAddress
	State   pbap.State

	Size   uint32
	Record pbap.Record

	Path   string
	Object []byte

	Kind   pbap.OperationKind
	Status bluetooth.Status
}

// SubscriberID describes a subscription.
type SubscriberID struct {
	C <-chan Notification

	unsub func()
	once  *sync.Once
}

// Unsubscribe stops the subscription; C is closed afterwards.
func (s SubscriberID) Unsubscribe() {
	if s.unsub == nil {
		return
	}

	s.once.Do(s.unsub)
}

// Bus publishes notifications to subscribers. It implements pbap.Observer.
// Publishing blocks until every subscriber has room, so subscribers must
// keep draining their channel.
type Bus struct {
	ps *pubsub.PubSub[EventID, Notification]
}

var _ pbap.Observer = (*Bus)(nil)

// New returns a bus with the given per-subscriber buffer capacity.
func New(capacity int) *Bus {
	return &Bus{ps: pubsub.New[EventID, Notification](capacity)}
}

// Subscribe subscribes to the given topics, or to every topic if none are given.
func (b *Bus) Subscribe(ids ...EventID) SubscriberID {
	if len(ids) == 0 {
		ids = AllEvents
	}

	ch := b.ps.Sub(ids...)

	return SubscriberID{
		C:    ch,
		once: &sync.Once{},
		unsub: func() {
			go b.ps.Unsub(ch, ids...)
		},
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.ps.Shutdown()
}

// Publish publishes n on its topic.
func (b *Bus) Publish(n Notification) {
	b.ps.Pub(n, n.ID)
}

func (b *Bus) OnStatus(message string) {
	b.Publish(Notification{ID: StatusEvent, Message: message})
}

func (b *Bus) OnError(err error) {
	b.Publish(Notification{ID: ErrorEvent, Err: err})
}

func (b *Bus) OnConnectionState(address bluetooth.MacAddress, state pbap.State) {
	b.Publish(Notification{ID: ConnectionStateEvent, Address: address, State: state})
}

func (b *Bus) OnAuthenticationRequested(address bluetooth.MacAddress) {
	b.Publish(Notification{ID: AuthenticationEvent, Address: address})
}

func (b *Bus) OnSize(size uint32) {
	b.Publish(Notification{ID: SizeEvent, Size: size})
}

func (b *Bus) OnRecord(record pbap.Record) {
	b.Publish(Notification{ID: RecordEvent, Record: record})
}

// OnObjectComplete publishes a copy of object.
func (b *Bus) OnObjectComplete(path string, object []byte) {
	b.Publish(Notification{ID: ObjectEvent, Path: path, Object: append([]byte(nil), object...)})
}

func (b *Bus) OnOperationComplete(kind pbap.OperationKind, status bluetooth.Status) {
	b.Publish(Notification{ID: OperationEvent, Kind: kind, Status: status})
}
