package bluetooth

import (
	"strconv"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
)

// Handle is the opaque session handle assigned by a Transport on connect.
type Handle uint16

// String converts a Handle to a string.
func (h Handle) String() string {
	return "0x" + strconv.FormatUint(uint64(h), 16)
}

// Event describes an asynchronous fact delivered by a Transport.
// The set of events is closed; see the types below.
type Event interface {
	// SessionHandle returns the handle of the session the event belongs to.
	SessionHandle() Handle

	// Name returns a short name of the event kind.
	Name() string

	isEvent()
}

// EventHeader holds the fields common to all events.
type EventHeader struct {
	Handle Handle
}

// SessionHandle returns the handle of the session the event belongs to.
func (e EventHeader) SessionHandle() Handle {
	return e.Handle
}

func (EventHeader) isEvent() {}

// ConnectionOpened is delivered once a connect request finishes.
type ConnectionOpened struct {
	EventHeader
	Status Status
}

// ConnectionClosed is delivered once the session is torn down.
type ConnectionClosed struct {
	EventHeader
}

// OperationCompleted terminates the outstanding operation.
type OperationCompleted struct {
	EventHeader
	Status Status
}

// AuthenticationRequested asks for credentials to be supplied.
type AuthenticationRequested struct {
	EventHeader
}

// SizeResult carries the result of a size query.
type SizeResult struct {
	EventHeader
	Size uint32
}

// RecordResult carries one lookup result.
type RecordResult struct {
	EventHeader
	ContactName []byte
	CardHandle  []byte
}

// DataFragment carries one ordered chunk of a streamed object.
type DataFragment struct {
	EventHeader
	Data []byte
}

func (ConnectionOpened) Name() string        { return "connection-opened" }
func (ConnectionClosed) Name() string        { return "connection-closed" }
func (OperationCompleted) Name() string      { return "operation-completed" }
func (AuthenticationRequested) Name() string { return "authentication-requested" }
func (SizeResult) Name() string              { return "size-result" }
func (RecordResult) Name() string            { return "record-result" }
func (DataFragment) Name() string            { return "data-fragment" }

// NewRecordResult copies nameLen bytes of name and handleLen bytes of handle
// into freshly allocated storage. Lengths larger than the supplied buffers
// are rejected.
func NewRecordResult(h Handle, name []byte, nameLen int, handle []byte, handleLen int) (RecordResult, error) {
	n, err := boundedCopy("name", name, nameLen)
	if err != nil {
		return RecordResult{}, err
	}

	c, err := boundedCopy("handle", handle, handleLen)
	if err != nil {
		return RecordResult{}, err
	}

	return RecordResult{EventHeader{h}, n, c}, nil
}

func boundedCopy(field string, src []byte, length int) ([]byte, error) {
	if length < 0 || length > len(src) {
		return nil, fault.Wrap(errorkinds.ErrProtocolViolation,
			fmsg.With("record "+field+" length "+strconv.Itoa(length)+
				" exceeds the "+strconv.Itoa(len(src))+" bytes supplied"),
		)
	}

	dst := make([]byte, length)
	copy(dst, src[:length])

	return dst, nil
}
