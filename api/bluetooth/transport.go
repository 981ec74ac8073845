package bluetooth

// EventSink receives events from a Transport.
// HandleEvent may be called from any goroutine, but events belonging to one
// session must be delivered in the order the transport produced them.
type EventSink interface {
	HandleEvent(ev Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(ev Event)

// HandleEvent calls f(ev).
func (f EventSinkFunc) HandleEvent(ev Event) {
	f(ev)
}

// Transport describes a phonebook access client transport.
// Every request returns as soon as it has been handed to the remote end;
// its outcome arrives later as one or more events on the sink passed to Connect.
type Transport interface {
	// Connect opens a profile session to the remote address and returns
	// the session handle. A ConnectionOpened event follows.
	Connect(address MacAddress, sink EventSink) (Handle, error)

	// Disconnect closes the session. A ConnectionClosed event follows.
	Disconnect(h Handle) error

	// Abort cancels the outstanding operation. The operation then completes
	// with StatusAborted (or normally, if it finished first).
	Abort(h Handle) error

	// GetSize queries the number of entries of a phonebook object.
	GetSize(h Handle, path string) error

	// Pull retrieves a whole phonebook object as data fragments.
	Pull(h Handle, path string) error

	// LookupByNumber performs a reverse lookup of a phone number.
	LookupByNumber(h Handle, number string) error

	// Authenticate answers an authentication request.
	Authenticate(h Handle, password string) error

	// SetFolder changes the current phonebook folder.
	SetFolder(h Handle, path string) error

	// SetFilter selects the vCard properties returned by the server.
	SetFilter(h Handle, mask FilterMask) error

	// SetFilterOperator sets how the selected properties combine.
	SetFilterOperator(h Handle, op FilterOperator) error
}
