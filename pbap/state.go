package pbap

// State is the connection state of a Session.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdle
	StateBusy
	StateDisconnecting
)

// String converts a State to a string.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "connected-idle"
	case StateBusy:
		return "connected-busy"
	case StateDisconnecting:
		return "disconnecting"
	}

	return "unknown"
}

// Connected reports whether the state has an open connection.
func (s State) Connected() bool {
	return s == StateIdle || s == StateBusy
}
