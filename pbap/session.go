package pbap

import (
	"path"
	"strings"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
)

// Session is one logical connection to a remote phonebook server.
// It is owned by the caller and mutated only by a Controller.
type Session struct {
	address bluetooth.MacAddress
	handle  bluetooth.Handle
	state   State

	folder   string
	mask     bluetooth.FilterMask
	operator bluetooth.FilterOperator

	authPending bool
	op          *Operation
}

// SessionInfo is a read-only copy of a Session's attributes.
type SessionInfo struct {
	Address        bluetooth.MacAddress
	Handle         bluetooth.Handle
	State          State
	Folder         string
	Filter         bluetooth.FilterMask
	FilterOperator bluetooth.FilterOperator
	Operation      OperationKind
}

// NewSession returns a disconnected session.
func NewSession() *Session {
	return &Session{}
}

func (s *Session) Address() bluetooth.MacAddress            { return s.address }
func (s *Session) Handle() bluetooth.Handle                 { return s.handle }
func (s *Session) State() State                             { return s.state }
func (s *Session) Filter() bluetooth.FilterMask             { return s.mask }
func (s *Session) FilterOperator() bluetooth.FilterOperator { return s.operator }

// Folder returns the current folder; "/" is the session root.
func (s *Session) Folder() string {
	return "/" + s.folder
}

// Operation returns the outstanding operation, or nil.
func (s *Session) Operation() *Operation {
	return s.op
}

// Info returns a copy of the session attributes.
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		Address:        s.address,
		Handle:         s.handle,
		State:          s.state,
		Folder:         s.Folder(),
		Filter:         s.mask,
		FilterOperator: s.operator,
	}
	if s.op != nil {
		info.Operation = s.op.Kind
	}

	return info
}

// reset returns the session to Disconnected and drops all per-connection state.
func (s *Session) reset() {
	s.state = StateDisconnected
	s.folder = ""
	s.mask = bluetooth.FilterAll
	s.operator = bluetooth.FilterOr
	s.authPending = false
	s.op = nil
}

// cleanFolder normalizes a folder path relative to the session root.
func cleanFolder(p string) string {
	p = path.Clean("/" + strings.TrimSpace(p))

	return strings.TrimPrefix(p, "/")
}
