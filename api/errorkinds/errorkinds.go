// Package errorkinds holds the error values shared by the phonebook client.
package errorkinds

import (
	"errors"

	"github.com/Southclaws/fault/ftag"
)

var (
	ErrMethodCall        = errors.New("error calling method")
	ErrNotSupported      = errors.New("this operation is not supported")
	ErrSessionNotExist   = errors.New("the session does not exist")
	ErrSessionStop       = errors.New("the session has stopped")
	ErrInvalidAddress    = errors.New("invalid Bluetooth address")
	ErrInvalidState      = errors.New("command not permitted in the current session state")
	ErrRemoteStatus      = errors.New("remote returned an error status")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrAuthentication    = errors.New("authentication failed")
	ErrHandlesExhausted  = errors.New("no free session handle")
)

// Tag kinds attached (with ftag.With) to session errors.
const (
	InvalidState      ftag.Kind = "INVALID_STATE"
	RemoteStatus      ftag.Kind = "REMOTE_STATUS"
	ProtocolViolation ftag.Kind = "PROTOCOL_VIOLATION"
)
