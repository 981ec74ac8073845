package pbap

import (
	"context"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
)

// StatusError is a non-ok status reported by the remote for a connection
// attempt or an operation.
type StatusError struct {
	// Op is the operation kind, or "connect".
	Op     string
	Status bluetooth.Status
}

func (e *StatusError) Error() string {
	return e.Op + " failed: " + e.Status.String()
}

// Unwrap allows errors.Is(err, errorkinds.ErrRemoteStatus).
func (e *StatusError) Unwrap() error {
	return errorkinds.ErrRemoteStatus
}

func sessionContext(s *Session) context.Context {
	return fctx.WithMeta(context.Background(),
		"address", s.address.String(),
		"handle", s.handle.String(),
		"state", s.state.String(),
	)
}

func invalidStateError(s *Session, cmd Command) error {
	return fault.Wrap(errorkinds.ErrInvalidState,
		fctx.With(sessionContext(s)),
		ftag.With(errorkinds.InvalidState),
		fmsg.WithDesc(
			fmt.Sprintf("%s not permitted while %s", cmd.CommandName(), s.state),
			fmt.Sprintf("Cannot %s while the session is %s", cmd.CommandName(), s.state),
		),
	)
}

func remoteStatusError(s *Session, op string, status bluetooth.Status) error {
	return fault.Wrap(&StatusError{Op: op, Status: status},
		fctx.With(sessionContext(s)),
		ftag.With(errorkinds.RemoteStatus),
	)
}

func protocolViolationError(s *Session, what string) error {
	return fault.Wrap(errorkinds.ErrProtocolViolation,
		fctx.With(sessionContext(s)),
		ftag.With(errorkinds.ProtocolViolation),
		fmsg.With(what),
	)
}

func transportError(s *Session, cmd Command, err error) error {
	return fault.Wrap(err,
		fctx.With(sessionContext(s)),
		ftag.With(ftag.Internal),
		fmsg.With("transport rejected "+cmd.CommandName()),
	)
}
