package pbap

import (
	"errors"
	"fmt"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/rs/zerolog"
)

// Controller validates commands against a Session's state, forwards them to
// a Transport and applies transport events to the Session.
// A Controller is not safe for concurrent use; see Dispatcher.
type Controller struct {
	transport bluetooth.Transport
	sink      bluetooth.EventSink
	observer  Observer
	agg       aggregator

	logger zerolog.Logger
}

// Option configures a Controller or Dispatcher.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// NewController returns a Controller. Events for sessions it connects are
// delivered by the transport to sink.
func NewController(transport bluetooth.Transport, sink bluetooth.EventSink, observer Observer, opts ...Option) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}

	o := newOptions(opts)

	return &Controller{
		transport: transport,
		sink:      sink,
		observer:  observer,
		agg:       aggregator{observer},
		logger:    o.logger,
	}
}

// Submit validates cmd against the session state and forwards it to the
// transport. A command that the current state does not permit is rejected
// with errorkinds.ErrInvalidState, and nothing is forwarded.
func (c *Controller) Submit(s *Session, cmd Command) error {
	switch cmd := cmd.(type) {
	case Connect:
		return c.connect(s, cmd)

	case Disconnect:
		return c.disconnect(s, cmd)

	case Abort:
		return c.abort(s, cmd)

	case Authenticate:
		if s.state == StateConnecting && s.authPending {
			if err := c.transport.Authenticate(s.handle, cmd.Password); err != nil {
				return transportError(s, cmd, err)
			}
			s.authPending = false
			c.observer.OnStatus("Authenticating")

			return nil
		}

		return c.start(s, cmd, newOperation(KindAuthenticate, ""), func() error {
			return c.transport.Authenticate(s.handle, cmd.Password)
		})

	case SetFolder:
		op := newOperation(KindSetFolder, cmd.Path)
		op.folder = cleanFolder(cmd.Path)

		return c.start(s, cmd, op, func() error {
			return c.transport.SetFolder(s.handle, op.folder)
		})

	case SetFilter:
		op := newOperation(KindSetFilter, cmd.Mask.String())
		op.mask = cmd.Mask

		return c.start(s, cmd, op, func() error {
			return c.transport.SetFilter(s.handle, cmd.Mask)
		})

	case SetFilterOperator:
		op := newOperation(KindSetFilterOperator, cmd.Operator.String())
		op.operator = cmd.Operator

		return c.start(s, cmd, op, func() error {
			return c.transport.SetFilterOperator(s.handle, cmd.Operator)
		})

	case GetSize:
		return c.start(s, cmd, newOperation(KindSizeQuery, cmd.Path), func() error {
			return c.transport.GetSize(s.handle, cmd.Path)
		})

	case Pull:
		return c.start(s, cmd, newOperation(KindPull, cmd.Path), func() error {
			return c.transport.Pull(s.handle, cmd.Path)
		})

	case Lookup:
		return c.start(s, cmd, newOperation(KindLookup, cmd.Number), func() error {
			return c.transport.LookupByNumber(s.handle, cmd.Number)
		})
	}

	return errorkinds.ErrMethodCall
}

func (c *Controller) connect(s *Session, cmd Connect) error {
	if s.state != StateDisconnected {
		return invalidStateError(s, cmd)
	}

	c.observer.OnStatus("Connecting to " + cmd.Address.String())

	handle, err := c.transport.Connect(cmd.Address, c.sink)
	if err != nil {
		return transportError(s, cmd, err)
	}

	s.reset()
	s.address = cmd.Address
	s.handle = handle
	c.transition(s, StateConnecting)

	return nil
}

func (c *Controller) disconnect(s *Session, cmd Disconnect) error {
	if !s.state.Connected() {
		return invalidStateError(s, cmd)
	}

	if err := c.transport.Disconnect(s.handle); err != nil {
		return transportError(s, cmd, err)
	}

	if s.op != nil {
		c.logger.Debug().
			Str("op", s.op.Kind.String()).
			Str("op_id", s.op.ID.String()).
			Msg("Discarding outstanding operation on disconnect")
		s.op = nil
	}

	c.observer.OnStatus("Disconnecting")
	c.transition(s, StateDisconnecting)

	return nil
}

func (c *Controller) abort(s *Session, cmd Abort) error {
	if s.state != StateBusy {
		return invalidStateError(s, cmd)
	}
	if s.op.aborting {
		return nil
	}

	if err := c.transport.Abort(s.handle); err != nil {
		return transportError(s, cmd, err)
	}

	s.op.aborting = true
	c.observer.OnStatus("Aborting " + s.op.Kind.String())

	return nil
}

// start makes op the outstanding operation once forward succeeds.
func (c *Controller) start(s *Session, cmd Command, op *Operation, forward func() error) error {
	if s.state != StateIdle {
		return invalidStateError(s, cmd)
	}

	if err := forward(); err != nil {
		return transportError(s, cmd, err)
	}

	c.logger.Debug().
		Str("address", s.address.String()).
		Str("op", op.Kind.String()).
		Str("op_id", op.ID.String()).
		Str("target", op.Target).
		Msg("Operation started")

	s.op = op
	c.observer.OnStatus(startMessage(op))
	c.transition(s, StateBusy)

	return nil
}

// Apply applies a transport event to the session. Events that are impossible
// in the current state are protocol violations: the session is forced to
// Disconnected and the error is returned and reported to the observer.
func (c *Controller) Apply(s *Session, ev bluetooth.Event) error {
	c.logger.Trace().
		Str("address", s.address.String()).
		Str("event", ev.Name()).
		Str("state", s.state.String()).
		Msg("Event received")

	if s.state == StateDisconnected {
		c.logger.Debug().Str("event", ev.Name()).Msg("Ignoring event for a disconnected session")
		return nil
	}

	switch ev := ev.(type) {
	case bluetooth.ConnectionOpened:
		if s.state != StateConnecting {
			break
		}

		if !ev.Status.OK() {
			err := remoteStatusError(s, "connect", ev.Status)
			s.reset()
			c.observer.OnError(err)
			c.transition(s, StateDisconnected)

			return err
		}

		s.authPending = false
		c.observer.OnStatus("Connected")
		c.transition(s, StateIdle)

		return nil

	case bluetooth.ConnectionClosed:
		switch s.state {
		case StateDisconnecting:
			c.observer.OnStatus("Connection closed")

		case StateIdle, StateBusy:
			c.observer.OnStatus("Connection closed by remote")

		default:
			return c.violation(s, ev)
		}

		s.reset()
		c.transition(s, StateDisconnected)

		return nil

	case bluetooth.AuthenticationRequested:
		if s.state == StateDisconnecting {
			return nil
		}

		s.authPending = true
		c.observer.OnStatus("Authentication requested")
		c.observer.OnAuthenticationRequested(s.address)

		return nil

	case bluetooth.OperationCompleted:
		if s.state == StateDisconnecting {
			return nil
		}
		if s.state != StateBusy {
			break
		}

		return c.complete(s, ev.Status)

	case bluetooth.SizeResult:
		if s.state == StateDisconnecting {
			return nil
		}
		if s.state != StateBusy || s.op.Kind != KindSizeQuery {
			break
		}

		c.agg.size(s.op, ev.Size)

		return nil

	case bluetooth.RecordResult:
		if s.state == StateDisconnecting {
			return nil
		}
		if s.state != StateBusy || s.op.Kind != KindLookup {
			break
		}

		c.agg.record(s.op, ev)

		return nil

	case bluetooth.DataFragment:
		if s.state == StateDisconnecting {
			return nil
		}
		if s.state != StateBusy || !s.op.Kind.acceptsFragments() {
			break
		}

		c.agg.fragment(s.op, ev.Data)

		return nil
	}

	return c.violation(s, ev)
}

func (c *Controller) complete(s *Session, status bluetooth.Status) error {
	op := s.op
	s.op = nil

	err := c.agg.complete(s, op, status)
	if err != nil && errors.Is(err, errorkinds.ErrProtocolViolation) {
		return c.fail(s, err)
	}

	if err == nil {
		switch op.Kind {
		case KindSetFolder:
			s.folder = op.folder

		case KindSetFilter:
			s.mask = op.mask

		case KindSetFilterOperator:
			s.operator = op.operator
		}
	}

	c.logger.Debug().
		Str("address", s.address.String()).
		Str("op", op.Kind.String()).
		Str("op_id", op.ID.String()).
		Stringer("status", status).
		Int("records", op.records).
		Msg("Operation completed")

	c.transition(s, StateIdle)
	if err != nil {
		c.observer.OnError(err)
	} else {
		c.observer.OnStatus("Operation complete")
	}
	c.observer.OnOperationComplete(op.Kind, status)

	return err
}

func (c *Controller) violation(s *Session, ev bluetooth.Event) error {
	what := fmt.Sprintf("unexpected %s while %s", ev.Name(), s.state)
	if s.op != nil {
		what += " (" + s.op.Kind.String() + ")"
	}

	return c.fail(s, protocolViolationError(s, what))
}

// fail forces the session to Disconnected after a protocol violation.
func (c *Controller) fail(s *Session, err error) error {
	if s.state.Connected() || s.state == StateConnecting {
		if derr := c.transport.Disconnect(s.handle); derr != nil {
			c.logger.Debug().Err(derr).Msg("Cannot disconnect after protocol violation")
		}
	}

	c.logger.Warn().Err(err).Str("address", s.address.String()).Msg("Protocol violation")

	s.reset()
	c.observer.OnError(err)
	c.transition(s, StateDisconnected)

	return err
}

func (c *Controller) transition(s *Session, state State) {
	if s.state != state {
		c.logger.Debug().
			Str("address", s.address.String()).
			Stringer("from", s.state).
			Stringer("to", state).
			Msg("Session state changed")
	}

	s.state = state
	c.observer.OnConnectionState(s.address, state)
}

func startMessage(op *Operation) string {
	switch op.Kind {
	case KindSizeQuery:
		return "Get size of phonebook '" + op.Target + "'"
	case KindPull:
		return "Get phonebook '" + op.Target + "'"
	case KindLookup:
		return "Lookup contact with number '" + op.Target + "'"
	case KindAuthenticate:
		return "Authenticating"
	case KindSetFolder:
		return "Set path to '/" + op.folder + "'"
	case KindSetFilter:
		return "Set vCardSelector '" + op.Target + "'"
	case KindSetFilterOperator:
		return "Set vCardSelectorOperator '" + op.Target + "'"
	}

	return op.Kind.String()
}
