package surface

import (
	"context"
	"errors"
	"sync"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/pbap"
)

// Sequencer is the unattended command surface. It connects, issues one
// operation once the connection is open, disconnects when the operation
// completes and finishes when the connection is closed.
//
// Sequencer is an Observer: register it with the Dispatcher it drives.
type Sequencer struct {
	pbap.NopObserver

	poster    interface{ Post(pbap.Command) }
	address   bluetooth.MacAddress
	operation pbap.Command

	started       bool
	opened        bool
	issued        bool
	disconnecting bool
	status        bluetooth.Status

	mu  sync.Mutex
	err error

	done chan struct{}
	once sync.Once
}

// NewSequencer returns a sequencer running operation against address.
func NewSequencer(address bluetooth.MacAddress, operation pbap.Command) *Sequencer {
	return &Sequencer{
		address:   address,
		operation: operation,
		done:      make(chan struct{}),
	}
}

// Start posts the connect command to poster, which then receives every
// following command of the sequence.
func (s *Sequencer) Start(poster interface{ Post(pbap.Command) }) {
	s.poster = poster
	s.poster.Post(pbap.Connect{Address: s.address})
}

// Done is closed once the sequence has finished.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// Wait waits for the sequence to finish. It returns the first error
// reported during the sequence.
func (s *Sequencer) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.err

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the completion status of the operation.
func (s *Sequencer) Status() bluetooth.Status {
	<-s.done
	return s.status
}

func (s *Sequencer) OnConnectionState(_ bluetooth.MacAddress, state pbap.State) {
	switch state {
	case pbap.StateConnecting:
		s.started = true

	case pbap.StateIdle:
		s.opened = true
		if !s.issued {
			s.issued = true
			s.poster.Post(s.operation)
		}

	case pbap.StateDisconnected:
		if s.started {
			s.finish()
		}
	}
}

func (s *Sequencer) OnOperationComplete(_ pbap.OperationKind, status bluetooth.Status) {
	s.status = status
	s.disconnect()
}

func (s *Sequencer) OnError(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	switch {
	case !s.started:
		// Connect was rejected before anything was forwarded.
		s.finish()

	case errors.Is(err, errorkinds.ErrProtocolViolation):
		// The session is torn down by the controller.

	case s.opened:
		s.disconnect()
	}
}

func (s *Sequencer) disconnect() {
	if s.disconnecting {
		return
	}

	s.disconnecting = true
	s.poster.Post(pbap.Disconnect{})
}

func (s *Sequencer) finish() {
	s.once.Do(func() { close(s.done) })
}
