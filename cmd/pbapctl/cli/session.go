package cli

import (
	"context"
	"os"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/eventbus"
	"github.com/bluetuith-org/pbap-client/pbap"
	"github.com/bluetuith-org/pbap-client/platform"
	"github.com/bluetuith-org/pbap-client/surface"
)

const busCapacity = 64

// session joins a transport client, a dispatcher and a printer.
type session struct {
	backend    platform.Backend
	bus        *eventbus.Bus
	dispatcher *pbap.Dispatcher

	cancel  context.CancelFunc
	stopped chan struct{}
	printed chan error
}

// openSession starts a dispatcher over the configured transport. Every
// notification goes to printer, and then to observers.
func openSession(ctx context.Context, env *environment, printer *surface.Printer, observers ...pbap.Observer) (*session, error) {
	backend, err := platform.Transport(env.cfg, env.logger)
	if err != nil {
		return nil, err
	}

	env.logger.Debug().Stringer("stack", backend.Info.Stack).Str("os", backend.Info.OS).Msg("Transport ready")

	s := &session{
		backend: backend,
		bus:     eventbus.New(busCapacity),
		stopped: make(chan struct{}),
		printed: make(chan error, 1),
	}

	sub := s.bus.Subscribe()
	go func() { s.printed <- printer.Run(context.Background(), sub) }()

	s.dispatcher = pbap.NewDispatcher(
		backend.Transport,
		append(pbap.Observers{s.bus}, observers...),
		pbap.WithLogger(env.logger),
	)

	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.stopped)
		s.dispatcher.Run(ctx)
	}()

	return s, nil
}

// close stops the dispatcher, then the transport, and returns once
// every notification has been printed.
func (s *session) close() error {
	s.cancel()
	<-s.stopped

	s.backend.Close()
	s.bus.Close()

	return <-s.printed
}

// authorizer returns the configured password, or prompts for one.
func (env *environment) authorizer() bluetooth.Authorizer {
	if env.cfg.Password != "" {
		return bluetooth.StaticAuthorizer{Password: env.cfg.Password}
	}

	return surface.NewPromptAuthorizer(os.Stdin, os.Stderr, bluetooth.StaticAuthorizer{})
}

// runOperation connects, runs cmd once, and disconnects.
func runOperation(ctx context.Context, env *environment, printer *surface.Printer, cmd pbap.Command) error {
	seq := surface.NewSequencer(env.address, cmd)
	auth := &surface.AutoAuthenticator{
		Authorizer: env.authorizer(),
		OnFailure: func(err error) {
			env.logger.Error().Err(err).Msg("Cannot authenticate")
		},
	}

	s, err := openSession(ctx, env, printer, auth, seq)
	if err != nil {
		return err
	}

	auth.Poster = s.dispatcher
	seq.Start(s.dispatcher)

	err = seq.Wait(ctx)
	if cerr := s.close(); err == nil {
		err = cerr
	}

	return err
}
