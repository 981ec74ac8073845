// Package platform selects the transport client for the running system.
package platform

import (
	"runtime"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/bluetuith-org/pbap-client/transport/obexsim"
	"github.com/rs/zerolog"
)

type BluetoothStack string

const (
	BluezStack     BluetoothStack = "BlueZ obexd (DBus)"
	SimulatorStack BluetoothStack = "Simulator"
)

// PlatformInfo describes platform-specific information.
type PlatformInfo struct {
	OS    string         `json:"os,omitempty"`
	Stack BluetoothStack `json:"bluetooth_stack,omitempty"`
}

// NewPlatformInfo returns a new PlatformInfo.
func NewPlatformInfo(stack BluetoothStack) PlatformInfo {
	return PlatformInfo{
		OS:    runtime.GOOS + " (" + runtime.GOARCH + ")",
		Stack: stack,
	}
}

// String converts a BluetoothStack to a string.
func (b BluetoothStack) String() string {
	return string(b)
}

// Backend is a transport client together with the stack it runs on.
type Backend struct {
	Transport bluetooth.Transport
	Info      PlatformInfo

	close func() error
}

// Close releases the transport client.
func (b Backend) Close() error {
	if b.close == nil {
		return nil
	}

	return b.close()
}

// Transport returns the transport client selected by cfg.Transport.
func Transport(cfg config.Configuration, logger zerolog.Logger) (Backend, error) {
	switch cfg.Transport {
	case config.TransportBluez:
		transport, closer, err := bluezTransport(cfg, logger)
		if err != nil {
			return Backend{}, err
		}

		return Backend{Transport: transport, Info: NewPlatformInfo(BluezStack), close: closer}, nil

	case config.TransportSim:
		client, err := simTransport(cfg, logger)
		if err != nil {
			return Backend{}, err
		}

		return Backend{
			Transport: client,
			Info:      NewPlatformInfo(SimulatorStack),
			close: func() error {
				client.Close()
				return nil
			},
		}, nil
	}

	return Backend{}, fault.Wrap(fault.New("unknown transport "+cfg.Transport),
		ftag.With(ftag.InvalidArgument),
		fmsg.With("Transport must be one of: bluez, sim"),
	)
}

// SimServer returns the simulator server described by cfg.
func SimServer(cfg config.Configuration, logger zerolog.Logger) (*obexsim.Server, error) {
	book := obexsim.DefaultPhonebook()
	if cfg.Phonebook != "" {
		var err error
		if book, err = obexsim.LoadPhonebook(cfg.Phonebook); err != nil {
			return nil, err
		}
	}

	opts := []obexsim.ServerOption{obexsim.WithServerLogger(logger.With().Str("component", "obexsim-server").Logger())}
	if cfg.SimPassword != "" {
		opts = append(opts, obexsim.WithPassword(cfg.SimPassword))
	}

	return obexsim.NewServer(book, opts...), nil
}

// simTransport connects to the simulator at cfg.SimAddress, or to an
// in-process simulator when no address is set.
func simTransport(cfg config.Configuration, logger zerolog.Logger) (*obexsim.Client, error) {
	opts := []obexsim.ClientOption{
		obexsim.WithFormat(cfg.Format),
		obexsim.WithClientLogger(logger.With().Str("component", "obexsim-client").Logger()),
	}

	if cfg.SimAddress != "" {
		return obexsim.NewClient(obexsim.TCPDialer(cfg.SimAddress), opts...), nil
	}

	server, err := SimServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	return obexsim.NewClient(server.Dialer(), opts...), nil
}
