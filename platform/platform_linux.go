//go:build linux

package platform

import (
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/bluetuith-org/pbap-client/transport/bluez"
	"github.com/rs/zerolog"
)

func bluezTransport(cfg config.Configuration, logger zerolog.Logger) (bluetooth.Transport, func() error, error) {
	client, err := bluez.NewClient(
		bluez.WithFormat(cfg.Format),
		bluez.WithLogger(logger.With().Str("component", "bluez").Logger()),
	)
	if err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}
