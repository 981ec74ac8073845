//go:build !linux

package platform

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/rs/zerolog"
)

func bluezTransport(config.Configuration, zerolog.Logger) (bluetooth.Transport, func() error, error) {
	return nil, nil, fault.Wrap(errorkinds.ErrNotSupported,
		fmsg.With("The BlueZ transport is only available on Linux"),
	)
}
