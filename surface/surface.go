// Package surface holds the command surfaces that drive a phonebook
// session: an interactive console and an unattended sequencer, plus the
// printer that renders session notifications.
package surface

import (
	"context"

	"github.com/bluetuith-org/pbap-client/pbap"
)

// Submitter accepts commands for a session. pbap.Dispatcher implements it.
type Submitter interface {
	// Submit validates and forwards cmd, returning any rejection.
	Submit(ctx context.Context, cmd pbap.Command) error

	// Post queues cmd from within an Observer callback.
	Post(cmd pbap.Command)

	// Info returns a snapshot of the current session.
	Info() pbap.SessionInfo
}

// The phonebook objects known to the console shortcuts.
const (
	PathPhonebook          = "telecom/pb.vcf"
	PathFavorites          = "telecom/fav.vcf"
	PathIncoming           = "telecom/ich.vcf"
	PathOutgoing           = "telecom/och.vcf"
	PathMissed             = "telecom/mch.vcf"
	PathCombined           = "telecom/cch.vcf"
	PathSpeedDial          = "telecom/spd.vcf"
	PathSIMPhonebook       = "SIM1/telecom/pb.vcf"
	PathSIMIncoming        = "SIM1/telecom/ich.vcf"
	PathSIMOutgoing        = "SIM1/telecom/och.vcf"
	PathSIMMissed          = "SIM1/telecom/mch.vcf"
	PathSIMCombined        = "SIM1/telecom/cch.vcf"
	FolderTelecom          = "telecom"
	FolderTelecomPhonebook = "telecom/pb"
)
