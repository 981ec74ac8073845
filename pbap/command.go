package pbap

import "github.com/bluetuith-org/pbap-client/api/bluetooth"

// Command is a logical command issued by a command surface.
type Command interface {
	// CommandName returns the name of the command.
	CommandName() string

	isCommand()
}

type (
	// Connect opens a session to Address.
	Connect struct {
		Address bluetooth.MacAddress
	}

	// Disconnect closes the session, cancelling any outstanding operation.
	Disconnect struct{}

	// Abort cancels the outstanding operation.
	Abort struct{}

	// Authenticate supplies a password.
	Authenticate struct {
		Password string
	}

	// SetFolder changes the current phonebook folder.
	SetFolder struct {
		Path string
	}

	// SetFilter selects the vCard properties returned by the server.
	SetFilter struct {
		Mask bluetooth.FilterMask
	}

	// SetFilterOperator sets how selected properties combine.
	SetFilterOperator struct {
		Operator bluetooth.FilterOperator
	}

	// GetSize queries the size of a phonebook object.
	GetSize struct {
		Path string
	}

	// Pull retrieves a phonebook object.
	Pull struct {
		Path string
	}

	// Lookup performs a reverse lookup of a phone number.
	Lookup struct {
		Number string
	}
)

func (Connect) CommandName() string           { return "connect" }
func (Disconnect) CommandName() string        { return "disconnect" }
func (Abort) CommandName() string             { return "abort" }
func (Authenticate) CommandName() string      { return "authenticate" }
func (SetFolder) CommandName() string         { return "set-folder" }
func (SetFilter) CommandName() string         { return "set-filter" }
func (SetFilterOperator) CommandName() string { return "set-filter-operator" }
func (GetSize) CommandName() string           { return "get-size" }
func (Pull) CommandName() string              { return "pull" }
func (Lookup) CommandName() string            { return "lookup" }

func (Connect) isCommand()           {}
func (Disconnect) isCommand()        {}
func (Abort) isCommand()             {}
func (Authenticate) isCommand()      {}
func (SetFolder) isCommand()         {}
func (SetFilter) isCommand()         {}
func (SetFilterOperator) isCommand() {}
func (GetSize) isCommand()           {}
func (Pull) isCommand()              {}
func (Lookup) isCommand()            {}
