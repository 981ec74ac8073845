package obexsim

import (
	"strconv"
	"strings"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
)

type Argument string

const (
	AddressArgument  Argument = "--address"
	FormatArgument   Argument = "--format"
	PathArgument     Argument = "--path"
	NumberArgument   Argument = "--number"
	PasswordArgument Argument = "--password"
	MaskArgument     Argument = "--mask"
	OperatorArgument Argument = "--operator"
)

func (a Argument) String() string {
	return string(a)
}

type ArgumentMap = map[Argument]string

// Request is the JSON payload of a request frame.
type Request struct {
	Command string      `json:"command"`
	Args    ArgumentMap `json:"args,omitempty"`
}

func (r Request) WithArgument(arg Argument, value string) Request {
	if r.Args == nil {
		r.Args = make(ArgumentMap)
	}

	r.Args[arg] = value

	return r
}

func (r Request) WithArguments(fn func(ArgumentMap)) Request {
	if r.Args == nil {
		r.Args = make(ArgumentMap)
	}

	fn(r.Args)

	return r
}

// String returns the request as a command line, for logging.
func (r Request) String() string {
	sb := strings.Builder{}

	sb.WriteString(r.Command)
	for param, value := range r.Args {
		if param == PasswordArgument {
			value = "***"
		}

		sb.WriteString(" ")
		sb.WriteString(string(param))
		sb.WriteString(" ")
		sb.WriteString(value)
	}

	return sb.String()
}

// Session requests.
func ConnectRequest(address bluetooth.MacAddress, format string) Request {
	return Request{Command: "session connect"}.WithArguments(func(am ArgumentMap) {
		am[AddressArgument] = address.String()
		am[FormatArgument] = format
	})
}
func DisconnectRequest() Request {
	return Request{Command: "session disconnect"}
}
func AbortRequest() Request {
	return Request{Command: "session abort"}
}
func AuthenticateRequest(password string) Request {
	return Request{Command: "session authenticate"}.WithArgument(PasswordArgument, password)
}

// Phonebook requests.
func SetFolderRequest(path string) Request {
	return Request{Command: "phonebook set-folder"}.WithArgument(PathArgument, path)
}
func SetFilterRequest(mask bluetooth.FilterMask) Request {
	return Request{Command: "phonebook set-filter"}.WithArgument(MaskArgument, strconv.FormatUint(uint64(mask), 16))
}
func SetFilterOperatorRequest(op bluetooth.FilterOperator) Request {
	return Request{Command: "phonebook set-filter-operator"}.WithArgument(OperatorArgument, op.String())
}
func GetSizeRequest(path string) Request {
	return Request{Command: "phonebook get-size"}.WithArgument(PathArgument, path)
}
func PullRequest(path string) Request {
	return Request{Command: "phonebook pull"}.WithArgument(PathArgument, path)
}
func LookupRequest(number string) Request {
	return Request{Command: "phonebook lookup"}.WithArgument(NumberArgument, number)
}
