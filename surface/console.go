package surface

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/pbap"
	"github.com/rs/zerolog"
)

// errQuit ends the console loop.
var errQuit = errors.New("quit")

// Defaults supplies the arguments of commands typed without them.
type Defaults struct {
	Address bluetooth.MacAddress
	Number  string
	Path    string

	// Authorizer answers "auth" and "p" without a password.
	Authorizer bluetooth.Authorizer
}

// shortcuts are the single-key commands of the console.
var shortcuts = map[string]func(d Defaults) (pbap.Command, error){
	"a": func(d Defaults) (pbap.Command, error) { return pbap.Connect{Address: d.Address}, nil },
	"b": func(Defaults) (pbap.Command, error) { return pbap.SetFolder{Path: FolderTelecomPhonebook}, nil },
	"r": func(Defaults) (pbap.Command, error) { return pbap.SetFolder{Path: FolderTelecom}, nil },
	"v": func(Defaults) (pbap.Command, error) { return pbap.SetFilter{Mask: bluetooth.PropertyFN}, nil },
	"V": func(Defaults) (pbap.Command, error) {
		return pbap.SetFilterOperator{Operator: bluetooth.FilterAnd}, nil
	},
	"d": func(Defaults) (pbap.Command, error) { return pbap.GetSize{Path: PathPhonebook}, nil },
	"g": func(d Defaults) (pbap.Command, error) { return pbap.Lookup{Number: d.Number}, nil },
	"e": pull(PathPhonebook),
	"f": pull(PathFavorites),
	"i": pull(PathIncoming),
	"o": pull(PathOutgoing),
	"m": pull(PathMissed),
	"c": pull(PathCombined),
	"s": pull(PathSpeedDial),
	"E": pull(PathSIMPhonebook),
	"I": pull(PathSIMIncoming),
	"O": pull(PathSIMOutgoing),
	"M": pull(PathSIMMissed),
	"C": pull(PathSIMCombined),
	"p": func(d Defaults) (pbap.Command, error) { return authenticate(d, "") },
	"x": func(Defaults) (pbap.Command, error) { return pbap.Abort{}, nil },
	"t": func(Defaults) (pbap.Command, error) { return pbap.Disconnect{}, nil },
}

func pull(path string) func(Defaults) (pbap.Command, error) {
	return func(Defaults) (pbap.Command, error) {
		return pbap.Pull{Path: path}, nil
	}
}

func authenticate(d Defaults, password string) (pbap.Command, error) {
	if password == "" {
		authorizer := d.Authorizer
		if authorizer == nil {
			authorizer = bluetooth.StaticAuthorizer{}
		}

		var err error
		if password, err = authorizer.AuthenticationPassword(d.Address); err != nil {
			return nil, err
		}
	}

	return pbap.Authenticate{Password: password}, nil
}

// ParseCommand parses one console line: either a single-key shortcut or
// a command word followed by its arguments.
func ParseCommand(line string, d Defaults) (pbap.Command, error) {
	line = strings.TrimSpace(line)
	if fn, ok := shortcuts[line]; ok {
		return fn(d)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	word, args := strings.ToLower(fields[0]), fields[1:]
	arg := func(def string) string {
		if len(args) > 0 {
			return args[0]
		}

		return def
	}

	switch word {
	case "connect":
		address := d.Address
		if len(args) > 0 {
			var err error
			if address, err = bluetooth.ParseMAC(args[0]); err != nil {
				return nil, err
			}
		}

		return pbap.Connect{Address: address}, nil

	case "disconnect":
		return pbap.Disconnect{}, nil

	case "abort":
		return pbap.Abort{}, nil

	case "auth", "authenticate":
		return authenticate(d, arg(""))

	case "cd", "folder":
		return pbap.SetFolder{Path: arg("")}, nil

	case "filter":
		mask, err := bluetooth.ParseFilterMask(splitProperties(args)...)
		if err != nil {
			return nil, err
		}

		return pbap.SetFilter{Mask: mask}, nil

	case "operator":
		op, err := bluetooth.ParseFilterOperator(arg(""))
		if err != nil {
			return nil, err
		}

		return pbap.SetFilterOperator{Operator: op}, nil

	case "size":
		return pbap.GetSize{Path: arg(d.Path)}, nil

	case "pull":
		return pbap.Pull{Path: arg(d.Path)}, nil

	case "lookup":
		return pbap.Lookup{Number: arg(d.Number)}, nil

	case "q", "quit", "exit":
		return nil, errQuit
	}

	return nil, fault.Wrap(errorkinds.ErrMethodCall,
		ftag.With(ftag.InvalidArgument),
		fmsg.WithDesc("unknown command "+word, "Unknown command '"+word+"', type 'help' for usage"),
	)
}

// splitProperties accepts "FN TEL", "FN,TEL" and "FN|TEL".
func splitProperties(args []string) []string {
	return strings.FieldsFunc(strings.Join(args, " "), func(r rune) bool {
		return r == ' ' || r == ',' || r == '|'
	})
}

// Console is the interactive command surface. It reads one command per
// line and submits it; results are rendered by the Printer.
type Console struct {
	submitter Submitter
	defaults  Defaults
	in        io.Reader
	out       io.Writer
	logger    zerolog.Logger
}

// NewConsole returns a console reading from in and writing prompts and
// command errors to out.
func NewConsole(submitter Submitter, defaults Defaults, in io.Reader, out io.Writer, logger zerolog.Logger) *Console {
	if defaults.Path == "" {
		defaults.Path = PathPhonebook
	}

	return &Console{
		submitter: submitter,
		defaults:  defaults,
		in:        in,
		out:       out,
		logger:    logger,
	}
}

// Run processes input until it ends, the user quits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.Usage()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			if err := c.Execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}

				c.logger.Debug().Err(err).Str("line", line).Msg("Command failed")
				fmt.Fprintln(c.out, "[!]", err)
			}
		}
	}
}

// Execute runs one console line.
func (c *Console) Execute(ctx context.Context, line string) error {
	switch strings.TrimSpace(line) {
	case "":
		return nil

	case "h", "help", "?":
		c.Usage()
		return nil

	case "status":
		c.Status()
		return nil
	}

	cmd, err := ParseCommand(line, c.defaults)
	if err != nil {
		return err
	}

	return c.submitter.Submit(ctx, cmd)
}

// Status prints the session attributes.
func (c *Console) Status() {
	info := c.submitter.Info()

	fmt.Fprintf(c.out, "Remote:   %s\n", info.Address)
	fmt.Fprintf(c.out, "State:    %s\n", info.State)
	fmt.Fprintf(c.out, "Folder:   %s\n", info.Folder)
	fmt.Fprintf(c.out, "Filter:   %s (%s)\n", info.Filter, info.FilterOperator)
	if info.Operation != 0 {
		fmt.Fprintf(c.out, "Pending:  %s\n", info.Operation)
	}
}

// Usage prints the console commands.
func (c *Console) Usage() {
	fmt.Fprintf(c.out, `
--- Phonebook access client console ---
a      - connect to %s
b      - set folder '%s'
r      - set folder '%s'
v      - set vCard selector 'FN'
V      - set vCard selector operator 'AND'
d      - get size of '%s'
g      - lookup contact with number '%s'
e/f/i/o/m/c/s - pull telecom pb/fav/ich/och/mch/cch/spd
E/I/O/M/C     - pull SIM1/telecom pb/ich/och/mch/cch
p      - authenticate
x      - abort the current operation
t      - disconnect

connect [address], disconnect, abort, auth [password], cd <folder>,
filter <properties>, operator and|or, size [path], pull [path],
lookup [number], status, help, quit
`,
		c.defaults.Address, FolderTelecomPhonebook, FolderTelecom,
		PathPhonebook, c.defaults.Number,
	)
}
