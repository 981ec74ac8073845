package surface

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/pbap"
	"golang.org/x/term"
)

// PromptAuthorizer asks for the password on a terminal, without echo.
// When in is not a terminal, one line is read from it per request.
type PromptAuthorizer struct {
	in       *os.File
	reader   *bufio.Reader
	out      io.Writer
	fallback bluetooth.Authorizer

	mu sync.Mutex
}

// NewPromptAuthorizer returns a PromptAuthorizer reading from in and
// prompting on out. fallback answers when no password is entered.
func NewPromptAuthorizer(in *os.File, out io.Writer, fallback bluetooth.Authorizer) *PromptAuthorizer {
	return &PromptAuthorizer{
		in:       in,
		reader:   bufio.NewReader(in),
		out:      out,
		fallback: fallback,
	}
}

// AuthenticationPassword prompts for the password of address.
func (p *PromptAuthorizer) AuthenticationPassword(address bluetooth.MacAddress) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Password for %s: ", address)

	var (
		password string
		err      error
	)
	if fd := int(p.in.Fd()); term.IsTerminal(fd) {
		var raw []byte
		raw, err = term.ReadPassword(fd)
		password = string(raw)
		fmt.Fprintln(p.out)
	} else {
		password, err = p.reader.ReadString('\n')
		if err == io.EOF {
			err = nil
		}
	}
	if err != nil {
		return "", fault.Wrap(errorkinds.ErrAuthentication, fmsg.WithDesc(err.Error(), "Cannot read the password"))
	}

	password = strings.TrimSpace(password)
	if password == "" && p.fallback != nil {
		return p.fallback.AuthenticationPassword(address)
	}

	return password, nil
}

// AutoAuthenticator answers authentication requests with the password
// supplied by its Authorizer.
type AutoAuthenticator struct {
	pbap.NopObserver

	Poster     interface{ Post(pbap.Command) }
	Authorizer bluetooth.Authorizer
	OnFailure  func(error)
}

// OnAuthenticationRequested posts an Authenticate command.
func (a AutoAuthenticator) OnAuthenticationRequested(address bluetooth.MacAddress) {
	password, err := a.Authorizer.AuthenticationPassword(address)
	if err != nil {
		if a.OnFailure != nil {
			a.OnFailure(err)
		}

		a.Poster.Post(pbap.Disconnect{})
		return
	}

	a.Poster.Post(pbap.Authenticate{Password: password})
}
