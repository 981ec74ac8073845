package surface

import (
	"context"
	"fmt"
	"io"

	"github.com/bluetuith-org/pbap-client/api/eventbus"
	"github.com/bluetuith-org/pbap-client/internal/serde"
	"github.com/dustin/go-humanize"
)

// ObjectSink stores a pulled phonebook object.
type ObjectSink func(path string, object []byte) error

// Printer renders session notifications, as text or as JSON lines.
type Printer struct {
	out     io.Writer
	json    bool
	objects ObjectSink
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithJSON renders one JSON object per notification.
func WithJSON(enabled bool) PrinterOption {
	return func(p *Printer) {
		p.json = enabled
	}
}

// WithObjectSink hands pulled objects to sink instead of printing them.
func WithObjectSink(sink ObjectSink) PrinterOption {
	return func(p *Printer) {
		p.objects = sink
	}
}

// NewPrinter returns a printer writing to out.
func NewPrinter(out io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{out: out}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run prints notifications from sub until its channel is closed or ctx is
// done. It keeps draining after a failed print, so publishers never block,
// and returns the first failure.
func (p *Printer) Run(ctx context.Context, sub eventbus.SubscriberID) error {
	var failed error

	for {
		select {
		case <-ctx.Done():
			return failed

		case n, ok := <-sub.C:
			if !ok {
				return failed
			}

			if err := p.Print(n); err != nil && failed == nil {
				failed = err
			}
		}
	}
}

// notificationView is the JSON form of a notification.
type notificationView struct {
	Event   string  `json:"event"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
	Address string  `json:"address,omitempty"`
	State   string  `json:"state,omitempty"`
	Size    *uint32 `json:"size,omitempty"`
	Name    string  `json:"name,omitempty"`
	Handle  string  `json:"handle,omitempty"`
	Path    string  `json:"path,omitempty"`
	Bytes   int     `json:"bytes,omitempty"`
	Object  string  `json:"object,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Status  string  `json:"status,omitempty"`
}

// Print renders one notification.
func (p *Printer) Print(n eventbus.Notification) error {
	if n.ID == eventbus.ObjectEvent && p.objects != nil {
		if err := p.objects(n.Path, n.Object); err != nil {
			return err
		}
	}

	if p.json {
		return serde.EncodeJsonLine(p.out, p.view(n))
	}

	var err error
	switch n.ID {
	case eventbus.StatusEvent:
		_, err = fmt.Fprintf(p.out, "[+] %s\n", n.Message)

	case eventbus.ErrorEvent:
		_, err = fmt.Fprintf(p.out, "[!] %s\n", n.Err)

	case eventbus.ConnectionStateEvent:
		_, err = fmt.Fprintf(p.out, "[~] %s: %s\n", n.Address, n.State)

	case eventbus.AuthenticationEvent:
		_, err = fmt.Fprintf(p.out, "[?] %s requests authentication, use 'p' or 'auth <password>'\n", n.Address)

	case eventbus.SizeEvent:
		_, err = fmt.Fprintf(p.out, "[+] Phonebook size: %d\n", n.Size)

	case eventbus.RecordEvent:
		_, err = fmt.Fprintf(p.out, "[+] Name: '%s', handle: '%s'\n", n.Record.Name, n.Record.Handle)

	case eventbus.ObjectEvent:
		_, err = fmt.Fprintf(p.out, "[+] Received %s (%s)\n", n.Path, humanize.Bytes(uint64(len(n.Object))))
		if err == nil && p.objects == nil {
			_, err = p.out.Write(n.Object)
		}

	case eventbus.OperationEvent:
		_, err = fmt.Fprintf(p.out, "[=] %s: %s\n", n.Kind, n.Status)
	}

	return err
}

func (p *Printer) view(n eventbus.Notification) notificationView {
	v := notificationView{Event: n.ID.String()}

	switch n.ID {
	case eventbus.StatusEvent:
		v.Message = n.Message

	case eventbus.ErrorEvent:
		if n.Err != nil {
			v.Error = n.Err.Error()
		}

	case eventbus.ConnectionStateEvent:
		v.Address = n.Address.String()
		v.State = n.State.String()

	case eventbus.AuthenticationEvent:
		v.Address = n.Address.String()

	case eventbus.SizeEvent:
		size := n.Size
		v.Size = &size

	case eventbus.RecordEvent:
		v.Name = n.Record.Name
		v.Handle = n.Record.Handle

	case eventbus.ObjectEvent:
		v.Path = n.Path
		v.Bytes = len(n.Object)
		if p.objects == nil {
			v.Object = string(n.Object)
		}

	case eventbus.OperationEvent:
		v.Kind = n.Kind.String()
		v.Status = n.Status.String()
	}

	return v
}
