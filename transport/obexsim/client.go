// Package obexsim implements a framed phonebook access protocol that runs
// over any net.Conn, together with an in-process server. It lets the client
// be exercised end to end without a Bluetooth stack.
package obexsim

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/internal/serde"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// Dialer opens the connection carrying a session to address.
type Dialer func(address bluetooth.MacAddress) (net.Conn, error)

// TCPDialer returns a Dialer connecting to a server listening on addr.
func TCPDialer(addr string) Dialer {
	return func(bluetooth.MacAddress) (net.Conn, error) {
		return net.Dial("tcp", addr)
	}
}

// Client is a bluetooth.Transport speaking the simulator protocol.
type Client struct {
	dial   Dialer
	format string
	logger zerolog.Logger

	handles  bluetooth.HandleAllocator
	sessions *xsync.MapOf[bluetooth.Handle, *clientSession]
}

type clientSession struct {
	handle bluetooth.Handle
	conn   net.Conn
	sink   bluetooth.EventSink

	id     *xsync.Counter
	closed atomic.Bool

	sync.Mutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithFormat sets the vCard format requested on connect ("vcard21" or "vcard30").
func WithFormat(format string) ClientOption {
	return func(c *Client) {
		if format != "" {
			c.format = format
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a Client opening sessions with dial.
func NewClient(dial Dialer, opts ...ClientOption) *Client {
	c := &Client{
		dial:     dial,
		format:   "vcard21",
		logger:   zerolog.Nop(),
		sessions: xsync.NewMapOf[bluetooth.Handle, *clientSession](),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect dials the remote and sends the connect request.
func (c *Client) Connect(address bluetooth.MacAddress, sink bluetooth.EventSink) (bluetooth.Handle, error) {
	conn, err := c.dial(address)
	if err != nil {
		return 0, fault.Wrap(err,
			fctx.With(fctx.WithMeta(context.Background(), "address", address.String())),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot dial the phonebook server"),
		)
	}

	cs := &clientSession{
		conn: conn,
		sink: sink,
		id:   xsync.NewCounter(),
	}
	if _, err := c.handles.Allocate(func(h bluetooth.Handle) bool {
		cs.handle = h
		_, loaded := c.sessions.LoadOrStore(h, cs)

		return !loaded
	}); err != nil {
		conn.Close()
		return 0, err
	}

	go c.listen(cs)

	if err := c.send(cs, ConnectRequest(address, c.format)); err != nil {
		c.close(cs)
		return 0, err
	}

	return cs.handle, nil
}

// Disconnect implements bluetooth.Transport.
func (c *Client) Disconnect(h bluetooth.Handle) error {
	return c.execute(h, DisconnectRequest())
}

// Abort implements bluetooth.Transport.
func (c *Client) Abort(h bluetooth.Handle) error {
	return c.execute(h, AbortRequest())
}

// GetSize implements bluetooth.Transport.
func (c *Client) GetSize(h bluetooth.Handle, path string) error {
	return c.execute(h, GetSizeRequest(path))
}

// Pull implements bluetooth.Transport.
func (c *Client) Pull(h bluetooth.Handle, path string) error {
	return c.execute(h, PullRequest(path))
}

// LookupByNumber implements bluetooth.Transport.
func (c *Client) LookupByNumber(h bluetooth.Handle, number string) error {
	return c.execute(h, LookupRequest(number))
}

// Authenticate implements bluetooth.Transport.
func (c *Client) Authenticate(h bluetooth.Handle, password string) error {
	return c.execute(h, AuthenticateRequest(password))
}

// SetFolder implements bluetooth.Transport.
func (c *Client) SetFolder(h bluetooth.Handle, path string) error {
	return c.execute(h, SetFolderRequest(path))
}

// SetFilter implements bluetooth.Transport.
func (c *Client) SetFilter(h bluetooth.Handle, mask bluetooth.FilterMask) error {
	return c.execute(h, SetFilterRequest(mask))
}

// SetFilterOperator implements bluetooth.Transport.
func (c *Client) SetFilterOperator(h bluetooth.Handle, op bluetooth.FilterOperator) error {
	return c.execute(h, SetFilterOperatorRequest(op))
}

// Close drops every open session without notifying the sinks.
func (c *Client) Close() {
	c.sessions.Range(func(_ bluetooth.Handle, cs *clientSession) bool {
		cs.closed.Store(true)
		c.close(cs)

		return true
	})
}

func (c *Client) execute(h bluetooth.Handle, req Request) error {
	cs, ok := c.sessions.Load(h)
	if !ok || cs.closed.Load() {
		return fault.Wrap(errorkinds.ErrSessionNotExist,
			fctx.With(fctx.WithMeta(context.Background(), "handle", h.String())),
			fmsg.With("No session for handle"),
		)
	}

	return c.send(cs, req)
}

func (c *Client) send(cs *clientSession, req Request) error {
	payload, err := serde.MarshalJson(req)
	if err != nil {
		return fault.Wrap(err,
			ftag.With(ftag.Internal),
			fmsg.With("Cannot encode request"),
		)
	}

	cs.Lock()
	defer cs.Unlock()

	cs.id.Inc()
	id := uint32(cs.id.Value())

	c.logger.Debug().
		Stringer("handle", cs.handle).
		Uint32("request_id", id).
		Str("request", req.String()).
		Msg("Sending request")

	if err := writeFrame(cs.conn, newHeader(FrameRequest, true, cs.handle, id, len(payload)), payload); err != nil {
		return fault.Wrap(errorkinds.ErrMethodCall,
			fctx.With(fctx.WithMeta(context.Background(), "request", req.Command)),
			fmsg.WithDesc(err.Error(), "Cannot send request"),
		)
	}

	return nil
}

// listen delivers the events of one session to its sink, in the order
// they were received. A connection that drops without a close frame is
// reported as closed.
func (c *Client) listen(cs *clientSession) {
	defer c.close(cs)

	for {
		header, content, err := readFrame(cs.conn)
		if err != nil {
			c.dropped(cs, err)
			return
		}

		ev, err := decodeEvent(cs.handle, header, content)
		if err != nil {
			c.logger.Error().Err(err).
				Stringer("handle", cs.handle).
				Uint32("request_id", header.RequestID).
				Msg("Malformed event frame, closing session")
			c.dropped(cs, err)

			return
		}

		switch ev := ev.(type) {
		case bluetooth.ConnectionOpened:
			if !ev.Status.OK() {
				cs.closed.Store(true)
			}

		case bluetooth.ConnectionClosed:
			cs.closed.Store(true)
		}

		cs.sink.HandleEvent(ev)
	}
}

func (c *Client) dropped(cs *clientSession, err error) {
	if cs.closed.Swap(true) {
		return
	}

	c.logger.Debug().Err(err).Stringer("handle", cs.handle).Msg("Connection dropped")
	cs.sink.HandleEvent(bluetooth.ConnectionClosed{
		EventHeader: bluetooth.EventHeader{Handle: cs.handle},
	})
}

func (c *Client) close(cs *clientSession) {
	c.sessions.Delete(cs.handle)
	cs.conn.Close()
}
