// Package bluez implements the phonebook access transport on top of the
// BlueZ OBEX daemon (obexd), over the D-Bus session bus.
package bluez

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/godbus/dbus/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// FragmentSize is the size of the data fragments a pulled object is
// delivered in.
const FragmentSize = 4096

// Client is a bluetooth.Transport backed by obexd.
type Client struct {
	conn   *dbus.Conn
	obexd  obexd
	format string
	logger zerolog.Logger

	handles  bluetooth.HandleAllocator
	sessions *xsync.MapOf[bluetooth.Handle, *session]

	// transfers maps active transfers to their sessions. Transfer signals
	// may arrive before PullAll returns; they are kept in early meanwhile.
	mu        sync.Mutex
	transfers map[dbus.ObjectPath]*session
	early     map[dbus.ObjectPath]string
	pulling   int

	signals chan *dbus.Signal
	done    chan struct{}
	once    sync.Once
}

// session is the transport side of one obexd session. Jobs run in order on
// the session's own goroutine, so events reach the sink in order.
type session struct {
	handle  bluetooth.Handle
	address bluetooth.MacAddress
	sink    bluetooth.EventSink

	pathMu sync.RWMutex
	path   dbus.ObjectPath

	folder string
	mask   bluetooth.FilterMask
	// obexd has no vCard selector, so the operator is only recorded.
	operator bluetooth.FilterOperator

	transfer atomic.Pointer[transfer]
	aborting atomic.Bool
	closing  atomic.Bool

	jobs *jobQueue
}

type transfer struct {
	path     dbus.ObjectPath
	filename string
}

// Option configures a Client.
type Option func(*Client)

// WithFormat sets the vCard format ("vcard21" or "vcard30").
func WithFormat(format string) Option {
	return func(c *Client) {
		if format != "" {
			c.format = format
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient connects to the session bus and starts watching obexd.
func NewClient(opts ...Option) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(fctx.WithMeta(context.Background(), "error_at", "dbus-session-bus")),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot connect to the D-Bus session bus"),
		)
	}

	for _, match := range [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchArg(0, transferInterface),
		},
		{
			dbus.WithMatchInterface(objectManagerInterface),
			dbus.WithMatchMember("InterfacesRemoved"),
		},
	} {
		if err := conn.AddMatchSignal(match...); err != nil {
			conn.Close()
			return nil, fault.Wrap(err,
				fctx.With(fctx.WithMeta(context.Background(), "error_at", "dbus-add-match")),
				ftag.With(ftag.Internal),
				fmsg.With("Cannot watch obexd signals"),
			)
		}
	}

	c := newClient(dbusObexd{conn}, opts...)
	c.conn = conn
	conn.Signal(c.signals)
	go c.watch()

	return c, nil
}

func newClient(o obexd, opts ...Option) *Client {
	c := &Client{
		obexd:     o,
		format:    "vcard21",
		logger:    zerolog.Nop(),
		sessions:  xsync.NewMapOf[bluetooth.Handle, *session](),
		transfers: make(map[dbus.ObjectPath]*session),
		early:     make(map[dbus.ObjectPath]string),
		signals:   make(chan *dbus.Signal, 16),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close removes every open session and disconnects from the bus.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.sessions.Range(func(_ bluetooth.Handle, s *session) bool {
			s.closing.Store(true)
			if path := s.objectPath(); path != "" {
				_ = c.obexd.RemoveSession(path)
			}
			s.jobs.close()

			return true
		})

		close(c.done)
		if c.conn != nil {
			c.conn.RemoveSignal(c.signals)
			c.conn.Close()
		}
	})

	return nil
}

// Connect implements bluetooth.Transport.
func (c *Client) Connect(address bluetooth.MacAddress, sink bluetooth.EventSink) (bluetooth.Handle, error) {
	if address.IsZero() {
		return 0, fault.Wrap(errorkinds.ErrInvalidAddress,
			ftag.With(ftag.InvalidArgument),
			fmsg.With("Cannot connect to a zero address"),
		)
	}

	s := &session{
		address: address,
		sink:    sink,
		jobs:    newJobQueue(),
	}
	if _, err := c.handles.Allocate(func(h bluetooth.Handle) bool {
		s.handle = h
		_, loaded := c.sessions.LoadOrStore(h, s)

		return !loaded
	}); err != nil {
		return 0, err
	}
	go s.jobs.run()

	s.jobs.push(func() {
		path, err := c.obexd.CreateSession(address.String())
		if err != nil {
			c.logger.Debug().Err(err).Str("address", address.String()).Msg("Cannot create obex session")
			c.forget(s)
			s.emit(bluetooth.ConnectionOpened{EventHeader: s.header(), Status: statusOf(err)})

			return
		}

		s.setObjectPath(path)
		s.emit(bluetooth.ConnectionOpened{EventHeader: s.header()})
	})

	return s.handle, nil
}

// Disconnect implements bluetooth.Transport.
func (c *Client) Disconnect(h bluetooth.Handle) error {
	s, err := c.session(h)
	if err != nil {
		return err
	}

	s.closing.Store(true)
	if t := s.transfer.Load(); t != nil {
		go c.cancel(t)
	}

	s.jobs.push(func() {
		if err := c.obexd.RemoveSession(s.path); err != nil {
			c.logger.Debug().Err(err).Str("session", string(s.path)).Msg("Cannot remove obex session")
		}

		c.closed(s)
	})

	return nil
}

// Abort implements bluetooth.Transport. Only transfers can be cancelled;
// other operations finish normally.
func (c *Client) Abort(h bluetooth.Handle) error {
	s, err := c.session(h)
	if err != nil {
		return err
	}

	s.aborting.Store(true)
	if t := s.transfer.Load(); t != nil {
		go c.cancel(t)
	}

	return nil
}

// GetSize implements bluetooth.Transport.
func (c *Client) GetSize(h bluetooth.Handle, p string) error {
	return c.operation(h, func(s *session) bluetooth.Status {
		if status := c.selectObject(s, p); !status.OK() {
			return status
		}

		size, err := c.obexd.GetSize(s.path)
		if err != nil {
			return statusOf(err)
		}
		s.emit(bluetooth.SizeResult{EventHeader: s.header(), Size: uint32(size)})

		return bluetooth.StatusOK
	})
}

// Pull implements bluetooth.Transport. The object is transferred by obexd
// into a file, which is delivered in fragments once the transfer completes.
func (c *Client) Pull(h bluetooth.Handle, p string) error {
	s, err := c.session(h)
	if err != nil {
		return err
	}

	s.aborting.Store(false)
	s.jobs.push(func() {
		if status := c.selectObject(s, p); !status.OK() {
			s.complete(status)
			return
		}

		c.mu.Lock()
		c.pulling++
		c.mu.Unlock()

		path, filename, err := c.obexd.PullAll(s.path, filters(c.format, s.mask))
		if err != nil {
			c.mu.Lock()
			c.pulling--
			c.mu.Unlock()

			s.complete(statusOf(err))
			return
		}

		t := &transfer{path: path, filename: filename}
		s.transfer.Store(t)
		c.track(s, t)

		if s.aborting.Load() {
			go c.cancel(t)
		}
	})

	return nil
}

// LookupByNumber implements bluetooth.Transport.
func (c *Client) LookupByNumber(h bluetooth.Handle, number string) error {
	return c.operation(h, func(s *session) bluetooth.Status {
		if err := c.obexd.Select(s.path, "int", "pb"); err != nil {
			return statusOf(err)
		}

		results, err := c.obexd.Search(s.path, "number", number, filters(c.format, s.mask))
		if err != nil {
			if statusOf(err) == bluetooth.StatusNotFound {
				return bluetooth.StatusOK
			}

			return statusOf(err)
		}

		for _, r := range results {
			ev, err := bluetooth.NewRecordResult(s.handle, []byte(r.Name), len(r.Name), []byte(r.Handle), len(r.Handle))
			if err != nil {
				c.logger.Warn().Err(err).Msg("Dropping malformed search result")
				continue
			}
			s.emit(ev)
		}

		return bluetooth.StatusOK
	})
}

// Authenticate implements bluetooth.Transport. obexd handles authentication
// through its own agent, so there is nothing to answer here.
func (c *Client) Authenticate(h bluetooth.Handle, _ string) error {
	return c.operation(h, func(*session) bluetooth.Status {
		return bluetooth.StatusNotImplemented
	})
}

// SetFolder implements bluetooth.Transport. obexd selects a repository
// with every request, so the folder is tracked here.
func (c *Client) SetFolder(h bluetooth.Handle, folder string) error {
	return c.operation(h, func(s *session) bluetooth.Status {
		folder = strings.Trim(folder, "/")
		if !validFolder(folder) {
			return bluetooth.StatusNotFound
		}

		s.folder = folder

		return bluetooth.StatusOK
	})
}

// SetFilter implements bluetooth.Transport.
func (c *Client) SetFilter(h bluetooth.Handle, mask bluetooth.FilterMask) error {
	return c.operation(h, func(s *session) bluetooth.Status {
		s.mask = mask
		return bluetooth.StatusOK
	})
}

// SetFilterOperator implements bluetooth.Transport.
func (c *Client) SetFilterOperator(h bluetooth.Handle, op bluetooth.FilterOperator) error {
	return c.operation(h, func(s *session) bluetooth.Status {
		s.operator = op
		return bluetooth.StatusOK
	})
}

// operation queues fn and completes the operation with its status.
func (c *Client) operation(h bluetooth.Handle, fn func(s *session) bluetooth.Status) error {
	s, err := c.session(h)
	if err != nil {
		return err
	}

	s.aborting.Store(false)
	s.jobs.push(func() {
		s.complete(fn(s))
	})

	return nil
}

func (c *Client) selectObject(s *session, p string) bluetooth.Status {
	location, pb, err := resolveObject(s.folder, p)
	if err != nil {
		return bluetooth.StatusNotFound
	}

	if err := c.obexd.Select(s.path, location, pb); err != nil {
		return statusOf(err)
	}

	return bluetooth.StatusOK
}

func (c *Client) session(h bluetooth.Handle) (*session, error) {
	s, ok := c.sessions.Load(h)
	if !ok || !s.jobs.open() {
		return nil, fault.Wrap(errorkinds.ErrSessionNotExist,
			fctx.With(fctx.WithMeta(context.Background(), "handle", h.String())),
			fmsg.With("No obex session for handle"),
		)
	}

	return s, nil
}

func (c *Client) cancel(t *transfer) {
	if err := c.obexd.Cancel(t.path); err != nil {
		c.logger.Debug().Err(err).Str("transfer", string(t.path)).Msg("Cannot cancel transfer")
	}
}

// watch routes obexd signals to the sessions they concern.
func (c *Client) watch() {
	for {
		select {
		case <-c.done:
			return

		case sig, ok := <-c.signals:
			if !ok {
				return
			}

			switch sig.Name {
			case propertiesInterface + ".PropertiesChanged":
				if len(sig.Body) < 2 {
					continue
				}

				changed, _ := sig.Body[1].(map[string]dbus.Variant)
				if v, ok := changed["Status"]; ok {
					var status string
					if v.Store(&status) == nil {
						c.transferStatus(sig.Path, status)
					}
				}

			case objectManagerInterface + ".InterfacesRemoved":
				if len(sig.Body) < 1 {
					continue
				}

				if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
					c.sessionRemoved(path)
				}
			}
		}
	}
}

// track registers a started transfer, finishing it at once if its final
// status has already been signalled.
func (c *Client) track(s *session, t *transfer) {
	c.mu.Lock()
	c.pulling--
	status, ok := c.early[t.path]
	if ok {
		delete(c.early, t.path)
	} else {
		c.transfers[t.path] = s
	}
	c.mu.Unlock()

	if ok {
		c.finish(s, status)
	}
}

// transferStatus finishes a pull once its transfer completes or fails.
func (c *Client) transferStatus(path dbus.ObjectPath, status string) {
	if status != "complete" && status != "error" {
		return
	}

	c.mu.Lock()
	s, ok := c.transfers[path]
	switch {
	case ok:
		delete(c.transfers, path)

	case c.pulling > 0:
		c.early[path] = status
	}
	c.mu.Unlock()

	if ok {
		c.finish(s, status)
	}
}

func (c *Client) finish(s *session, status string) {
	s.jobs.push(func() {
		t := s.transfer.Swap(nil)
		if t == nil {
			return
		}
		defer os.Remove(t.filename)

		switch {
		case status == "complete":
			c.deliver(s, t)

		case s.aborting.Load():
			s.complete(bluetooth.StatusAborted)

		default:
			s.complete(bluetooth.StatusInternalError)
		}
	})
}

func (c *Client) deliver(s *session, t *transfer) {
	object, err := os.ReadFile(t.filename)
	if err != nil {
		c.logger.Error().Err(err).Str("file", t.filename).Msg("Cannot read transferred object")
		s.complete(bluetooth.StatusInternalError)

		return
	}

	for len(object) > 0 {
		n := min(FragmentSize, len(object))
		s.emit(bluetooth.DataFragment{EventHeader: s.header(), Data: object[:n]})
		object = object[n:]
	}

	s.complete(bluetooth.StatusOK)
}

// sessionRemoved reports sessions closed by obexd itself.
func (c *Client) sessionRemoved(path dbus.ObjectPath) {
	c.sessions.Range(func(_ bluetooth.Handle, s *session) bool {
		if s.objectPath() != path || s.closing.Load() {
			return true
		}

		s.closing.Store(true)
		s.jobs.push(func() {
			c.closed(s)
		})

		return false
	})
}

func (c *Client) closed(s *session) {
	if t := s.transfer.Swap(nil); t != nil {
		c.mu.Lock()
		delete(c.transfers, t.path)
		c.mu.Unlock()

		os.Remove(t.filename)
	}

	c.forget(s)
	s.emit(bluetooth.ConnectionClosed{EventHeader: s.header()})
}

func (c *Client) forget(s *session) {
	c.sessions.Delete(s.handle)
	s.jobs.close()
}

func (s *session) objectPath() dbus.ObjectPath {
	s.pathMu.RLock()
	defer s.pathMu.RUnlock()

	return s.path
}

func (s *session) setObjectPath(path dbus.ObjectPath) {
	s.pathMu.Lock()
	s.path = path
	s.pathMu.Unlock()
}

func (s *session) header() bluetooth.EventHeader {
	return bluetooth.EventHeader{Handle: s.handle}
}

func (s *session) emit(ev bluetooth.Event) {
	s.sink.HandleEvent(ev)
}

func (s *session) complete(status bluetooth.Status) {
	s.emit(bluetooth.OperationCompleted{EventHeader: s.header(), Status: status})
}

// jobQueue is an unbounded FIFO of jobs run by a single goroutine.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []func()
	ready  chan struct{}
	done   chan struct{}
	closed bool
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (q *jobQueue) push(job func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *jobQueue) open() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return !q.closed
}

// close stops the queue after the job currently running.
func (q *jobQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.jobs = nil
		close(q.done)
	}
}

func (q *jobQueue) run() {
	for {
		select {
		case <-q.done:
			return

		case <-q.ready:
		}

		for {
			q.mu.Lock()
			if len(q.jobs) == 0 || q.closed {
				q.mu.Unlock()
				break
			}
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.mu.Unlock()

			job()
		}
	}
}
