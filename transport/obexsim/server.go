package obexsim

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/internal/serde"
	"github.com/rs/zerolog"
)

// DefaultFragmentSize is the size of the data fragments a pull is split into.
const DefaultFragmentSize = 256

// Server simulates a remote phonebook server. Each connection carries
// exactly one session.
type Server struct {
	book         Phonebook
	password     string
	fragmentSize int
	delay        time.Duration

	logger zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPassword makes the server request authentication on connect.
func WithPassword(password string) ServerOption {
	return func(s *Server) {
		s.password = password
	}
}

// WithFragmentSize sets the pull fragment size.
func WithFragmentSize(size int) ServerOption {
	return func(s *Server) {
		if size > 0 {
			s.fragmentSize = size
		}
	}
}

// WithFragmentDelay pauses between pull fragments.
func WithFragmentDelay(delay time.Duration) ServerOption {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithServerLogger sets the server logger.
func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer returns a server answering from book.
func NewServer(book Phonebook, opts ...ServerOption) *Server {
	s := &Server{
		book:         book,
		fragmentSize: DefaultFragmentSize,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dialer returns a Dialer connecting in-process clients to the server.
func (s *Server) Dialer() Dialer {
	return func(bluetooth.MacAddress) (net.Conn, error) {
		client, server := net.Pipe()
		go s.ServeConn(server)

		return client, nil
	}
}

// Serve accepts connections from ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		go s.ServeConn(conn)
	}
}

// serverSession is the state of one served connection.
type serverSession struct {
	conn   net.Conn
	handle uint16
	format string

	connected   bool
	authPending bool
	folder      string
	mask        bluetooth.FilterMask
	operator    bluetooth.FilterOperator

	abort     atomic.Bool
	streaming sync.WaitGroup
	writeMu   sync.Mutex
}

// ServeConn serves one session on conn, and closes it once the session ends.
func (s *Server) ServeConn(conn net.Conn) {
	ss := &serverSession{conn: conn, format: "vcard21"}
	defer conn.Close()

	for {
		header, content, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug().Err(err).Msg("Cannot read request")
			}

			ss.abort.Store(true)
			ss.streaming.Wait()

			return
		}

		if header.Kind() != FrameRequest {
			s.logger.Debug().Uint8("kind", uint8(header.Kind())).Msg("Ignoring non-request frame")
			continue
		}

		var req Request
		if err := serde.UnmarshalJson(content, &req); err != nil {
			s.logger.Debug().Err(err).Msg("Cannot decode request")
			continue
		}

		if ss.handle == 0 {
			ss.handle = header.Handle
		}
		s.logger.Debug().Uint16("handle", header.Handle).Str("request", req.String()).Msg("Request received")

		if done := s.handle(ss, header.RequestID, req); done {
			return
		}
	}
}

// handle answers one request; it returns true once the session is over.
func (s *Server) handle(ss *serverSession, id uint32, req Request) bool {
	complete := func(status bluetooth.Status) {
		s.send(ss, FrameOperationCompleted, true, id, encodeStatus(status))
	}

	switch req.Command {
	case "session connect":
		if f := req.Args[FormatArgument]; f != "" {
			ss.format = strings.ToLower(f)
		}
		if s.password != "" {
			ss.authPending = true
			s.send(ss, FrameAuthRequested, false, id, nil)
			return false
		}

		ss.connected = true
		s.send(ss, FrameConnectionOpened, true, id, encodeStatus(bluetooth.StatusOK))

	case "session authenticate":
		ok := req.Args[PasswordArgument] == s.password
		if ss.authPending {
			ss.authPending = false
			if !ok {
				s.send(ss, FrameConnectionOpened, true, id, encodeStatus(bluetooth.StatusUnauthorized))
				return true
			}

			ss.connected = true
			s.send(ss, FrameConnectionOpened, true, id, encodeStatus(bluetooth.StatusOK))
			return false
		}

		if !ok {
			complete(bluetooth.StatusUnauthorized)
			return false
		}
		complete(bluetooth.StatusOK)

	case "session disconnect":
		ss.abort.Store(true)
		ss.streaming.Wait()
		s.send(ss, FrameConnectionClosed, true, id, nil)
		return true

	case "session abort":
		ss.abort.Store(true)

	case "phonebook set-folder":
		folder := strings.Trim(req.Args[PathArgument], "/")
		if !s.book.hasFolder(folder) {
			complete(bluetooth.StatusNotFound)
			return false
		}

		ss.folder = folder
		complete(bluetooth.StatusOK)

	case "phonebook set-filter":
		mask, err := strconv.ParseUint(req.Args[MaskArgument], 16, 64)
		if err != nil {
			complete(bluetooth.StatusBadRequest)
			return false
		}

		ss.mask = bluetooth.FilterMask(mask)
		complete(bluetooth.StatusOK)

	case "phonebook set-filter-operator":
		op, err := bluetooth.ParseFilterOperator(req.Args[OperatorArgument])
		if err != nil {
			complete(bluetooth.StatusBadRequest)
			return false
		}

		ss.operator = op
		complete(bluetooth.StatusOK)

	case "phonebook get-size":
		key, ok := s.book.resolve(ss.folder, req.Args[PathArgument])
		if !ok {
			complete(bluetooth.StatusNotFound)
			return false
		}

		s.send(ss, FrameSize, false, id, encodeSize(uint32(len(s.book[key]))))
		complete(bluetooth.StatusOK)

	case "phonebook lookup":
		for _, r := range s.book.Lookup(req.Args[NumberArgument]) {
			s.send(ss, FrameRecord, false, id, encodeRecord(r.Name, r.Handle))
		}
		complete(bluetooth.StatusOK)

	case "phonebook pull":
		key, ok := s.book.resolve(ss.folder, req.Args[PathArgument])
		if !ok {
			complete(bluetooth.StatusNotFound)
			return false
		}

		ss.abort.Store(false)
		ss.streaming.Add(1)
		go s.stream(ss, id, s.render(ss, key))

	default:
		complete(bluetooth.StatusNotImplemented)
	}

	return false
}

// render returns the vCards of the object selected by the session filter.
func (s *Server) render(ss *serverSession, key string) []byte {
	sb := strings.Builder{}
	for _, c := range s.book[key] {
		if c.selected(ss.mask, ss.operator) {
			sb.WriteString(c.VCard(ss.format))
		}
	}

	return []byte(sb.String())
}

// stream sends object in fragments, stopping early if the session aborts.
func (s *Server) stream(ss *serverSession, id uint32, object []byte) {
	defer ss.streaming.Done()

	for len(object) > 0 {
		if ss.abort.Load() {
			s.send(ss, FrameOperationCompleted, true, id, encodeStatus(bluetooth.StatusAborted))
			return
		}

		n := min(s.fragmentSize, len(object))
		if err := s.send(ss, FrameData, false, id, object[:n]); err != nil {
			return
		}
		object = object[n:]

		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}

	status := bluetooth.StatusOK
	if ss.abort.Load() {
		status = bluetooth.StatusAborted
	}
	s.send(ss, FrameOperationCompleted, true, id, encodeStatus(status))
}

func (s *Server) send(ss *serverSession, kind FrameKind, final bool, id uint32, content []byte) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()

	err := writeFrame(ss.conn, newHeader(kind, final, bluetooth.Handle(ss.handle), id, len(content)), content)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Cannot send frame")
	}

	return err
}
