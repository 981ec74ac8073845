package pbap

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/rs/zerolog"
)

// Dispatcher runs a Controller on a single goroutine. Commands from a
// command surface and events from the transport are queued in arrival order
// and processed one at a time by Run.
type Dispatcher struct {
	ctrl     *Controller
	registry *Registry
	observer Observer
	logger   zerolog.Logger

	current *Session
	info    atomic.Pointer[SessionInfo]

	queue   *queue
	stopped chan struct{}
	once    sync.Once
}

type item struct {
	cmd   Command
	event bluetooth.Event
	reply chan error
}

// NewDispatcher returns a Dispatcher driving one session over transport.
func NewDispatcher(transport bluetooth.Transport, observer Observer, opts ...Option) *Dispatcher {
	if observer == nil {
		observer = NopObserver{}
	}

	o := newOptions(opts)
	d := &Dispatcher{
		registry: NewRegistry(),
		observer: observer,
		logger:   o.logger,
		current:  NewSession(),
		queue:    newQueue(),
		stopped:  make(chan struct{}),
	}
	d.ctrl = NewController(transport, d, observer, opts...)
	d.publish()

	return d
}

// HandleEvent queues a transport event. It never blocks.
func (d *Dispatcher) HandleEvent(ev bluetooth.Event) {
	d.queue.push(item{event: ev})
}

// Submit queues cmd and waits until it has been validated and forwarded.
// It must not be called from Observer callbacks; use Post there.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) error {
	reply := make(chan error, 1)
	d.queue.push(item{cmd: cmd, reply: reply})

	select {
	case err := <-reply:
		return err

	case <-d.stopped:
		return errorkinds.ErrSessionStop

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues cmd without waiting. Validation errors are reported
// to the observer.
func (d *Dispatcher) Post(cmd Command) {
	d.queue.push(item{cmd: cmd})
}

// Info returns a snapshot of the current session.
func (d *Dispatcher) Info() SessionInfo {
	return *d.info.Load()
}

// Run processes queued commands and events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.once.Do(func() { close(d.stopped) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-d.queue.ready:
		}

		for _, it := range d.queue.drain() {
			d.process(it)
		}
	}
}

func (d *Dispatcher) process(it item) {
	defer d.publish()

	if it.event != nil {
		d.apply(it.event)
		return
	}

	err := d.submit(it.cmd)
	switch {
	case it.reply != nil:
		it.reply <- err

	case err != nil:
		d.observer.OnError(err)
	}
}

func (d *Dispatcher) submit(cmd Command) error {
	s := d.current
	if _, ok := cmd.(Connect); ok && s.state == StateDisconnected {
		s = NewSession()
	}

	if err := d.ctrl.Submit(s, cmd); err != nil {
		return err
	}

	if s != d.current {
		d.current = s
		d.registry.Add(s)
	}

	return nil
}

func (d *Dispatcher) apply(ev bluetooth.Event) {
	s, ok := d.registry.Load(ev.SessionHandle())
	if !ok {
		d.logger.Debug().
			Str("event", ev.Name()).
			Stringer("handle", ev.SessionHandle()).
			Msg("Dropping event for an unknown session")
		return
	}

	// Errors have already been reported to the observer.
	_ = d.ctrl.Apply(s, ev)

	if s.state == StateDisconnected {
		d.registry.Remove(s.handle)
	}
}

func (d *Dispatcher) publish() {
	info := d.current.Info()
	d.info.Store(&info)
}

// queue is an unbounded FIFO; transports must never block on HandleEvent.
type queue struct {
	mu    sync.Mutex
	items []item
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(it item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue) drain() []item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil

	return items
}
