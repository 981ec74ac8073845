package pbap

import (
	"context"
	"testing"
	"time"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTransport answers every request from its own goroutine, the way a
// real transport delivers events.
type echoTransport struct {
	fakeTransport
	object []string
}

func (e *echoTransport) emit(events ...bluetooth.Event) {
	sink := e.sink
	go func() {
		for _, ev := range events {
			sink.HandleEvent(ev)
		}
	}()
}

func (e *echoTransport) Connect(address bluetooth.MacAddress, sink bluetooth.EventSink) (bluetooth.Handle, error) {
	h, err := e.fakeTransport.Connect(address, sink)
	if err == nil {
		e.emit(bluetooth.ConnectionOpened{EventHeader: header(h)})
	}

	return h, err
}

func (e *echoTransport) Pull(h bluetooth.Handle, path string) error {
	if err := e.fakeTransport.Pull(h, path); err != nil {
		return err
	}

	var events []bluetooth.Event
	for _, fragment := range e.object {
		events = append(events, bluetooth.DataFragment{EventHeader: header(h), Data: []byte(fragment)})
	}
	e.emit(append(events, bluetooth.OperationCompleted{EventHeader: header(h)})...)

	return nil
}

func (e *echoTransport) Disconnect(h bluetooth.Handle) error {
	if err := e.fakeTransport.Disconnect(h); err != nil {
		return err
	}
	e.emit(bluetooth.ConnectionClosed{EventHeader: header(h)})

	return nil
}

func runDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitForState(t *testing.T, d *Dispatcher, state State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return d.Info().State == state
	}, 2*time.Second, 5*time.Millisecond, "state %s not reached", state)
}

func TestDispatcherPullRoundTrip(t *testing.T) {
	tr := &echoTransport{object: []string{"BEGIN:VCARD\n", "FN:Test\n", "END:VCARD\n"}}
	rec := &recorder{}
	d := NewDispatcher(tr, rec)
	runDispatcher(t, d)

	ctx := context.Background()
	assert.Equal(t, StateDisconnected, d.Info().State)

	require.NoError(t, d.Submit(ctx, Connect{Address: testAddress}))
	waitForState(t, d, StateIdle)

	require.NoError(t, d.Submit(ctx, Pull{Path: "telecom/pb.vcf"}))
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.objects) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "BEGIN:VCARD\nFN:Test\nEND:VCARD\n", string(rec.objects[0]))

	require.NoError(t, d.Submit(ctx, Disconnect{}))
	waitForState(t, d, StateDisconnected)
	assert.Equal(t, 0, d.registry.Len())
}

func TestDispatcherRejectsSynchronously(t *testing.T) {
	tr := &echoTransport{}
	d := NewDispatcher(tr, &recorder{})
	runDispatcher(t, d)

	err := d.Submit(context.Background(), Pull{Path: "telecom/pb.vcf"})
	assert.ErrorIs(t, err, errorkinds.ErrInvalidState)
	assert.Empty(t, tr.Calls())
}

func TestDispatcherPostReportsErrors(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(&echoTransport{}, rec)
	runDispatcher(t, d)

	d.Post(Abort{})
	require.Eventually(t, func() bool {
		return rec.lastError() != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, rec.lastError(), errorkinds.ErrInvalidState)
}

func TestDispatcherDropsUnknownHandles(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(&echoTransport{}, rec)
	runDispatcher(t, d)

	d.HandleEvent(bluetooth.DataFragment{EventHeader: header(99), Data: []byte("x")})
	require.NoError(t, d.Submit(context.Background(), Connect{Address: testAddress}))
	waitForState(t, d, StateIdle)

	assert.Empty(t, rec.errs)
}

func TestDispatcherSubmitAfterStop(t *testing.T) {
	d := NewDispatcher(&echoTransport{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Run(ctx), context.Canceled)

	assert.ErrorIs(t, d.Submit(context.Background(), Connect{Address: testAddress}), errorkinds.ErrSessionStop)
}
