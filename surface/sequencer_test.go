package surface

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/pbap"
	"github.com/bluetuith-org/pbap-client/transport/obexsim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTransport counts the requests forwarded to the simulator.
type countingTransport struct {
	*obexsim.Client

	mu    sync.Mutex
	calls map[string]int
}

func (c *countingTransport) count(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[method]++
}

func (c *countingTransport) counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := make(map[string]int, len(c.calls))
	for k, v := range c.calls {
		m[k] = v
	}

	return m
}

func (c *countingTransport) Connect(address bluetooth.MacAddress, sink bluetooth.EventSink) (bluetooth.Handle, error) {
	c.count("connect")
	return c.Client.Connect(address, sink)
}

func (c *countingTransport) Disconnect(h bluetooth.Handle) error {
	c.count("disconnect")
	return c.Client.Disconnect(h)
}

func (c *countingTransport) Pull(h bluetooth.Handle, path string) error {
	c.count("pull")
	return c.Client.Pull(h, path)
}

func (c *countingTransport) GetSize(h bluetooth.Handle, path string) error {
	c.count("get-size")
	return c.Client.GetSize(h, path)
}

func (c *countingTransport) Authenticate(h bluetooth.Handle, password string) error {
	c.count("authenticate")
	return c.Client.Authenticate(h, password)
}

type objects struct {
	pbap.NopObserver

	mu   sync.Mutex
	got  map[string][]byte
	size []uint32
}

func (o *objects) OnObjectComplete(path string, object []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.got == nil {
		o.got = make(map[string][]byte)
	}
	o.got[path] = append([]byte(nil), object...)
}

func (o *objects) OnSize(size uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.size = append(o.size, size)
}

func runSequence(t *testing.T, server *obexsim.Server, operation pbap.Command) (*Sequencer, *countingTransport, *objects, error) {
	t.Helper()

	tr := &countingTransport{Client: obexsim.NewClient(server.Dialer())}
	t.Cleanup(tr.Close)

	seq := NewSequencer(remote, operation)
	auth := &AutoAuthenticator{Authorizer: bluetooth.StaticAuthorizer{}}
	got := &objects{}

	d := pbap.NewDispatcher(tr, pbap.Observers{got, auth, seq})
	auth.Poster = d

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go d.Run(ctx)

	seq.Start(d)
	err := seq.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		return d.Info().State == pbap.StateDisconnected
	}, 3*time.Second, 5*time.Millisecond)

	return seq, tr, got, err
}

func TestSequencerPull(t *testing.T) {
	book := obexsim.DefaultPhonebook()
	seq, tr, got, err := runSequence(t, obexsim.NewServer(book), pbap.Pull{Path: PathPhonebook})
	require.NoError(t, err)

	assert.Equal(t, bluetooth.StatusOK, seq.Status())
	assert.Equal(t, map[string]int{"connect": 1, "pull": 1, "disconnect": 1}, tr.counts())
	assert.Contains(t, string(got.got[PathPhonebook]), "FN:Emergency\r\n")
}

func TestSequencerAuthenticatesOnce(t *testing.T) {
	server := obexsim.NewServer(obexsim.DefaultPhonebook(), obexsim.WithPassword(bluetooth.DefaultPassword))
	seq, tr, got, err := runSequence(t, server, pbap.GetSize{Path: PathPhonebook})
	require.NoError(t, err)

	assert.Equal(t, bluetooth.StatusOK, seq.Status())
	assert.Equal(t, map[string]int{"connect": 1, "authenticate": 1, "get-size": 1, "disconnect": 1}, tr.counts())
	assert.Equal(t, []uint32{4}, got.size)
}

func TestSequencerFailedOperation(t *testing.T) {
	seq, tr, _, err := runSequence(t, obexsim.NewServer(obexsim.DefaultPhonebook()), pbap.Pull{Path: "telecom/nope.vcf"})
	assert.ErrorIs(t, err, errorkinds.ErrRemoteStatus)

	assert.Equal(t, bluetooth.StatusNotFound, seq.Status())
	assert.Equal(t, map[string]int{"connect": 1, "pull": 1, "disconnect": 1}, tr.counts())
}

func TestSequencerRejectedPassword(t *testing.T) {
	server := obexsim.NewServer(obexsim.DefaultPhonebook(), obexsim.WithPassword("9999"))
	_, tr, _, err := runSequence(t, server, pbap.Pull{Path: PathPhonebook})
	assert.ErrorIs(t, err, errorkinds.ErrRemoteStatus)

	assert.Equal(t, map[string]int{"connect": 1, "authenticate": 1}, tr.counts())
}
