package pbap

import (
	"errors"
	"sync"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
)

type call struct {
	method string
	handle bluetooth.Handle
	arg    any
}

// fakeTransport records forwarded requests; events are injected by the test.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []call
	handle bluetooth.Handle
	fail   error
	sink   bluetooth.EventSink
}

func (f *fakeTransport) record(method string, h bluetooth.Handle, arg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, call{method, h, arg})

	return nil
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]call(nil), f.calls...)
}

func (f *fakeTransport) methods() []string {
	var m []string
	for _, c := range f.Calls() {
		m = append(m, c.method)
	}

	return m
}

func (f *fakeTransport) Connect(address bluetooth.MacAddress, sink bluetooth.EventSink) (bluetooth.Handle, error) {
	if err := f.record("connect", 0, address); err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.handle++
	f.sink = sink
	h := f.handle
	f.mu.Unlock()

	return h, nil
}

func (f *fakeTransport) Disconnect(h bluetooth.Handle) error { return f.record("disconnect", h, nil) }
func (f *fakeTransport) Abort(h bluetooth.Handle) error      { return f.record("abort", h, nil) }
func (f *fakeTransport) GetSize(h bluetooth.Handle, path string) error {
	return f.record("get-size", h, path)
}
func (f *fakeTransport) Pull(h bluetooth.Handle, path string) error {
	return f.record("pull", h, path)
}
func (f *fakeTransport) LookupByNumber(h bluetooth.Handle, number string) error {
	return f.record("lookup", h, number)
}
func (f *fakeTransport) Authenticate(h bluetooth.Handle, password string) error {
	return f.record("authenticate", h, password)
}
func (f *fakeTransport) SetFolder(h bluetooth.Handle, path string) error {
	return f.record("set-folder", h, path)
}
func (f *fakeTransport) SetFilter(h bluetooth.Handle, mask bluetooth.FilterMask) error {
	return f.record("set-filter", h, mask)
}
func (f *fakeTransport) SetFilterOperator(h bluetooth.Handle, op bluetooth.FilterOperator) error {
	return f.record("set-filter-operator", h, op)
}

// recorder is an Observer that keeps every notification.
type recorder struct {
	mu sync.Mutex

	statuses    []string
	errs        []error
	states      []State
	authReqs    int
	sizes       []uint32
	records     []Record
	objects     [][]byte
	completions []bluetooth.Status
	kinds       []OperationKind
}

func (r *recorder) OnStatus(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, message)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) OnConnectionState(_ bluetooth.MacAddress, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) OnAuthenticationRequested(bluetooth.MacAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authReqs++
}

func (r *recorder) OnSize(size uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, size)
}

func (r *recorder) OnRecord(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *recorder) OnObjectComplete(_ string, object []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects = append(r.objects, append([]byte(nil), object...))
}

func (r *recorder) OnOperationComplete(kind OperationKind, status bluetooth.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.completions = append(r.completions, status)
}

func (r *recorder) lastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}

	return r.errs[len(r.errs)-1]
}

var (
	testAddress = bluetooth.MacAddress{0x00, 0x1B, 0xDC, 0x08, 0x0A, 0xA5}
	errLinkDown = errors.New("link down")
)

func header(h bluetooth.Handle) bluetooth.EventHeader {
	return bluetooth.EventHeader{Handle: h}
}
