package pbap

import "github.com/bluetuith-org/pbap-client/api/bluetooth"

// Record is one reverse-lookup result.
type Record struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// Observer receives the outcomes of commands and events.
// Callbacks are invoked from the goroutine that drives the Controller, and
// must not block on that goroutine (use Dispatcher.Post, not Submit).
type Observer interface {
	// OnStatus reports human-readable progress.
	OnStatus(message string)

	// OnError reports asynchronous failures: remote status errors and
	// protocol violations.
	OnError(err error)

	// OnConnectionState reports every state transition of the session.
	OnConnectionState(address bluetooth.MacAddress, state State)

	// OnAuthenticationRequested asks for an Authenticate command.
	OnAuthenticationRequested(address bluetooth.MacAddress)

	// OnSize reports the result of a size query.
	OnSize(size uint32)

	// OnRecord reports one lookup result as soon as it arrives.
	OnRecord(record Record)

	// OnObjectComplete hands over a complete object. The slice is not
	// retained by the session.
	OnObjectComplete(path string, object []byte)

	// OnOperationComplete reports the end of an operation with its status.
	OnOperationComplete(kind OperationKind, status bluetooth.Status)
}

// NopObserver ignores every notification. Embed it to implement only
// part of Observer.
type NopObserver struct{}

func (NopObserver) OnStatus(string)                                     {}
func (NopObserver) OnError(error)                                       {}
func (NopObserver) OnConnectionState(bluetooth.MacAddress, State)       {}
func (NopObserver) OnAuthenticationRequested(bluetooth.MacAddress)      {}
func (NopObserver) OnSize(uint32)                                       {}
func (NopObserver) OnRecord(Record)                                     {}
func (NopObserver) OnObjectComplete(string, []byte)                     {}
func (NopObserver) OnOperationComplete(OperationKind, bluetooth.Status) {}

// Observers fans notifications out to several observers, in order.
type Observers []Observer

func (o Observers) OnStatus(message string) {
	for _, ob := range o {
		ob.OnStatus(message)
	}
}

func (o Observers) OnError(err error) {
	for _, ob := range o {
		ob.OnError(err)
	}
}

func (o Observers) OnConnectionState(address bluetooth.MacAddress, state State) {
	for _, ob := range o {
		ob.OnConnectionState(address, state)
	}
}

func (o Observers) OnAuthenticationRequested(address bluetooth.MacAddress) {
	for _, ob := range o {
		ob.OnAuthenticationRequested(address)
	}
}

func (o Observers) OnSize(size uint32) {
	for _, ob := range o {
		ob.OnSize(size)
	}
}

func (o Observers) OnRecord(record Record) {
	for _, ob := range o {
		ob.OnRecord(record)
	}
}

func (o Observers) OnObjectComplete(path string, object []byte) {
	for _, ob := range o {
		ob.OnObjectComplete(path, object)
	}
}

func (o Observers) OnOperationComplete(kind OperationKind, status bluetooth.Status) {
	for _, ob := range o {
		ob.OnOperationComplete(kind, status)
	}
}
