package pbap

import "github.com/bluetuith-org/pbap-client/api/bluetooth"

// aggregator reassembles the result of one operation from its events.
type aggregator struct {
	observer Observer
}

// fragment appends data to the operation's result buffer, in arrival order.
func (a aggregator) fragment(op *Operation, data []byte) {
	op.result.Write(data)
}

// size records the size carried by a size-result; it is reported at completion.
func (a aggregator) size(op *Operation, size uint32) {
	op.size = size
	op.hasSize = true
}

// record reports a lookup result immediately.
func (a aggregator) record(op *Operation, ev bluetooth.RecordResult) {
	op.records++
	a.observer.OnRecord(Record{
		Name:   string(ev.ContactName),
		Handle: string(ev.CardHandle),
	})
}

// complete finalizes the operation. On a non-ok status the buffered result
// is discarded and a remote status error is returned to the caller.
func (a aggregator) complete(s *Session, op *Operation, status bluetooth.Status) error {
	if !status.OK() {
		op.result.Reset()
		return remoteStatusError(s, op.Kind.String(), status)
	}

	switch op.Kind {
	case KindSizeQuery:
		if !op.hasSize {
			return protocolViolationError(s, "size query completed without a size result")
		}
		a.observer.OnSize(op.size)

	case KindPull:
		a.observer.OnObjectComplete(op.Target, op.result.Bytes())

	case KindLookup:
		if op.result.Len() > 0 {
			a.observer.OnObjectComplete(op.Target, op.result.Bytes())
		}
	}

	return nil
}
