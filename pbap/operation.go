package pbap

import (
	"bytes"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/google/uuid"
)

// OperationKind describes the kind of an in-flight request.
type OperationKind uint8

const (
	KindSizeQuery OperationKind = iota + 1
	KindPull
	KindLookup
	KindAuthenticate
	KindSetFolder
	KindSetFilter
	KindSetFilterOperator
)

// String converts an OperationKind to a string.
func (k OperationKind) String() string {
	switch k {
	case KindSizeQuery:
		return "size-query"
	case KindPull:
		return "pull-object"
	case KindLookup:
		return "lookup-by-number"
	case KindAuthenticate:
		return "authenticate"
	case KindSetFolder:
		return "set-folder"
	case KindSetFilter:
		return "set-filter"
	case KindSetFilterOperator:
		return "set-filter-operator"
	}

	return "unknown"
}

// acceptsFragments reports whether data fragments may belong to the kind.
func (k OperationKind) acceptsFragments() bool {
	return k == KindPull || k == KindLookup
}

// Operation is one outstanding request of a Session.
type Operation struct {
	ID     uuid.UUID
	Kind   OperationKind
	Target string

	aborting bool

	// Pending values, committed to the session on successful completion.
	folder   string
	mask     bluetooth.FilterMask
	operator bluetooth.FilterOperator

	size    uint32
	hasSize bool
	records int
	result  bytes.Buffer
}

func newOperation(kind OperationKind, target string) *Operation {
	return &Operation{
		ID:     uuid.New(),
		Kind:   kind,
		Target: target,
	}
}

// Aborting reports whether an abort has been requested for the operation.
func (o *Operation) Aborting() bool {
	return o.aborting
}

// Buffered returns the number of result bytes received so far.
func (o *Operation) Buffered() int {
	return o.result.Len()
}
