package bluetooth

import (
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
)

// HandleAllocator hands out session handles. Zero is never handed out, and
// the counter wraps around past handles that are still claimed.
type HandleAllocator struct {
	next atomic.Uint32
}

// Allocate returns the first nonzero handle for which claim returns true.
// claim is expected to register the handle atomically, and to return false
// if it is already in use.
func (a *HandleAllocator) Allocate(claim func(Handle) bool) (Handle, error) {
	for range 1 << 16 {
		h := Handle(a.next.Add(1))
		if h != 0 && claim(h) {
			return h, nil
		}
	}

	return 0, fault.Wrap(errorkinds.ErrHandlesExhausted, fmsg.With("Every session handle is in use"))
}
