package pbap

import (
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry holds the connected sessions, keyed by their transport handle.
type Registry struct {
	sessions *xsync.MapOf[bluetooth.Handle, *Session]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[bluetooth.Handle, *Session](),
	}
}

// Add registers the session under its handle.
func (r *Registry) Add(s *Session) {
	r.sessions.Store(s.handle, s)
}

// Load returns the session registered for the handle.
func (r *Registry) Load(h bluetooth.Handle) (*Session, bool) {
	return r.sessions.Load(h)
}

// Remove unregisters the session registered for the handle.
func (r *Registry) Remove(h bluetooth.Handle) {
	r.sessions.Delete(h)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}
