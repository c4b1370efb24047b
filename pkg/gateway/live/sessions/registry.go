// Package sessions tracks active live sessions by session ID. Out-of-band
// producers (UI tools invoked by the backend agent) use it to reach a
// session's outbound path without threading the session through their call
// signatures. Entries are removed on every session exit path.
package sessions

import (
	"context"
	"sync"
)

// Outbound is the subset of a session's capabilities exposed to external
// collaborators: sending a typed message to the connected client.
type Outbound interface {
	Send(msg any) error
}

// Handle is what a session registers about itself.
type Handle struct {
	Outbound Outbound
	Cancel   func()
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registeredSession
	wg       sync.WaitGroup
}

type registeredSession struct {
	handle Handle
	once   sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*registeredSession),
	}
}

// Register installs a session's handle and returns its unregister function.
// Registering over an existing ID unregisters the previous entry first.
func (r *Registry) Register(sessionID string, h Handle) (unregister func()) {
	if r == nil {
		return func() {}
	}

	entry := &registeredSession{handle: h}

	r.mu.Lock()
	if r.sessions == nil {
		r.sessions = make(map[string]*registeredSession)
	}
	old := r.sessions[sessionID]
	r.sessions[sessionID] = entry
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		r.unregister(sessionID, old)
	}

	return func() { r.unregister(sessionID, entry) }
}

func (r *Registry) unregister(sessionID string, entry *registeredSession) {
	if r == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		r.mu.Lock()
		if r.sessions != nil && r.sessions[sessionID] == entry {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
		r.wg.Done()
	})
}

// Get returns the outbound capability for the given session, or false when
// the session is unknown or already torn down.
func (r *Registry) Get(sessionID string) (Outbound, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.sessions[sessionID]
	if entry == nil || entry.handle.Outbound == nil {
		return nil, false
	}
	return entry.handle.Outbound, true
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CancelAll cancels every registered session, for forced shutdown.
func (r *Registry) CancelAll() (canceled int) {
	if r == nil {
		return 0
	}

	var cancels []func()
	r.mu.Lock()
	for _, entry := range r.sessions {
		if entry == nil || entry.handle.Cancel == nil {
			continue
		}
		cancels = append(cancels, entry.handle.Cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until all registered sessions have unregistered, or the
// context expires. Returns false on timeout.
func (r *Registry) Wait(ctx context.Context) bool {
	if r == nil {
		return true
	}
	if ctx == nil {
		r.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
