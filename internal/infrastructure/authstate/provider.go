// Package authstate holds the process-wide session state. The service keeps
// the hosted product's model of a single signed-in user; API middleware
// authenticates requests against it.
package authstate

import (
	"sync"

	"satotrack/internal/app/port"
)

// Compile-time check: *Provider must satisfy port.AuthProvider.
var _ port.AuthProvider = (*Provider)(nil)

// Provider is an in-memory auth state holder with change subscriptions.
type Provider struct {
	mu        sync.RWMutex
	user      *port.User
	apiKey    string
	listeners map[int]func(*port.User)
	nextID    int
}

// NewProvider creates a signed-out provider that accepts the given API key.
func NewProvider(apiKey string) *Provider {
	return &Provider{
		apiKey:    apiKey,
		listeners: make(map[int]func(*port.User)),
	}
}

// ValidAPIKey reports whether the presented key matches the configured one.
func (p *Provider) ValidAPIKey(key string) bool {
	return p.apiKey != "" && key == p.apiKey
}

// CurrentUser returns the signed-in user, or nil.
func (p *Provider) CurrentUser() *port.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user
}

// SignIn sets the current user and notifies listeners.
func (p *Provider) SignIn(user port.User) {
	p.mu.Lock()
	p.user = &user
	callbacks := p.snapshotLocked()
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(&user)
	}
}

// SignOut clears the session and notifies listeners with nil.
func (p *Provider) SignOut() {
	p.mu.Lock()
	p.user = nil
	callbacks := p.snapshotLocked()
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(nil)
	}
}

// OnAuthChange registers a callback for session changes.
func (p *Provider) OnAuthChange(fn func(*port.User)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// snapshotLocked copies the listener set so callbacks run without the lock held.
func (p *Provider) snapshotLocked() []func(*port.User) {
	out := make([]func(*port.User), 0, len(p.listeners))
	for _, fn := range p.listeners {
		out = append(out, fn)
	}
	return out
}
