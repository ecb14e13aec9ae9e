// Package sessions tracks the live upstream session owned by each client
// connection.
package sessions

import (
	"sync"

	"github.com/revlabs/rev-relay/pkg/upstream"
)

// Registry maps client connection ids to their upstream sessions. At most
// one session exists per client id; the gateway disconnects any previous
// session before replacing it. Rebuilt empty on process restart.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]upstream.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]upstream.Session),
	}
}

// Get returns the session registered for the client id, if any.
func (r *Registry) Get(clientID string) (upstream.Session, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[clientID]
	return sess, ok
}

// Set registers a session for the client id. The caller must have already
// disconnected any session previously registered under the same id.
func (r *Registry) Set(clientID string, sess upstream.Session) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions == nil {
		r.sessions = make(map[string]upstream.Session)
	}
	r.sessions[clientID] = sess
}

// Remove drops the entry for the client id and returns the session that was
// registered, if any. It does not disconnect the session.
func (r *Registry) Remove(clientID string) (upstream.Session, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[clientID]
	if ok {
		delete(r.sessions, clientID)
	}
	return sess, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// DisconnectAll tears down every registered session exactly once and clears
// the registry. Used during graceful shutdown.
func (r *Registry) DisconnectAll() (disconnected int) {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	drained := make([]upstream.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		if sess == nil {
			continue
		}
		drained = append(drained, sess)
	}
	r.sessions = make(map[string]upstream.Session)
	r.mu.Unlock()

	for _, sess := range drained {
		sess.Disconnect()
		disconnected++
	}
	return disconnected
}
