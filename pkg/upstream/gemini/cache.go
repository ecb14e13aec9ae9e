package gemini

import (
	"sync"
)

// SetupCache maps client-connection ids to the setup handshake payload sent
// upstream for that connection. An entry exists iff a setup frame has been
// sent and not yet invalidated by a close. Owned by the connection manager,
// shared by the sessions it constructs.
type SetupCache struct {
	mu      sync.Mutex
	entries map[string]SetupMessage
}

// NewSetupCache creates an empty cache.
func NewSetupCache() *SetupCache {
	return &SetupCache{
		entries: make(map[string]SetupMessage),
	}
}

// Has reports whether a setup handshake is recorded for the client id.
func (c *SetupCache) Has(clientID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[clientID]
	return ok
}

// Set records the handshake payload for the client id.
func (c *SetupCache) Set(clientID string, setup SetupMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[clientID] = setup
}

// Get returns the recorded handshake payload for the client id.
func (c *SetupCache) Get(clientID string) (SetupMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	setup, ok := c.entries[clientID]
	return setup, ok
}

// Delete removes the entry for the client id, if any.
func (c *SetupCache) Delete(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, clientID)
}

// Len returns the number of recorded handshakes.
func (c *SetupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
