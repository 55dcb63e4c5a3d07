package server

import (
	"sync"
)

// PresenceRegistry maps a user id to their active connection. It is the only
// shared in-memory mutable structure in the gateway, process-lifetime only: a
// restart means every user appears offline until they reconnect.
//
// One connection per user: a reconnect overwrites the previous entry (last
// connection wins). Unregister compares session handles so a late disconnect
// of a stale connection never evicts the newer one.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[int64]presenceEntry
}

type presenceEntry struct {
	client  *Client
	session string
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[int64]presenceEntry),
	}
}

// Register records the user's connection, replacing any previous one.
// Returns true if the user was already online (reconnect).
func (p *PresenceRegistry) Register(userId int64, c *Client, session string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, replaced := p.entries[userId]
	p.entries[userId] = presenceEntry{client: c, session: session}
	return replaced
}

// Unregister removes the user's connection if the session matches the
// registered one. Returns true if the user actually went offline. Idempotent:
// unregistering an absent user is a no-op.
func (p *PresenceRegistry) Unregister(userId int64, session string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[userId]
	if !ok || entry.session != session {
		return false
	}

	delete(p.entries, userId)
	return true
}

func (p *PresenceRegistry) IsOnline(userId int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entries[userId]
	return ok
}

func (p *PresenceRegistry) Get(userId int64) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[userId]
	if !ok {
		return nil, false
	}
	return entry.client, true
}

func (p *PresenceRegistry) OnlineIds() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]int64, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	return ids
}

func (p *PresenceRegistry) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entries)
}

// Clear empties the registry. Used on shutdown.
func (p *PresenceRegistry) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = make(map[int64]presenceEntry)
}
