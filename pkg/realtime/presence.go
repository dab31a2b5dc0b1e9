package realtime

import (
	"sort"
	"sync"
)

// Presence maps a user id to the id of that user's current global-namespace
// connection. A newer connection supersedes the older entry. Entries are a
// routing hint only: a missing or stale entry means "drop silently".
type Presence struct {
	mu      sync.RWMutex
	entries map[string]string
	changed func(count int)
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[string]string)}
}

// Set records connID as userID's current connection.
func (p *Presence) Set(userID, connID string) {
	p.mu.Lock()
	p.entries[userID] = connID
	n := len(p.entries)
	p.mu.Unlock()
	p.notify(n)
}

// Clear removes userID only while it still points at connID, so a stale
// connection going away cannot evict its successor. Reports whether an entry
// was removed.
func (p *Presence) Clear(userID, connID string) bool {
	p.mu.Lock()
	cur, ok := p.entries[userID]
	if !ok || cur != connID {
		p.mu.Unlock()
		return false
	}
	delete(p.entries, userID)
	n := len(p.entries)
	p.mu.Unlock()
	p.notify(n)
	return true
}

func (p *Presence) Lookup(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.entries[userID]
	return id, ok
}

func (p *Presence) Online(userID string) bool {
	_, ok := p.Lookup(userID)
	return ok
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Users returns the online user ids in ascending order.
func (p *Presence) Users() []string {
	p.mu.RLock()
	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (p *Presence) notify(n int) {
	if p.changed != nil {
		p.changed(n)
	}
}
