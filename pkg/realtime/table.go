package realtime

import (
	"sort"
	"sync"
)

// roomTable is the per-namespace registry. mu guards conns, rooms and the
// rooms set of every Conn admitted to this table.
type roomTable struct {
	ns    Namespace
	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]*Conn
}

func newRoomTable(ns Namespace) *roomTable {
	return &roomTable{
		ns:    ns,
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[string]*Conn),
	}
}

func (t *roomTable) add(c *Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[c.id] = c
}

// remove drops c and all of its memberships. It returns false when c was
// not (or no longer) registered.
func (t *roomTable) remove(c *Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conns[c.id] != c {
		return false
	}
	delete(t.conns, c.id)

	for room := range c.rooms {
		t.dropMember(room, c.id)
	}
	c.rooms = make(map[string]struct{})
	return true
}

func (t *roomTable) live(c *Conn) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conns[c.id] == c
}

// join is idempotent; it reports whether membership changed.
func (t *roomTable) join(c *Conn, room string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conns[c.id] != c {
		return false
	}
	if _, ok := c.rooms[room]; ok {
		return false
	}

	members := t.rooms[room]
	if members == nil {
		members = make(map[string]*Conn)
		t.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
	return true
}

func (t *roomTable) leave(c *Conn, room string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := c.rooms[room]; !ok {
		return false
	}
	delete(c.rooms, room)
	t.dropMember(room, c.id)
	return true
}

func (t *roomTable) dropMember(room, connID string) {
	members := t.rooms[room]
	delete(members, connID)
	if len(members) == 0 {
		delete(t.rooms, room)
	}
}

// members snapshots a room, leaving out exceptID.
func (t *roomTable) members(room, exceptID string) []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Conn, 0, len(t.rooms[room]))
	for id, c := range t.rooms[room] {
		if id != exceptID {
			out = append(out, c)
		}
	}
	return out
}

// everyone snapshots every connection in the namespace, leaving out exceptID.
func (t *roomTable) everyone(exceptID string) []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Conn, 0, len(t.conns))
	for id, c := range t.conns {
		if id != exceptID {
			out = append(out, c)
		}
	}
	return out
}

func (t *roomTable) get(id string) *Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conns[id]
}

func (t *roomTable) size(room string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms[room])
}

func (t *roomTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

func (t *roomTable) roomsOf(c *Conn) []string {
	t.mu.RLock()
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	t.mu.RUnlock()

	sort.Strings(out)
	return out
}
