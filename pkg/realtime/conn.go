package realtime

import (
	"encoding/json"
	"time"

	"github.com/farmdirect/farmdirect/pkg/metrics"
)

// Conn is an admitted, authenticated connection. Its user never changes
// after the handshake. Handle must be called from a single goroutine per
// connection so that a client's events are processed in the order sent.
type Conn struct {
	id     string
	ns     Namespace
	user   User
	peer   Peer
	router *Router
	table  *roomTable
	rooms  map[string]struct{}
}

func (c *Conn) ID() string           { return c.id }
func (c *Conn) User() User           { return c.user }
func (c *Conn) Namespace() Namespace { return c.ns }

// Rooms returns the rooms the connection has joined, sorted.
func (c *Conn) Rooms() []string { return c.table.roomsOf(c) }

// Inbound is what Router subscribers receive for every routed client event.
type Inbound struct {
	Namespace  Namespace
	Event      string
	ConnID     string
	User       User
	Data       json.RawMessage
	ReceivedAt time.Time
}

type eventHandler func(c *Conn, data json.RawMessage) error

// Handle routes one inbound client event. Events unknown to the namespace,
// malformed payloads and events on a closed connection are ignored.
func (c *Conn) Handle(event string, data json.RawMessage) {
	r := c.router
	if !c.table.live(c) {
		return
	}

	h, ok := handlers[c.ns][event]
	if !ok {
		r.log.Debug("realtime: ignoring unknown event",
			"namespace", c.ns, "event", event, "conn_id", c.id)
		return
	}
	metrics.RealtimeEvents.WithLabelValues(string(c.ns), event).Inc()

	if err := h(c, data); err != nil {
		r.log.Debug("realtime: ignoring malformed event",
			"namespace", c.ns, "event", event, "conn_id", c.id, "error", err)
		return
	}

	if r.observers.Has(event) {
		r.observers.PublishAsync(event, Inbound{
			Namespace:  c.ns,
			Event:      event,
			ConnID:     c.id,
			User:       c.user,
			Data:       data,
			ReceivedAt: r.now(),
		})
	}
}

// toRoom broadcasts to room excluding the sender.
func (c *Conn) toRoom(room, event string, payload any) {
	c.router.broadcast(c.table, c.table.members(room, c.id), event, payload)
}

// toOthers broadcasts to every other connection in the namespace.
func (c *Conn) toOthers(event string, payload any) {
	c.router.broadcast(c.table, c.table.everyone(c.id), event, payload)
}

func (c *Conn) joinRoom(room string) {
	if c.table.join(c, room) {
		c.router.log.Debug("realtime: joined room",
			"namespace", c.ns, "room", room, "user_id", c.user.ID)
	}
}

func (c *Conn) leaveRoom(room string) {
	if c.table.leave(c, room) {
		c.router.log.Debug("realtime: left room",
			"namespace", c.ns, "room", room, "user_id", c.user.ID)
	}
}
