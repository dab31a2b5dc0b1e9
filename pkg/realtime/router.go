package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/farmdirect/farmdirect/pkg/event"
	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/metrics"
)

// TokenVerifier checks a bearer token and returns the user id it was issued
// for. Any error rejects the handshake.
type TokenVerifier func(token string) (userID string, err error)

// UserFinder resolves a user id to its identity. It returns (nil, nil) when
// no such user exists.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
}

// Options tunes a Router. The zero value is usable.
type Options struct {
	Logger   *slog.Logger
	Presence *Presence
	// Now stamps server-side timestamps; defaults to time.Now in UTC.
	Now func() time.Time
}

// Router is the connection registry and event router. Build one per process
// and share it with every transport and service that emits events.
type Router struct {
	verify    TokenVerifier
	users     UserFinder
	tables    map[Namespace]*roomTable
	presence  *Presence
	observers *event.Bus
	log       *slog.Logger
	now       func() time.Time
}

func NewRouter(verify TokenVerifier, users UserFinder, opts Options) *Router {
	r := &Router{
		verify:    verify,
		users:     users,
		tables:    make(map[Namespace]*roomTable, len(Namespaces)),
		presence:  opts.Presence,
		observers: event.New(),
		log:       opts.Logger,
		now:       opts.Now,
	}
	for _, ns := range Namespaces {
		r.tables[ns] = newRoomTable(ns)
	}
	if r.presence == nil {
		r.presence = NewPresence()
	}
	r.presence.changed = func(n int) { metrics.OnlineUsers.Set(float64(n)) }
	if r.log == nil {
		r.log = logger.Component("realtime")
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	return r
}

// Authenticate runs the handshake checks for a connection to ns. It fails
// with ErrAuthenticationRequired for an empty token and with
// ErrAuthenticationInvalid for a bad token or an unknown user. A failing
// user lookup is wrapped and also rejects the connection.
func (r *Router) Authenticate(ctx context.Context, ns Namespace, token string) (User, error) {
	user, err := r.authenticate(ctx, token)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		outcome = "required"
	case err != nil:
		outcome = "invalid"
	}
	metrics.RealtimeHandshakes.WithLabelValues(string(ns), outcome).Inc()

	if err != nil {
		r.log.Debug("realtime: handshake rejected", "namespace", ns, "error", err)
	}
	return user, err
}

func (r *Router) authenticate(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrAuthenticationRequired
	}

	userID, err := r.verify(token)
	if err != nil || userID == "" {
		return User{}, ErrAuthenticationInvalid
	}

	u, err := r.users.FindUserByID(ctx, userID)
	if err != nil {
		return User{}, fmt.Errorf("%w: user lookup: %v", ErrAuthenticationInvalid, err)
	}
	if u == nil {
		return User{}, ErrAuthenticationInvalid
	}
	return *u, nil
}

// Admit registers an authenticated peer in ns. The new connection has no
// room memberships. Connections to the global namespace become the user's
// presence entry.
func (r *Router) Admit(ns Namespace, user User, peer Peer) (*Conn, error) {
	t, ok := r.tables[ns]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	c := &Conn{
		id:     peer.ID(),
		ns:     ns,
		user:   user,
		peer:   peer,
		router: r,
		table:  t,
		rooms:  make(map[string]struct{}),
	}
	t.add(c)
	metrics.RealtimeConnections.WithLabelValues(string(ns)).Inc()

	if ns == Global {
		r.presence.Set(user.ID, c.id)
	}

	r.log.Info("realtime: connected",
		"namespace", ns, "user_id", user.ID, "name", user.Name, "conn_id", c.id)
	return c, nil
}

// Connect is Authenticate followed by Admit.
func (r *Router) Connect(ctx context.Context, ns Namespace, token string, peer Peer) (*Conn, error) {
	if !ns.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	user, err := r.Authenticate(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	return r.Admit(ns, user, peer)
}

// Disconnect releases c and every room membership it held. For a global
// connection it clears the user's presence entry and tells the remaining
// global connections the user went offline. Calling it again, or with nil,
// does nothing.
func (r *Router) Disconnect(c *Conn) {
	if c == nil || !c.table.remove(c) {
		return
	}
	metrics.RealtimeConnections.WithLabelValues(string(c.ns)).Dec()

	if c.ns == Global {
		r.presence.Clear(c.user.ID, c.id)
		r.broadcast(c.table, c.table.everyone(c.id), EventUserOffline,
			PresenceChange{UserID: c.user.ID, Name: c.user.Name})
	}

	r.log.Info("realtime: disconnected",
		"namespace", c.ns, "user_id", c.user.ID, "conn_id", c.id)
}

// Subscribe observes inbound client events after they have been routed.
// Handlers run on their own goroutine and may block.
func (r *Router) Subscribe(eventName string, fn func(Inbound)) event.Subscription {
	return r.observers.Subscribe(eventName, func(p any) {
		if in, ok := p.(Inbound); ok {
			fn(in)
		}
	})
}

func (r *Router) Unsubscribe(s event.Subscription) {
	r.observers.Unsubscribe(s)
}

// ── server push ──────────────────────────────────────────────────────────────

// EmitToUser delivers to userID's current global connection. It reports
// whether the message was handed to a peer; an offline user is not an error.
func (r *Router) EmitToUser(userID, eventName string, payload any) bool {
	connID, ok := r.presence.Lookup(userID)
	if !ok {
		r.log.Debug("realtime: user offline, dropping",
			"room", UserRoom(userID), "event", eventName)
		return false
	}

	t := r.tables[Global]
	c := t.get(connID)
	if c == nil {
		r.log.Debug("realtime: stale presence entry, dropping",
			"room", UserRoom(userID), "event", eventName, "conn_id", connID)
		return false
	}
	return r.broadcast(t, []*Conn{c}, eventName, payload) == 1
}

// EmitToUsers calls EmitToUser for each id and returns how many were reached.
func (r *Router) EmitToUsers(userIDs []string, eventName string, payload any) int {
	n := 0
	for _, id := range userIDs {
		if r.EmitToUser(id, eventName, payload) {
			n++
		}
	}
	return n
}

// EmitToChat delivers to every member of chat:<chatID>.
func (r *Router) EmitToChat(chatID, eventName string, payload any) int {
	t := r.tables[Chat]
	return r.broadcast(t, t.members(ChatRoom(chatID), ""), eventName, payload)
}

// EmitToOrder delivers to every member of order:<orderID>.
func (r *Router) EmitToOrder(orderID, eventName string, payload any) int {
	t := r.tables[Order]
	return r.broadcast(t, t.members(OrderRoom(orderID), ""), eventName, payload)
}

func (r *Router) IsUserOnline(userID string) bool { return r.presence.Online(userID) }

func (r *Router) OnlineUsersCount() int { return r.presence.Count() }

// ConnectedUsers returns the ids in the presence registry, sorted.
func (r *Router) ConnectedUsers() []string { return r.presence.Users() }

// RoomSize reports how many connections of ns are in room.
func (r *Router) RoomSize(ns Namespace, room string) int {
	t, ok := r.tables[ns]
	if !ok {
		return 0
	}
	return t.size(room)
}

// ConnectionCount reports how many connections ns currently holds.
func (r *Router) ConnectionCount(ns Namespace) int {
	t, ok := r.tables[ns]
	if !ok {
		return 0
	}
	return t.count()
}

// ConnectionsByNamespace summarises the registry, e.g. for a status page.
func (r *Router) ConnectionsByNamespace() map[Namespace]int {
	out := make(map[Namespace]int, len(r.tables))
	for ns, t := range r.tables {
		out[ns] = t.count()
	}
	return out
}

// broadcast encodes payload once and hands it to each target. Peers that
// refuse the message are skipped. It returns the number of peers reached.
func (r *Router) broadcast(t *roomTable, targets []*Conn, eventName string, payload any) int {
	if len(targets) == 0 {
		return 0
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("realtime: encode payload", "event", eventName, "error", err)
		return 0
	}
	msg := Message{Event: eventName, Data: data}

	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	sent := 0
	for _, c := range targets {
		if err := c.peer.Send(msg); err != nil {
			metrics.RealtimeDropped.WithLabelValues(string(t.ns)).Inc()
			r.log.Debug("realtime: delivery dropped",
				"namespace", t.ns, "event", eventName, "conn_id", c.id, "error", err)
			continue
		}
		sent++
	}
	return sent
}
