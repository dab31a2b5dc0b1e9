// Package ws is the gorilla/websocket transport for pkg/realtime.
//
// Every namespace is served by its own endpoint:
//
//	r.Get(ws.Path(realtime.Chat), "ws.chat", ws.Handler(router, realtime.Chat))
//
// The bearer token is checked before the upgrade, so a rejected client gets
// a plain 401 JSON response and never holds a socket. Frames in both
// directions are JSON objects of the form {"event": "...", "data": ...}.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/realtime"
	"github.com/farmdirect/farmdirect/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var (
	ErrClosed     = errors.New("ws: connection closed")
	ErrBufferFull = errors.New("ws: send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default (allow-all) origin checker.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// AllowOrigins restricts upgrades to the listed origins. "*" allows any.
// Requests without an Origin header (non-browser clients) are allowed.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Path is the endpoint serving ns.
func Path(ns realtime.Namespace) string {
	if ns == realtime.Global {
		return "/socket"
	}
	return "/socket/" + string(ns)
}

// frame is the inbound wire shape.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// TokenFromRequest reads the bearer token from ?token= or the
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is one server-side socket. It implements realtime.Peer.
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues msg without blocking.
func (c *Client) Send(msg realtime.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrBufferFull
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump feeds frames to rc in arrival order until the socket fails, then
// releases the connection from the router.
func (c *Client) readPump(rt *realtime.Router, rc *realtime.Conn) {
	defer func() {
		rt.Disconnect(rc)
		c.shutdown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if unexpectedClose(err) {
				logger.Warn("ws: unexpected close", "conn_id", c.id, "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil || f.Event == "" {
			logger.Debug("ws: dropping unreadable frame", "conn_id", c.id)
			continue
		}
		rc.Handle(f.Event, f.Data)
	}
}

// unexpectedClose reports read errors worth a warning. Clients that leave,
// close cleanly or just drop their TCP connection are routine.
func unexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseNormalClosure,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler authenticates, upgrades and admits sockets for ns.
func Handler(rt *realtime.Router, ns realtime.Namespace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := rt.Authenticate(r.Context(), ns, TokenFromRequest(r))
		if err != nil {
			msg := realtime.ErrAuthenticationInvalid.Error()
			if errors.Is(err, realtime.ErrAuthenticationRequired) {
				msg = realtime.ErrAuthenticationRequired.Error()
			}
			response.Error(w, http.StatusUnauthorized, msg)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("ws: upgrade failed", "namespace", ns, "error", err)
			return
		}

		client := newClient(conn)
		rc, err := rt.Admit(ns, user, client)
		if err != nil {
			logger.Error("ws: admit failed", "namespace", ns, "error", err)
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump(rt, rc)
	}
}
