package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/farmdirect/farmdirect/pkg/event"
	"github.com/farmdirect/farmdirect/pkg/realtime"
)

var (
	// ErrNotConnected is returned by Emit once the connection is gone.
	ErrNotConnected = errors.New("ws: not connected")
	// ErrHandshakeRejected wraps a 401 from the server.
	ErrHandshakeRejected = errors.New("ws: handshake rejected")
	// ErrNoRooms is returned by JoinRoom on the global namespace.
	ErrNoRooms = errors.New("ws: namespace has no rooms")
)

// Conn is a client connection to one namespace.
//
//	c, err := ws.Dial(ctx, "ws://localhost:8080", realtime.Chat, token)
//	c.Subscribe(realtime.EventMessageNew, func(data json.RawMessage) { ... })
//	c.JoinRoom("665f...")
//	c.Emit(realtime.EventMessageNew, map[string]any{"chatId": "665f...", "message": msg})
type Conn struct {
	ws      *websocket.Conn
	ns      realtime.Namespace
	bus     *event.Bus
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a connection to the ns endpoint under baseURL (ws:// or
// wss://, no path). The token is sent as a bearer Authorization header.
func Dial(ctx context.Context, baseURL string, ns realtime.Namespace, token string) (*Conn, error) {
	if !ns.Valid() {
		return nil, fmt.Errorf("%w: %q", realtime.ErrUnknownNamespace, ns)
	}

	url := strings.TrimRight(baseURL, "/") + Path(ns)
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	wsConn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			var body struct {
				Message string `json:"message"`
			}
			json.NewDecoder(resp.Body).Decode(&body) //nolint:errcheck
			return nil, fmt.Errorf("%w: %s", ErrHandshakeRejected, body.Message)
		}
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}

	c := &Conn{
		ws:   wsConn,
		ns:   ns,
		bus:  event.New(),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) Namespace() realtime.Namespace { return c.ns }

// Done is closed when the connection ends for any reason.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Connected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Emit sends one event with data encoded as JSON.
func (c *Conn) Emit(eventName string, data any) error {
	if !c.Connected() {
		return ErrNotConnected
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", eventName, err)
	}
	buf, err := json.Marshal(frame{Event: eventName, Data: raw})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, buf); err != nil {
		c.finish()
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Subscribe registers fn for server events named eventName. Handlers run on
// the read goroutine in arrival order and should not block.
func (c *Conn) Subscribe(eventName string, fn func(data json.RawMessage)) event.Subscription {
	return c.bus.Subscribe(eventName, func(p any) {
		if data, ok := p.(json.RawMessage); ok {
			fn(data)
		}
	})
}

func (c *Conn) Unsubscribe(s event.Subscription) { c.bus.Unsubscribe(s) }

// JoinRoom joins the chat or order with the given id.
func (c *Conn) JoinRoom(id string) error {
	switch c.ns {
	case realtime.Chat:
		return c.Emit(realtime.EventJoinChat, id)
	case realtime.Order:
		return c.Emit(realtime.EventJoinOrder, id)
	}
	return ErrNoRooms
}

func (c *Conn) LeaveRoom(id string) error {
	switch c.ns {
	case realtime.Chat:
		return c.Emit(realtime.EventLeaveChat, id)
	case realtime.Order:
		return c.Emit(realtime.EventLeaveOrder, id)
	}
	return ErrNoRooms
}

// Close sends a close frame and releases the socket. It is safe to call
// more than once.
func (c *Conn) Close() error {
	if !c.Connected() {
		return nil
	}

	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	c.finish()
	return nil
}

func (c *Conn) finish() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *Conn) readLoop() {
	defer c.finish()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			continue
		}
		c.bus.Publish(msg.Event, msg.Data)
	}
}
