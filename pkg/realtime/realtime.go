// Package realtime is the connection registry and event router behind the
// FarmDirect sockets.
//
// A Router owns three independent namespaces (chat, order and global). Each
// keeps its own table of authenticated connections and room memberships.
// Transports (see pkg/ws) authenticate a bearer token with
// Router.Authenticate, admit the connection with Router.Admit, feed inbound
// frames to Conn.Handle in arrival order and call Router.Disconnect when the
// socket goes away. Application code pushes to users and rooms through the
// Emit* methods.
//
// Delivery is fire-and-forget: a peer that is gone or cannot keep up loses
// the message, which is logged and counted but never reported as an error.
package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Namespace selects one of the independent connection tables.
type Namespace string

const (
	Global Namespace = "global"
	Chat   Namespace = "chat"
	Order  Namespace = "order"
)

// Namespaces lists every namespace a Router serves.
var Namespaces = []Namespace{Global, Chat, Order}

func (n Namespace) Valid() bool {
	switch n {
	case Global, Chat, Order:
		return true
	}
	return false
}

// Wire event names.
const (
	EventJoinChat       = "join:chat"
	EventLeaveChat      = "leave:chat"
	EventMessageNew     = "message:new"
	EventTypingStart    = "typing:start"
	EventTypingStop     = "typing:stop"
	EventMessageRead    = "message:read"
	EventJoinOrder      = "join:order"
	EventLeaveOrder     = "leave:order"
	EventOrderUpdate    = "order:update"
	EventOrderDelivered = "order:delivered"
	EventOrderCancelled = "order:cancelled"
	EventUserOnline     = "user:online"
	EventUserOffline    = "user:offline"
)

func ChatRoom(chatID string) string   { return "chat:" + chatID }
func OrderRoom(orderID string) string { return "order:" + orderID }
func UserRoom(userID string) string   { return "user:" + userID }

var (
	// ErrAuthenticationRequired: the handshake carried no token.
	ErrAuthenticationRequired = errors.New("authentication token required")
	// ErrAuthenticationInvalid: the token failed verification or names a
	// user that does not exist.
	ErrAuthenticationInvalid = errors.New("invalid or expired token")
	ErrUnknownNamespace      = errors.New("realtime: unknown namespace")

	errMissingID = errors.New("realtime: missing room id")
)

// Message is one outbound frame. Data is encoded once per emit and shared by
// every recipient.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Peer is the transport half of a connection.
type Peer interface {
	// ID is unique per socket for the lifetime of the process.
	ID() string
	// Send enqueues msg without blocking. An error means the message was
	// not accepted and will never be delivered.
	Send(msg Message) error
}

// User is the identity bound to a connection at handshake time.
type User struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// ParseID accepts a room id sent either as a JSON string or a JSON number,
// returning both in the same string form.
func ParseID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", errMissingID
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String(), nil
		}
	}
	return "", errMissingID
}
