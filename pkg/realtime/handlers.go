package realtime

import (
	"encoding/json"
	"time"
)

// Sender identifies the author of a chat message.
type Sender struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Actor identifies who changed an order.
type Actor struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func senderOf(u User) Sender { return Sender{ID: u.ID, Name: u.Name, ProfileImage: u.ProfileImage} }
func actorOf(u User) Actor   { return Actor{ID: u.ID, Name: u.Name, Role: u.Role} }

// Outbound payloads.

type ChatMessage struct {
	ChatID  string          `json:"chatId"`
	Message json.RawMessage `json:"message"`
	Sender  Sender          `json:"sender"`
}

type Typing struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type ReadReceipt struct {
	ChatID     string    `json:"chatId"`
	MessageIDs []string  `json:"messageIds"`
	ReadBy     string    `json:"readBy"`
	ReadAt     time.Time `json:"readAt"`
}

type OrderUpdate struct {
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	UpdatedBy Actor     `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderDelivered struct {
	OrderID      string    `json:"orderId"`
	DeliveryNote string    `json:"deliveryNote,omitempty"`
	DeliveredBy  Actor     `json:"deliveredBy"`
	DeliveredAt  time.Time `json:"deliveredAt"`
}

type OrderCancelled struct {
	OrderID     string    `json:"orderId"`
	Reason      string    `json:"reason,omitempty"`
	CancelledBy Actor     `json:"cancelledBy"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type PresenceChange struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

var handlers = map[Namespace]map[string]eventHandler{
	Chat: {
		EventJoinChat:    joinChat,
		EventLeaveChat:   leaveChat,
		EventMessageNew:  newMessage,
		EventTypingStart: typing(EventTypingStart),
		EventTypingStop:  typing(EventTypingStop),
		EventMessageRead: messageRead,
	},
	Order: {
		EventJoinOrder:      joinOrder,
		EventLeaveOrder:     leaveOrder,
		EventOrderUpdate:    orderUpdate,
		EventOrderDelivered: orderDelivered,
		EventOrderCancelled: orderCancelled,
	},
	Global: {
		EventUserOnline:  userOnline,
		EventUserOffline: userOffline,
	},
}

// ── chat ─────────────────────────────────────────────────────────────────────

func joinChat(c *Conn, data json.RawMessage) error {
	id, err := ParseID(data)
	if err != nil {
		return err
	}
	c.joinRoom(ChatRoom(id))
	return nil
}

func leaveChat(c *Conn, data json.RawMessage) error {
	id, err := ParseID(data)
	if err != nil {
		return err
	}
	c.leaveRoom(ChatRoom(id))
	return nil
}

func newMessage(c *Conn, data json.RawMessage) error {
	var in struct {
		ChatID  json.RawMessage `json:"chatId"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	id, err := ParseID(in.ChatID)
	if err != nil {
		return err
	}
	if len(in.Message) == 0 {
		in.Message = json.RawMessage("null")
	}

	c.toRoom(ChatRoom(id), EventMessageNew, ChatMessage{
		ChatID:  id,
		Message: in.Message,
		Sender:  senderOf(c.user),
	})
	return nil
}

func typing(event string) eventHandler {
	return func(c *Conn, data json.RawMessage) error {
		id, err := ParseID(data)
		if err != nil {
			return err
		}
		c.toRoom(ChatRoom(id), event, Typing{ChatID: id, UserID: c.user.ID, UserName: c.user.Name})
		return nil
	}
}

func messageRead(c *Conn, data json.RawMessage) error {
	var in struct {
		ChatID     json.RawMessage `json:"chatId"`
		MessageIDs []string        `json:"messageIds"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	id, err := ParseID(in.ChatID)
	if err != nil {
		return err
	}
	if in.MessageIDs == nil {
		in.MessageIDs = []string{}
	}

	c.toRoom(ChatRoom(id), EventMessageRead, ReadReceipt{
		ChatID:     id,
		MessageIDs: in.MessageIDs,
		ReadBy:     c.user.ID,
		ReadAt:     c.router.now(),
	})
	return nil
}

// ── order ────────────────────────────────────────────────────────────────────

func joinOrder(c *Conn, data json.RawMessage) error {
	id, err := ParseID(data)
	if err != nil {
		return err
	}
	c.joinRoom(OrderRoom(id))
	return nil
}

func leaveOrder(c *Conn, data json.RawMessage) error {
	id, err := ParseID(data)
	if err != nil {
		return err
	}
	c.leaveRoom(OrderRoom(id))
	return nil
}

type orderEventIn struct {
	OrderID      json.RawMessage `json:"orderId"`
	Status       string          `json:"status"`
	Note         string          `json:"note"`
	DeliveryNote string          `json:"deliveryNote"`
	Reason       string          `json:"reason"`
}

func decodeOrderEvent(data json.RawMessage) (orderEventIn, string, error) {
	var in orderEventIn
	if err := json.Unmarshal(data, &in); err != nil {
		return in, "", err
	}
	id, err := ParseID(in.OrderID)
	return in, id, err
}

func orderUpdate(c *Conn, data json.RawMessage) error {
	in, id, err := decodeOrderEvent(data)
	if err != nil {
		return err
	}
	c.toRoom(OrderRoom(id), EventOrderUpdate, OrderUpdate{
		OrderID:   id,
		Status:    in.Status,
		Note:      in.Note,
		UpdatedBy: actorOf(c.user),
		UpdatedAt: c.router.now(),
	})
	return nil
}

func orderDelivered(c *Conn, data json.RawMessage) error {
	in, id, err := decodeOrderEvent(data)
	if err != nil {
		return err
	}
	c.toRoom(OrderRoom(id), EventOrderDelivered, OrderDelivered{
		OrderID:      id,
		DeliveryNote: in.DeliveryNote,
		DeliveredBy:  actorOf(c.user),
		DeliveredAt:  c.router.now(),
	})
	return nil
}

func orderCancelled(c *Conn, data json.RawMessage) error {
	in, id, err := decodeOrderEvent(data)
	if err != nil {
		return err
	}
	c.toRoom(OrderRoom(id), EventOrderCancelled, OrderCancelled{
		OrderID:     id,
		Reason:      in.Reason,
		CancelledBy: actorOf(c.user),
		CancelledAt: c.router.now(),
	})
	return nil
}

// ── global ───────────────────────────────────────────────────────────────────

func userOnline(c *Conn, _ json.RawMessage) error {
	c.router.presence.Set(c.user.ID, c.id)
	c.toOthers(EventUserOnline, PresenceChange{UserID: c.user.ID, Name: c.user.Name})
	return nil
}

func userOffline(c *Conn, _ json.RawMessage) error {
	c.router.presence.Clear(c.user.ID, c.id)
	c.toOthers(EventUserOffline, PresenceChange{UserID: c.user.ID, Name: c.user.Name})
	return nil
}
