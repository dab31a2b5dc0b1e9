package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/event"
	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/realtime"
)

// MaxMessageLength bounds a chat message, counted in characters.
const MaxMessageLength = 2000

var (
	ErrMessageRequired = invalid("Message text is required")
	ErrMessageTooLong  = invalid(fmt.Sprintf("Message cannot exceed %d characters", MaxMessageLength))
)

// SendMessage is the input of ChatService.Send.
type SendMessage struct {
	Text        string
	Attachments []string
	MessageType string
}

// InboundSource is the observer side of the realtime router.
type InboundSource interface {
	Subscribe(eventName string, fn func(realtime.Inbound)) event.Subscription
}

// ChatService posts messages and persists read receipts.
type ChatService struct {
	chats   ChatStore
	events  Emitter
	now     func() time.Time
	timeout time.Duration
}

func NewChatService(chats ChatStore, events Emitter) *ChatService {
	return &ChatService{
		chats:   chats,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 5 * time.Second,
	}
}

// Send appends a message from caller to the chat and pushes message:new to
// the chat room.
func (s *ChatService) Send(ctx context.Context, caller Caller, chatID string, in SendMessage) (*models.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrMessageRequired
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sender := caller.objectID()
	if !chat.HasParticipant(sender) {
		return nil, ErrForbidden
	}

	msg := models.Message{
		ID:          primitive.NewObjectID(),
		Sender:      sender,
		Text:        text,
		Attachments: in.Attachments,
		MessageType: in.MessageType,
		At:          s.now(),
	}
	if msg.MessageType == "" {
		msg.MessageType = "text"
	}
	if err := s.chats.AppendMessage(ctx, chat, msg); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	id := chat.ID.Hex()
	s.events.EmitToChat(id, realtime.EventMessageNew, realtime.ChatMessage{
		ChatID:  id,
		Message: raw,
		Sender:  realtime.Sender{ID: caller.ID, Name: caller.Name, ProfileImage: caller.ProfileImage},
	})
	return &msg, nil
}

// WatchReceipts persists every message:read event routed by src.
func (s *ChatService) WatchReceipts(src InboundSource) event.Subscription {
	return src.Subscribe(realtime.EventMessageRead, func(in realtime.Inbound) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.markRead(ctx, in); err != nil {
			logger.Component("chat").Warn("chat: read receipt not saved",
				"user_id", in.User.ID, "conn_id", in.ConnID, "error", err)
		}
	})
}

func (s *ChatService) markRead(ctx context.Context, in realtime.Inbound) error {
	var receipt struct {
		ChatID     json.RawMessage `json:"chatId"`
		MessageIDs []string        `json:"messageIds"`
	}
	if err := json.Unmarshal(in.Data, &receipt); err != nil {
		return err
	}
	chatID, err := realtime.ParseID(receipt.ChatID)
	if err != nil {
		return invalid("chatId is required")
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return err
	}
	reader, err := primitive.ObjectIDFromHex(in.User.ID)
	if err != nil || !chat.HasParticipant(reader) {
		return ErrForbidden
	}

	ids := make([]primitive.ObjectID, 0, len(receipt.MessageIDs))
	for _, hex := range receipt.MessageIDs {
		if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
			ids = append(ids, oid)
		}
	}
	if len(receipt.MessageIDs) > 0 && len(ids) == 0 {
		return invalid("no valid message ids")
	}

	at := in.ReceivedAt
	if at.IsZero() {
		at = s.now()
	}
	return s.chats.MarkRead(ctx, chat.ID, reader, ids, at)
}
