package controllers

import (
	"context"
	"net/http"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/ctx"
)

type MessageSender interface {
	Send(ctx context.Context, caller services.Caller, chatID string, in services.SendMessage) (*models.Message, error)
}

type ChatController struct {
	chats MessageSender
	ids   Identity
}

func NewChatController(chats MessageSender, ids Identity) *ChatController {
	return &ChatController{chats: chats, ids: ids}
}

type messageInput struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments" validate:"max=10"`
	MessageType string   `json:"messageType" validate:"nullable,in=text,image,file,location"`
}

// Send handles POST /api/chats/{chatId}/messages.
func (h *ChatController) Send(c *ctx.Context) {
	var in messageInput
	if !c.BindJSON(&in) {
		return
	}

	who, ok := caller(c, h.ids)
	if !ok {
		return
	}

	chatID := c.Param("chatId")
	msg, err := h.chats.Send(c.Context(), who, chatID, services.SendMessage{
		Text:        in.Text,
		Attachments: in.Attachments,
		MessageType: in.MessageType,
	})
	if err != nil {
		fail(c, err, "Chat")
		return
	}
	c.Message(http.StatusOK, "Message sent successfully", map[string]any{
		"chatId":      chatID,
		"lastMessage": msg,
	})
}
