package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farmdirect/farmdirect/app/controllers"
	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/services"
)

type fakeSender struct {
	got services.SendMessage
	err error
}

func (f *fakeSender) Send(_ context.Context, _ services.Caller, _ string, in services.SendMessage) (*models.Message, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{Text: in.Text, MessageType: "text"}, nil
}

func chatHandler(s *fakeSender) http.HandlerFunc {
	return wrap(controllers.NewChatController(s, fakeIdentity{}).Send)
}

func TestChatSend(t *testing.T) {
	s := &fakeSender{}
	code, body := do(t, chatHandler(s), call{
		method: http.MethodPost, target: "/api/chats/c1/messages",
		body: `{"text":"Fresh stock today"}`, claims: farmer, params: map[string]string{"chatId": "c1"},
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Message sent successfully", body["message"])
	assert.Equal(t, "Fresh stock today", s.got.Text)

	data := body["data"].(map[string]any)
	assert.Equal(t, "c1", data["chatId"])
	assert.Equal(t, "Fresh stock today", data["lastMessage"].(map[string]any)["text"])
}

func TestChatSendErrors(t *testing.T) {
	code, body := do(t, chatHandler(&fakeSender{err: services.ErrMessageTooLong}), call{
		method: http.MethodPost, target: "/api/chats/c1/messages",
		body: `{"text":"x"}`, claims: farmer, params: map[string]string{"chatId": "c1"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Message cannot exceed 2000 characters", body["message"])

	code, body = do(t, chatHandler(&fakeSender{}), call{
		method: http.MethodPost, target: "/api/chats/c1/messages",
		body: `{"text":"hi","messageType":"video"}`, claims: farmer,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body["errors"], "messageType")

	code, body = do(t, chatHandler(&fakeSender{err: services.ErrForbidden}), call{
		method: http.MethodPost, target: "/api/chats/c1/messages", body: `{"text":"hi"}`, claims: farmer,
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Access denied", body["message"])
}
