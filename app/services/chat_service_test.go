package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/repositories"
	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/event"
	"github.com/farmdirect/farmdirect/pkg/realtime"
)

var chatID = primitive.NewObjectID()

func newChatFixture() (*services.ChatService, *fakeChats, *fakeEmitter) {
	chats := &fakeChats{byID: map[string]*models.Chat{
		chatID.Hex(): {ID: chatID, Participants: []primitive.ObjectID{farmerID, buyerID}},
	}}
	em := &fakeEmitter{}
	return services.NewChatService(chats, em), chats, em
}

func TestSend_AppendsAndPushes(t *testing.T) {
	svc, chats, em := newChatFixture()
	buyer := services.Caller{ID: buyerID.Hex(), Name: "Priya", ProfileImage: "p.png"}

	msg, err := svc.Send(context.Background(), buyer, chatID.Hex(), services.SendMessage{Text: "  Is the paneer fresh?  "})
	require.NoError(t, err)
	assert.Equal(t, "Is the paneer fresh?", msg.Text)
	assert.Equal(t, "text", msg.MessageType)
	assert.Equal(t, buyerID, msg.Sender)
	require.Len(t, chats.appended, 1)

	sent := em.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "chat:"+chatID.Hex(), sent[0].room)
	assert.Equal(t, realtime.EventMessageNew, sent[0].event)

	payload := sent[0].payload.(realtime.ChatMessage)
	assert.Equal(t, chatID.Hex(), payload.ChatID)
	assert.Equal(t, realtime.Sender{ID: buyerID.Hex(), Name: "Priya", ProfileImage: "p.png"}, payload.Sender)

	var echoed map[string]any
	require.NoError(t, json.Unmarshal(payload.Message, &echoed))
	assert.Equal(t, msg.ID.Hex(), echoed["_id"])
	assert.Equal(t, "Is the paneer fresh?", echoed["text"])
}

func TestSend_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, chats, em := newChatFixture()
	buyer := services.Caller{ID: buyerID.Hex()}

	_, err := svc.Send(ctx, buyer, chatID.Hex(), services.SendMessage{Text: "   "})
	assert.True(t, errors.Is(err, services.ErrMessageRequired))

	_, err = svc.Send(ctx, buyer, chatID.Hex(), services.SendMessage{Text: strings.Repeat("a", 2001)})
	assert.Equal(t, "Message cannot exceed 2000 characters", err.Error())

	_, err = svc.Send(ctx, buyer, primitive.NewObjectID().Hex(), services.SendMessage{Text: "hi"})
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	stranger := services.Caller{ID: primitive.NewObjectID().Hex()}
	_, err = svc.Send(ctx, stranger, chatID.Hex(), services.SendMessage{Text: "hi"})
	assert.True(t, errors.Is(err, services.ErrForbidden))

	assert.Empty(t, chats.appended)
	assert.Empty(t, em.all())
}

type busSource struct{ bus *event.Bus }

func (b busSource) Subscribe(name string, fn func(realtime.Inbound)) event.Subscription {
	return b.bus.Subscribe(name, func(p any) { fn(p.(realtime.Inbound)) })
}

func TestWatchReceipts_PersistsParticipantReads(t *testing.T) {
	svc, chats, _ := newChatFixture()
	bus := event.New()
	svc.WatchReceipts(busSource{bus})

	msgID := primitive.NewObjectID()
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	data, _ := json.Marshal(map[string]any{"chatId": chatID.Hex(), "messageIds": []string{msgID.Hex(), "junk"}})
	bus.Publish(realtime.EventMessageRead, realtime.Inbound{
		Event: realtime.EventMessageRead, User: realtime.User{ID: farmerID.Hex()}, Data: data, ReceivedAt: at,
	})

	stranger, _ := json.Marshal(map[string]any{"chatId": chatID.Hex()})
	bus.Publish(realtime.EventMessageRead, realtime.Inbound{
		Event: realtime.EventMessageRead, User: realtime.User{ID: primitive.NewObjectID().Hex()}, Data: stranger,
	})

	reads := chats.readCalls()
	require.Len(t, reads, 1)
	assert.Equal(t, chatID, reads[0].chat)
	assert.Equal(t, farmerID, reads[0].reader)
	assert.Equal(t, []primitive.ObjectID{msgID}, reads[0].ids)
	assert.Equal(t, at, reads[0].at)
}

func TestWatchReceipts_NumericChatID(t *testing.T) {
	numeric, err := primitive.ObjectIDFromHex("123456789012345678901234")
	require.NoError(t, err)

	svc, chats, _ := newChatFixture()
	chats.byID[numeric.Hex()] = &models.Chat{ID: numeric, Participants: []primitive.ObjectID{buyerID, farmerID}}
	bus := event.New()
	svc.WatchReceipts(busSource{bus})

	msgID := primitive.NewObjectID()
	data := json.RawMessage(`{"chatId":123456789012345678901234,"messageIds":["` + msgID.Hex() + `"]}`)
	bus.Publish(realtime.EventMessageRead, realtime.Inbound{
		Event: realtime.EventMessageRead, User: realtime.User{ID: buyerID.Hex()}, Data: data,
	})

	missing := json.RawMessage(`{"messageIds":["` + msgID.Hex() + `"]}`)
	bus.Publish(realtime.EventMessageRead, realtime.Inbound{
		Event: realtime.EventMessageRead, User: realtime.User{ID: buyerID.Hex()}, Data: missing,
	})

	reads := chats.readCalls()
	require.Len(t, reads, 1)
	assert.Equal(t, numeric, reads[0].chat)
	assert.Equal(t, buyerID, reads[0].reader)
	assert.Equal(t, []primitive.ObjectID{msgID}, reads[0].ids)
}
