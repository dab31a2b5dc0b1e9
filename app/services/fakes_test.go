package services_test

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/repositories"
)

type emitted struct {
	room    string
	event   string
	payload any
}

type fakeEmitter struct {
	mu   sync.Mutex
	sent []emitted
}

func (e *fakeEmitter) record(room, event string, payload any) {
	e.mu.Lock()
	e.sent = append(e.sent, emitted{room, event, payload})
	e.mu.Unlock()
}

func (e *fakeEmitter) EmitToUser(userID, event string, payload any) bool {
	e.record("user:"+userID, event, payload)
	return true
}

func (e *fakeEmitter) EmitToChat(chatID, event string, payload any) int {
	e.record("chat:"+chatID, event, payload)
	return 1
}

func (e *fakeEmitter) EmitToOrder(orderID, event string, payload any) int {
	e.record("order:"+orderID, event, payload)
	return 1
}

func (e *fakeEmitter) all() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.sent...)
}

type fakeOrders struct {
	byID     map[string]*models.Order
	conflict bool
}

func (f *fakeOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, from models.OrderStatus, entry models.OrderHistory) (*models.Order, error) {
	o, ok := f.byID[id.Hex()]
	if !ok || o.Status != from || f.conflict {
		return nil, repositories.ErrConflict
	}
	o.Status = entry.Status
	o.History = append(o.History, entry)
	o.UpdatedAt = entry.At
	cp := *o
	return &cp, nil
}

type readCall struct {
	chat, reader primitive.ObjectID
	ids          []primitive.ObjectID
	at           time.Time
}

type fakeChats struct {
	mu       sync.Mutex
	byID     map[string]*models.Chat
	appended []models.Message
	reads    []readCall
}

func (f *fakeChats) FindByID(_ context.Context, id string) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeChats) AppendMessage(_ context.Context, chat *models.Chat, m models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, m)
	return nil
}

func (f *fakeChats) MarkRead(_ context.Context, chatID, reader primitive.ObjectID, ids []primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, readCall{chatID, reader, ids, at})
	return nil
}

func (f *fakeChats) readCalls() []readCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]readCall(nil), f.reads...)
}

type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID.Hex() == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}
