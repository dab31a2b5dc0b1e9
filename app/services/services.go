// Package services holds the application use cases. Services depend on
// small store interfaces so they can be exercised without MongoDB.
package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/app/models"
)

var (
	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidInput wraps caller mistakes; the wrapped text is user-facing.
	ErrInvalidInput = errors.New("invalid input")
)

// Error is a failure whose message is safe to show to the caller. Kind is
// ErrInvalidInput or ErrForbidden.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func invalid(msg string) error   { return &Error{Kind: ErrInvalidInput, Message: msg} }
func forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

// Caller is the authenticated user performing an action.
type Caller struct {
	ID           string
	Name         string
	Role         string
	ProfileImage string
}

func (c Caller) objectID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(c.ID)
	return id
}

// Emitter is the server-push side of the realtime router.
type Emitter interface {
	EmitToUser(userID, eventName string, payload any) bool
	EmitToChat(chatID, eventName string, payload any) int
	EmitToOrder(orderID, eventName string, payload any) int
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type OrderStore interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, entry models.OrderHistory) (*models.Order, error)
}

type ChatStore interface {
	FindByID(ctx context.Context, id string) (*models.Chat, error)
	AppendMessage(ctx context.Context, chat *models.Chat, m models.Message) error
	MarkRead(ctx context.Context, chatID, reader primitive.ObjectID, ids []primitive.ObjectID, at time.Time) error
}
