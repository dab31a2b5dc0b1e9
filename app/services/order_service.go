package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/repositories"
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/realtime"
)

var (
	ErrStatusRequired = invalid("Status is required")
	ErrUnknownStatus  = invalid("Invalid status")
	// ErrNotOrderManager is returned when someone other than the order's
	// farmer or an admin tries to move it.
	ErrNotOrderManager = forbidden("Only farmers and admins can update order status")
)

// TransitionError reports a move the workflow does not allow.
type TransitionError struct {
	From, To models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidInput }

// OrderService runs the order status workflow and pushes every change to
// the order room.
type OrderService struct {
	orders OrderStore
	events Emitter
	now    func() time.Time
}

func NewOrderService(orders OrderStore, events Emitter) *OrderService {
	return &OrderService{orders: orders, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// UpdateStatus validates and applies a status change requested by caller.
// A blank note is replaced by the default "Order <status>" text in history;
// the pushed event carries the note as given.
func (s *OrderService) UpdateStatus(ctx context.Context, caller Caller, orderID, status, note string) (*models.Order, error) {
	next := models.OrderStatus(strings.TrimSpace(status))
	if next == "" {
		return nil, ErrStatusRequired
	}
	if !next.Valid() {
		return nil, ErrUnknownStatus
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Farmer.Hex() != caller.ID && caller.Role != auth.RoleAdmin {
		return nil, ErrNotOrderManager
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, &TransitionError{From: order.Status, To: next}
	}

	at := s.now()
	entry := models.OrderHistory{
		Status:    next,
		Note:      strings.TrimSpace(note),
		UpdatedBy: caller.objectID(),
		At:        at,
	}
	if entry.Note == "" {
		entry.Note = models.DefaultNote(next)
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, order.Status, entry)
	if errors.Is(err, repositories.ErrConflict) {
		// Someone else moved the order first; re-read to report the real state.
		current, ferr := s.orders.FindByID(ctx, orderID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &TransitionError{From: current.Status, To: next}
	}
	if err != nil {
		return nil, err
	}

	id := order.ID.Hex()
	n := s.events.EmitToOrder(id, realtime.EventOrderUpdate, realtime.OrderUpdate{
		OrderID:   id,
		Status:    string(next),
		Note:      note,
		UpdatedBy: realtime.Actor{ID: caller.ID, Name: caller.Name, Role: caller.Role},
		UpdatedAt: at,
	})
	logger.WithCtx(ctx).Info("order: status updated",
		"order_id", id, "from", order.Status, "to", next, "by", caller.ID, "delivered_to", n)

	return updated, nil
}
