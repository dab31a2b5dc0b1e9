package controllers

import (
	"context"
	"net/http"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/ctx"
)

type OrderUpdater interface {
	UpdateStatus(ctx context.Context, caller services.Caller, orderID, status, note string) (*models.Order, error)
}

type OrderController struct {
	orders OrderUpdater
	ids    Identity
}

func NewOrderController(orders OrderUpdater, ids Identity) *OrderController {
	return &OrderController{orders: orders, ids: ids}
}

type statusInput struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (o *OrderController) UpdateStatus(c *ctx.Context) {
	var in statusInput
	if _, err := c.ShouldBindJSON(&in); err != nil {
		c.BadRequest(err.Error())
		return
	}

	who, ok := caller(c, o.ids)
	if !ok {
		return
	}

	order, err := o.orders.UpdateStatus(c.Context(), who, c.Param("id"), in.Status, in.Note)
	if err != nil {
		fail(c, err, "Order")
		return
	}
	c.Message(http.StatusOK, "Order status updated successfully", map[string]any{"order": order})
}
