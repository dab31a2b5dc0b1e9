package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPlaced    OrderStatus = "PLACED"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPacked    OrderStatus = "PACKED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPacked, StatusCancelled},
	StatusPacked:    {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the workflow allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type OrderItem struct {
	Product  primitive.ObjectID `bson:"product"  json:"product"`
	Quantity float64            `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price"    json:"price"`
	Unit     string             `bson:"unit"     json:"unit"`
}

type OrderHistory struct {
	Status    OrderStatus        `bson:"status"         json:"status"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy primitive.ObjectID `bson:"updatedBy"      json:"updatedBy"`
	At        time.Time          `bson:"at"             json:"at"`
}

type DeliveryAddress struct {
	Street  string `bson:"street"  json:"street"`
	City    string `bson:"city"    json:"city"`
	State   string `bson:"state"   json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
}

type Order struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"                json:"_id"`
	Buyer              primitive.ObjectID `bson:"buyer"                        json:"buyer"`
	Farmer             primitive.ObjectID `bson:"farmer"                       json:"farmer"`
	Items              []OrderItem        `bson:"items"                        json:"items"`
	Subtotal           float64            `bson:"subtotal"                     json:"subtotal"`
	DeliveryFee        float64            `bson:"deliveryFee"                  json:"deliveryFee"`
	Tax                float64            `bson:"tax"                          json:"tax"`
	Total              float64            `bson:"total"                        json:"total"`
	Status             OrderStatus        `bson:"status"                       json:"status"`
	DeliveryAddress    DeliveryAddress    `bson:"deliveryAddress"              json:"deliveryAddress"`
	ActualDeliveryDate *time.Time         `bson:"actualDeliveryDate,omitempty" json:"actualDeliveryDate,omitempty"`
	History            []OrderHistory     `bson:"history"                      json:"history"`
	CreatedAt          time.Time          `bson:"createdAt"                    json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"                    json:"updatedAt"`
}

const OrdersCollection = "orders"

// DefaultNote is the history note used when the caller gives none.
func DefaultNote(s OrderStatus) string {
	return "Order " + strings.ToLower(string(s))
}
