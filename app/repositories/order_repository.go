package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/metrics"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(models.OrdersCollection)}
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	defer metrics.ObserveStore("orders.find_by_id", time.Now())

	oid, err := ObjectID(id)
	if err != nil {
		return nil, err
	}

	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveStore("orders.create", time.Now())

	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.Status == "" {
		o.Status = models.StatusPlaced
	}
	o.CreatedAt, o.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("orders: create: %w", err)
	}
	return nil
}

// UpdateStatus moves the order from its current status (which must still be
// from) to entry.Status and appends entry to the history. It returns the
// updated order, or ErrConflict when the status changed underneath.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, entry models.OrderHistory) (*models.Order, error) {
	defer metrics.ObserveStore("orders.update_status", time.Now())

	set := bson.M{"status": entry.Status, "updatedAt": entry.At}
	if entry.Status == models.StatusDelivered {
		set["actualDeliveryDate"] = entry.At
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o models.Order
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set, "$push": bson.M{"history": entry}},
		opts,
	).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("orders: update status: %w", err)
	}
	return &o, nil
}
