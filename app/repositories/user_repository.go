package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/metrics"
	"github.com/farmdirect/farmdirect/pkg/realtime"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(models.UsersCollection)}
}

// FindByID looks up a user by hex id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer metrics.ObserveStore("users.find_by_id", time.Now())

	oid, err := ObjectID(id)
	if err != nil {
		return nil, err
	}

	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByEmail looks up a user by their email address (case-insensitive).
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer metrics.ObserveStore("users.find_by_email", time.Now())

	var u models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindUserByID resolves the identity attached to a realtime connection. An
// unknown or malformed id yields (nil, nil).
func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*realtime.User, error) {
	defer metrics.ObserveStore("users.identity", time.Now())

	oid, err := ObjectID(id)
	if err != nil {
		return nil, nil
	}

	opts := options.FindOne().SetProjection(bson.M{"name": 1, "role": 1, "profileImage": 1})
	var u models.User
	err = r.col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: identity %s: %w", id, err)
	}

	return &realtime.User{
		ID:           u.ID.Hex(),
		Name:         u.Name,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
	}, nil
}

// Create persists a new user record, stamping the timestamps.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	defer metrics.ObserveStore("users.create", time.Now())

	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}
