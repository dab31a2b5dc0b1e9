package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/metrics"
)

type ChatRepository struct {
	col *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{col: db.Collection(models.ChatsCollection)}
}

// FindByID loads a chat without its message history.
func (r *ChatRepository) FindByID(ctx context.Context, id string) (*models.Chat, error) {
	defer metrics.ObserveStore("chats.find_by_id", time.Now())

	oid, err := ObjectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetProjection(bson.M{"messages": 0})
	var c models.Chat
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ChatRepository) Create(ctx context.Context, c *models.Chat) error {
	defer metrics.ObserveStore("chats.create", time.Now())

	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.UnreadCount == nil {
		c.UnreadCount = map[string]int{}
	}
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	if c.ChatType == "" {
		c.ChatType = "direct"
	}
	c.IsActive = true
	c.CreatedAt, c.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("chats: create: %w", err)
	}
	return nil
}

// AppendMessage pushes m onto the chat and bumps the unread counter of
// every participant other than the sender.
func (r *ChatRepository) AppendMessage(ctx context.Context, chat *models.Chat, m models.Message) error {
	defer metrics.ObserveStore("chats.append_message", time.Now())

	inc := bson.M{}
	for _, p := range chat.Participants {
		if p != m.Sender {
			inc["unreadCount."+p.Hex()] = 1
		}
	}

	update := bson.M{
		"$push": bson.M{"messages": m},
		"$set":  bson.M{"lastMessage": m.ID, "updatedAt": m.At},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	res, err := r.col.UpdateByID(ctx, chat.ID, update)
	if err != nil {
		return fmt.Errorf("chats: append message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead flags the given messages (all unread ones from other senders
// when ids is empty) as read by reader and resets reader's unread counter.
func (r *ChatRepository) MarkRead(ctx context.Context, chatID, reader primitive.ObjectID, ids []primitive.ObjectID, at time.Time) error {
	defer metrics.ObserveStore("chats.mark_read", time.Now())

	update := bson.M{"$set": bson.M{
		"messages.$[m].isRead": true,
		"messages.$[m].readAt": at,
		"unreadCount." + reader.Hex(): 0,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{markReadFilter(reader, ids)},
	})

	if _, err := r.col.UpdateByID(ctx, chatID, update, opts); err != nil {
		return fmt.Errorf("chats: mark read: %w", err)
	}
	return nil
}

func markReadFilter(reader primitive.ObjectID, ids []primitive.ObjectID) bson.M {
	f := bson.M{"m.isRead": false, "m.sender": bson.M{"$ne": reader}}
	if len(ids) > 0 {
		f["m._id"] = bson.M{"$in": ids}
	}
	return f
}
