package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID          primitive.ObjectID `bson:"_id"                   json:"_id"`
	Sender      primitive.ObjectID `bson:"sender"                json:"sender"`
	Text        string             `bson:"text"                  json:"text"`
	Attachments []string           `bson:"attachments,omitempty" json:"attachments,omitempty"`
	MessageType string             `bson:"messageType"           json:"messageType"`
	IsRead      bool               `bson:"isRead"                json:"isRead"`
	ReadAt      *time.Time         `bson:"readAt,omitempty"      json:"readAt,omitempty"`
	At          time.Time          `bson:"at"                    json:"at"`
}

type Chat struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"         json:"_id"`
	Participants []primitive.ObjectID `bson:"participants"          json:"participants"`
	Messages     []Message            `bson:"messages"              json:"messages,omitempty"`
	LastMessage  *primitive.ObjectID  `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	UnreadCount  map[string]int       `bson:"unreadCount"           json:"unreadCount"`
	IsActive     bool                 `bson:"isActive"              json:"isActive"`
	ChatType     string               `bson:"chatType"              json:"chatType"`
	CreatedAt    time.Time            `bson:"createdAt"             json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"             json:"updatedAt"`
}

const ChatsCollection = "chats"

// HasParticipant reports whether userID takes part in c.
func (c *Chat) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
