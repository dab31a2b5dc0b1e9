package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/pkg/geo"
)

// User is a farmer, buyer or admin account. Farmers carry a location and
// rating totals used by the proximity search.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"          json:"_id"`
	Name         string             `bson:"name"                   json:"name"`
	Email        string             `bson:"email"                  json:"email"`
	PasswordHash string             `bson:"passwordHash"           json:"-"` // never serialised
	Role         string             `bson:"role"                   json:"role"`
	Phone        string             `bson:"phone,omitempty"        json:"phone,omitempty"`
	Address      string             `bson:"address,omitempty"      json:"address,omitempty"`
	FarmName     string             `bson:"farmName,omitempty"     json:"farmName,omitempty"`
	Location     *geo.Location      `bson:"location,omitempty"     json:"location,omitempty"`
	IsVerified   bool               `bson:"isVerified"             json:"isVerified"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	Rating       float64            `bson:"rating"                 json:"rating"`
	TotalRatings int                `bson:"totalRatings"           json:"totalRatings"`
	CreatedAt    time.Time          `bson:"createdAt"              json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"              json:"updatedAt"`
}

const UsersCollection = "users"
