package migrations

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/migration"
)

func init() {
	migration.Register("20260101000000_users_email_unique",
		index(models.UsersCollection, "email_unique", bson.D{{Key: "email", Value: 1}}, unique))

	// $geoNear requires exactly one 2dsphere index on the collection.
	migration.Register("20260101000001_users_location_2dsphere",
		index(models.UsersCollection, "location_2dsphere", bson.D{{Key: "location", Value: "2dsphere"}}))

	migration.Register("20260101000002_users_role_verified",
		index(models.UsersCollection, "role_verified", bson.D{{Key: "role", Value: 1}, {Key: "isVerified", Value: 1}}))

	migration.Register("20260101000003_products_text",
		index(models.ProductsCollection, "products_text", bson.D{
			{Key: "title", Value: "text"},
			{Key: "description", Value: "text"},
			{Key: "tags", Value: "text"},
		}, weights(bson.D{{Key: "title", Value: 10}, {Key: "tags", Value: 5}, {Key: "description", Value: 1}})))

	migration.Register("20260101000004_products_farmer_available",
		index(models.ProductsCollection, "farmer_available", bson.D{
			{Key: "farmer", Value: 1},
			{Key: "isAvailable", Value: 1},
			{Key: "category", Value: 1},
			{Key: "pricePerUnit", Value: 1},
		}))

	migration.Register("20260101000005_orders_buyer_farmer",
		index(models.OrdersCollection, "buyer_farmer_created", bson.D{
			{Key: "buyer", Value: 1},
			{Key: "farmer", Value: 1},
			{Key: "createdAt", Value: -1},
		}))

	migration.Register("20260101000006_chats_participants",
		index(models.ChatsCollection, "participants", bson.D{{Key: "participants", Value: 1}}))
}
