package seeders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/geo"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

func init() {
	Register("demo", SeedDemo)
}

type demoFarmer struct {
	name, email, farm string
	at                geo.Point
	verified          bool
	rating            float64
	ratings           int
	products          []demoProduct
}

type demoProduct struct {
	title, category, unit string
	price, qty            float64
	organic               bool
	tags                  []string
}

// demoFarmers are spread around central Delhi at 2 to 15 km.
var demoFarmers = []demoFarmer{
	{
		name: "Asha Verma", email: "asha@farmdirect.in", farm: "Yamuna Greens",
		at: geo.Point{Lat: 28.6280, Lng: 77.2200}, verified: true, rating: 27, ratings: 6,
		products: []demoProduct{
			{"Fresh Tomatoes", "vegetables", "kg", 40, 120, true, []string{"tomato", "fresh"}},
			{"Spinach Bunch", "vegetables", "bunch", 25, 60, true, []string{"greens"}},
		},
	},
	{
		name: "Ravi Kumar", email: "ravi@farmdirect.in", farm: "Kumar Orchards",
		at: geo.Point{Lat: 28.5355, Lng: 77.3910}, verified: true, rating: 13, ratings: 3,
		products: []demoProduct{
			{"Alphonso Mangoes", "fruits", "dozen", 600, 40, false, []string{"mango", "seasonal"}},
			{"Guava", "fruits", "kg", 80, 75, false, nil},
		},
	},
	{
		name: "Meena Singh", email: "meena@farmdirect.in", farm: "Singh Dairy",
		at: geo.Point{Lat: 28.7041, Lng: 77.1025}, verified: true,
		products: []demoProduct{
			{"Buffalo Milk", "dairy", "litre", 70, 200, false, []string{"milk"}},
			{"Paneer", "dairy", "kg", 380, 30, false, []string{"cheese"}},
		},
	},
	{
		name: "Gopal Das", email: "gopal@farmdirect.in", farm: "Das Fields",
		at: geo.Point{Lat: 28.6500, Lng: 77.2300}, verified: false,
		products: []demoProduct{
			{"Basmati Rice", "grains", "kg", 120, 500, false, []string{"rice"}},
		},
	},
}

// SeedDemo upserts demo accounts and their products. Safe to run twice.
func SeedDemo(ctx context.Context, db *mongo.Database) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	users := db.Collection(models.UsersCollection)

	accounts := []models.User{
		{Name: "Priya Buyer", Email: "buyer@farmdirect.in", Role: auth.RoleBuyer, IsVerified: true},
		{Name: "Admin", Email: "admin@farmdirect.in", Role: auth.RoleAdmin, IsVerified: true},
	}
	for _, u := range accounts {
		u.PasswordHash = hash
		if _, err := upsertUser(ctx, users, u, now); err != nil {
			return err
		}
	}

	products := db.Collection(models.ProductsCollection)
	for _, f := range demoFarmers {
		id, err := upsertUser(ctx, users, models.User{
			Name:         f.name,
			Email:        f.email,
			PasswordHash: hash,
			Role:         auth.RoleFarmer,
			FarmName:     f.farm,
			Location:     geo.NewLocation(f.at),
			IsVerified:   f.verified,
			Rating:       f.rating,
			TotalRatings: f.ratings,
		}, now)
		if err != nil {
			return err
		}

		for _, p := range f.products {
			_, err := products.UpdateOne(ctx,
				bson.M{"farmer": id, "title": p.title},
				bson.M{
					"$set": bson.M{
						"description":       p.title + " from " + f.farm,
						"category":          p.category,
						"pricePerUnit":      p.price,
						"availableQuantity": p.qty,
						"unit":              p.unit,
						"isOrganic":         p.organic,
						"isAvailable":       true,
						"tags":              p.tags,
						"updatedAt":         now,
					},
					"$setOnInsert": bson.M{"createdAt": now},
				},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func upsertUser(ctx context.Context, users *mongo.Collection, u models.User, now time.Time) (primitive.ObjectID, error) {
	set := bson.M{
		"name":         u.Name,
		"passwordHash": u.PasswordHash,
		"role":         u.Role,
		"isVerified":   u.IsVerified,
		"rating":       u.Rating,
		"totalRatings": u.TotalRatings,
		"updatedAt":    now,
	}
	if u.FarmName != "" {
		set["farmName"] = u.FarmName
	}
	if u.Location != nil {
		set["location"] = u.Location
	}

	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := users.FindOneAndUpdate(ctx,
		bson.M{"email": u.Email},
		bson.M{"$set": set, "$setOnInsert": bson.M{"createdAt": now}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.ID, err
}
