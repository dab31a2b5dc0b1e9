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
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/geo"
	"github.com/farmdirect/farmdirect/pkg/metrics"
)

// ProductGeoStore answers geo.Store queries from the users and products
// collections. users.location needs a 2dsphere index and products a text
// index for free-text filters (see database/migrations).
type ProductGeoStore struct {
	users    *mongo.Collection
	products *mongo.Collection
}

func NewProductGeoStore(db *mongo.Database) *ProductGeoStore {
	return &ProductGeoStore{
		users:    db.Collection(models.UsersCollection),
		products: db.Collection(models.ProductsCollection),
	}
}

type nearbyFarmer struct {
	models.User `bson:",inline"`
	Distance    float64 `bson:"distance"`
}

func (s *ProductGeoStore) NearbyProviders(ctx context.Context, q geo.NearQuery) ([]geo.Provider, error) {
	defer metrics.ObserveStore("geo.near", time.Now())

	cur, err := s.users.Aggregate(ctx, nearPipeline(q))
	if err != nil {
		return nil, fmt.Errorf("users: geoNear: %w", err)
	}
	defer cur.Close(ctx)

	var docs []nearbyFarmer
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("users: geoNear decode: %w", err)
	}

	out := make([]geo.Provider, len(docs))
	for i, d := range docs {
		out[i] = geo.Provider{
			ID:             d.ID.Hex(),
			Name:           d.Name,
			FarmName:       d.FarmName,
			Rating:         d.Rating,
			TotalRatings:   d.TotalRatings,
			IsVerified:     d.IsVerified,
			Location:       d.Location,
			DistanceMeters: d.Distance,
		}
	}
	return out, nil
}

func (s *ProductGeoStore) ProviderItems(ctx context.Context, q geo.ItemQuery) ([]geo.Item, error) {
	defer metrics.ObserveStore("geo.items", time.Now())

	filter, err := itemFilter(q)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("products: items of %s: %w", q.ProviderID, err)
	}
	defer cur.Close(ctx)

	var docs []models.Product
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("products: items decode: %w", err)
	}

	out := make([]geo.Item, len(docs))
	for i, p := range docs {
		out[i] = p.GeoItem()
	}
	return out, nil
}

func nearPipeline(q geo.NearQuery) mongo.Pipeline {
	match := bson.M{"role": auth.RoleFarmer}
	if q.VerifiedOnly {
		match["isVerified"] = true
	}

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near": bson.M{
				"type":        "Point",
				"coordinates": bson.A{q.Center.Lng, q.Center.Lat},
			},
			"distanceField": "distance",
			"maxDistance":   q.RadiusMeters,
			"spherical":     true,
			"query":         match,
		}}},
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.Limit}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{
		"passwordHash": 0,
		"email":        0,
		"phone":        0,
		"address":      0,
	}}})
	return pipeline
}

func itemFilter(q geo.ItemQuery) (bson.M, error) {
	farmer, err := primitive.ObjectIDFromHex(q.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("products: provider id %q: %w", q.ProviderID, err)
	}

	filter := bson.M{"farmer": farmer, "isAvailable": true}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["pricePerUnit"] = price
	}

	if q.Query != "" {
		filter["$text"] = bson.M{"$search": q.Query}
	}
	return filter, nil
}
