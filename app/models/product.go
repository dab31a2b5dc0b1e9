package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/pkg/geo"
)

// Product is a listing owned by a farmer.
type Product struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"     json:"_id"`
	Farmer            primitive.ObjectID `bson:"farmer"            json:"farmer"`
	Title             string             `bson:"title"             json:"title"`
	Description       string             `bson:"description"       json:"description"`
	Category          string             `bson:"category"          json:"category"`
	PricePerUnit      float64            `bson:"pricePerUnit"      json:"pricePerUnit"`
	AvailableQuantity float64            `bson:"availableQuantity" json:"availableQuantity"`
	Unit              string             `bson:"unit"              json:"unit"`
	Images            []string           `bson:"images,omitempty"  json:"images,omitempty"`
	IsOrganic         bool               `bson:"isOrganic"         json:"isOrganic"`
	IsAvailable       bool               `bson:"isAvailable"       json:"isAvailable"`
	Tags              []string           `bson:"tags,omitempty"    json:"tags,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"         json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"         json:"updatedAt"`
}

const ProductsCollection = "products"

// Categories accepted for a product.
var Categories = []string{
	"vegetables", "fruits", "grains", "dairy", "poultry",
	"fish", "herbs", "organic", "processed", "other",
}

// GeoItem converts p to the search engine's item shape.
func (p Product) GeoItem() geo.Item {
	return geo.Item{
		ID:                p.ID.Hex(),
		FarmerID:          p.Farmer.Hex(),
		Title:             p.Title,
		Description:       p.Description,
		Category:          p.Category,
		PricePerUnit:      p.PricePerUnit,
		AvailableQuantity: p.AvailableQuantity,
		Unit:              p.Unit,
		IsOrganic:         p.IsOrganic,
		IsAvailable:       p.IsAvailable,
		Tags:              p.Tags,
		Images:            p.Images,
		CreatedAt:         p.CreatedAt,
	}
}
