// Package geo is the proximity product search engine.
//
// A search runs as a fixed sequence of stages over a Store:
//
//	FetchCandidates → JoinItems → Flatten → Annotate → SortRows → Paginate
//
// Each stage is exported so it can be exercised on its own. Engine.Search
// strings them together.
package geo

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCoordinate is returned for a NaN latitude or longitude.
	ErrInvalidCoordinate = errors.New("geo: invalid coordinate")
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a GeoJSON point. Coordinates are [lng, lat].
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewLocation builds a GeoJSON point for p.
func NewLocation(p Point) *Location {
	return &Location{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}}
}

// Point converts l back to a Point. ok is false when l is not a usable
// two-element point.
func (l *Location) Point() (p Point, ok bool) {
	if l == nil || len(l.Coordinates) != 2 {
		return Point{}, false
	}
	return Point{Lat: l.Coordinates[1], Lng: l.Coordinates[0]}, true
}

// Provider is a farmer as returned by the candidate fetch.
type Provider struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	FarmName     string    `json:"farmName,omitempty"`
	Rating       float64   `json:"rating"`
	TotalRatings int       `json:"totalRatings"`
	IsVerified   bool      `json:"isVerified"`
	Location     *Location `json:"location,omitempty"`

	// DistanceMeters is filled in by the store.
	DistanceMeters float64 `json:"-"`
}

// Item is one product listing.
type Item struct {
	ID                string    `json:"_id"`
	FarmerID          string    `json:"-"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	PricePerUnit      float64   `json:"pricePerUnit"`
	AvailableQuantity float64   `json:"availableQuantity"`
	Unit              string    `json:"unit"`
	IsOrganic         bool      `json:"isOrganic"`
	IsAvailable       bool      `json:"isAvailable"`
	Tags              []string  `json:"tags,omitempty"`
	Images            []string  `json:"images,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// FarmerSummary is the provider block attached to every row.
type FarmerSummary struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	FarmName      string    `json:"farmName,omitempty"`
	Rating        float64   `json:"rating"`
	TotalRatings  int       `json:"totalRatings"`
	IsVerified    bool      `json:"isVerified"`
	Location      *Location `json:"location,omitempty"`
	AverageRating string    `json:"averageRating"`
}

// Row is one (provider, item) pair of a result page.
type Row struct {
	Item
	// Distance is in kilometres, rounded to one decimal.
	Distance float64       `json:"distance"`
	Farmer   FarmerSummary `json:"farmer"`

	meters float64
}

// Viewer is the caller on whose behalf a search runs.
type Viewer struct {
	ID   string
	Role string
}

// Filters narrows the joined items and the visible providers.
type Filters struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Query    string
	// Viewer nil means anonymous.
	Viewer *Viewer
}

// SortKey selects the row ordering.
type SortKey string

const (
	SortDistance SortKey = "distance"
	SortPrice    SortKey = "price"
	SortRating   SortKey = "rating"
	SortNewest   SortKey = "newest"
)

// ParseSortKey maps s to a SortKey, falling back to SortDistance.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortDistance, SortPrice, SortRating, SortNewest:
		return k
	}
	return SortDistance
}

// Options controls pagination and ordering. Zero values take defaults.
type Options struct {
	Page   int
	Limit  int
	SortBy SortKey
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type Result struct {
	Products   []Row      `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// NearQuery asks for the providers within RadiusMeters of Center, nearest
// first, at most Limit of them.
type NearQuery struct {
	Center       Point
	RadiusMeters float64
	VerifiedOnly bool
	Limit        int
}

// ItemQuery asks for up to Limit available items of one provider.
type ItemQuery struct {
	ProviderID string
	Category   string
	MinPrice   *float64
	MaxPrice   *float64
	Query      string
	Limit      int
}

// Store is the document store behind a search.
type Store interface {
	// NearbyProviders returns farmers with a location inside the radius,
	// nearest first, each with DistanceMeters set.
	NearbyProviders(ctx context.Context, q NearQuery) ([]Provider, error)
	// ProviderItems returns available items of q.ProviderID matching the
	// filters.
	ProviderItems(ctx context.Context, q ItemQuery) ([]Item, error)
}

// Config holds the engine's tunables.
type Config struct {
	DefaultRadiusKm     float64
	MaxProviders        int
	MaxItemsPerProvider int
	DefaultLimit        int
}

func DefaultConfig() Config {
	return Config{
		DefaultRadiusKm:     20,
		MaxProviders:        100,
		MaxItemsPerProvider: 50,
		DefaultLimit:        20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultRadiusKm <= 0 {
		c.DefaultRadiusKm = d.DefaultRadiusKm
	}
	if c.MaxProviders <= 0 {
		c.MaxProviders = d.MaxProviders
	}
	if c.MaxItemsPerProvider <= 0 {
		c.MaxItemsPerProvider = d.MaxItemsPerProvider
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	return c
}
