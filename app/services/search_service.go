package services

import (
	"context"
	"math"
	"time"

	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/cache"
	"github.com/farmdirect/farmdirect/pkg/geo"
)

// Searcher is the proximity search engine.
type Searcher interface {
	Search(ctx context.Context, lat, lng, radiusKm float64, f geo.Filters, o geo.Options) (*geo.Result, error)
}

// SearchParams is one geo search request as parsed from the query string.
type SearchParams struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
	Category string
	MinPrice *float64
	MaxPrice *float64
	Query    string
	Page     int
	Limit    int
	SortBy   string
	Viewer   *geo.Viewer
}

// SearchService fronts the engine with the Redis result cache.
type SearchService struct {
	engine Searcher
	ttl    time.Duration
}

func NewSearchService(engine Searcher, ttl time.Duration) *SearchService {
	return &SearchService{engine: engine, ttl: ttl}
}

// Search runs p through the engine. Results are cached per parameter set
// and visibility class, never per viewer.
func (s *SearchService) Search(ctx context.Context, p SearchParams) (*geo.Result, error) {
	admin := p.Viewer != nil && p.Viewer.Role == auth.RoleAdmin
	radius := p.RadiusKm
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		radius = -1 // JSON cannot encode either; both mean "default"
	}
	key := cache.Key("geo_search", p.Lat, p.Lng, radius, p.Category,
		p.MinPrice, p.MaxPrice, p.Query, p.Page, p.Limit, p.SortBy, admin)

	return cache.Remember(ctx, "geo_search", key, s.ttl, func() (*geo.Result, error) {
		return s.engine.Search(ctx, p.Lat, p.Lng, p.RadiusKm,
			geo.Filters{
				Category: p.Category,
				MinPrice: p.MinPrice,
				MaxPrice: p.MaxPrice,
				Query:    p.Query,
				Viewer:   p.Viewer,
			},
			geo.Options{Page: p.Page, Limit: p.Limit, SortBy: geo.ParseSortKey(p.SortBy)},
		)
	})
}
