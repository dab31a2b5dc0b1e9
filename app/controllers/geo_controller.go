package controllers

import (
	"context"
	"math"

	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/ctx"
	"github.com/farmdirect/farmdirect/pkg/geo"
	"github.com/farmdirect/farmdirect/pkg/response"
)

// GeoSearcher runs a parsed proximity search.
type GeoSearcher interface {
	Search(ctx context.Context, p services.SearchParams) (*geo.Result, error)
}

type GeoController struct {
	search        GeoSearcher
	defaultRadius float64
}

func NewGeoController(search GeoSearcher, defaultRadiusKm float64) *GeoController {
	return &GeoController{search: search, defaultRadius: defaultRadiusKm}
}

// searchParams is echoed back with every result page.
type searchParams struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	RadiusKm float64  `json:"radiusKm"`
	Category *string  `json:"category"`
	MinPrice *float64 `json:"minPrice"`
	MaxPrice *float64 `json:"maxPrice"`
	Q        *string  `json:"q"`
}

// Search handles GET /api/products/geo-search.
//
//	?lat=28.61&lng=77.20&radiusKm=10&category=vegetables&q=tomato&sortBy=price
func (g *GeoController) Search(c *ctx.Context) {
	lat, okLat := c.QueryFloat("lat")
	lng, okLng := c.QueryFloat("lng")
	if !okLat || !okLng || math.IsNaN(lat) || math.IsNaN(lng) {
		c.BadRequest("Valid latitude and longitude are required")
		return
	}
	if !geo.ValidCoordinates(lat, lng) {
		c.BadRequest("Invalid coordinates. Latitude must be between -90 and 90, longitude between -180 and 180")
		return
	}

	radius := math.NaN()
	if r, ok := c.QueryFloat("radiusKm"); ok {
		radius = r
	}

	p := services.SearchParams{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: radius,
		Category: c.Query("category"),
		MinPrice: finite(c.QueryFloatPtr("minPrice")),
		MaxPrice: finite(c.QueryFloatPtr("maxPrice")),
		Query:    c.Query("q"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 20),
		SortBy:   c.DefaultQuery("sortBy", string(geo.SortDistance)),
	}
	if claims, ok := c.Claims(); ok {
		p.Viewer = &geo.Viewer{ID: claims.UserID, Role: claims.Role}
	}

	res, err := g.search.Search(c.Context(), p)
	if err != nil {
		fail(c, err, "Product")
		return
	}

	rows := res.Products
	if rows == nil {
		rows = []geo.Row{}
	}
	c.Paginated("products", rows, response.Pagination(res.Pagination), map[string]any{
		"searchParams": searchParams{
			Lat:      lat,
			Lng:      lng,
			RadiusKm: g.effectiveRadius(radius),
			Category: optional(p.Category),
			MinPrice: p.MinPrice,
			MaxPrice: p.MaxPrice,
			Q:        optional(p.Query),
		},
	})
}

func (g *GeoController) effectiveRadius(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return g.defaultRadius
	}
	return r
}

// finite drops NaN and infinite price bounds.
func finite(f *float64) *float64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	return f
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
