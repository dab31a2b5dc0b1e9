package services_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/geo"
)

type searchCall struct {
	lat, lng, radius float64
	f                geo.Filters
	o                geo.Options
}

type fakeSearcher struct {
	calls []searchCall
}

func (s *fakeSearcher) Search(_ context.Context, lat, lng, radiusKm float64, f geo.Filters, o geo.Options) (*geo.Result, error) {
	s.calls = append(s.calls, searchCall{lat, lng, radiusKm, f, o})
	return &geo.Result{Products: []geo.Row{}, Pagination: geo.Pagination{Page: o.Page, Limit: o.Limit}}, nil
}

func TestSearchService_PassesParams(t *testing.T) {
	engine := &fakeSearcher{}
	svc := services.NewSearchService(engine, 0)
	minPrice := 10.0

	res, err := svc.Search(context.Background(), services.SearchParams{
		Lat: 28.61, Lng: 77.2, RadiusKm: math.NaN(),
		Category: "dairy", MinPrice: &minPrice, Query: "milk",
		Page: 2, Limit: 5, SortBy: "rating",
		Viewer: &geo.Viewer{ID: "u1", Role: "buyer"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pagination.Page)

	require.Len(t, engine.calls, 1)
	c := engine.calls[0]
	assert.True(t, math.IsNaN(c.radius))
	assert.Equal(t, "dairy", c.f.Category)
	assert.Equal(t, &minPrice, c.f.MinPrice)
	assert.Equal(t, "milk", c.f.Query)
	assert.Equal(t, "u1", c.f.Viewer.ID)
	assert.Equal(t, geo.Options{Page: 2, Limit: 5, SortBy: geo.SortRating}, c.o)
}

func TestSearchService_NoRedisStillSearches(t *testing.T) {
	engine := &fakeSearcher{}
	svc := services.NewSearchService(engine, 60)

	for i := 0; i < 2; i++ {
		_, err := svc.Search(context.Background(), services.SearchParams{Lat: 1, Lng: 2, RadiusKm: math.Inf(1)})
		require.NoError(t, err)
	}
	assert.Len(t, engine.calls, 2)
}
