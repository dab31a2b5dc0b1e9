package geo_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/pkg/geo"
	"github.com/farmdirect/farmdirect/pkg/geo/geotest"
	"github.com/farmdirect/farmdirect/pkg/workerpool"
)

var (
	center = geo.Point{Lat: 28.6139, Lng: 77.2090}
	t0     = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
)

func north(deg float64) *geo.Location {
	return geo.NewLocation(geo.Point{Lat: center.Lat + deg, Lng: center.Lng})
}

func price(v float64) *float64 { return &v }

// fixture:
//
//	f1 at the centre, verified, 4.5 avg      tomato, milk, spinach (unavailable)
//	f2 ~5.6 km, verified, no ratings         carrot, apple
//	f3 ~11.1 km, unverified                  potato
//	f4 ~20.02 km, verified                   onion
//	f5 no location, verified                 rice
func fixture() *geotest.Store {
	s := geotest.NewStore()
	s.AddProvider(geo.Provider{ID: "f1", Name: "Asha", FarmName: "Green Acres", Rating: 9, TotalRatings: 2, IsVerified: true, Location: north(0)})
	s.AddProvider(geo.Provider{ID: "f2", Name: "Ravi", FarmName: "Sunrise", IsVerified: true, Location: north(0.05)})
	s.AddProvider(geo.Provider{ID: "f3", Name: "Meena", FarmName: "Hilltop", Rating: 20, TotalRatings: 4, Location: north(0.1)})
	s.AddProvider(geo.Provider{ID: "f4", Name: "Kabir", FarmName: "Far Field", IsVerified: true, Location: north(0.18)})
	s.AddProvider(geo.Provider{ID: "f5", Name: "Noor", IsVerified: true})

	add := func(id, farmer, title, category string, p float64, created time.Duration, available bool, tags ...string) {
		s.AddItem(geo.Item{
			ID: id, FarmerID: farmer, Title: title, Category: category,
			PricePerUnit: p, Unit: "kg", IsAvailable: available,
			Tags: tags, CreatedAt: t0.Add(created),
		})
	}
	add("tomato", "f1", "Fresh Tomatoes", "vegetables", 4, 1*time.Hour, true, "salad")
	add("milk", "f1", "Cow Milk", "dairy", 12, 2*time.Hour, true)
	add("spinach", "f1", "Spinach", "vegetables", 2, 5*time.Hour, false)
	add("carrot", "f2", "Carrots", "vegetables", 10, 3*time.Hour, true)
	add("apple", "f2", "Apples", "fruits", 1.5, 0, true)
	add("potato", "f3", "Potatoes", "vegetables", 6, 4*time.Hour, true)
	add("onion", "f4", "Onions", "vegetables", 3, 0, true)
	add("rice", "f5", "Basmati Rice", "grains", 5, 0, true)
	return s
}

type countingStore struct {
	geo.Store
	calls atomic.Int64
}

func (c *countingStore) NearbyProviders(ctx context.Context, q geo.NearQuery) ([]geo.Provider, error) {
	c.calls.Add(1)
	return c.Store.NearbyProviders(ctx, q)
}

func (c *countingStore) ProviderItems(ctx context.Context, q geo.ItemQuery) ([]geo.Item, error) {
	c.calls.Add(1)
	return c.Store.ProviderItems(ctx, q)
}

func newEngine(t *testing.T, store geo.Store, cfg geo.Config) *geo.Engine {
	t.Helper()
	pool := workerpool.New(4)
	t.Cleanup(pool.Shutdown)
	return geo.NewEngine(store, pool, cfg)
}

func ids(rows []geo.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func search(t *testing.T, e *geo.Engine, radius float64, f geo.Filters, o geo.Options) *geo.Result {
	t.Helper()
	res, err := e.Search(context.Background(), center.Lat, center.Lng, radius, f, o)
	require.NoError(t, err)
	return res
}

func TestSearch_AnonymousSeesVerifiedWithinRadius(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	res := search(t, e, 20, geo.Filters{}, geo.Options{})

	assert.ElementsMatch(t, []string{"tomato", "milk", "carrot", "apple"}, ids(res.Products))
	assert.Equal(t, geo.Pagination{Page: 1, Limit: 20, Total: 4, Pages: 1}, res.Pagination)

	for _, r := range res.Products {
		switch r.Farmer.ID {
		case "f1":
			assert.Equal(t, 0.0, r.Distance)
			assert.Equal(t, "4.5", r.Farmer.AverageRating)
			assert.Equal(t, "Green Acres", r.Farmer.FarmName)
		case "f2":
			assert.Equal(t, 5.6, r.Distance)
			assert.Equal(t, "0.0", r.Farmer.AverageRating)
		default:
			t.Errorf("unexpected provider %s", r.Farmer.ID)
		}
	}
}

func TestSearch_DistanceOrderIsAscending(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	res := search(t, e, 30, geo.Filters{Viewer: &geo.Viewer{ID: "a", Role: "admin"}}, geo.Options{})
	require.NotEmpty(t, res.Products)
	for i := 1; i < len(res.Products); i++ {
		assert.LessOrEqual(t, res.Products[i-1].Distance, res.Products[i].Distance)
	}
}

func TestSearch_ProviderJustBeyondRadiusExcluded(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	assert.NotContains(t, ids(search(t, e, 20, geo.Filters{}, geo.Options{}).Products), "onion")
	assert.Contains(t, ids(search(t, e, 21, geo.Filters{}, geo.Options{}).Products), "onion")
}

func TestSearch_ProviderWithoutLocationNeverAppears(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	res := search(t, e, 20000, geo.Filters{}, geo.Options{Limit: 100})
	assert.NotContains(t, ids(res.Products), "rice")
}

func TestSearch_AdminSeesUnverified(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	buyer := search(t, e, 20, geo.Filters{Viewer: &geo.Viewer{ID: "b1", Role: "buyer"}}, geo.Options{})
	assert.NotContains(t, ids(buyer.Products), "potato")

	admin := search(t, e, 20, geo.Filters{Viewer: &geo.Viewer{ID: "a1", Role: "admin"}}, geo.Options{})
	assert.Contains(t, ids(admin.Products), "potato")
	assert.Equal(t, 5, admin.Pagination.Total)
}

func TestSearch_CategoryAndPriceFilters(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	res := search(t, e, 20, geo.Filters{
		Category: "vegetables",
		MinPrice: price(2),
		MaxPrice: price(10),
	}, geo.Options{})

	assert.ElementsMatch(t, []string{"tomato", "carrot"}, ids(res.Products))
	for _, r := range res.Products {
		assert.Equal(t, "vegetables", r.Category)
		assert.GreaterOrEqual(t, r.PricePerUnit, 2.0)
		assert.LessOrEqual(t, r.PricePerUnit, 10.0)
	}
}

func TestSearch_OpenEndedPriceBounds(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	cheap := search(t, e, 20, geo.Filters{MaxPrice: price(4)}, geo.Options{})
	assert.ElementsMatch(t, []string{"tomato", "apple"}, ids(cheap.Products))

	dear := search(t, e, 20, geo.Filters{MinPrice: price(10)}, geo.Options{})
	assert.ElementsMatch(t, []string{"milk", "carrot"}, ids(dear.Products))
}

func TestSearch_TextQuery(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	res := search(t, e, 20, geo.Filters{Query: "salad"}, geo.Options{})
	assert.Equal(t, []string{"tomato"}, ids(res.Products))

	res = search(t, e, 20, geo.Filters{Query: "MILK apples"}, geo.Options{})
	assert.ElementsMatch(t, []string{"milk", "apple"}, ids(res.Products))
}

func TestSearch_NothingMatches(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	res := search(t, e, 20, geo.Filters{Category: "fish"}, geo.Options{})
	assert.Empty(t, res.Products)
	assert.NotNil(t, res.Products)
	assert.Equal(t, 0, res.Pagination.Total)
	assert.Equal(t, 0, res.Pagination.Pages)
}

func TestSearch_SortKeys(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	byPrice := search(t, e, 20, geo.Filters{}, geo.Options{SortBy: geo.SortPrice})
	assert.Equal(t, []string{"apple", "tomato", "carrot", "milk"}, ids(byPrice.Products))

	newest := search(t, e, 20, geo.Filters{}, geo.Options{SortBy: geo.SortNewest})
	assert.Equal(t, []string{"carrot", "milk", "tomato", "apple"}, ids(newest.Products))

	admin := &geo.Viewer{ID: "a1", Role: "admin"}
	byRating := search(t, e, 20, geo.Filters{Viewer: admin}, geo.Options{SortBy: geo.SortRating})
	require.NotEmpty(t, byRating.Products)
	assert.Equal(t, "potato", byRating.Products[0].ID)
	for i := 1; i < len(byRating.Products); i++ {
		assert.GreaterOrEqual(t, byRating.Products[i-1].Farmer.Rating, byRating.Products[i].Farmer.Rating)
	}

	unknown := search(t, e, 20, geo.Filters{}, geo.Options{SortBy: "popularity"})
	byDistance := search(t, e, 20, geo.Filters{}, geo.Options{})
	assert.Equal(t, ids(byDistance.Products), ids(unknown.Products))
}

func TestSearch_PagesAreDisjoint(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})

	all := search(t, e, 20, geo.Filters{}, geo.Options{SortBy: geo.SortPrice})
	p1 := search(t, e, 20, geo.Filters{}, geo.Options{Page: 1, Limit: 3, SortBy: geo.SortPrice})
	p2 := search(t, e, 20, geo.Filters{}, geo.Options{Page: 2, Limit: 3, SortBy: geo.SortPrice})

	assert.Len(t, p1.Products, 3)
	assert.Len(t, p2.Products, 1)
	for _, id := range ids(p2.Products) {
		assert.NotContains(t, ids(p1.Products), id)
	}
	assert.Equal(t, all.Pagination.Total, p1.Pagination.Total)
	assert.Equal(t, geo.Pagination{Page: 2, Limit: 3, Total: 4, Pages: 2}, p2.Pagination)

	beyond := search(t, e, 20, geo.Filters{}, geo.Options{Page: 5, Limit: 3})
	assert.Empty(t, beyond.Products)
	assert.Equal(t, 4, beyond.Pagination.Total)

	huge := search(t, e, 30, geo.Filters{}, geo.Options{Page: 1 << 62, Limit: 4})
	assert.Empty(t, huge.Products)
	assert.Equal(t, 5, huge.Pagination.Total)
}

func TestSearch_RadiusHandling(t *testing.T) {
	store := &countingStore{Store: fixture()}
	e := newEngine(t, store, geo.Config{})

	zero := search(t, e, 0, geo.Filters{}, geo.Options{})
	assert.Empty(t, zero.Products)
	assert.Equal(t, geo.Pagination{Page: 1, Limit: 20}, zero.Pagination)
	assert.Zero(t, store.calls.Load())

	nan := search(t, e, math.NaN(), geo.Filters{}, geo.Options{})
	assert.Equal(t, 4, nan.Pagination.Total)

	negative := search(t, e, -5, geo.Filters{}, geo.Options{})
	assert.Equal(t, 4, negative.Pagination.Total)
}

func TestSearch_NaNCoordinateRejected(t *testing.T) {
	store := &countingStore{Store: fixture()}
	e := newEngine(t, store, geo.Config{})

	_, err := e.Search(context.Background(), math.NaN(), center.Lng, 20, geo.Filters{}, geo.Options{})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)

	_, err = e.Search(context.Background(), center.Lat, math.NaN(), 20, geo.Filters{}, geo.Options{})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)

	assert.Zero(t, store.calls.Load())
}

func TestSearch_Caps(t *testing.T) {
	oneFarm := newEngine(t, fixture(), geo.Config{MaxProviders: 1})
	res := search(t, oneFarm, 20, geo.Filters{}, geo.Options{})
	assert.ElementsMatch(t, []string{"tomato", "milk"}, ids(res.Products))

	oneItem := newEngine(t, fixture(), geo.Config{MaxItemsPerProvider: 1})
	res = search(t, oneItem, 20, geo.Filters{}, geo.Options{})
	assert.Len(t, res.Products, 2)
}

type failingStore struct{ err error }

func (f failingStore) NearbyProviders(context.Context, geo.NearQuery) ([]geo.Provider, error) {
	return nil, f.err
}

func (f failingStore) ProviderItems(context.Context, geo.ItemQuery) ([]geo.Item, error) {
	return nil, f.err
}

type flakyItems struct {
	*geotest.Store
	err error
}

func (f flakyItems) ProviderItems(context.Context, geo.ItemQuery) ([]geo.Item, error) {
	return nil, f.err
}

func TestSearch_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("server selection timeout")

	_, err := newEngine(t, failingStore{err: boom}, geo.Config{}).
		Search(context.Background(), center.Lat, center.Lng, 20, geo.Filters{}, geo.Options{})
	assert.ErrorIs(t, err, boom)

	_, err = newEngine(t, flakyItems{Store: fixture(), err: boom}, geo.Config{}).
		Search(context.Background(), center.Lat, center.Lng, 20, geo.Filters{}, geo.Options{})
	assert.ErrorIs(t, err, boom)
}

func TestRowJSONShape(t *testing.T) {
	e := newEngine(t, fixture(), geo.Config{})
	res := search(t, e, 20, geo.Filters{Query: "salad"}, geo.Options{})
	require.Len(t, res.Products, 1)

	raw, err := json.Marshal(res.Products[0])
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "tomato", doc["_id"])
	assert.Equal(t, 4.0, doc["pricePerUnit"])
	assert.Equal(t, 0.0, doc["distance"])
	assert.NotContains(t, doc, "FarmerID")

	farmer, ok := doc["farmer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "f1", farmer["_id"])
	assert.Equal(t, "4.5", farmer["averageRating"])
}
