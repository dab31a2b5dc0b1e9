package geo

import (
	"context"
	"math"
	"time"

	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/metrics"
	"github.com/farmdirect/farmdirect/pkg/workerpool"
)

// Engine runs searches against a Store. It holds no per-search state and
// is safe for concurrent use.
type Engine struct {
	store Store
	pool  *workerpool.Pool
	cfg   Config
}

// NewEngine returns an Engine that joins items on pool. Zero fields of cfg
// take DefaultConfig values.
func NewEngine(store Store, pool *workerpool.Pool, cfg Config) *Engine {
	return &Engine{store: store, pool: pool, cfg: cfg.withDefaults()}
}

func (e *Engine) Config() Config { return e.cfg }

// Search returns the page of items near (lat, lng) described by f and o.
//
// A NaN or negative radius means "unspecified" and uses the configured
// default; a radius of exactly 0 matches nothing. Range checking of the
// coordinates is left to the caller (see ValidCoordinates). Store errors
// are returned wrapped.
func (e *Engine) Search(ctx context.Context, lat, lng, radiusKm float64, f Filters, o Options) (*Result, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return nil, ErrInvalidCoordinate
	}

	page, limit := o.Page, o.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = e.cfg.DefaultLimit
	}
	sortBy := ParseSortKey(string(o.SortBy))

	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm < 0 {
		radiusKm = e.cfg.DefaultRadiusKm
	}
	if radiusKm == 0 {
		return &Result{Products: []Row{}, Pagination: Pagination{Page: page, Limit: limit}}, nil
	}

	start := time.Now()
	defer func() {
		metrics.GeoSearchDuration.WithLabelValues(string(sortBy)).Observe(time.Since(start).Seconds())
	}()

	providers, err := FetchCandidates(ctx, e.store, NearQuery{
		Center:       Point{Lat: lat, Lng: lng},
		RadiusMeters: radiusKm * 1000,
		VerifiedOnly: !f.Viewer.isAdmin(),
		Limit:        e.cfg.MaxProviders,
	})
	if err != nil {
		return nil, err
	}

	items, err := JoinItems(ctx, e.pool, e.store, providers, ItemQuery{
		Category: f.Category,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		Query:    f.Query,
		Limit:    e.cfg.MaxItemsPerProvider,
	})
	if err != nil {
		return nil, err
	}

	rows := Flatten(providers, items)
	Annotate(rows)
	SortRows(rows, sortBy)
	metrics.GeoSearchRows.Observe(float64(len(rows)))

	out, meta := Paginate(rows, page, limit)

	logger.WithCtx(ctx).Debug("geo: search",
		"lat", lat, "lng", lng, "radius_km", radiusKm, "sort", sortBy,
		"providers", len(providers), "rows", len(rows), "page", page)

	return &Result{Products: out, Pagination: meta}, nil
}

func (v *Viewer) isAdmin() bool {
	return v != nil && v.Role == auth.RoleAdmin
}
