package geo

import (
	"context"
	"fmt"
	"sort"

	"github.com/farmdirect/farmdirect/pkg/workerpool"
)

// FetchCandidates loads the providers near q.Center, keeping at most q.Limit.
func FetchCandidates(ctx context.Context, store Store, q NearQuery) ([]Provider, error) {
	providers, err := store.NearbyProviders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("geo: fetch candidates: %w", err)
	}
	if q.Limit > 0 && len(providers) > q.Limit {
		providers = providers[:q.Limit]
	}
	return providers, nil
}

// JoinItems loads the matching items of every provider on pool. The result
// is aligned with providers; each slice holds at most q.Limit items.
func JoinItems(ctx context.Context, pool *workerpool.Pool, store Store, providers []Provider, q ItemQuery) ([][]Item, error) {
	items, err := workerpool.Map(ctx, pool, providers, func(ctx context.Context, p Provider) ([]Item, error) {
		pq := q
		pq.ProviderID = p.ID
		found, err := store.ProviderItems(ctx, pq)
		if err != nil {
			return nil, err
		}
		if q.Limit > 0 && len(found) > q.Limit {
			found = found[:q.Limit]
		}
		return found, nil
	})
	if err != nil {
		return nil, fmt.Errorf("geo: join items: %w", err)
	}
	return items, nil
}

// Flatten emits one row per (provider, item), in provider order. Providers
// without items contribute nothing.
func Flatten(providers []Provider, items [][]Item) []Row {
	n := 0
	for _, list := range items {
		n += len(list)
	}

	rows := make([]Row, 0, n)
	for i, p := range providers {
		if i >= len(items) {
			break
		}
		summary := FarmerSummary{
			ID:           p.ID,
			Name:         p.Name,
			FarmName:     p.FarmName,
			Rating:       p.Rating,
			TotalRatings: p.TotalRatings,
			IsVerified:   p.IsVerified,
			Location:     p.Location,
		}
		for _, it := range items[i] {
			rows = append(rows, Row{Item: it, Farmer: summary, meters: p.DistanceMeters})
		}
	}
	return rows
}

// Annotate fills in the display distance and the average rating.
func Annotate(rows []Row) {
	for i := range rows {
		rows[i].Distance = RoundKm(rows[i].meters)
		rows[i].Farmer.AverageRating = AverageRating(rows[i].Farmer.Rating, rows[i].Farmer.TotalRatings)
	}
}

// SortRows orders rows by key. Equal rows keep their relative order.
func SortRows(rows []Row, key SortKey) {
	var less func(a, b *Row) bool
	switch key {
	case SortPrice:
		less = func(a, b *Row) bool { return a.PricePerUnit < b.PricePerUnit }
	case SortRating:
		less = func(a, b *Row) bool { return a.Farmer.Rating > b.Farmer.Rating }
	case SortNewest:
		less = func(a, b *Row) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b *Row) bool { return a.meters < b.meters }
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
}

// Paginate cuts page out of rows. page and limit must be positive; a page
// past the end is empty.
func Paginate(rows []Row, page, limit int) ([]Row, Pagination) {
	total := len(rows)
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	meta := Pagination{Page: page, Limit: limit, Total: total, Pages: pages}

	// Compare before multiplying so huge pages cannot overflow skip.
	if page-1 >= pages {
		return []Row{}, meta
	}
	skip := (page - 1) * limit
	end := total
	if limit < total-skip {
		end = skip + limit
	}
	return rows[skip:end], meta
}
