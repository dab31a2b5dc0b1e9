// Package geotest provides an in-memory geo.Store for tests.
package geotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/farmdirect/farmdirect/pkg/geo"
)

// Store is a geo.Store over in-process slices. Distances use the same
// spherical model as geo.DistanceKm.
type Store struct {
	mu        sync.RWMutex
	providers []geo.Provider
	items     []geo.Item
}

func NewStore() *Store {
	return &Store{}
}

// AddProvider registers a farmer. A provider without a location is stored
// but never found.
func (s *Store) AddProvider(p geo.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, p)
}

// AddItem registers a listing of it.FarmerID.
func (s *Store) AddItem(it geo.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, it)
}

func (s *Store) NearbyProviders(ctx context.Context, q geo.NearQuery) ([]geo.Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []geo.Provider
	for _, p := range s.providers {
		at, ok := p.Location.Point()
		if !ok {
			continue
		}
		if q.VerifiedOnly && !p.IsVerified {
			continue
		}
		m := geo.DistanceKm(q.Center, at) * 1000
		if m > q.RadiusMeters {
			continue
		}
		p.DistanceMeters = m
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) ProviderItems(ctx context.Context, q geo.ItemQuery) ([]geo.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := words(q.Query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []geo.Item
	for _, it := range s.items {
		if it.FarmerID != q.ProviderID || !it.IsAvailable {
			continue
		}
		if q.Category != "" && it.Category != q.Category {
			continue
		}
		if q.MinPrice != nil && it.PricePerUnit < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && it.PricePerUnit > *q.MaxPrice {
			continue
		}
		if len(terms) > 0 && !matchesAny(it, terms) {
			continue
		}
		out = append(out, it)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// matchesAny mirrors a text index over title, description and tags: an
// item matches when any query word appears as a whole word.
func matchesAny(it geo.Item, terms []string) bool {
	fields := append([]string{it.Title, it.Description}, it.Tags...)
	have := make(map[string]struct{})
	for _, f := range fields {
		for _, w := range words(f) {
			have[w] = struct{}{}
		}
	}
	for _, t := range terms {
		if _, ok := have[t]; ok {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
