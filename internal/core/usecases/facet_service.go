package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/ports"
)

// maxConcurrentLookups bounds parallel asset API calls made by one Refresh.
const maxConcurrentLookups = 4

// FacetService performs the IO behind a FilterState: distinct-value lookups
// for newly seen fields and collection name resolution.
type FacetService struct {
	api      ports.AssetAPI
	cache    ports.CacheService
	cacheTTL int
}

// NewFacetService creates a new FacetService. cacheTTL is in seconds; cache
// may be nil.
func NewFacetService(api ports.AssetAPI, cache ports.CacheService, cacheTTL int) *FacetService {
	if cacheTTL <= 0 {
		cacheTTL = 300
	}
	return &FacetService{api: api, cache: cache, cacheTTL: cacheTTL}
}

// Refresh ingests a sampled page into fs, then fetches distinct values for
// every field seen for the first time and names for new collections.
func (s *FacetService) Refresh(ctx context.Context, fs *FilterState, items []domain.Item) error {
	fields := fs.Ingest(items)

	// A failed lookup must not cancel its siblings.
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxConcurrentLookups)
	for _, field := range fields {
		g.Go(func() error {
			values, err := s.Distinct(ctx, field)
			if err != nil {
				fs.ForgetField(field)
				mu.Lock()
				errs = append(errs, fmt.Errorf("distinct %s: %w", field, err))
				mu.Unlock()
				return nil
			}
			fs.ApplyDistinct(field, values)
			return nil
		})
	}
	_ = g.Wait()

	s.resolveCollections(ctx, fs)
	return errors.Join(errs...)
}

// Distinct returns the distinct values of field, read through the cache.
func (s *FacetService) Distinct(ctx context.Context, field string) ([]any, error) {
	cacheKey := "distinct:" + field
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var values []any
			if err := json.Unmarshal(data, &values); err == nil {
				return values, nil
			}
		}
	}

	values, err := s.api.Distinct(ctx, field)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(values); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return values, nil
}

// Collection returns a collection by ID, read through the cache.
func (s *FacetService) Collection(ctx context.Context, id string) (*domain.Collection, error) {
	cacheKey := "collection:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var c domain.Collection
			if err := json.Unmarshal(data, &c); err == nil {
				return &c, nil
			}
		}
	}

	c, err := s.api.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(c); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return c, nil
}

// resolveCollections looks up names for collections fs cannot label yet.
// Failures leave the raw ID as the label.
func (s *FacetService) resolveCollections(ctx context.Context, fs *FilterState) {
	ids := fs.UnnamedCollections()
	if len(ids) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for _, id := range ids {
		g.Go(func() error {
			c, err := s.Collection(gctx, id)
			if err != nil {
				slog.Warn("collection lookup failed", "collection", id, "error", err)
				return nil
			}
			fs.SetCollectionName(id, c.Name)
			return nil
		})
	}
	_ = g.Wait()
}
