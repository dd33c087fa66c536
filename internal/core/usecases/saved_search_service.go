package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/ports"
)

// SavedSearchService manages persisted region searches.
type SavedSearchService struct {
	repo   ports.SavedSearchRepository
	search *SearchService
}

// NewSavedSearchService creates a new SavedSearchService.
func NewSavedSearchService(repo ports.SavedSearchRepository, search *SearchService) *SavedSearchService {
	return &SavedSearchService{repo: repo, search: search}
}

// Create validates and stores a saved search.
func (s *SavedSearchService) Create(ctx context.Context, ss *domain.SavedSearch) error {
	ss.Name = strings.TrimSpace(ss.Name)
	if ss.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidSavedSearch)
	}
	if _, err := GeoQuery(ss.Region); err != nil {
		return err
	}
	if ss.Filters.Values == nil {
		ss.Filters.Values = map[string][]string{}
	}
	if ss.Filters.Ranges == nil {
		ss.Filters.Ranges = map[string]domain.Range{}
	}
	ss.CreatedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, ss); err != nil {
		return fmt.Errorf("create saved search: %w", err)
	}
	return nil
}

// Get returns a saved search by ID.
func (s *SavedSearchService) Get(ctx context.Context, id string) (*domain.SavedSearch, error) {
	ss, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		return nil, fmt.Errorf("%w: %s", ErrSavedSearchNotFound, id)
	}
	return ss, nil
}

// List returns saved searches, newest first.
func (s *SavedSearchService) List(ctx context.Context, limit, offset int) ([]domain.SavedSearch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Count returns the number of saved searches.
func (s *SavedSearchService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Delete removes a saved search.
func (s *SavedSearchService) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSavedSearchNotFound, id)
	}
	return nil
}

// Run opens a results session from a saved search.
func (s *SavedSearchService) Run(ctx context.Context, id string) (*ResultsSession, *domain.ResultsPage, error) {
	ss, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.search.Open(ctx, ss.Region, ss.Filters, nilIfEmpty(ss.StringKeys), nilIfEmpty(ss.NumericKeys))
}

func nilIfEmpty(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	return keys
}
