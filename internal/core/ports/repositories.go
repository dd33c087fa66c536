package ports

import (
	"context"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// SavedSearchRepository persists saved region searches.
type SavedSearchRepository interface {
	Create(ctx context.Context, s *domain.SavedSearch) error
	// GetByID returns nil without error when id does not exist.
	GetByID(ctx context.Context, id string) (*domain.SavedSearch, error)
	List(ctx context.Context, limit, offset int) ([]domain.SavedSearch, error)
	Count(ctx context.Context) (int, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
