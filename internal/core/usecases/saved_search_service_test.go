package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

// --- Mock SavedSearchRepository ---

type mockSavedSearchRepo struct {
	createFn  func(ctx context.Context, s *domain.SavedSearch) error
	getByIDFn func(ctx context.Context, id string) (*domain.SavedSearch, error)
	listFn    func(ctx context.Context, limit, offset int) ([]domain.SavedSearch, error)
	deleteFn  func(ctx context.Context, id string) (bool, error)
	count     int
}

func (m *mockSavedSearchRepo) Create(ctx context.Context, s *domain.SavedSearch) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	s.ID = "saved-1"
	return nil
}

func (m *mockSavedSearchRepo) GetByID(ctx context.Context, id string) (*domain.SavedSearch, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSavedSearchRepo) List(ctx context.Context, limit, offset int) ([]domain.SavedSearch, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockSavedSearchRepo) Count(ctx context.Context) (int, error) {
	return m.count, nil
}

func (m *mockSavedSearchRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

func TestSavedSearchService_Create(t *testing.T) {
	svc := usecases.NewSavedSearchService(&mockSavedSearchRepo{}, nil)

	ss := &domain.SavedSearch{Name: "  harbour  ", Region: polygonRegion()}
	if err := svc.Create(context.Background(), ss); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ss.ID != "saved-1" || ss.Name != "harbour" {
		t.Errorf("unexpected saved search %+v", ss)
	}
	if ss.CreatedAt.IsZero() || ss.Filters.Values == nil || ss.Filters.Ranges == nil {
		t.Errorf("expected defaults filled in, got %+v", ss)
	}
}

func TestSavedSearchService_CreateValidation(t *testing.T) {
	svc := usecases.NewSavedSearchService(&mockSavedSearchRepo{
		createFn: func(ctx context.Context, s *domain.SavedSearch) error {
			t.Error("invalid saved search must not be stored")
			return nil
		},
	}, nil)

	if err := svc.Create(context.Background(), &domain.SavedSearch{Name: " ", Region: polygonRegion()}); !errors.Is(err, usecases.ErrInvalidSavedSearch) {
		t.Errorf("expected ErrInvalidSavedSearch, got %v", err)
	}
	if err := svc.Create(context.Background(), &domain.SavedSearch{Name: "x"}); !errors.Is(err, usecases.ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
}

func TestSavedSearchService_GetAndDeleteNotFound(t *testing.T) {
	svc := usecases.NewSavedSearchService(&mockSavedSearchRepo{}, nil)

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, usecases.ErrSavedSearchNotFound) {
		t.Errorf("expected ErrSavedSearchNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, usecases.ErrSavedSearchNotFound) {
		t.Errorf("expected ErrSavedSearchNotFound, got %v", err)
	}
}

func TestSavedSearchService_ListClampsLimit(t *testing.T) {
	svc := usecases.NewSavedSearchService(&mockSavedSearchRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]domain.SavedSearch, error) {
			if limit != 20 || offset != 0 {
				t.Errorf("expected limit 20 offset 0, got %d %d", limit, offset)
			}
			return []domain.SavedSearch{{ID: "a"}}, nil
		},
	}, nil)

	got, err := svc.List(context.Background(), 500, -3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 saved search, got %d", len(got))
	}
}

func TestSavedSearchService_Run(t *testing.T) {
	selected := domain.NewSelectedFilters()
	selected.Values["platform"] = []string{"A"}
	repo := &mockSavedSearchRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.SavedSearch, error) {
			return &domain.SavedSearch{ID: id, Name: "x", Region: polygonRegion(), Filters: selected}, nil
		},
	}
	search := newSearchService(resultsAPI())
	svc := usecases.NewSavedSearchService(repo, search)

	sess, page, err := svc.Run(context.Background(), "saved-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer search.Close(sess.ID())

	if !strings.Contains(page.Query, `"meta.platform":{"$in":["A"]}`) {
		t.Errorf("expected saved filters applied, got %s", page.Query)
	}
	str, _ := sess.Filters().Keys()
	if len(str) != 2 {
		t.Errorf("expected default string keys, got %v", str)
	}
}
