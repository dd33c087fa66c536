package usecases_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

var fastThumbnails = usecases.ThumbnailConfig{InitialDelay: time.Millisecond, PollInterval: time.Millisecond}

func TestThumbnailService_EnsureExisting(t *testing.T) {
	api := &mockAssetAPI{
		getItemFn: func(ctx context.Context, id string) (*domain.Item, error) {
			return &domain.Item{ID: id, Thumbnails: []string{"thumb-1"}}, nil
		},
		listItemFilesFn: func(ctx context.Context, itemID string) ([]domain.File, error) {
			t.Error("files must not be listed when a thumbnail exists")
			return nil, nil
		},
	}
	svc := usecases.NewThumbnailService(api, nil, fastThumbnails)

	id, err := svc.Ensure(context.Background(), "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "thumb-1" {
		t.Errorf("expected thumb-1, got %s", id)
	}
}

func TestThumbnailService_EnsureNoSource(t *testing.T) {
	api := &mockAssetAPI{
		listItemFilesFn: func(ctx context.Context, itemID string) ([]domain.File, error) {
			return []domain.File{{ID: "f1", Exts: []string{"txt"}}, {ID: "f2"}}, nil
		},
	}
	svc := usecases.NewThumbnailService(api, nil, fastThumbnails)

	if _, err := svc.Ensure(context.Background(), "i1"); !errors.Is(err, usecases.ErrNoThumbnailSource) {
		t.Errorf("expected ErrNoThumbnailSource, got %v", err)
	}
}

func TestThumbnailService_EnsureCreatesAndPolls(t *testing.T) {
	var polls atomic.Int32
	var created atomic.Bool
	api := &mockAssetAPI{
		getItemFn: func(ctx context.Context, id string) (*domain.Item, error) {
			// initial lookup, then two polls without a thumbnail
			if polls.Add(1) <= 3 {
				return &domain.Item{ID: id}, nil
			}
			return &domain.Item{ID: id, Thumbnails: []string{"new-thumb"}}, nil
		},
		listItemFilesFn: func(ctx context.Context, itemID string) ([]domain.File, error) {
			return []domain.File{
				{ID: "meta", Exts: []string{"json"}},
				{ID: "img", Exts: []string{"ome", "TIF"}},
				{ID: "png", Exts: []string{"png"}},
			}, nil
		},
		createThumbnailFn: func(ctx context.Context, fileID, itemID string, width, height int) error {
			if fileID != "img" || itemID != "i1" || width != 100 || height != 100 {
				t.Errorf("unexpected thumbnail request %s %s %dx%d", fileID, itemID, width, height)
			}
			created.Store(true)
			return nil
		},
	}
	svc := usecases.NewThumbnailService(api, nil, fastThumbnails)

	id, err := svc.Ensure(context.Background(), "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "new-thumb" {
		t.Errorf("expected new-thumb, got %s", id)
	}
	if !created.Load() {
		t.Error("expected a thumbnail to be requested")
	}
	if polls.Load() != 4 {
		t.Errorf("expected 4 item lookups, got %d", polls.Load())
	}
}

func TestThumbnailService_EnsureHonoursContext(t *testing.T) {
	api := &mockAssetAPI{
		listItemFilesFn: func(ctx context.Context, itemID string) ([]domain.File, error) {
			return []domain.File{{ID: "img", Exts: []string{"png"}}}, nil
		},
	}
	svc := usecases.NewThumbnailService(api, nil, fastThumbnails)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.Ensure(ctx, "i1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

type mockScheduler struct {
	scheduled []string
}

func (m *mockScheduler) ScheduleThumbnail(ctx context.Context, itemID string) (string, error) {
	m.scheduled = append(m.scheduled, itemID)
	return "run-" + itemID, nil
}

func TestThumbnailService_Schedule(t *testing.T) {
	sched := &mockScheduler{}
	svc := usecases.NewThumbnailService(&mockAssetAPI{}, sched, fastThumbnails)

	runID, err := svc.Schedule(context.Background(), "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID != "run-i1" || len(sched.scheduled) != 1 {
		t.Errorf("unexpected schedule result %s %v", runID, sched.scheduled)
	}

	if _, err := usecases.NewThumbnailService(&mockAssetAPI{}, nil, fastThumbnails).Schedule(context.Background(), "i1"); !errors.Is(err, usecases.ErrNoScheduler) {
		t.Errorf("expected ErrNoScheduler, got %v", err)
	}
}
