package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/ports"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

const filteredPlatformA = `{"meta.platform":{"$in":["A"]}}`

func heatmapAPI() *mockAssetAPI {
	return &mockAssetAPI{
		searchFn: func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
			if offset > 0 {
				return nil, nil
			}
			switch q {
			case "{}":
				return []domain.Item{
					pointItem("1", 1.234, 5.678, map[string]any{"platform": "A"}),
					pointItem("2", 1.2349, 5.6801, map[string]any{"platform": "B"}),
					pointItem("3", 10, 10, map[string]any{"platform": "B"}),
				}, nil
			case filteredPlatformA:
				return []domain.Item{
					pointItem("1", 1.234, 5.678, map[string]any{"platform": "A"}),
				}, nil
			}
			return nil, nil
		},
	}
}

func newHeatmap(api *mockAssetAPI, pub ports.EventPublisher) *usecases.HeatmapService {
	facets := usecases.NewFacetService(api, nil, 60)
	return usecases.NewHeatmapService(api, facets, pub, testFilterConfig, usecases.HeatmapConfig{SampleLimit: 100, BinDecimalPlaces: 2})
}

func TestHeatmapService_StartBuildsUnfilteredBins(t *testing.T) {
	api := heatmapAPI()
	pub := &mockPublisher{}
	hm := newHeatmap(api, pub)

	hm.Start(context.Background())
	hm.Wait()

	heat := hm.Points()
	if heat.Status.Query != "{}" {
		t.Errorf("expected unfiltered query, got %s", heat.Status.Query)
	}
	if heat.Status.BaseSampling {
		t.Error("expected base sampling to be finished")
	}
	if heat.Status.BaseItemsSeen != 3 {
		t.Errorf("expected 3 items seen, got %d", heat.Status.BaseItemsSeen)
	}
	if len(heat.Points) != 2 {
		t.Fatalf("expected 2 bins, got %d", len(heat.Points))
	}

	platform := findFacet(t, hm.Filters().View(), "platform")
	if len(platform.Values) == 0 {
		t.Error("expected heatmap filters to be fed by sampling")
	}

	events := pub.snapshot()
	if len(events) < 2 || !events[len(events)-1].Done || events[0].Scope != "heatmap" {
		t.Errorf("expected progress then done events, got %+v", events)
	}
}

func TestHeatmapService_FiltersChanged(t *testing.T) {
	api := heatmapAPI()
	hm := newHeatmap(api, nil)
	hm.Start(context.Background())
	hm.Wait()

	hm.Filters().Toggle("platform", "A", true)
	if q := hm.FiltersChanged(context.Background()); q != filteredPlatformA {
		t.Fatalf("expected %s, got %s", filteredPlatformA, q)
	}
	hm.Wait()

	heat := hm.Points()
	if heat.Status.Query != filteredPlatformA {
		t.Errorf("unexpected status query %s", heat.Status.Query)
	}
	if heat.Status.CurrentSampling {
		t.Error("expected filtered sampling to be finished")
	}
	if len(heat.Points) != 1 || heat.Points[0].I != 1 {
		t.Errorf("expected a single filtered bin, got %+v", heat.Points)
	}

	hm.Filters().Toggle("platform", "A", false)
	if q := hm.FiltersChanged(context.Background()); q != "{}" {
		t.Fatalf("expected empty query, got %s", q)
	}
	if got := hm.Points(); len(got.Points) != 2 {
		t.Errorf("expected unfiltered bins restored, got %+v", got.Points)
	}
}

func TestHeatmapService_FiltersChangedSupersedesRunningSampler(t *testing.T) {
	release := make(chan struct{})
	api := &mockAssetAPI{
		searchFn: func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
			if q == filteredPlatformA {
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				return []domain.Item{pointItem("1", 1, 1, nil)}, nil
			}
			return []domain.Item{pointItem("2", 2, 2, nil)}, nil
		},
	}
	hm := newHeatmap(api, nil)

	hm.Filters().Toggle("platform", "A", true)
	hm.FiltersChanged(context.Background())

	hm.Filters().Toggle("platform", "A", false)
	hm.Filters().Toggle("platform", "B", true)
	hm.FiltersChanged(context.Background())
	close(release)
	hm.Wait()

	heat := hm.Points()
	if heat.Status.Query != `{"meta.platform":{"$in":["B"]}}` {
		t.Errorf("unexpected query %s", heat.Status.Query)
	}
	if len(heat.Points) != 1 || heat.Points[0].C != [2]float64{2, 2} {
		t.Errorf("expected only bins of the current query, got %+v", heat.Points)
	}
}

func TestHeatmapService_Dots(t *testing.T) {
	api := &mockAssetAPI{
		searchFn: func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
			if limit != 50 {
				t.Errorf("expected dot page size 50, got %d", limit)
			}
			if offset > 0 {
				return nil, nil
			}
			items := make([]domain.Item, 0, 50)
			for i := 0; i < 48; i++ {
				items = append(items, pointItem("p", 3, 4, nil))
			}
			items = append(items, pointItem("meridian", 0, 4, nil), pointItem("equator", 3, 0, nil))
			return items, nil
		},
	}
	hm := newHeatmap(api, nil)

	dots, err := hm.Dots(context.Background(), polygonRegion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dots) != 48 {
		t.Errorf("expected 48 dots without the zero-axis items, got %d", len(dots))
	}
	if calls := api.calls(); len(calls) != 2 || calls[1].offset != 50 {
		t.Errorf("expected a second page at offset 50, got %+v", calls)
	}
}

func TestHeatmapService_DotsInvalidRegion(t *testing.T) {
	hm := newHeatmap(&mockAssetAPI{}, nil)
	if _, err := hm.Dots(context.Background(), domain.Region{}); !errors.Is(err, usecases.ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
}
