package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

func resultsAPI() *mockAssetAPI {
	return &mockAssetAPI{
		searchFn: func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
			if limit == 1000 {
				// geo-only sampling
				if offset > 0 {
					return nil, nil
				}
				return sampleItems(), nil
			}
			return []domain.Item{
				{
					ID:         "i1",
					Name:       "scene-1",
					Meta:       map[string]any{"sensorModality": "EO", "timeInMilliseconds": 1500000000.0},
					Thumbnails: []string{"t1"},
				},
				{ID: "i2", Name: "no-meta"},
			}, nil
		},
	}
}

func newSearchService(api *mockAssetAPI) *usecases.SearchService {
	facets := usecases.NewFacetService(api, nil, 60)
	return usecases.NewSearchService(api, facets, nil, testFilterConfig, usecases.SearchConfig{Limit: 50, SampleLimit: 1000})
}

func TestSearchService_Open(t *testing.T) {
	api := resultsAPI()
	svc := newSearchService(api)

	selected := domain.NewSelectedFilters()
	selected.Values["platform"] = []string{"A"}

	sess, page, err := svc.Open(context.Background(), polygonRegion(), selected, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close(sess.ID())

	if page.SessionID != sess.ID() || page.Offset != 0 || page.Limit != 50 {
		t.Errorf("unexpected page header %+v", page)
	}
	if !strings.Contains(page.Query, `"meta.platform":{"$in":["A"]}`) || !strings.Contains(page.Query, "$geoIntersects") {
		t.Errorf("expected filter and geo parts in query, got %s", page.Query)
	}
	if page.Range != "Showing results 1 - 2" {
		t.Errorf("unexpected range %q", page.Range)
	}

	if len(page.Rows) != 1 {
		t.Fatalf("expected only items with metadata, got %d rows", len(page.Rows))
	}
	row := page.Rows[0]
	if row.Index != 1 || row.ID != "i1" || row.SensorModality != "EO" {
		t.Errorf("unexpected row %+v", row)
	}
	if row.Timestamp != "2017-07-14T02:40:00Z" {
		t.Errorf("unexpected timestamp %q", row.Timestamp)
	}
	if row.ImagePath != "/file/t1" || row.ThumbnailID != "t1" {
		t.Errorf("expected thumbnail image path, got %+v", row)
	}
	if row.ViewURL != "http://girder/#item/i1" {
		t.Errorf("unexpected view url %q", row.ViewURL)
	}

	sess.Wait()
	if sess.Sampling() {
		t.Error("expected sampling to be finished")
	}
	if got := findFacet(t, sess.Filters().View(), "platform"); len(got.Values) == 0 {
		t.Error("expected session filters fed by sampling")
	}
	for _, c := range api.calls() {
		if c.limit == 1000 && strings.Contains(c.query, "meta.") {
			t.Errorf("sampling must ignore metadata filters, got %s", c.query)
		}
	}
}

func TestSearchService_OpenInvalidRegion(t *testing.T) {
	svc := newSearchService(resultsAPI())
	_, _, err := svc.Open(context.Background(), domain.Region{}, domain.NewSelectedFilters(), nil, nil)
	if !errors.Is(err, usecases.ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
	if svc.Len() != 0 {
		t.Errorf("expected no open sessions, got %d", svc.Len())
	}
}

func TestSearchService_OpenFirstPageError(t *testing.T) {
	api := &mockAssetAPI{
		searchFn: func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newSearchService(api)
	if _, _, err := svc.Open(context.Background(), polygonRegion(), domain.NewSelectedFilters(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if svc.Len() != 0 {
		t.Errorf("expected failed session to be dropped, got %d", svc.Len())
	}
}

func TestResultsSession_Paging(t *testing.T) {
	api := resultsAPI()
	svc := newSearchService(api)
	sess, _, err := svc.Open(context.Background(), polygonRegion(), domain.NewSelectedFilters(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close(sess.ID())

	page, err := sess.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Offset != 50 || page.Range != "Showing results 51 - 52" || page.Rows[0].Index != 51 {
		t.Errorf("unexpected next page %+v", page)
	}

	page, err = sess.Prev(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Offset != 0 {
		t.Errorf("expected offset 0, got %d", page.Offset)
	}

	page, err = sess.Prev(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Offset != 0 {
		t.Errorf("expected offset floored at 0, got %d", page.Offset)
	}

	if _, err := sess.Seek(context.Background(), 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err = sess.FiltersChanged(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Offset != 0 {
		t.Errorf("expected filter change to reset offset, got %d", page.Offset)
	}
}

func TestResultsSession_StaleResponses(t *testing.T) {
	var sess *usecases.ResultsSession
	var changeFilters atomic.Bool

	api := resultsAPI()
	base := api.searchFn
	api.searchFn = func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
		if limit == 50 && changeFilters.Load() {
			changeFilters.Store(false)
			sess.Filters().Toggle("platform", "B", true)
		}
		return base(ctx, q, limit, offset)
	}

	svc := newSearchService(api)
	var err error
	sess, _, err = svc.Open(context.Background(), polygonRegion(), domain.NewSelectedFilters(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changeFilters.Store(true)
	if _, err := sess.Page(context.Background()); !errors.Is(err, usecases.ErrStaleResponse) {
		t.Errorf("expected ErrStaleResponse after query change, got %v", err)
	}

	if err := svc.Close(sess.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := sess.Page(context.Background()); !errors.Is(err, usecases.ErrStaleResponse) {
		t.Errorf("expected ErrStaleResponse on closed session, got %v", err)
	}
}

func TestResultsSession_DownloadURL(t *testing.T) {
	svc := newSearchService(resultsAPI())
	sess, _, err := svc.Open(context.Background(), polygonRegion(), domain.NewSelectedFilters(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close(sess.ID())

	if got := sess.DownloadURL(); got != "http://girder/api/v1/resource/download?items=i1,i2" {
		t.Errorf("expected every item of the page, got %s", got)
	}
}

func TestSearchService_GetAndClose(t *testing.T) {
	svc := newSearchService(resultsAPI())
	sess, _, err := svc.Open(context.Background(), polygonRegion(), domain.NewSelectedFilters(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(sess.ID())
	if err != nil || got != sess {
		t.Fatalf("expected session back, got %v %v", got, err)
	}

	if err := svc.Close(sess.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Active() {
		t.Error("expected closed session to be inactive")
	}
	if _, err := svc.Get(sess.ID()); !errors.Is(err, usecases.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Close(sess.ID()); !errors.Is(err, usecases.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second close, got %v", err)
	}
	sess.Wait()
}
