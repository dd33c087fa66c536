package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

// --- Mock AssetAPI ---

type searchCall struct {
	query  string
	limit  int
	offset int
}

type mockAssetAPI struct {
	searchFn          func(ctx context.Context, q string, limit, offset int) ([]domain.Item, error)
	distinctFn        func(ctx context.Context, field string) ([]any, error)
	getCollectionFn   func(ctx context.Context, id string) (*domain.Collection, error)
	getItemFn         func(ctx context.Context, id string) (*domain.Item, error)
	listItemFilesFn   func(ctx context.Context, itemID string) ([]domain.File, error)
	createThumbnailFn func(ctx context.Context, fileID, itemID string, width, height int) error

	mu            sync.Mutex
	searches      []searchCall
	distinctCalls []string
}

func (m *mockAssetAPI) SearchGeospatial(ctx context.Context, q string, limit, offset int) ([]domain.Item, error) {
	m.mu.Lock()
	m.searches = append(m.searches, searchCall{query: q, limit: limit, offset: offset})
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, q, limit, offset)
	}
	return nil, nil
}

func (m *mockAssetAPI) Distinct(ctx context.Context, field string) ([]any, error) {
	m.mu.Lock()
	m.distinctCalls = append(m.distinctCalls, field)
	m.mu.Unlock()
	if m.distinctFn != nil {
		return m.distinctFn(ctx, field)
	}
	return []any{}, nil
}

func (m *mockAssetAPI) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	if m.getCollectionFn != nil {
		return m.getCollectionFn(ctx, id)
	}
	return nil, errors.New("not found")
}

func (m *mockAssetAPI) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, id)
	}
	return &domain.Item{ID: id}, nil
}

func (m *mockAssetAPI) ListItemFiles(ctx context.Context, itemID string) ([]domain.File, error) {
	if m.listItemFilesFn != nil {
		return m.listItemFilesFn(ctx, itemID)
	}
	return nil, nil
}

func (m *mockAssetAPI) CreateThumbnail(ctx context.Context, fileID, itemID string, width, height int) error {
	if m.createThumbnailFn != nil {
		return m.createThumbnailFn(ctx, fileID, itemID, width, height)
	}
	return nil
}

func (m *mockAssetAPI) DownloadURL(itemIDs []string) string {
	return "http://girder/api/v1/resource/download?items=" + strings.Join(itemIDs, ",")
}

func (m *mockAssetAPI) ItemURL(itemID string) string {
	return "http://girder/#item/" + itemID
}

func (m *mockAssetAPI) FileDownloadURL(fileID string) string {
	return "http://girder/api/v1/file/" + fileID + "/download"
}

func (m *mockAssetAPI) Ping(ctx context.Context) error { return nil }

func (m *mockAssetAPI) calls() []searchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]searchCall(nil), m.searches...)
}

func (m *mockAssetAPI) distinctFields() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.distinctCalls...)
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SampleProgress
}

func (m *mockPublisher) PublishSampleProgress(ctx context.Context, p *domain.SampleProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *p)
	return nil
}

func (m *mockPublisher) snapshot() []domain.SampleProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SampleProgress(nil), m.events...)
}

// --- helpers ---

var testFilterConfig = usecases.FilterConfig{
	DefaultStringKeys:  []string{"platform", "sensorModality"},
	DefaultNumericKeys: []string{"frame_data.sensor_altitude"},
	TimestampKey:       "timeInMilliseconds",
}

func pointItem(id string, lon, lat float64, meta map[string]any) domain.Item {
	return domain.Item{
		ID:           id,
		Name:         "item-" + id,
		BaseParentID: "c1",
		Meta:         meta,
		Geo: &domain.ItemGeo{Geometry: &domain.Geometry{
			Type:        "Point",
			Coordinates: []byte(fmt.Sprintf("[%v,%v]", lon, lat)),
		}},
	}
}

func polygonRegion() domain.Region {
	return domain.Region{Geometry: &domain.Geometry{
		Type:        "Polygon",
		Coordinates: []byte(`[[[0,0],[1,0],[1,1],[0,0]]]`),
	}}
}
