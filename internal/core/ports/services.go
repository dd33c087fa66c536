package ports

import (
	"context"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// AssetAPI is the subset of the asset-management REST API the service uses.
type AssetAPI interface {
	// SearchGeospatial runs a geospatial item search with a JSON-encoded query.
	SearchGeospatial(ctx context.Context, query string, limit, offset int) ([]domain.Item, error)
	// Distinct returns the distinct values of field across all items.
	Distinct(ctx context.Context, field string) ([]any, error)
	GetCollection(ctx context.Context, id string) (*domain.Collection, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	ListItemFiles(ctx context.Context, itemID string) ([]domain.File, error)
	CreateThumbnail(ctx context.Context, fileID, itemID string, width, height int) error
	// DownloadURL builds a bulk download link for the given items.
	DownloadURL(itemIDs []string) string
	// ItemURL builds the web UI link for an item.
	ItemURL(itemID string) string
	// FileDownloadURL builds the download link of a single file.
	FileDownloadURL(fileID string) string
	Ping(ctx context.Context) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSampleProgress(ctx context.Context, p *domain.SampleProgress) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ThumbnailScheduler hands thumbnail generation to a durable job runner.
type ThumbnailScheduler interface {
	ScheduleThumbnail(ctx context.Context, itemID string) (runID string, err error)
}
