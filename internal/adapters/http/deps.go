package http

import (
	natsadapter "github.com/samirrijal/geofacet/internal/adapters/nats"
	"github.com/samirrijal/geofacet/internal/adapters/postgres"
	"github.com/samirrijal/geofacet/internal/adapters/valkey"
	"github.com/samirrijal/geofacet/internal/core/ports"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Heatmap       *usecases.HeatmapService
	Search        *usecases.SearchService
	Thumbnails    *usecases.ThumbnailService
	SavedSearches *usecases.SavedSearchService
	Assets        ports.AssetAPI
	Progress      *natsadapter.Subscriber
	DB            *postgres.DB
	Cache         *valkey.Cache
}
