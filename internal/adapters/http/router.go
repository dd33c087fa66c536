package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geofacet/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// Dot lookups and inline thumbnail generation page through or poll the asset API.
	longRequestTimeout = 60 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, ready bounds its own checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Map heatmap
	v1.Get("/heatmap", HeatmapHandler(deps))
	v1.Get("/heatmap/export.html", HeatmapExportHandler(deps))
	v1.Post("/heatmap/dots", timeout.NewWithContext(HeatmapDotsHandler(deps), longRequestTimeout))
	registerFilterRoutes(v1.Group("/heatmap"), heatmapScope(deps))

	// Results sessions
	v1.Post("/searches", timeout.NewWithContext(OpenSearchHandler(deps), requestTimeout))
	v1.Get("/searches/:id", GetSearchHandler(deps))
	v1.Delete("/searches/:id", CloseSearchHandler(deps))
	v1.Get("/searches/:id/results", timeout.NewWithContext(SearchResultsHandler(deps), requestTimeout))
	v1.Post("/searches/:id/next", timeout.NewWithContext(NextPageHandler(deps), requestTimeout))
	v1.Post("/searches/:id/prev", timeout.NewWithContext(PrevPageHandler(deps), requestTimeout))
	v1.Get("/searches/:id/download", SearchDownloadHandler(deps))
	registerFilterRoutes(v1.Group("/searches/:id"), sessionScope(deps))

	// Thumbnails
	v1.Post("/items/:id/thumbnail", timeout.NewWithContext(ThumbnailHandler(deps), longRequestTimeout))

	// Saved searches
	v1.Post("/saved-searches", timeout.NewWithContext(CreateSavedSearchHandler(deps), requestTimeout))
	v1.Get("/saved-searches", timeout.NewWithContext(ListSavedSearchesHandler(deps), requestTimeout))
	v1.Get("/saved-searches/:id", timeout.NewWithContext(GetSavedSearchHandler(deps), requestTimeout))
	v1.Delete("/saved-searches/:id", timeout.NewWithContext(DeleteSavedSearchHandler(deps), requestTimeout))
	v1.Post("/saved-searches/:id/run", timeout.NewWithContext(RunSavedSearchHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket progress relay
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.Progress)))
}
