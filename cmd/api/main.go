package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/samirrijal/geofacet/internal/adapters/girder"
	"github.com/samirrijal/geofacet/internal/adapters/http"
	natsadapter "github.com/samirrijal/geofacet/internal/adapters/nats"
	"github.com/samirrijal/geofacet/internal/adapters/postgres"
	temporaladapter "github.com/samirrijal/geofacet/internal/adapters/temporal"
	"github.com/samirrijal/geofacet/internal/adapters/valkey"
	"github.com/samirrijal/geofacet/internal/core/ports"
	"github.com/samirrijal/geofacet/internal/core/usecases"
	"github.com/samirrijal/geofacet/internal/pkg/config"
	"github.com/samirrijal/geofacet/internal/pkg/logging"
	"github.com/samirrijal/geofacet/internal/pkg/metrics"
	"github.com/samirrijal/geofacet/internal/pkg/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load("geofacet-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (saved searches only)
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, saved searches disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
	}

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for the WebSocket relay
	var progress *natsadapter.Subscriber
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		progress = natsadapter.NewSubscriber(natsConn)
	}

	// Durable thumbnail jobs
	var scheduler ports.ThumbnailScheduler
	if cfg.Temporal.Enabled {
		tc, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			slog.Warn("temporal unavailable, async thumbnails disabled", "error", err)
		} else {
			defer tc.Close()
			scheduler = temporaladapter.NewScheduler(tc, cfg.Temporal.TaskQueue, cfg.Thumbnails.InitialDelay, cfg.Thumbnails.PollInterval)
		}
	}

	api := girder.New(girder.Config{
		APIRoot:            cfg.Girder.APIRoot,
		WebRoot:            cfg.Girder.WebRoot,
		FilterInfoEndpoint: cfg.Girder.FilterInfoEndpoint,
		Token:              cfg.Girder.Token,
		Timeout:            cfg.Girder.Timeout,
	})

	// Use cases
	filterCfg := usecases.FilterConfig{
		DefaultStringKeys:  cfg.Filters.DefaultStringKeys,
		DefaultNumericKeys: cfg.Filters.DefaultNumericalKeys,
		TimestampKey:       cfg.Filters.TimestampKey,
	}
	facetSvc := usecases.NewFacetService(api, cacheSvc, cfg.Valkey.CacheTTL)

	heatmapSvc := usecases.NewHeatmapService(api, facetSvc, publisher, filterCfg, usecases.HeatmapConfig{
		SampleLimit:      cfg.Heatmap.SampleLimit,
		BinDecimalPlaces: cfg.Heatmap.BinDecimalPlaces,
		DotPageSize:      cfg.Heatmap.DotPageSize,
		DotLimit:         cfg.Heatmap.DotLimit,
		Radius:           cfg.Heatmap.Radius,
		BlurRadius:       cfg.Heatmap.BlurRadius,
	})
	heatmapSvc.Start(ctx)

	searchSvc := usecases.NewSearchService(api, facetSvc, publisher, filterCfg, usecases.SearchConfig{
		Limit:       cfg.Search.Limit,
		SampleLimit: cfg.Search.SampleLimit,
		SessionTTL:  cfg.Search.SessionTTL,
	})
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		searchSvc.RunReaper(ctx, cfg.Search.ReapInterval)
	}()
	metrics.RegisterActiveSessions(searchSvc.Len)

	thumbnailSvc := usecases.NewThumbnailService(api, scheduler, usecases.ThumbnailConfig{
		Formats:      cfg.Thumbnails.Formats,
		Width:        cfg.Thumbnails.Width,
		Height:       cfg.Thumbnails.Height,
		InitialDelay: cfg.Thumbnails.InitialDelay,
		PollInterval: cfg.Thumbnails.PollInterval,
	})

	var savedSvc *usecases.SavedSearchService
	if db != nil {
		savedSvc = usecases.NewSavedSearchService(postgres.NewSavedSearchRepo(db), searchSvc)
	}

	deps := &http.Dependencies{
		Heatmap:       heatmapSvc,
		Search:        searchSvc,
		Thumbnails:    thumbnailSvc,
		SavedSearches: savedSvc,
		Assets:        api,
		Progress:      progress,
		DB:            db,
		Cache:         cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "geofacet API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Stop samplers and close open sessions
	cancel()
	heatmapSvc.Wait()
	<-reaperDone

	slog.Info("server stopped")
}
