package main

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/geofacet/internal/adapters/girder"
	temporaladapter "github.com/samirrijal/geofacet/internal/adapters/temporal"
	"github.com/samirrijal/geofacet/internal/core/usecases"
	"github.com/samirrijal/geofacet/internal/pkg/config"
	"github.com/samirrijal/geofacet/internal/pkg/logging"
	"github.com/samirrijal/geofacet/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("geofacet-thumbnailer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	c, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	api := girder.New(girder.Config{
		APIRoot:            cfg.Girder.APIRoot,
		WebRoot:            cfg.Girder.WebRoot,
		FilterInfoEndpoint: cfg.Girder.FilterInfoEndpoint,
		Token:              cfg.Girder.Token,
		Timeout:            cfg.Girder.Timeout,
	})
	thumbnails := usecases.NewThumbnailService(api, nil, usecases.ThumbnailConfig{
		Formats:      cfg.Thumbnails.Formats,
		Width:        cfg.Thumbnails.Width,
		Height:       cfg.Thumbnails.Height,
		InitialDelay: cfg.Thumbnails.InitialDelay,
		PollInterval: cfg.Thumbnails.PollInterval,
	})

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ThumbnailWorkflow)
	w.RegisterActivity(&workflows.ThumbnailActivities{Thumbnails: thumbnails})

	slog.Info("thumbnail worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
