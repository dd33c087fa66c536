package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/ports"
)

// ThumbnailConfig controls thumbnail generation.
type ThumbnailConfig struct {
	Formats      []string
	Width        int
	Height       int
	InitialDelay time.Duration
	PollInterval time.Duration
}

// ThumbnailService makes sure result items have a preview image.
type ThumbnailService struct {
	api       ports.AssetAPI
	scheduler ports.ThumbnailScheduler
	cfg       ThumbnailConfig
}

// NewThumbnailService creates a new ThumbnailService. scheduler may be nil,
// in which case Schedule is unavailable.
func NewThumbnailService(api ports.AssetAPI, scheduler ports.ThumbnailScheduler, cfg ThumbnailConfig) *ThumbnailService {
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{"png", "tif", "tiff"}
	}
	if cfg.Width <= 0 {
		cfg.Width = 100
	}
	if cfg.Height <= 0 {
		cfg.Height = 100
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &ThumbnailService{api: api, scheduler: scheduler, cfg: cfg}
}

// Ensure returns the thumbnail file ID of an item, generating one first if
// needed. It blocks until the thumbnail is attached or ctx ends.
func (s *ThumbnailService) Ensure(ctx context.Context, itemID string) (string, error) {
	existing, err := s.Existing(ctx, itemID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	if err := s.Request(ctx, itemID); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.cfg.InitialDelay):
	}
	return s.Await(ctx, itemID)
}

// Request picks a source file for itemID and asks the asset API to render
// a thumbnail from it.
func (s *ThumbnailService) Request(ctx context.Context, itemID string) error {
	files, err := s.api.ListItemFiles(ctx, itemID)
	if err != nil {
		return fmt.Errorf("list item files: %w", err)
	}
	src := s.SourceFile(files)
	if src == nil {
		return ErrNoThumbnailSource
	}
	if err := s.api.CreateThumbnail(ctx, src.ID, itemID, s.cfg.Width, s.cfg.Height); err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	slog.Debug("thumbnail requested", "item", itemID, "file", src.ID)
	return nil
}

// Existing returns the item's thumbnail file ID, or "" if it has none yet.
func (s *ThumbnailService) Existing(ctx context.Context, itemID string) (string, error) {
	item, err := s.api.GetItem(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("get item: %w", err)
	}
	if item.HasThumbnail() {
		return item.Thumbnails[0], nil
	}
	return "", nil
}

// Await polls the item until a thumbnail is attached or ctx ends.
func (s *ThumbnailService) Await(ctx context.Context, itemID string) (string, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		item, err := s.api.GetItem(ctx, itemID)
		if err != nil {
			return "", fmt.Errorf("poll item: %w", err)
		}
		if item.HasThumbnail() {
			return item.Thumbnails[0], nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// Schedule hands thumbnail generation to the durable job runner and returns
// its run ID.
func (s *ThumbnailService) Schedule(ctx context.Context, itemID string) (string, error) {
	if s.scheduler == nil {
		return "", ErrNoScheduler
	}
	return s.scheduler.ScheduleThumbnail(ctx, itemID)
}

// SourceFile returns the first file whose last extension is a thumbnail
// format, or nil.
func (s *ThumbnailService) SourceFile(files []domain.File) *domain.File {
	for i := range files {
		exts := files[i].Exts
		if len(exts) == 0 {
			continue
		}
		last := strings.ToLower(exts[len(exts)-1])
		for _, f := range s.cfg.Formats {
			if last == f {
				return &files[i]
			}
		}
	}
	return nil
}
