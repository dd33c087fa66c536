package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
	"github.com/samirrijal/geofacet/internal/pkg/metrics"
)

// Application error types the workflow does not retry.
const (
	ErrTypeNoSource = "NoThumbnailSource"
	ErrTypeNotFound = "ItemNotFound"
	ErrTypeNotReady = "ThumbnailNotReady"
)

// ThumbnailActivities holds the activity implementations for the thumbnail workflow.
type ThumbnailActivities struct {
	Thumbnails *usecases.ThumbnailService
}

// CheckThumbnail returns the item's thumbnail file ID, or "".
func (a *ThumbnailActivities) CheckThumbnail(ctx context.Context, itemID string) (string, error) {
	id, err := a.Thumbnails.Existing(ctx, itemID)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// RequestThumbnail asks the asset API to render a thumbnail for the item.
func (a *ThumbnailActivities) RequestThumbnail(ctx context.Context, itemID string) error {
	if err := a.Thumbnails.Request(ctx, itemID); err != nil {
		return classify(err)
	}
	metrics.ThumbnailsRequested.WithLabelValues("workflow").Inc()
	activity.GetLogger(ctx).Info("Thumbnail requested", "item", itemID)
	return nil
}

// AwaitThumbnail checks once for an attached thumbnail and fails with a
// retryable error while there is none.
func (a *ThumbnailActivities) AwaitThumbnail(ctx context.Context, itemID string) (string, error) {
	id, err := a.Thumbnails.Existing(ctx, itemID)
	if err != nil {
		return "", classify(err)
	}
	if id == "" {
		return "", temporal.NewApplicationError(fmt.Sprintf("item %s has no thumbnail yet", itemID), ErrTypeNotReady)
	}
	return id, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, usecases.ErrNoThumbnailSource):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoSource, err)
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	default:
		return err
	}
}
