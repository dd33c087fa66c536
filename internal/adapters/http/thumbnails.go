package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofacet/internal/pkg/metrics"
)

// ThumbnailResponse points at an item's preview image.
type ThumbnailResponse struct {
	ItemID      string `json:"item_id"`
	ThumbnailID string `json:"thumbnail_id"`
	ImagePath   string `json:"image_path"`
	DownloadURL string `json:"download_url"`
}

// ThumbnailHandler makes sure an item has a thumbnail. With ?async=true the
// work is handed to the durable job runner and 202 is returned at once.
func ThumbnailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID := c.Params("id")

		if c.QueryBool("async", false) {
			runID, err := deps.Thumbnails.Schedule(c.UserContext(), itemID)
			if err != nil {
				return serviceError(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"item_id": itemID,
				"run_id":  runID,
			})
		}

		metrics.ThumbnailsRequested.WithLabelValues("inline").Inc()
		thumbID, err := deps.Thumbnails.Ensure(c.UserContext(), itemID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(ThumbnailResponse{
			ItemID:      itemID,
			ThumbnailID: thumbID,
			ImagePath:   "/file/" + thumbID,
			DownloadURL: deps.Assets.FileDownloadURL(thumbID),
		})
	}
}
