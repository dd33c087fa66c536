package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ThumbnailInput is the input for the thumbnail workflow.
type ThumbnailInput struct {
	ItemID       string
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxPolls     int32
}

// ThumbnailWorkflow makes sure an item has a thumbnail: it returns the
// existing one, or requests a render and polls the item until the file is
// attached. It returns the thumbnail file ID.
func ThumbnailWorkflow(ctx workflow.Context, input ThumbnailInput) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting thumbnail workflow", "item", input.ItemID)

	if input.PollInterval <= 0 {
		input.PollInterval = time.Second
	}
	if input.MaxPolls <= 0 {
		input.MaxPolls = 120
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeNoSource, ErrTypeNotFound},
		},
	})

	var existing string
	if err := workflow.ExecuteActivity(ctx, "CheckThumbnail", input.ItemID).Get(ctx, &existing); err != nil {
		return "", err
	}
	if existing != "" {
		logger.Info("Thumbnail already attached", "thumbnail", existing)
		return existing, nil
	}

	if err := workflow.ExecuteActivity(ctx, "RequestThumbnail", input.ItemID).Get(ctx, nil); err != nil {
		return "", err
	}

	if input.InitialDelay > 0 {
		if err := workflow.Sleep(ctx, input.InitialDelay); err != nil {
			return "", err
		}
	}

	// Each retry of AwaitThumbnail is one poll.
	pollCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        input.PollInterval,
			BackoffCoefficient:     1.0,
			MaximumInterval:        input.PollInterval,
			MaximumAttempts:        input.MaxPolls,
			NonRetryableErrorTypes: []string{ErrTypeNotFound},
		},
	})
	var thumbnail string
	if err := workflow.ExecuteActivity(pollCtx, "AwaitThumbnail", input.ItemID).Get(ctx, &thumbnail); err != nil {
		return "", err
	}

	logger.Info("Thumbnail attached", "thumbnail", thumbnail)
	return thumbnail, nil
}
