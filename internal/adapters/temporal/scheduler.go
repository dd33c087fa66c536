package temporaladapter

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/geofacet/internal/workflows"
)

// Scheduler implements ports.ThumbnailScheduler by starting thumbnail
// workflows on a Temporal task queue.
type Scheduler struct {
	client       client.Client
	taskQueue    string
	initialDelay time.Duration
	pollInterval time.Duration
}

// NewScheduler creates a Scheduler.
func NewScheduler(c client.Client, taskQueue string, initialDelay, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		client:       c,
		taskQueue:    taskQueue,
		initialDelay: initialDelay,
		pollInterval: pollInterval,
	}
}

// Dial connects to a Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial: %w", err)
	}
	return c, nil
}

// ScheduleThumbnail starts a thumbnail workflow for itemID. A workflow
// already running for the same item is reused.
func (s *Scheduler) ScheduleThumbnail(ctx context.Context, itemID string) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:                       WorkflowID(itemID),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: 10 * time.Minute,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, workflows.ThumbnailWorkflow, workflows.ThumbnailInput{
		ItemID:       itemID,
		InitialDelay: s.initialDelay,
		PollInterval: s.pollInterval,
	})
	if err != nil {
		return "", fmt.Errorf("start thumbnail workflow: %w", err)
	}
	return run.GetRunID(), nil
}

// WorkflowID is the workflow ID used for an item's thumbnail.
func WorkflowID(itemID string) string {
	return "thumbnail-" + itemID
}
