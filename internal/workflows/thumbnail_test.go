package workflows_test

import (
	"context"
	"sync/atomic"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
	"github.com/samirrijal/geofacet/internal/workflows"
)

// stubAPI serves a single item whose thumbnail appears once one is created.
type stubAPI struct {
	files     []domain.File
	thumbnail string
	created   atomic.Bool
}

func (s *stubAPI) SearchGeospatial(ctx context.Context, query string, limit, offset int) ([]domain.Item, error) {
	return nil, nil
}
func (s *stubAPI) Distinct(ctx context.Context, field string) ([]any, error) { return nil, nil }
func (s *stubAPI) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	return &domain.Collection{ID: id}, nil
}
func (s *stubAPI) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item := &domain.Item{ID: id}
	if s.thumbnail != "" || s.created.Load() {
		item.Thumbnails = []string{"thumb-" + id}
		if s.thumbnail != "" {
			item.Thumbnails[0] = s.thumbnail
		}
	}
	return item, nil
}
func (s *stubAPI) ListItemFiles(ctx context.Context, itemID string) ([]domain.File, error) {
	return s.files, nil
}
func (s *stubAPI) CreateThumbnail(ctx context.Context, fileID, itemID string, width, height int) error {
	s.created.Store(true)
	return nil
}
func (s *stubAPI) DownloadURL(itemIDs []string) string  { return "" }
func (s *stubAPI) ItemURL(itemID string) string         { return "" }
func (s *stubAPI) FileDownloadURL(fileID string) string { return "" }
func (s *stubAPI) Ping(ctx context.Context) error       { return nil }

func runThumbnailWorkflow(t *testing.T, api *stubAPI) (string, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.ThumbnailWorkflow)
	env.RegisterActivity(&workflows.ThumbnailActivities{
		Thumbnails: usecases.NewThumbnailService(api, nil, usecases.ThumbnailConfig{}),
	})

	env.ExecuteWorkflow(workflows.ThumbnailWorkflow, workflows.ThumbnailInput{ItemID: "i1"})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		return "", err
	}
	var out string
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("workflow result: %v", err)
	}
	return out, nil
}

func TestThumbnailWorkflow_Existing(t *testing.T) {
	api := &stubAPI{thumbnail: "existing"}
	got, err := runThumbnailWorkflow(t, api)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "existing" {
		t.Errorf("expected existing, got %s", got)
	}
	if api.created.Load() {
		t.Error("no thumbnail should be created")
	}
}

func TestThumbnailWorkflow_CreatesThumbnail(t *testing.T) {
	api := &stubAPI{files: []domain.File{{ID: "f1", Exts: []string{"png"}}}}
	got, err := runThumbnailWorkflow(t, api)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "thumb-i1" {
		t.Errorf("expected thumb-i1, got %s", got)
	}
	if !api.created.Load() {
		t.Error("expected a thumbnail to be created")
	}
}

func TestThumbnailWorkflow_NoSource(t *testing.T) {
	api := &stubAPI{files: []domain.File{{ID: "f1", Exts: []string{"txt"}}}}
	if _, err := runThumbnailWorkflow(t, api); err == nil {
		t.Fatal("expected an error for an item without a usable file")
	}
	if api.created.Load() {
		t.Error("no thumbnail should be created")
	}
}
