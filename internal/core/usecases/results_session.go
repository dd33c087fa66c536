package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

const sensorModalityKey = "sensorModality"

// ResultsSession is one region search: a paginated result table with its own
// filter panel, fed by a background geo-only sampler.
type ResultsSession struct {
	id      string
	region  domain.Region
	geo     Query
	filters *FilterState
	svc     *SearchService

	mu       sync.Mutex
	offset   int
	active   bool
	sampling bool
	lastUsed time.Time
	items    []domain.Item
	cancel   context.CancelFunc
	done     chan struct{}
}

// ID returns the session identifier.
func (r *ResultsSession) ID() string { return r.id }

// Region returns the searched region.
func (r *ResultsSession) Region() domain.Region { return r.region }

// Filters returns the session's filter panel.
func (r *ResultsSession) Filters() *FilterState { return r.filters }

// Offset returns the current page offset.
func (r *ResultsSession) Offset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}

// Sampling reports whether the background sampler is still running.
func (r *ResultsSession) Sampling() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sampling
}

// Active reports whether the session is still open.
func (r *ResultsSession) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// QueryString returns the encoded query for the current filters and region.
func (r *ResultsSession) QueryString() string {
	return Merge(r.filters.QueryObject(), r.geo).Encode()
}

// Page fetches the page at the current offset. The response is discarded
// with ErrStaleResponse if the session was closed, or its query or offset
// changed while the request was in flight.
func (r *ResultsSession) Page(ctx context.Context) (*domain.ResultsPage, error) {
	q := r.QueryString()
	r.mu.Lock()
	offset := r.offset
	r.lastUsed = r.svc.now()
	r.mu.Unlock()

	limit := r.svc.cfg.Limit
	items, err := r.svc.api.SearchGeospatial(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search page at offset %d: %w", offset, err)
	}

	current := r.QueryString()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || current != q || r.offset != offset {
		slog.Debug("discarding stale results page", "session", r.id, "offset", offset)
		return nil, ErrStaleResponse
	}
	r.items = items

	return &domain.ResultsPage{
		SessionID: r.id,
		Offset:    offset,
		Limit:     limit,
		Query:     q,
		Range:     rangeLabel(offset, len(items)),
		Rows:      r.svc.rows(items, offset),
		Items:     items,
	}, nil
}

// Next advances one page and fetches it.
func (r *ResultsSession) Next(ctx context.Context) (*domain.ResultsPage, error) {
	r.mu.Lock()
	r.offset += r.svc.cfg.Limit
	r.mu.Unlock()
	return r.Page(ctx)
}

// Prev goes back one page, never below zero, and fetches it.
func (r *ResultsSession) Prev(ctx context.Context) (*domain.ResultsPage, error) {
	r.mu.Lock()
	r.offset -= r.svc.cfg.Limit
	if r.offset < 0 {
		r.offset = 0
	}
	r.mu.Unlock()
	return r.Page(ctx)
}

// Seek moves to offset and fetches that page.
func (r *ResultsSession) Seek(ctx context.Context, offset int) (*domain.ResultsPage, error) {
	if offset < 0 {
		offset = 0
	}
	r.mu.Lock()
	r.offset = offset
	r.mu.Unlock()
	return r.Page(ctx)
}

// FiltersChanged resets to the first page and fetches it.
func (r *ResultsSession) FiltersChanged(ctx context.Context) (*domain.ResultsPage, error) {
	return r.Seek(ctx, 0)
}

// DownloadURL returns a bulk download link for the items of the last page.
func (r *ResultsSession) DownloadURL() string {
	r.mu.Lock()
	ids := make([]string, len(r.items))
	for i, it := range r.items {
		ids[i] = it.ID
	}
	r.mu.Unlock()
	return r.svc.api.DownloadURL(ids)
}

// Close deactivates the session and stops its sampler.
func (r *ResultsSession) Close() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	r.items = nil
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the background sampler has exited.
func (r *ResultsSession) Wait() {
	<-r.done
}

func (r *ResultsSession) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}

func (r *ResultsSession) touch() {
	r.mu.Lock()
	r.lastUsed = r.svc.now()
	r.mu.Unlock()
}

// sample walks the geo-only result set and feeds every page into the
// session's filter panel.
func (r *ResultsSession) sample(ctx context.Context) {
	defer close(r.done)
	limit := r.svc.cfg.SampleLimit
	q := r.geo.Encode()

	err := sampleAll(ctx, limit, func(ctx context.Context, offset int) (int, error) {
		items, err := r.svc.api.SearchGeospatial(ctx, q, limit, offset)
		if err != nil {
			return 0, err
		}
		if !r.Active() {
			return 0, context.Canceled
		}
		if err := r.svc.facets.Refresh(ctx, r.filters, items); err != nil {
			slog.Warn("session facet refresh failed", "session", r.id, "offset", offset, "error", err)
		}
		r.svc.publish(ctx, r.id, q, offset, len(items), false)
		return len(items), nil
	})

	r.mu.Lock()
	r.sampling = false
	r.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil && r.Active() {
			slog.Error("session sampling failed", "session", r.id, "error", err)
		}
		return
	}
	r.svc.publish(ctx, r.id, q, 0, 0, true)
	slog.Debug("session sampling finished", "session", r.id)
}

func rangeLabel(offset, n int) string {
	return fmt.Sprintf("Showing results %d - %d", offset+1, offset+n)
}
