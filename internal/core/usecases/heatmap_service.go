package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/ports"
)

// HeatmapConfig controls heatmap sampling.
type HeatmapConfig struct {
	SampleLimit      int
	BinDecimalPlaces int
	DotPageSize      int
	DotLimit         int
	Radius           int
	BlurRadius       int
}

// HeatmapService owns the map-wide heatmap: it samples every item once to
// build the unfiltered bins and the filter panel, and re-samples whenever
// the heatmap filters change.
type HeatmapService struct {
	api       ports.AssetAPI
	facets    *FacetService
	publisher ports.EventPublisher
	cfg       HeatmapConfig
	filters   *FilterState

	base    *Binner
	current *Binner

	mu             sync.Mutex
	runCtx         context.Context
	query          string
	generation     uint64
	cancelCurrent  context.CancelFunc
	baseRunning    bool
	currentRunning bool
	baseStarted    bool
	samplers       sync.WaitGroup
}

// NewHeatmapService creates a new HeatmapService. publisher may be nil.
func NewHeatmapService(api ports.AssetAPI, facets *FacetService, publisher ports.EventPublisher, filterCfg FilterConfig, cfg HeatmapConfig) *HeatmapService {
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 1000
	}
	if cfg.DotPageSize <= 0 {
		cfg.DotPageSize = 50
	}
	if cfg.DotLimit <= 0 {
		cfg.DotLimit = 10000
	}
	return &HeatmapService{
		api:       api,
		facets:    facets,
		publisher: publisher,
		cfg:       cfg,
		filters:   NewFilterState(domain.NewSelectedFilters(), nil, nil, filterCfg),
		base:      NewBinner(cfg.BinDecimalPlaces),
		current:   NewBinner(cfg.BinDecimalPlaces),
		runCtx:    context.Background(),
		query:     "{}",
	}
}

// Filters returns the heatmap's filter panel.
func (s *HeatmapService) Filters() *FilterState { return s.filters }

// Config returns the heatmap rendering settings.
func (s *HeatmapService) Config() HeatmapConfig { return s.cfg }

// Start begins sampling the unfiltered result set in the background. ctx
// bounds the lifetime of every sampler the service starts. Calling Start
// again is a no-op.
func (s *HeatmapService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.baseStarted {
		s.mu.Unlock()
		return
	}
	s.baseStarted = true
	s.baseRunning = true
	s.runCtx = ctx
	s.samplers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.samplers.Done()
		err := sampleAll(ctx, s.cfg.SampleLimit, func(ctx context.Context, offset int) (int, error) {
			items, err := s.api.SearchGeospatial(ctx, "{}", s.cfg.SampleLimit, offset)
			if err != nil {
				return 0, err
			}
			if err := s.facets.Refresh(ctx, s.filters, items); err != nil {
				slog.Warn("heatmap facet refresh failed", "offset", offset, "error", err)
			}
			s.base.Add(items)
			s.publish(ctx, "{}", offset, len(items), false)
			return len(items), nil
		})

		s.mu.Lock()
		s.baseRunning = false
		s.mu.Unlock()

		if err != nil {
			if ctx.Err() == nil {
				slog.Error("heatmap sampling failed", "error", err)
			}
			return
		}
		s.publish(ctx, "{}", 0, 0, true)
		slog.Info("heatmap sampling finished", "items", s.base.Seen(), "bins", len(s.base.Points()))
	}()
}

// FiltersChanged recomputes the heatmap query from the current filters. An
// empty query serves the unfiltered bins; anything else restarts filtered
// sampling. It returns the new encoded query.
func (s *HeatmapService) FiltersChanged(_ context.Context) string {
	q := s.filters.QueryObject().Encode()

	s.mu.Lock()
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
	s.generation++
	gen := s.generation
	s.query = q
	s.current.Reset()
	if q == "{}" {
		s.currentRunning = false
		s.mu.Unlock()
		return q
	}

	ctx, cancel := context.WithCancel(s.runCtx)
	s.cancelCurrent = cancel
	s.currentRunning = true
	s.samplers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.samplers.Done()
		defer cancel()
		err := sampleAll(ctx, s.cfg.SampleLimit, func(ctx context.Context, offset int) (int, error) {
			items, err := s.api.SearchGeospatial(ctx, q, s.cfg.SampleLimit, offset)
			if err != nil {
				return 0, err
			}
			s.mu.Lock()
			if gen != s.generation {
				s.mu.Unlock()
				return 0, context.Canceled
			}
			s.current.Add(items)
			s.mu.Unlock()
			s.publish(ctx, q, offset, len(items), false)
			return len(items), nil
		})

		s.mu.Lock()
		stillCurrent := gen == s.generation
		if stillCurrent {
			s.currentRunning = false
		}
		s.mu.Unlock()

		switch {
		case !stillCurrent || ctx.Err() != nil:
			slog.Debug("filtered heatmap sampling superseded", "query", q)
		case err != nil:
			slog.Error("filtered heatmap sampling failed", "query", q, "error", err)
		default:
			s.publish(ctx, q, 0, 0, true)
		}
	}()
	return q
}

// Points returns the bins for the current query and the sampling status.
func (s *HeatmapService) Points() domain.Heatmap {
	s.mu.Lock()
	q := s.query
	status := domain.HeatmapStatus{
		Query:           q,
		BaseSampling:    s.baseRunning,
		CurrentSampling: s.currentRunning,
	}
	s.mu.Unlock()

	status.BaseItemsSeen = s.base.Seen()
	status.CurrentItemsSeen = s.current.Seen()

	points := s.base.Points()
	if q != "{}" {
		points = s.current.Points()
	}
	return domain.Heatmap{Points: points, Status: status}
}

// Dots returns one representative position per item inside region that
// matches the heatmap filters. Items located at [0, 0] are omitted.
func (s *HeatmapService) Dots(ctx context.Context, region domain.Region) ([][2]float64, error) {
	geo, err := GeoQuery(region)
	if err != nil {
		return nil, err
	}
	q := Merge(s.filters.QueryObject(), geo).Encode()

	var dots [][2]float64
	for offset := 0; len(dots) < s.cfg.DotLimit; offset += s.cfg.DotPageSize {
		items, err := s.api.SearchGeospatial(ctx, q, s.cfg.DotPageSize, offset)
		if err != nil {
			return nil, err
		}
		if Merge(s.filters.QueryObject(), geo).Encode() != q {
			return nil, ErrStaleResponse
		}
		dots = append(dots, positions(items)...)
		if len(items) < s.cfg.DotPageSize {
			break
		}
	}
	if len(dots) > s.cfg.DotLimit {
		dots = dots[:s.cfg.DotLimit]
	}
	return dots, nil
}

// Wait blocks until every sampler started so far has exited.
func (s *HeatmapService) Wait() {
	s.samplers.Wait()
}

func (s *HeatmapService) publish(ctx context.Context, q string, offset, fetched int, done bool) {
	if s.publisher == nil {
		return
	}
	bins := len(s.base.Points())
	if q != "{}" {
		bins = len(s.current.Points())
	}
	p := &domain.SampleProgress{
		Scope:   "heatmap",
		Query:   q,
		Offset:  offset,
		Fetched: fetched,
		Bins:    bins,
		Done:    done,
	}
	if err := s.publisher.PublishSampleProgress(ctx, p); err != nil {
		slog.Debug("publish heatmap progress failed", "error", err)
	}
}
