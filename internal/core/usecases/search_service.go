package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/ports"
)

// SearchConfig controls results sessions.
type SearchConfig struct {
	Limit       int
	SampleLimit int
	SessionTTL  time.Duration
}

// SearchService is the registry of open results sessions.
type SearchService struct {
	api       ports.AssetAPI
	facets    *FacetService
	publisher ports.EventPublisher
	filterCfg FilterConfig
	cfg       SearchConfig
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*ResultsSession
}

// NewSearchService creates a new SearchService. publisher may be nil.
func NewSearchService(api ports.AssetAPI, facets *FacetService, publisher ports.EventPublisher, filterCfg FilterConfig, cfg SearchConfig) *SearchService {
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 1000
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	return &SearchService{
		api:       api,
		facets:    facets,
		publisher: publisher,
		filterCfg: filterCfg,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*ResultsSession),
	}
}

// Open starts a results session for region. The session's filter panel
// starts from a copy of selected and the given visible keys; nil key lists
// use the defaults. The first page is returned along with the session.
func (s *SearchService) Open(ctx context.Context, region domain.Region, selected domain.SelectedFilters, stringKeys, numericKeys []string) (*ResultsSession, *domain.ResultsPage, error) {
	geo, err := GeoQuery(region)
	if err != nil {
		return nil, nil, err
	}

	sampleCtx, cancel := context.WithCancel(context.Background())
	sess := &ResultsSession{
		id:       uuid.NewString(),
		region:   region,
		geo:      geo,
		filters:  NewFilterState(selected, stringKeys, numericKeys, s.filterCfg),
		svc:      s,
		active:   true,
		sampling: true,
		lastUsed: s.now(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	go sess.sample(sampleCtx)

	page, err := sess.Page(ctx)
	if err != nil {
		s.remove(sess.id)
		return nil, nil, err
	}

	slog.Info("results session opened", "session", sess.id, "query", page.Query)
	return sess, page, nil
}

// Get returns an open session and marks it as used.
func (s *SearchService) Get(id string) (*ResultsSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.touch()
	return sess, nil
}

// Close closes and forgets a session.
func (s *SearchService) Close(id string) error {
	if !s.remove(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (s *SearchService) remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
	return ok
}

// Len returns the number of open sessions.
func (s *SearchService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes sessions idle for longer than the session TTL and returns how
// many were closed.
func (s *SearchService) Reap() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.remove(id)
	}
	if len(expired) > 0 {
		slog.Info("reaped idle results sessions", "count", len(expired))
	}
	return len(expired)
}

// RunReaper reaps idle sessions every interval until ctx ends, then closes
// every remaining session.
func (s *SearchService) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}

func (s *SearchService) closeAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*ResultsSession)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

// rows renders the items carrying metadata as table rows.
func (s *SearchService) rows(items []domain.Item, offset int) []domain.ResultRow {
	rows := make([]domain.ResultRow, 0, len(items))
	for i, it := range items {
		if len(it.Meta) == 0 {
			continue
		}
		row := domain.ResultRow{
			Index:     offset + i + 1,
			ID:        it.ID,
			Name:      it.Name,
			ImagePath: "/item/" + it.ID,
			ViewURL:   s.api.ItemURL(it.ID),
		}
		if v, ok := it.Meta[sensorModalityKey]; ok && v != nil {
			row.SensorModality = valueString(v)
		}
		if sec, ok := toFloat(it.Meta[s.filterCfg.TimestampKey]); ok {
			row.Timestamp = time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
		}
		if it.HasThumbnail() {
			row.ThumbnailID = it.Thumbnails[0]
			row.ImagePath = "/file/" + it.Thumbnails[0]
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *SearchService) publish(ctx context.Context, sessionID, q string, offset, fetched int, done bool) {
	if s.publisher == nil {
		return
	}
	p := &domain.SampleProgress{
		Scope:   "session",
		ScopeID: sessionID,
		Query:   q,
		Offset:  offset,
		Fetched: fetched,
		Done:    done,
	}
	if err := s.publisher.PublishSampleProgress(ctx, p); err != nil {
		slog.Debug("publish session progress failed", "session", sessionID, "error", err)
	}
}
