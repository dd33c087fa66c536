package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/pkg/metrics"
)

const (
	// SubjectHeatmapProgress carries heatmap sampling progress.
	SubjectHeatmapProgress = "geofacet.progress.heatmap"
	// SubjectSessionProgress prefixes per-session sampling progress.
	SubjectSessionProgress = "geofacet.progress.session."
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "GEOFACET_PROGRESS",
			Subjects:  []string{"geofacet.progress.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    10 * time.Minute,
			Storage:   nats.MemoryStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishSampleProgress publishes one progress event.
func (p *Publisher) PublishSampleProgress(ctx context.Context, sp *domain.SampleProgress) error {
	metrics.SamplePagesFetched.WithLabelValues(sp.Scope).Inc()
	metrics.SampleItemsSeen.WithLabelValues(sp.Scope).Add(float64(sp.Fetched))

	data, err := EncodeProgress(sp)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ProgressSubject(sp), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// ProgressSubject returns the subject an event is published on.
func ProgressSubject(sp *domain.SampleProgress) string {
	if sp.Scope == "session" && sp.ScopeID != "" {
		return SubjectSessionProgress + sp.ScopeID
	}
	return SubjectHeatmapProgress
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
