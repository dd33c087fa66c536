package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofacet",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofacet",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Asset API metrics
	AssetAPIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofacet",
		Subsystem: "asset_api",
		Name:      "request_duration_seconds",
		Help:      "Latency of asset API calls",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	AssetAPIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "asset_api",
		Name:      "errors_total",
		Help:      "Total failed asset API calls",
	}, []string{"operation"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "geofacet",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "circuit_breaker",
		Name:      "transitions_total",
		Help:      "Total circuit breaker state transitions",
	}, []string{"name", "from", "to"})

	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "circuit_breaker",
		Name:      "requests_total",
		Help:      "Requests through the circuit breaker by result",
	}, []string{"name", "result"})

	// Sampling metrics
	SamplePagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "sampling",
		Name:      "pages_fetched_total",
		Help:      "Total sample pages fetched",
	}, []string{"scope"})

	SampleItemsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "sampling",
		Name:      "items_seen_total",
		Help:      "Total items seen by samplers",
	}, []string{"scope"})

	ThumbnailsRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "thumbnails",
		Name:      "requested_total",
		Help:      "Total thumbnail generation requests",
	}, []string{"mode"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofacet",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofacet",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofacet",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofacet",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofacet",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// ObserveAssetAPI records the outcome of one asset API call.
func ObserveAssetAPI(operation string, start time.Time, err error) {
	AssetAPIRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		AssetAPIErrors.WithLabelValues(operation).Inc()
	}
}

// RegisterActiveSessions exposes the number of open results sessions. It
// must be called once per process.
func RegisterActiveSessions(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "geofacet",
		Subsystem: "search",
		Name:      "active_sessions",
		Help:      "Current number of open results sessions",
	}, func() float64 { return float64(count()) })
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Accept an interface so this package does not import pgxpool.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
