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
		Namespace: "siteboundary",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "siteboundary",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "siteboundary",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Boundary editor metrics
	BoundaryEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "events_total",
		Help:      "Total boundary change events emitted by edit sessions",
	}, []string{"kind"})

	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "sessions_opened_total",
		Help:      "Total boundary edit sessions opened",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "active_sessions",
		Help:      "Boundary edit sessions currently mounted",
	})

	SessionMountFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "mount_failures_total",
		Help:      "Edit sessions that could not acquire a map viewport",
	})

	BoundarySaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "saves_total",
		Help:      "Boundary drafts written to sites",
	}, []string{"result"})

	EventPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "publish_errors_total",
		Help:      "Boundary events that could not be published to NATS",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "events_dropped_total",
		Help:      "Boundary events missed by session subscribers with a full buffer",
	})

	BoundaryVertices = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "siteboundary",
		Subsystem: "boundary",
		Name:      "vertices",
		Help:      "Vertex count of emitted boundary rings",
		Buckets:   []float64{0, 3, 4, 6, 10, 20, 50, 100, 500},
	})

	// Auditor metrics
	AuditedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "auditor",
		Name:      "events_total",
		Help:      "Boundary events recorded in the boundary history",
	}, []string{"kind"})

	AuditErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "auditor",
		Name:      "errors_total",
		Help:      "Boundary events that could not be recorded and were redelivered",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteboundary",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteboundary",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteboundary",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteboundary",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteboundary",
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

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
// It takes an interface so this package does not depend on pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
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
