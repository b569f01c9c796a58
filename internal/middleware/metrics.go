package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// streamed bodies are still being written when this is observed
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traceview_http_request_duration_seconds",
			Help:    "Time until the response is committed, excluding streamed bodies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpResponseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traceview_http_response_bytes",
			Help:    "Size of buffered response bodies",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"route"},
	)

	httpStreamedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_http_streamed_responses_total",
			Help: "Responses sent with a streamed body",
		},
		[]string{"route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traceview_http_in_flight_requests",
			Help: "Requests currently being handled",
		},
	)
)

// MetricsConfig configures the metrics middleware
type MetricsConfig struct {
	// Skip excludes requests from the metrics
	Skip func(*fiber.Ctx) bool
}

// DefaultMetricsConfig skips probes and the scrape endpoint
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Skip: HealthSkipper,
	}
}

// MetricsMiddleware records Prometheus HTTP metrics
type MetricsMiddleware struct {
	config MetricsConfig
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(config MetricsConfig) *MetricsMiddleware {
	return &MetricsMiddleware{
		config: config,
	}
}

// Handler returns the metrics handler. Requests are labelled by the matched
// route, never by the raw path.
func (m *MetricsMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		// label values are retained by the child metric
		route := c.Route().Path
		method := utils.CopyString(c.Method())
		resp := c.Response()

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if resp.IsBodyStream() {
			httpStreamedResponses.WithLabelValues(route).Inc()
		} else {
			httpResponseBytes.WithLabelValues(route).Observe(float64(len(resp.Body())))
		}

		return err
	}
}
