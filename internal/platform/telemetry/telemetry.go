// Package telemetry exposes the service's Prometheus metrics: HTTP
// traffic, schedule materialization, ledger overdraft warnings and
// geofence mismatches.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caretrack",
		Name:      "http_requests_total",
		Help:      "HTTP requests processed, labelled by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "caretrack",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// MaterializerRuns counts schedule generation invocations by outcome.
	MaterializerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caretrack",
		Subsystem: "materializer",
		Name:      "runs_total",
		Help:      "Schedule generation runs by outcome.",
	}, []string{"outcome"})

	// MaterializerOccurrences counts concrete visit occurrences created.
	MaterializerOccurrences = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "caretrack",
		Subsystem: "materializer",
		Name:      "occurrences_created_total",
		Help:      "Concrete schedule events created from recurring templates.",
	})

	// MaterializerDuration observes the duration of generation runs.
	MaterializerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "caretrack",
		Subsystem: "materializer",
		Name:      "run_duration_seconds",
		Help:      "Duration of schedule generation runs.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	})

	// LedgerOverdrafts counts consumption postings that exceeded the
	// authorization's remaining balance. Non-fatal, but reportable.
	LedgerOverdrafts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "caretrack",
		Subsystem: "ledger",
		Name:      "overdraft_warnings_total",
		Help:      "Unit consumptions posted past an authorization's remaining balance.",
	})

	// GeofenceResults counts check-event geofence outcomes.
	GeofenceResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caretrack",
		Subsystem: "geofence",
		Name:      "validations_total",
		Help:      "Geofence validation outcomes for check events.",
	}, []string{"status"})
)

// Handler serves the Prometheus text exposition endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware instruments every request with count and latency metrics.
// The route template (not the raw path) is used so schedule-event ids do
// not explode the label space.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
