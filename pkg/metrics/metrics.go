package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Database query latency by operation and table.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	accessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access checker decisions by content type and result (granted, denied, error).",
	}, []string{"content_type", "result"})

	capabilitiesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capabilities_issued_total",
		Help: "Signed capabilities issued by content type.",
	}, []string{"content_type"})

	capabilityVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capability_verifications_total",
		Help: "Signed capability verifications by result.",
	}, []string{"result"})

	dbConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "db_pool_connections",
		Help: "Database pool connections by state (open, in_use, idle).",
	}, []string{"state"})

	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dependency_up",
		Help: "1 when the last probe of a dependency succeeded.",
	}, []string{"dependency"})
)

// Access decision results.
const (
	ResultGranted = "granted"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDBQuery observes a single database query.
func RecordDBQuery(operation, table string, elapsed time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordAccessDecision counts an access checker outcome.
func RecordAccessDecision(contentType, result string) {
	accessDecisions.WithLabelValues(contentType, result).Inc()
}

// RecordCapabilityIssued counts a minted capability.
func RecordCapabilityIssued(contentType string) {
	capabilitiesIssued.WithLabelValues(contentType).Inc()
}

// RecordCapabilityVerification counts a verification outcome.
func RecordCapabilityVerification(result string) {
	capabilityVerifications.WithLabelValues(result).Inc()
}

// RecordDBPool publishes a snapshot of the connection pool.
func RecordDBPool(open, inUse, idle int) {
	dbConnections.WithLabelValues("open").Set(float64(open))
	dbConnections.WithLabelValues("in_use").Set(float64(inUse))
	dbConnections.WithLabelValues("idle").Set(float64(idle))
}

// SetDependencyUp records the result of a dependency probe.
func SetDependencyUp(name string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	dependencyUp.WithLabelValues(name).Set(v)
}
