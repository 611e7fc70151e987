package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/sections/:sectionId/access", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/sections/:sectionId/access", "200"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sections/7/access", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/sections/:sectionId/access", "200")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404")), 1.0)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(accessDecisions.WithLabelValues("quiz", ResultDenied))
	RecordAccessDecision("quiz", ResultDenied)
	assert.Equal(t, before+1, testutil.ToFloat64(accessDecisions.WithLabelValues("quiz", ResultDenied)))

	RecordDBPool(4, 1, 3)
	assert.Equal(t, 4.0, testutil.ToFloat64(dbConnections.WithLabelValues("open")))
	assert.Equal(t, 3.0, testutil.ToFloat64(dbConnections.WithLabelValues("idle")))

	SetDependencyUp("redis", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(dependencyUp.WithLabelValues("redis")))
	SetDependencyUp("redis", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(dependencyUp.WithLabelValues("redis")))
}
