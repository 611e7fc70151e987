package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ready(t *testing.T, checks map[string]Pinger) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/ready", NewHandler(nil, checks, logger.Discard()).Ready)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadyAllHealthy(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })

	code, body := ready(t, map[string]Pinger{"database": ok, "redis": ok})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, body.Checks)
}

func TestReadyReportsFailure(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	code, body := ready(t, map[string]Pinger{"database": ok, "redis": down})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["redis"])
}

func TestReadyChecksRunInParallel(t *testing.T) {
	slow := PingFunc(func(ctx context.Context) error {
		select {
		case <-time.After(300 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	start := time.Now()
	code, _ := ready(t, map[string]Pinger{"a": slow, "b": slow, "c": slow})
	assert.Equal(t, http.StatusOK, code)
	assert.Less(t, time.Since(start), 800*time.Millisecond)
}
