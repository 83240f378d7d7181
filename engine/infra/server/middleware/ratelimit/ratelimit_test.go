package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/compozy/listview/pkg/config"
)

func buildRouterForTest(t *testing.T, cfg config.RateLimitConfig, excluded ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := NewManager(cfg, noop.NewMeterProvider().Meter("test"), excluded...)
	require.NoError(t, err)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/t", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "metrics") })
	return r
}

func doReq(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	r.ServeHTTP(w, req)
	return w
}

func TestManager(t *testing.T) {
	t.Run("Should block requests over the limit", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{Limit: 1, Period: time.Minute})
		require.Equal(t, http.StatusOK, doReq(r, "/t").Code)
		w := doReq(r, "/t")
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
	})

	t.Run("Should set rate limit headers", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{Limit: 2, Period: time.Minute})
		w := doReq(r, "/t")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("Should skip excluded paths", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{Limit: 1, Period: time.Minute}, "/metrics")
		for range 3 {
			assert.Equal(t, http.StatusOK, doReq(r, "/metrics").Code)
		}
	})

	t.Run("Should reject empty rates", func(t *testing.T) {
		_, err := NewManager(config.RateLimitConfig{}, noop.NewMeterProvider().Meter("test"))
		assert.ErrorIs(t, err, ErrInvalidRate)
	})
}
