package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"credcore/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedRouter(requests, window int) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.RateLimit.Requests = requests
	cfg.RateLimit.Window = window

	r := gin.New()
	r.Use(NewRateLimiter(cfg).Middleware())
	r.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/resource", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r *gin.Engine, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	r := newRateLimitedRouter(5, 60)

	for i := 0; i < 5; i++ {
		w := doGet(r, "/api/v1/resource", "192.0.2.1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	r := newRateLimitedRouter(2, 60)

	for i := 0; i < 2; i++ {
		w := doGet(r, "/api/v1/resource", "192.0.2.2")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doGet(r, "/api/v1/resource", "192.0.2.2")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimiterPerIP(t *testing.T) {
	r := newRateLimitedRouter(1, 60)

	w := doGet(r, "/api/v1/resource", "192.0.2.3")
	require.Equal(t, http.StatusOK, w.Code)
	w = doGet(r, "/api/v1/resource", "192.0.2.3")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different client still has budget
	w = doGet(r, "/api/v1/resource", "192.0.2.4")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterExemptsHealth(t *testing.T) {
	r := newRateLimitedRouter(1, 60)

	for i := 0; i < 10; i++ {
		w := doGet(r, "/api/v1/health", "192.0.2.5")
		require.Equal(t, http.StatusOK, w.Code)
	}
}
