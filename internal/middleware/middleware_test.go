package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/fintrack-auth/internal/config"
	"github.com/smallbiznis/fintrack-auth/internal/http/response"
	"github.com/smallbiznis/fintrack-auth/internal/middleware"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := newEngine(middleware.CORS(config.Config{
		CORSAllowedOrigins: []string{"https://app.fintrack.test"},
		CORSAllowedMethods: []string{"GET", "POST"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.fintrack.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://app.fintrack.test", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
	require.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	r := newEngine(middleware.CORS(config.Config{CORSAllowedOrigins: []string{"https://app.fintrack.test"}}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.Config{CORSAllowedOrigins: []string{"*"}, CORSAllowCredentials: true}
	r := newEngine(middleware.CORS(cfg))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.fintrack.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.fintrack.test", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	r := newEngine(middleware.CORS(config.Config{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST"},
	}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://anywhere.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSMatchesOriginCaseInsensitively(t *testing.T) {
	r := newEngine(middleware.CORS(config.Config{CORSAllowedOrigins: []string{"https://App.FinTrack.test/"}}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.fintrack.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "https://app.fintrack.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"b"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"`+strings.Repeat("b", 64)+`"}`)))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"`+strings.Repeat("b", 64)+`"}`))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	limiter := middleware.NewRateLimiter(10)
	r := newEngine(limiter.Handler())

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, serve("10.0.0.1").Code)

	limited := serve("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	var body response.Envelope
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.NotEmpty(t, body.Message)

	require.Equal(t, http.StatusOK, serve("10.0.0.2").Code)
	require.Equal(t, 2, limiter.Len())
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := middleware.NewRateLimiter(0)
	require.Nil(t, limiter)

	r := newEngine(limiter.Handler())
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
