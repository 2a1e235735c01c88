package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/httputil"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/middleware"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

type registrarFunc func(router *mux.Router)

func (f registrarFunc) RegisterRoutes(router *mux.Router) { f(router) }

func TestNewServerInitialization(t *testing.T) {
	server := NewServer(&mockService{}, Options{})

	require.NotNil(t, server)
	assert.NotNil(t, server.router, "router should be initialized")
	assert.NotNil(t, server.logger)
	assert.Equal(t, []string{"*"}, server.opts.AllowedOrigins)
}

func TestServerServeHTTP_NotFound(t *testing.T) {
	server := newTestServer(&mockService{})

	w := serve(t, server, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerServeHTTP_MethodNotAllowed(t *testing.T) {
	server := newTestServer(&mockService{})

	w := serve(t, server, httptest.NewRequest(http.MethodPost, "/components", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandler_RequestIDAndCORS(t *testing.T) {
	h := newTestServer(&mockService{}).Handler()

	req := httptest.NewRequest("GET", "/handshake", nil)
	req.Header.Set("Origin", "https://ds.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(httputil.RequestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_Preflight(t *testing.T) {
	h := newTestServer(&mockService{}).Handler()

	req := httptest.NewRequest("OPTIONS", "/components/1", nil)
	req.Header.Set("Origin", "https://ds.example.com")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_RateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    15 * time.Minute,
		Message:           middleware.DefaultRateLimitMessage,
	})
	server := NewServer(&mockService{}, Options{
		Logger:      observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
		RateLimiter: middleware.NewRateLimitMiddleware(limiter, "api", nil, nil),
	})
	h := server.Handler()

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/handshake", nil)
		req.RemoteAddr = "198.51.100.1:5555"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.JSONEq(t, `{"error":"Too many requests from this IP, please try again after 15 minutes"}`, last.Body.String())
}

func TestHandler_UnsupportedContentType(t *testing.T) {
	h := newTestServer(&mockService{}).Handler()

	req := httptest.NewRequest("POST", "/categories/Actions/components", bytes.NewBufferString("name=Button"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	server := NewServer(&mockService{}, Options{
		Logger:       observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
		MaxBodyBytes: 16,
	})
	h := server.Handler()

	req := jsonRequest("POST", "/categories/Actions/components", `{"name":"A very long component name"}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandler_RecoversPanics(t *testing.T) {
	server := newTestServer(&mockService{})
	server.RegisterRoutes(registrarFunc(func(router *mux.Router) {
		router.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
			panic("unexpected")
		})
	}))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestHandler_StaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>catalog</h1>"), 0o644))

	server := NewServer(&mockService{count: 1}, Options{
		Logger:    observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
		StaticDir: dir,
	})
	h := server.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/index.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "catalog")

	// API routes still win over the file server
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/count", nil))
	assert.JSONEq(t, `{"count":1}`, w.Body.String())
}

func TestHandler_Metrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	server := NewServer(&mockService{}, Options{
		Logger:  observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
		Metrics: metrics,
	})

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("DELETE", "/components/9", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("DELETE", "/components/{id}", "200"),
	))
}

func TestHandler_ErrorLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(&mockService{err: errors.New("pq: connection refused")}, Options{
		Logger: observability.NewLogger(observability.ErrorLevel, &buf),
	})

	req := httptest.NewRequest("GET", "/count", nil)
	req.Header.Set(httputil.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	first, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(first, &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Contains(t, entry["error"], "connection refused")
}
