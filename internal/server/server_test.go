package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifeed/backend/internal/config"
	"github.com/minifeed/backend/internal/logging"
	"github.com/minifeed/backend/internal/middleware"
	"github.com/minifeed/backend/internal/posts"
	"github.com/minifeed/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(key string) string {
		if key == "STORAGE" {
			return config.StorageMemory
		}
		return ""
	})
	require.NoError(t, err)
	return cfg
}

func newEngine(t *testing.T, health HealthFunc) *gin.Engine {
	t.Helper()
	svc := posts.NewService(memory.New(), logging.Discard())
	return New(testConfig(t), svc, health, logging.Discard()).RegisterRoutes()
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)
	srv := NewServer(cfg, posts.NewService(memory.New(), logging.Discard()), nil, logging.Discard())

	assert.Equal(t, "0.0.0.0:3001", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.NotZero(t, srv.ReadTimeout)
	assert.NotZero(t, srv.WriteTimeout)
}

func TestHealth(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		r := newEngine(t, func() map[string]string {
			return map[string]string{"status": "up", "driver": "sqlite"}
		})
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Status   string            `json:"status"`
			Database map[string]string `json:"database"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "sqlite", body.Database["driver"])
	})

	t.Run("memory store has no health func", func(t *testing.T) {
		rec := serve(newEngine(t, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("down", func(t *testing.T) {
		r := newEngine(t, func() map[string]string {
			return map[string]string{"status": "down", "error": "db down"}
		})
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"degraded"`)
	})
}

func TestDocs(t *testing.T) {
	r := newEngine(t, nil)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Title   string     `json:"title"`
		Version string     `json:"version"`
		Tag     string     `json:"tag"`
		Routes  []routeDoc `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Mini Feed API", body.Title)
	assert.Equal(t, "posts", body.Tag)
	assert.Contains(t, body.Routes, routeDoc{Method: http.MethodPost, Path: "/posts/:id/comments"})
	assert.Contains(t, body.Routes, routeDoc{Method: http.MethodDelete, Path: "/posts/:id"})
	assert.Contains(t, body.Routes, routeDoc{Method: http.MethodGet, Path: "/posts"})
}

func TestMetricsEndpoint(t *testing.T) {
	r := newEngine(t, nil)
	serve(r, httptest.NewRequest(http.MethodGet, "/posts", nil))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "minifeed_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/posts"`)
}

func TestCORS(t *testing.T) {
	r := newEngine(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(r, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = serve(r, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDEchoed(t *testing.T) {
	r := newEngine(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec := serve(r, req)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/posts", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRoutesEndToEnd(t *testing.T) {
	r := newEngine(t, nil)
	jsonReq := func(method, path, body string) *http.Request {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	rec := serve(r, jsonReq(http.MethodPost, "/posts", `{"content":"hi"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var post struct {
		ID    int `json:"id"`
		Liked int `json:"liked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	path := "/posts/" + strconv.Itoa(post.ID)

	assert.Equal(t, http.StatusOK, serve(r, jsonReq(http.MethodPut, path, `{"content":"edited"}`)).Code)
	assert.Equal(t, http.StatusOK, serve(r, jsonReq(http.MethodPost, path+"/like", "")).Code)
	assert.Equal(t, http.StatusOK, serve(r, jsonReq(http.MethodPost, path+"/dislike", "")).Code)
	assert.Equal(t, http.StatusOK, serve(r, jsonReq(http.MethodPost, path+"/comments", `{"content":"nice"}`)).Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"edited"`)
	assert.Contains(t, rec.Body.String(), `"liked":1`)
	assert.Contains(t, rec.Body.String(), `"disliked":1`)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodDelete, path, nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, path, nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)
}

