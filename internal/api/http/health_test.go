package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, h *HealthHandler, path string) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHealthCheck_Disabled(t *testing.T) {
	code, resp := serveHealth(t, NewHealthHandler("apk-studio-backend", "1.0.0", nil, nil), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "disabled", resp.DB)
	assert.Equal(t, "disabled", resp.Redis)
	assert.Equal(t, "apk-studio-backend", resp.Service)
}

func TestHealthCheck_WithDependencies(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	up := pingFunc(func(context.Context) error { return nil })
	code, resp := serveHealth(t, NewHealthHandler("svc", "v", up, rdb), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "up", resp.DB)
	assert.Equal(t, "up", resp.Redis)

	down := pingFunc(func(context.Context) error { return errors.New("refused") })
	code, resp = serveHealth(t, NewHealthHandler("svc", "v", down, rdb), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.DB)
}
