package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/build"
	projecthttp "github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/http"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/service"
)

func testRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := service.NewProjectService(service.Deps{
		Store:        repository.NewMemoryStore(),
		Collaborator: build.NewArchive(nil),
	}, service.Options{ProjectsDir: t.TempDir(), UploadDir: t.TempDir()})
	require.NoError(t, err)

	return BuildRouter(RouterDeps{
		ServiceName:    "apk-studio-backend",
		Version:        "test",
		AllowedOrigins: origins,
		Projects:       projecthttp.New(svc, t.TempDir(), 0),
	})
}

func TestBuildRouter_HealthAndProjects(t *testing.T) {
	r := testRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "apk-studio-backend", health["service"])

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-User-Id", "alice")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"projects":[]}`, w.Body.String())
}

func TestBuildRouter_CORS(t *testing.T) {
	r := testRouter(t, []string{"https://studio.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://studio.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsConfig_Wildcard(t *testing.T) {
	assert.True(t, corsConfig(nil).AllowAllOrigins)
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)

	cfg := corsConfig([]string{"https://a.example.com"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example.com"}, cfg.AllowOrigins)
}

func TestSetGinMode(t *testing.T) {
	defer gin.SetMode(gin.TestMode)

	SetGinMode("production")
	assert.Equal(t, gin.ReleaseMode, gin.Mode())

	SetGinMode("test")
	assert.Equal(t, gin.TestMode, gin.Mode())
}

func TestOpenHelpers_RequireAddress(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisOptions{})
	assert.Error(t, err)

	_, err = OpenDB(context.Background(), DBOptions{})
	assert.Error(t, err)

	_, err = OpenSQL(context.Background(), DBOptions{})
	assert.Error(t, err)
}
