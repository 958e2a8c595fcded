package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db"`
	Redis     string    `json:"redis"`
}

type HealthHandler struct {
	serviceName string
	version     string
	db          Pinger
	redis       *redis.Client
}

// NewHealthHandler reports on the optional database and Redis. A nil
// dependency is reported as "disabled".
func NewHealthHandler(serviceName, version string, db Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		redis:       rdb,
	}
}

func probe(ctx context.Context, enabled bool, ping func(context.Context) error) string {
	if !enabled {
		return "disabled"
	}
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	if err := ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        probe(ctx, h.db != nil, func(ctx context.Context) error { return h.db.Ping(ctx) }),
		Redis:     probe(ctx, h.redis != nil, func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }),
	}

	status := http.StatusOK
	if resp.DB == "down" || resp.Redis == "down" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
