package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/GoSim-25-26J-441/apk-studio-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/api/http/routes"
	authmw "github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth/middleware"
	projecthttp "github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	DB             httpapi.Pinger
	Redis          *redis.Client
	Projects       *projecthttp.Handler
	Verifier       authmw.TokenVerifier
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Disposition", middleware.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	routes.RegisterV1(r, routes.V1Deps{
		Projects: dep.Projects,
		Verifier: dep.Verifier,
	})

	return r
}
