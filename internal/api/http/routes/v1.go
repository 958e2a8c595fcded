package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth"
	authmw "github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth/middleware"
	projecthttp "github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/http"
)

type V1Deps struct {
	Projects *projecthttp.Handler
	// Verifier enables Firebase authentication. Without it callers are
	// identified by the X-User-Id header.
	Verifier authmw.TokenVerifier
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	if dep.Verifier != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier))
	} else {
		api.Use(auth.OptionalUser())
	}

	dep.Projects.Register(api)
}
