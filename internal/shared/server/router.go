package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"livebook-backend/internal/livebooks"
	"livebook-backend/internal/services/health"
	"livebook-backend/internal/shared/config"
	"livebook-backend/internal/shared/metrics"
	"livebook-backend/internal/shared/server/middleware"
	"livebook-backend/internal/shared/server/respond"
	"livebook-backend/internal/talks"
)

// RouterDeps carries the handlers the router wires up. Bootstrap owns
// their construction.
type RouterDeps struct {
	Config           config.Config
	Health           *health.Service
	TalksHandler     *talks.Handler
	LivebooksHandler *livebooks.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity(),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.Config.ObjectStoreType == "local" {
		r.Static("/files", deps.Config.LocalStoreDir)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := gin.H{"ok": true}
		if deps.Health != nil {
			status = gin.H{}
			for k, v := range deps.Health.Status(c.Request.Context()) {
				status[k] = v
			}
		}
		respond.JSON(c, http.StatusOK, status)
	})
	if deps.TalksHandler != nil {
		deps.TalksHandler.RegisterRoutes(api)
	}
	if deps.LivebooksHandler != nil {
		deps.LivebooksHandler.RegisterRoutes(api)
	}

	// The transcription collaborator posts results here. The group sits
	// outside /api/v1 so edge auth can fence it off separately.
	if deps.TalksHandler != nil {
		internal := r.Group("/internal")
		deps.TalksHandler.RegisterInternalRoutes(internal)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
