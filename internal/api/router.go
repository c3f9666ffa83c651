package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/pitchtrack/internal/api/handler"
	"github.com/timmy/pitchtrack/internal/api/middleware"
	"github.com/timmy/pitchtrack/internal/config"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/service"
	"github.com/timmy/pitchtrack/internal/storage"
)

// Version is the service version reported by the health endpoint.
const Version = "1.0.0"

// SetupRouter configures the Gin router with all routes. The video routes
// are registered only when object storage is configured.
func SetupRouter(
	orchestrator *service.Orchestrator,
	index handler.JobIndex,
	store storage.ObjectStorage,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler(orchestrator, Version)
	detectionHandler := handler.NewDetectionHandler(orchestrator, index)

	// Health check
	r.GET("/health", healthHandler.Health)

	// Detection API routes
	detect := r.Group("/api/detect")
	{
		detect.POST("/start", detectionHandler.Start)
		detect.GET("/status/:id", detectionHandler.Status)
		detect.GET("/results/:id", detectionHandler.Results)
		detect.POST("/cancel/:id", detectionHandler.Cancel)
		detect.GET("/jobs", detectionHandler.List)
	}

	// Video object routes, backing storage:// locators
	if store != nil {
		videoHandler := handler.NewVideoHandler(store)
		videos := r.Group("/api/videos")
		{
			videos.POST("", videoHandler.Upload)
			videos.DELETE("/*key", videoHandler.Delete)
		}
	}

	return r
}
