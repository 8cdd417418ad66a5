package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callvault-team/callvault/internal/infrastructure/queue"
	"github.com/callvault-team/callvault/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg                  *config.Config
	recordingHandler     *Recording
	transcriptionHandler *Transcription
	jobs                 queue.Queue
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, recordingHandler *Recording, transcriptionHandler *Transcription, jobs queue.Queue) *Router {
	return &Router{
		cfg:                  cfg,
		recordingHandler:     recordingHandler,
		transcriptionHandler: transcriptionHandler,
		jobs:                 jobs,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupRecordingRoutes(v1)
}

// setupRecordingRoutes configures recording and transcription routes
func (rt *Router) setupRecordingRoutes(g *echo.Group) {
	recordings := g.Group("/recordings")

	recordings.POST("", rt.recordingHandler.Upload)
	recordings.POST("/import", rt.recordingHandler.Import)
	recordings.POST("/check-duplicate", rt.recordingHandler.CheckDuplicate)
	recordings.GET("", rt.recordingHandler.List)
	recordings.GET("/:id", rt.recordingHandler.Get)
	recordings.DELETE("/:id", rt.recordingHandler.Delete)
	recordings.GET("/:id/download", rt.recordingHandler.Download)

	recordings.POST("/:id/transcribe", rt.transcriptionHandler.Request)
	recordings.GET("/:id/transcription", rt.transcriptionHandler.Get)
}

// healthCheck returns health status including queue depths
func (rt *Router) healthCheck(c echo.Context) error {
	body := map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().Format(time.RFC3339),
		"environment": rt.cfg.Server.Environment,
	}

	if rt.jobs != nil {
		if stats, err := rt.jobs.Stats(c.Request().Context()); err == nil {
			body["queue"] = stats
		} else {
			body["status"] = "degraded"
			body["queue_error"] = err.Error()
		}
	}

	return c.JSON(http.StatusOK, body)
}
