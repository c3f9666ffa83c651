package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/pitchtrack/internal/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	orchestrator *service.Orchestrator
	version      string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(orchestrator *service.Orchestrator, version string) *HealthHandler {
	return &HealthHandler{orchestrator: orchestrator, version: version}
}

// Health returns the health status of the service, including job capacity
// and detector availability.
func (h *HealthHandler) Health(c *gin.Context) {
	det := h.orchestrator.Detector()
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"version":            h.version,
		"active_jobs":        h.orchestrator.Active(),
		"max_concurrent":     h.orchestrator.Capacity(),
		"detector":           det.Name(),
		"detector_available": det.Available(),
	})
}
