package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/service"
)

// JobIndex lists persisted jobs by status. Satisfied by the job repository.
type JobIndex interface {
	ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.DetectionJob, error)
	CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error)
}

// DetectionHandler handles detection job endpoints.
type DetectionHandler struct {
	orchestrator *service.Orchestrator
	index        JobIndex
}

// NewDetectionHandler creates a new detection handler.
// Parameters:
//   - orchestrator: job orchestrator instance.
//   - index: job listing backend.
// Returns:
//   - *DetectionHandler: initialized handler.
func NewDetectionHandler(orchestrator *service.Orchestrator, index JobIndex) *DetectionHandler {
	return &DetectionHandler{
		orchestrator: orchestrator,
		index:        index,
	}
}

// Start handles POST /api/detect/start.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DetectionHandler) Start(c *gin.Context) {
	var cfg domain.DetectionConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	job, err := h.orchestrator.Submit(c.Request.Context(), cfg)
	if err != nil {
		writeJobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// Status handles GET /api/detect/status/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DetectionHandler) Status(c *gin.Context) {
	job, err := h.orchestrator.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeJobError(c, err)
		return
	}

	resp := gin.H{
		"job_id":   job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	}
	if job.ErrorMessage != "" {
		resp["error"] = job.ErrorMessage
	}
	if job.CompletedAt != nil {
		resp["completed_at"] = job.CompletedAt
	}
	c.JSON(http.StatusOK, resp)
}

// Results handles GET /api/detect/results/:id.
// Only completed jobs expose results; anything else is a 400.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DetectionHandler) Results(c *gin.Context) {
	job, err := h.orchestrator.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeJobError(c, err)
		return
	}

	resp := gin.H{
		"job_id":        job.ID,
		"status":        job.Status,
		"config":        job.Config,
		"results":       job.Results,
		"events":        job.Events,
		"detector_used": job.DetectorUsed,
		"completed_at":  job.CompletedAt,
	}
	// Aggregate metrics are best-effort; their absence never hides results
	if metrics, err := h.orchestrator.Metrics(c.Request.Context(), job.ID); err == nil {
		resp["metrics"] = metrics
	}
	c.JSON(http.StatusOK, resp)
}

// List handles GET /api/detect/jobs.
// Parameters:
//   - c: Gin request context with optional status, limit, offset query params.
// Returns: none (writes JSON response).
func (h *DetectionHandler) List(c *gin.Context) {
	status := domain.JobStatus(c.DefaultQuery("status", string(domain.JobStatusCompleted)))
	switch status {
	case domain.JobStatusPending, domain.JobStatusProcessing,
		domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown status: " + string(status),
		})
		return
	}

	limit := parseIntQuery(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.index.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := h.index.CountByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Listings stay light: full frame results come from the results endpoint
	summaries := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, gin.H{
			"job_id":     job.ID,
			"status":     job.Status,
			"progress":   job.Progress,
			"created_at": job.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   summaries,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func parseIntQuery(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

// Cancel handles POST /api/detect/cancel/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DetectionHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.orchestrator.Cancel(c.Request.Context(), id); err != nil {
		writeJobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": id,
		"status": "cancelling",
	})
}

// writeJobError maps domain errors to HTTP status codes.
func writeJobError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var capacityErr *domain.CapacityError
	var sourceErr *domain.SourceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": capacityErr.Error()})
	case errors.As(err, &sourceErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": sourceErr.Error()})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, domain.ErrJobNotCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job is not completed yet"})
	case errors.Is(err, domain.ErrJobFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "Job already finished"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
